package pricing

import (
	"math/big"

	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"go.uber.org/zap"
)

// Resolver decides which pricing group applies to a minter, given the chapter
// they were natively whitelisted in, and what they pay.
type Resolver struct {
	logger   *zap.Logger
	chapters episode.ChapterSource
}

// NewResolver creates a pricing group resolver over the installed chapters.
func NewResolver(logger *zap.Logger, chapters episode.ChapterSource) *Resolver {
	return &Resolver{
		logger:   logger,
		chapters: chapters,
	}
}

// GroupRule reports whether minters native to origin may mint while current is
// active and whether they do so at origin's fixed price. Natives of the
// current chapter are an implicit enabled group paying the current price.
func (r *Resolver) GroupRule(
	current episode.ChapterID,
	origin episode.ChapterID,
) (enabled bool, fixedPrice bool) {
	chapter, ok := r.chapters.Chapter(current)
	if !ok {
		return false, false
	}

	if rule, ok := chapter.Rule(origin); ok && rule.Enabled {
		return true, rule.FixedPrice
	}

	return origin == current, false
}

// CurrentGroupPrice returns the unit price paid by minters native to origin
// in the current chapter.
func (r *Resolver) CurrentGroupPrice(origin episode.ChapterID) *big.Int {
	current, err := r.chapters.CurrentChapter()
	if err != nil {
		return new(big.Int)
	}

	if _, fixed := r.GroupRule(current.ID(), origin); fixed {
		if originChapter, ok := r.chapters.Chapter(origin); ok {
			r.logger.Debug(
				"fixed group price",
				zap.String("current", current.Label),
				zap.String("origin", originChapter.Label),
			)
			return originChapter.UnitPrice()
		}
	}

	return current.UnitPrice()
}

// CurrentDefaultPrice returns the current chapter's own unit price, paid on
// the open mint path.
func (r *Resolver) CurrentDefaultPrice() *big.Int {
	current, err := r.chapters.CurrentChapter()
	if err != nil {
		return new(big.Int)
	}
	return current.UnitPrice()
}

// OfferMatchesGroupPrice reports whether offer is exactly quantity times the
// group price of origin. Overpayment does not match.
func (r *Resolver) OfferMatchesGroupPrice(
	origin episode.ChapterID,
	quantity uint64,
	offer *big.Int,
) bool {
	return Matches(r.CurrentGroupPrice(origin), quantity, offer)
}

// OfferMatchesDefaultPrice is the open mint counterpart of
// OfferMatchesGroupPrice.
func (r *Resolver) OfferMatchesDefaultPrice(
	quantity uint64,
	offer *big.Int,
) bool {
	return Matches(r.CurrentDefaultPrice(), quantity, offer)
}

// Total returns quantity × unitPrice.
func Total(unitPrice *big.Int, quantity uint64) *big.Int {
	return new(big.Int).Mul(unitPrice, new(big.Int).SetUint64(quantity))
}

// Matches reports whether offer equals quantity × unitPrice exactly.
func Matches(unitPrice *big.Int, quantity uint64, offer *big.Int) bool {
	if offer == nil {
		offer = new(big.Int)
	}
	return Total(unitPrice, quantity).Cmp(offer) == 0
}
