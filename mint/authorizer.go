package mint

import (
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/monuverse/arch-of-peace-contract/pricing"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Path distinguishes the two mint entry points.
type Path string

const (
	PathOpen       Path = "open"
	PathRestricted Path = "restricted"
)

type accountKey struct {
	account common.Address
	chapter episode.ChapterID
}

// Receipt describes a successful mint.
type Receipt struct {
	Path         Path
	Account      common.Address
	Chapter      episode.ChapterID
	Origin       episode.ChapterID
	Quantity     uint64
	FirstTokenID uint64
	Paid         *big.Int
	// ChapterMintedOut is set when this mint exhausted the chapter
	// allocation or the max supply.
	ChapterMintedOut bool
}

// Authorizer validates and applies mint requests. Every check runs before
// anything is mutated, a rejected request leaves no trace.
type Authorizer struct {
	logger   *zap.Logger
	chapters episode.ChapterSource
	verifier episode.WhitelistVerifier
	resolver episode.PricingGroupResolver
	ledger   *Ledger

	// Per account, per chapter cap on open mints.
	openMintLimit uint64

	mu               sync.Mutex
	chapterMinted    map[episode.ChapterID]uint64
	restrictedMinted map[accountKey]uint64
	openMinted       map[accountKey]uint64
	proceeds         *big.Int
}

// NewAuthorizer creates a mint authorizer crediting tokens to ledger.
func NewAuthorizer(
	logger *zap.Logger,
	chapters episode.ChapterSource,
	verifier episode.WhitelistVerifier,
	resolver episode.PricingGroupResolver,
	ledger *Ledger,
	openMintLimit uint64,
) *Authorizer {
	return &Authorizer{
		logger:           logger,
		chapters:         chapters,
		verifier:         verifier,
		resolver:         resolver,
		ledger:           ledger,
		openMintLimit:    openMintLimit,
		chapterMinted:    make(map[episode.ChapterID]uint64),
		restrictedMinted: make(map[accountKey]uint64),
		openMinted:       make(map[accountKey]uint64),
		proceeds:         new(big.Int),
	}
}

// Mint is the open (public) mint: no whitelist, the current chapter's default
// price.
func (a *Authorizer) Mint(
	account common.Address,
	quantity uint64,
	value *big.Int,
) (*Receipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	chapter, err := a.chapters.CurrentChapter()
	if err != nil {
		return nil, errors.Wrap(err, "mint")
	}
	if chapter.Minting.Limit == 0 {
		return nil, errors.Wrap(episode.ErrNoMintChapter, "mint")
	}
	if !chapter.Minting.IsOpen {
		return nil, errors.Wrap(episode.ErrSenderNotWhitelisted, "mint")
	}

	key := accountKey{account: account, chapter: chapter.ID()}
	if !a.quantityAllowed(chapter, quantity, a.openMinted[key], a.openMintLimit) {
		return nil, errors.Wrap(episode.ErrQuantityNotAllowed, "mint")
	}

	if !pricing.Matches(a.resolver.CurrentDefaultPrice(), quantity, value) {
		return nil, errors.Wrap(episode.ErrOfferUnmatched, "mint")
	}

	a.openMinted[key] += quantity
	return a.credit(PathOpen, chapter, chapter.ID(), account, quantity, value), nil
}

// MintRestricted is the whitelist gated mint. limit and origin must match the
// whitelist record of account, proof its Merkle path.
func (a *Authorizer) MintRestricted(
	account common.Address,
	quantity uint64,
	limit uint64,
	origin episode.ChapterID,
	proof []common.Hash,
	value *big.Int,
) (*Receipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	chapter, err := a.chapters.CurrentChapter()
	if err != nil {
		return nil, errors.Wrap(err, "mint restricted")
	}
	if chapter.Minting.Limit == 0 {
		return nil, errors.Wrap(episode.ErrNoMintChapter, "mint restricted")
	}
	if !a.verifier.Verify(account, limit, origin, proof) {
		return nil, errors.Wrap(episode.ErrSenderNotWhitelisted, "mint restricted")
	}

	key := accountKey{account: account, chapter: chapter.ID()}
	if !a.quantityAllowed(chapter, quantity, a.restrictedMinted[key], limit) {
		return nil, errors.Wrap(episode.ErrQuantityNotAllowed, "mint restricted")
	}

	if enabled, _ := a.resolver.GroupRule(chapter.ID(), origin); !enabled {
		return nil, errors.Wrap(episode.ErrGroupNotAllowed, "mint restricted")
	}

	if !pricing.Matches(a.resolver.CurrentGroupPrice(origin), quantity, value) {
		return nil, errors.Wrap(episode.ErrOfferUnmatched, "mint restricted")
	}

	a.restrictedMinted[key] += quantity
	return a.credit(PathRestricted, chapter, origin, account, quantity, value), nil
}

// quantityAllowed checks quantity against the account cap, the chapter
// allocation and the remaining supply.
func (a *Authorizer) quantityAllowed(
	chapter episode.Chapter,
	quantity uint64,
	alreadyMinted uint64,
	accountLimit uint64,
) bool {
	if quantity == 0 {
		return false
	}
	if alreadyMinted+quantity > accountLimit || alreadyMinted+quantity < quantity {
		return false
	}
	if quantity > a.remainingAllocation(chapter) {
		return false
	}
	return quantity <= a.ledger.RemainingSupply()
}

func (a *Authorizer) remainingAllocation(chapter episode.Chapter) uint64 {
	minted := a.chapterMinted[chapter.ID()]
	if minted >= chapter.Minting.Limit {
		return 0
	}
	return chapter.Minting.Limit - minted
}

// credit applies a validated mint. Callers hold the lock.
func (a *Authorizer) credit(
	path Path,
	chapter episode.Chapter,
	origin episode.ChapterID,
	account common.Address,
	quantity uint64,
	value *big.Int,
) *Receipt {
	first := a.ledger.Credit(account, quantity)
	a.chapterMinted[chapter.ID()] += quantity

	paid := new(big.Int)
	if value != nil {
		paid.Set(value)
	}
	a.proceeds.Add(a.proceeds, paid)

	mintedOut := a.remainingAllocation(chapter) == 0 ||
		a.ledger.RemainingSupply() == 0

	receipt := &Receipt{
		Path:             path,
		Account:          account,
		Chapter:          chapter.ID(),
		Origin:           origin,
		Quantity:         quantity,
		FirstTokenID:     first,
		Paid:             paid,
		ChapterMintedOut: mintedOut,
	}

	a.logger.Debug(
		"minted",
		zap.String("path", string(path)),
		zap.String("account", account.Hex()),
		zap.String("chapter", chapter.Label),
		zap.Uint64("quantity", quantity),
		zap.Uint64("first_token_id", first),
		zap.String("paid", paid.String()),
	)

	return receipt
}

// RemainingAllocation returns how many tokens the current chapter can still
// mint.
func (a *Authorizer) RemainingAllocation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	chapter, err := a.chapters.CurrentChapter()
	if err != nil {
		return 0
	}
	return min(a.remainingAllocation(chapter), a.ledger.RemainingSupply())
}

// Minted returns how many tokens account minted in chapter through path.
func (a *Authorizer) Minted(
	path Path,
	account common.Address,
	chapter episode.ChapterID,
) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := accountKey{account: account, chapter: chapter}
	if path == PathOpen {
		return a.openMinted[key]
	}
	return a.restrictedMinted[key]
}

// Proceeds returns the total amount paid for mints, in wei.
func (a *Authorizer) Proceeds() *big.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return new(big.Int).Set(a.proceeds)
}

// AccountCount is a persisted per account, per chapter counter.
type AccountCount struct {
	Account common.Address
	Chapter common.Hash
	Count   uint64
}

// ChapterCount is a persisted per chapter counter.
type ChapterCount struct {
	Chapter common.Hash
	Minted  uint64
}

// State is the persistable content of the authorizer and its ledger. Slices
// are sorted so that equal states encode identically.
type State struct {
	Owners           []common.Address
	ChapterMinted    []ChapterCount
	RestrictedMinted []AccountCount
	OpenMinted       []AccountCount
	Proceeds         *big.Int
}

// State exports the authorizer state.
func (a *Authorizer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := State{
		Owners:           a.ledger.Owners(),
		ChapterMinted:    make([]ChapterCount, 0, len(a.chapterMinted)),
		RestrictedMinted: exportCounts(a.restrictedMinted),
		OpenMinted:       exportCounts(a.openMinted),
		Proceeds:         new(big.Int).Set(a.proceeds),
	}
	for id, minted := range a.chapterMinted {
		s.ChapterMinted = append(s.ChapterMinted, ChapterCount{
			Chapter: id,
			Minted:  minted,
		})
	}
	sort.Slice(s.ChapterMinted, func(i, j int) bool {
		return s.ChapterMinted[i].Chapter.Cmp(s.ChapterMinted[j].Chapter) < 0
	})
	return s
}

// Restore replaces the authorizer state.
func (a *Authorizer) Restore(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ledger.restore(s.Owners)
	a.chapterMinted = make(map[episode.ChapterID]uint64, len(s.ChapterMinted))
	for _, c := range s.ChapterMinted {
		a.chapterMinted[c.Chapter] = c.Minted
	}
	a.restrictedMinted = importCounts(s.RestrictedMinted)
	a.openMinted = importCounts(s.OpenMinted)
	a.proceeds = new(big.Int)
	if s.Proceeds != nil {
		a.proceeds.Set(s.Proceeds)
	}
}

func exportCounts(counts map[accountKey]uint64) []AccountCount {
	out := make([]AccountCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, AccountCount{
			Account: k.account,
			Chapter: k.chapter,
			Count:   c,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Account.Cmp(out[j].Account); c != 0 {
			return c < 0
		}
		return out[i].Chapter.Cmp(out[j].Chapter) < 0
	})
	return out
}

func importCounts(counts []AccountCount) map[accountKey]uint64 {
	out := make(map[accountKey]uint64, len(counts))
	for _, c := range counts {
		out[accountKey{account: c.Account, chapter: c.Chapter}] = c.Count
	}
	return out
}
