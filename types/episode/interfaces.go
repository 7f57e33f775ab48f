package episode

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChapterSource exposes the installed chapters and the active one. It is the
// read side of the chapter state machine consumed by pricing, whitelisting,
// minting and reveal.
type ChapterSource interface {
	// CurrentChapter returns the active chapter, ErrNotInstalled if the
	// episode has not been installed yet.
	CurrentChapter() (Chapter, error)
	// Chapter looks up an installed chapter by identifier.
	Chapter(id ChapterID) (Chapter, bool)
}

// TransitionListener is notified of chapter transitions.
type TransitionListener interface {
	OnTransition(from ChapterID, to ChapterID, event EventKind)
}

// RandomnessRequest carries the parameters of a single randomness request.
type RandomnessRequest struct {
	KeyHash              common.Hash
	SubscriptionID       uint64
	MinimumConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
	Consumer             common.Address
}

// RandomnessOracle is the external verifiable randomness service. The answer
// is delivered later, by a separate call into the consumer.
type RandomnessOracle interface {
	// RequestRandomWords registers a request and returns its identifier. It
	// must not call back into the consumer synchronously.
	RequestRandomWords(
		ctx context.Context,
		request RandomnessRequest,
	) (*big.Int, error)
	// Address identifies the oracle as the only allowed fulfiller.
	Address() common.Address
}

// WhitelistVerifier checks membership of a whitelist record against the
// published root.
type WhitelistVerifier interface {
	Verify(
		account common.Address,
		limit uint64,
		origin ChapterID,
		proof []common.Hash,
	) bool
}

// PricingGroupResolver resolves mint groups and their prices.
type PricingGroupResolver interface {
	GroupRule(current ChapterID, origin ChapterID) (enabled bool, fixedPrice bool)
	CurrentGroupPrice(origin ChapterID) *big.Int
	CurrentDefaultPrice() *big.Int
}
