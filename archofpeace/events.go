package archofpeace

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/monuverse/arch-of-peace-contract/mint"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
)

// Event is a notification emitted by the contract.
type Event interface {
	EventName() string
}

// EventListener receives emitted events in emission order. Listeners are
// called after the emitting call released the contract, they may query it.
type EventListener interface {
	OnEvent(event Event)
}

// EventListenerFunc adapts a function to EventListener.
type EventListenerFunc func(event Event)

func (f EventListenerFunc) OnEvent(event Event) { f(event) }

// ChapterEntered is emitted on every chapter transition.
type ChapterEntered struct {
	From       episode.ChapterID
	To         episode.ChapterID
	Label      string
	Trigger    episode.EventKind
	Conclusion bool
}

// Minted is emitted on every successful mint.
type Minted struct {
	Path         mint.Path
	Account      common.Address
	Chapter      episode.ChapterID
	Quantity     uint64
	FirstTokenID uint64
	Paid         *big.Int
}

// ChapterMinted is emitted when a mint exhausts the chapter allocation or the
// max supply.
type ChapterMinted struct {
	Chapter episode.ChapterID
	Label   string
}

// EpisodeMinted is emitted when minting is sealed.
type EpisodeMinted struct {
	From episode.ChapterID
	To   episode.ChapterID
}

// EpisodeProgressedOnlife is emitted when an onlife event is recorded.
type EpisodeProgressedOnlife struct {
	From episode.ChapterID
	To   episode.ChapterID
}

// RandomnessRequested is emitted when the reveal request is issued.
type RandomnessRequested struct {
	RequestID *big.Int
}

// EpisodeRevealed is emitted when randomness is fulfilled.
type EpisodeRevealed struct {
	RequestID *big.Int
	Seed      common.Hash
}

func (ChapterEntered) EventName() string          { return "ChapterEntered" }
func (Minted) EventName() string                  { return "Minted" }
func (ChapterMinted) EventName() string           { return "ChapterMinted" }
func (EpisodeMinted) EventName() string           { return "EpisodeMinted" }
func (EpisodeProgressedOnlife) EventName() string { return "EpisodeProgressedOnlife" }
func (RandomnessRequested) EventName() string     { return "RandomnessRequested" }
func (EpisodeRevealed) EventName() string         { return "EpisodeRevealed" }
