package episode

import (
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ChapterID is the content-addressed identifier of a chapter, the keccak256
// digest of its human readable label.
type ChapterID = common.Hash

// EventKind names the externally emitted event driving a transition.
type EventKind string

const (
	// EventOnlifeProgression is emitted by the owner when the offline story
	// progresses.
	EventOnlifeProgression EventKind = "EpisodeProgressedOnlife"
	// EventMintingSealed is emitted by the owner once minting is over.
	EventMintingSealed EventKind = "EpisodeMinted"
	// EventRevealed is emitted when the reveal seed has been fulfilled.
	EventRevealed EventKind = "EpisodeRevealed"
)

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventOnlifeProgression, EventMintingSealed, EventRevealed:
		return true
	}
	return false
}

// LabelID hashes a chapter label into its identifier.
func LabelID(label string) ChapterID {
	return Keccak256([]byte(label))
}

// Keccak256 returns the legacy keccak256 digest of the concatenated inputs.
func Keccak256(data ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// GroupRule enables minters natively whitelisted in another chapter to mint
// during the chapter holding the rule.
type GroupRule struct {
	Label   string
	Enabled bool
	// FixedPrice makes the group pay the price of the referenced chapter
	// instead of the price of the current chapter.
	FixedPrice bool
}

// ID returns the identifier of the referenced chapter.
func (r GroupRule) ID() ChapterID {
	return LabelID(r.Label)
}

// MintingConfig describes what minting looks like while a chapter is current.
type MintingConfig struct {
	// Limit is the chapter allocation, zero disables minting.
	Limit uint64
	// Price is the unit price in wei.
	Price *big.Int
	Rules []GroupRule
	// IsOpen selects public minting, otherwise minting is whitelist
	// restricted.
	IsOpen bool
}

// Chapter is a single node of the episode graph.
type Chapter struct {
	Label               string
	WhitelistingAllowed bool
	Minting             MintingConfig
	Revealing           bool
	IsConclusion        bool
}

// ID returns the content-addressed identifier of the chapter.
func (c Chapter) ID() ChapterID {
	return LabelID(c.Label)
}

// Clone returns a copy of the chapter sharing no memory with c.
func (c Chapter) Clone() Chapter {
	cpy := c
	if c.Minting.Price != nil {
		cpy.Minting.Price = new(big.Int).Set(c.Minting.Price)
	}
	cpy.Minting.Rules = slices.Clone(c.Minting.Rules)
	return cpy
}

// UnitPrice returns the chapter price, treating an unset price as zero.
func (c Chapter) UnitPrice() *big.Int {
	if c.Minting.Price == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(c.Minting.Price)
}

// Rule looks up the group rule referencing origin, if any.
func (c Chapter) Rule(origin ChapterID) (GroupRule, bool) {
	for _, r := range c.Minting.Rules {
		if r.ID() == origin {
			return r, true
		}
	}
	return GroupRule{}, false
}

// Transition is a labelled edge of the episode graph.
type Transition struct {
	From  string
	Event EventKind
	To    string
}

// Episode is the full installation payload of the state machine.
type Episode struct {
	Chapters    []Chapter
	Transitions []Transition
	Initial     string
}
