package archofpeace

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/monuverse/arch-of-peace-contract/mint"
	"github.com/monuverse/arch-of-peace-contract/reveal"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/pkg/errors"
)

// Snapshot is the complete mutable state of an ArchOfPeace instance. It is rlp
// encodable.
type Snapshot struct {
	Installed       bool
	Episode         episode.Episode
	Current         common.Hash
	TransitionCount uint64
	WhitelistRoot   common.Hash
	Mint            mint.State
	Reveal          reveal.State
}

// Snapshot captures the current state.
func (a *ArchOfPeace) Snapshot() *Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &Snapshot{
		Installed:       a.machine.Installed(),
		Episode:         a.machine.Episode(),
		Current:         a.machine.CurrentChapterID(),
		TransitionCount: a.machine.GetTransitionCount(),
		WhitelistRoot:   a.registry.Root(),
		Mint:            a.authorizer.State(),
		Reveal:          a.coordinator.State(),
	}
}

// Restore loads snapshot into an instance without an installed episode.
func (a *ArchOfPeace) Restore(snapshot *Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.machine.Installed() {
		return errors.Wrap(episode.ErrAlreadyInstalled, "restore")
	}
	if reveal.Status(snapshot.Reveal.Status) > reveal.StatusRevealed {
		return errors.Errorf(
			"restore: unknown reveal status %d",
			snapshot.Reveal.Status,
		)
	}
	if snapshot.Installed {
		if err := a.machine.Restore(
			snapshot.Episode,
			snapshot.Current,
			snapshot.TransitionCount,
		); err != nil {
			return err
		}
	}
	if err := a.coordinator.Restore(snapshot.Reveal); err != nil {
		return err
	}
	a.registry.Restore(snapshot.WhitelistRoot)
	a.authorizer.Restore(snapshot.Mint)
	totalSupply.Set(float64(a.ledger.TotalSupply()))
	return nil
}

// EncodeSnapshot serializes snapshot with rlp.
func EncodeSnapshot(snapshot *Snapshot) ([]byte, error) {
	data, err := rlp.EncodeToBytes(snapshot)
	return data, errors.Wrap(err, "encode snapshot")
}

// DecodeSnapshot parses an rlp encoded snapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	snapshot := &Snapshot{}
	if err := rlp.DecodeBytes(data, snapshot); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return snapshot, nil
}
