package reveal

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Status is the reveal progress of an episode.
type Status uint8

const (
	StatusIdle Status = iota
	StatusPending
	StatusRevealed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusRevealed:
		return "revealed"
	}
	return "unknown"
}

// Coordinator requests randomness exactly once per episode and consumes the
// answer. Once revealed, it never accepts another request.
type Coordinator struct {
	logger   *zap.Logger
	chapters episode.ChapterSource
	oracle   episode.RandomnessOracle
	request  episode.RandomnessRequest

	mu        sync.Mutex
	status    Status
	requestID *big.Int
	seed      common.Hash
}

// NewCoordinator creates a reveal coordinator issuing request to oracle.
func NewCoordinator(
	logger *zap.Logger,
	chapters episode.ChapterSource,
	oracle episode.RandomnessOracle,
	request episode.RandomnessRequest,
) *Coordinator {
	if request.NumWords == 0 {
		request.NumWords = 1
	}
	return &Coordinator{
		logger:   logger,
		chapters: chapters,
		oracle:   oracle,
		request:  request,
	}
}

// Reveal issues the randomness request and returns its identifier.
func (c *Coordinator) Reveal(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case StatusRevealed:
		return nil, errors.Wrap(episode.ErrAlreadyRevealed, "reveal")
	case StatusPending:
		return nil, errors.Wrap(episode.ErrAlreadyRequested, "reveal")
	}

	current, err := c.chapters.CurrentChapter()
	if err != nil {
		return nil, errors.Wrap(err, "reveal")
	}
	if !current.Revealing {
		return nil, errors.Wrap(episode.ErrRevealNotAllowed, "reveal")
	}

	requestID, err := c.oracle.RequestRandomWords(ctx, c.request)
	if err != nil {
		return nil, errors.Wrap(err, "reveal")
	}

	c.status = StatusPending
	c.requestID = new(big.Int).Set(requestID)

	c.logger.Info(
		"randomness requested",
		zap.String("chapter", current.Label),
		zap.String("request_id", requestID.String()),
	)

	return new(big.Int).Set(requestID), nil
}

// OnRandomnessFulfilled consumes the oracle answer for the pending request and
// derives the metadata shuffling seed from the first word.
func (c *Coordinator) OnRandomnessFulfilled(
	requestID *big.Int,
	words []*big.Int,
) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusPending || requestID == nil ||
		c.requestID.Cmp(requestID) != 0 {
		return common.Hash{}, errors.Wrapf(
			episode.ErrUnknownRequest,
			"on randomness fulfilled: request %v",
			requestID,
		)
	}
	if len(words) == 0 || words[0] == nil {
		return common.Hash{}, errors.Wrap(
			episode.ErrNoRandomWords,
			"on randomness fulfilled",
		)
	}

	c.seed = DeriveSeed(words[0])
	c.status = StatusRevealed

	c.logger.Info(
		"randomness fulfilled",
		zap.String("request_id", requestID.String()),
		zap.String("seed", c.seed.Hex()),
	)

	return c.seed, nil
}

// DeriveSeed hashes the random word, as a uint256, into the shuffling seed.
func DeriveSeed(word *big.Int) common.Hash {
	return episode.Keccak256(math.U256Bytes(new(big.Int).Set(word)))
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// PendingRequest returns the outstanding request identifier, if any.
func (c *Coordinator) PendingRequest() (*big.Int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusPending {
		return nil, false
	}
	return new(big.Int).Set(c.requestID), true
}

// Seed returns the shuffling seed, the zero hash until revealed.
func (c *Coordinator) Seed() common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seed
}

// State is the persistable reveal progress.
type State struct {
	Status    uint8
	RequestID *big.Int
	Seed      common.Hash
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{Status: uint8(c.status), RequestID: new(big.Int), Seed: c.seed}
	if c.requestID != nil {
		s.RequestID.Set(c.requestID)
	}
	return s
}

func (c *Coordinator) Restore(s State) error {
	if Status(s.Status) > StatusRevealed {
		return errors.Errorf("restore: unknown reveal status %d", s.Status)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = Status(s.Status)
	c.requestID = nil
	if s.RequestID != nil && c.status != StatusIdle {
		c.requestID = new(big.Int).Set(s.RequestID)
	}
	if c.status == StatusPending && c.requestID == nil {
		c.requestID = new(big.Int)
	}
	c.seed = s.Seed
	return nil
}
