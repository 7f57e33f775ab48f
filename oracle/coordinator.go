package oracle

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

var (
	ErrUnknownConsumer = errors.New("oracle: unknown consumer")
	ErrUnknownRequest  = errors.New("oracle: nonexistent request")
	ErrInvalidRequest  = errors.New("oracle: invalid request")
)

// Consumer receives fulfilled randomness.
type Consumer interface {
	RawFulfillRandomWords(
		caller common.Address,
		requestID *big.Int,
		words []*big.Int,
	) error
}

// Request is an outstanding randomness request.
type Request struct {
	ID      *big.Int
	Request episode.RandomnessRequest
}

// Coordinator is an in-memory verifiable randomness coordinator. Requests
// are only recorded, answers are delivered by an explicit Fulfill call.
type Coordinator struct {
	logger  *zap.Logger
	address common.Address

	mu        sync.Mutex
	nextID    uint64
	consumers map[common.Address]Consumer
	pending   map[uint64]episode.RandomnessRequest
}

// NewCoordinator creates a coordinator identified by address.
func NewCoordinator(logger *zap.Logger, address common.Address) *Coordinator {
	return &Coordinator{
		logger:    logger,
		address:   address,
		nextID:    1,
		consumers: make(map[common.Address]Consumer),
		pending:   make(map[uint64]episode.RandomnessRequest),
	}
}

func (c *Coordinator) Address() common.Address {
	return c.address
}

// AddConsumer registers consumer under address. Only registered consumers may
// request randomness.
func (c *Coordinator) AddConsumer(address common.Address, consumer Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers[address] = consumer
}

// RequestRandomWords records request and returns its identifier.
func (c *Coordinator) RequestRandomWords(
	ctx context.Context,
	request episode.RandomnessRequest,
) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "request random words")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.consumers[request.Consumer]; !ok {
		return nil, errors.Wrapf(
			ErrUnknownConsumer,
			"request random words: %s",
			request.Consumer.Hex(),
		)
	}
	if request.NumWords == 0 {
		return nil, errors.Wrap(ErrInvalidRequest, "request random words")
	}

	id := c.nextID
	c.nextID++
	c.pending[id] = request

	c.logger.Debug(
		"randomness requested",
		zap.Uint64("request_id", id),
		zap.String("consumer", request.Consumer.Hex()),
		zap.Uint32("num_words", request.NumWords),
	)

	return new(big.Int).SetUint64(id), nil
}

// Pending returns the outstanding requests.
func (c *Coordinator) Pending() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, 0, len(c.pending))
	for id := uint64(1); id < c.nextID; id++ {
		if r, ok := c.pending[id]; ok {
			out = append(out, Request{ID: new(big.Int).SetUint64(id), Request: r})
		}
	}
	return out
}

// Fulfill answers requestID with words derived from the identifier.
func (c *Coordinator) Fulfill(ctx context.Context, requestID *big.Int) error {
	c.mu.Lock()
	request, ok := c.lookup(requestID)
	c.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrUnknownRequest, "fulfill: %v", requestID)
	}

	words := make([]*big.Int, request.NumWords)
	for i := range words {
		words[i] = DeriveWord(requestID, uint64(i))
	}
	return c.FulfillWithWords(ctx, requestID, words)
}

// FulfillWithWords answers requestID with the given words. The request is
// consumed even if the consumer rejects the answer.
func (c *Coordinator) FulfillWithWords(
	ctx context.Context,
	requestID *big.Int,
	words []*big.Int,
) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "fulfill")
	}

	c.mu.Lock()
	request, ok := c.lookup(requestID)
	if !ok {
		c.mu.Unlock()
		return errors.Wrapf(ErrUnknownRequest, "fulfill: %v", requestID)
	}
	delete(c.pending, requestID.Uint64())
	consumer := c.consumers[request.Consumer]
	c.mu.Unlock()

	if consumer == nil {
		return errors.Wrapf(
			ErrUnknownConsumer,
			"fulfill: %s",
			request.Consumer.Hex(),
		)
	}

	c.logger.Debug(
		"fulfilling randomness",
		zap.String("request_id", requestID.String()),
		zap.Int("num_words", len(words)),
	)

	if err := consumer.RawFulfillRandomWords(c.address, requestID, words); err != nil {
		return errors.Wrap(err, "fulfill")
	}
	return nil
}

func (c *Coordinator) lookup(requestID *big.Int) (episode.RandomnessRequest, bool) {
	if requestID == nil || !requestID.IsUint64() {
		return episode.RandomnessRequest{}, false
	}
	r, ok := c.pending[requestID.Uint64()]
	return r, ok
}

// DeriveWord returns uint256(keccak256(abi.encode(requestID, index))).
func DeriveWord(requestID *big.Int, index uint64) *big.Int {
	h := episode.Keccak256(
		math.U256Bytes(new(big.Int).Set(requestID)),
		math.U256Bytes(new(big.Int).SetUint64(index)),
	)
	return new(big.Int).SetBytes(h.Bytes())
}

var _ episode.RandomnessOracle = (*Coordinator)(nil)
