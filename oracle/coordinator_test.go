package oracle_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/monuverse/arch-of-peace-contract/oracle"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
)

var (
	coordinatorAddress = common.HexToAddress("0x271682DEB8C4E0901D1a1550aD2e64D568E69909")
	consumerAddress    = common.HexToAddress("0x00000000000000000000000000000000000a0c00")
)

type fulfillment struct {
	caller    common.Address
	requestID *big.Int
	words     []*big.Int
}

type mockConsumer struct {
	fulfillments []fulfillment
	err          error
}

func (m *mockConsumer) RawFulfillRandomWords(
	caller common.Address,
	requestID *big.Int,
	words []*big.Int,
) error {
	m.fulfillments = append(m.fulfillments, fulfillment{caller, requestID, words})
	return m.err
}

func newCoordinator() (*oracle.Coordinator, *mockConsumer) {
	c := oracle.NewCoordinator(zap.NewNop(), coordinatorAddress)
	consumer := &mockConsumer{}
	c.AddConsumer(consumerAddress, consumer)
	return c, consumer
}

func TestCoordinatorRequest(t *testing.T) {
	c, consumer := newCoordinator()
	assert.Equal(t, coordinatorAddress, c.Address())

	first, err := c.RequestRandomWords(
		context.Background(),
		episode.RandomnessRequest{Consumer: consumerAddress, NumWords: 2},
	)
	require.NoError(t, err)
	second, err := c.RequestRandomWords(
		context.Background(),
		episode.RandomnessRequest{Consumer: consumerAddress, NumWords: 1},
	)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Int64())
	assert.Equal(t, int64(2), second.Int64())
	assert.Len(t, c.Pending(), 2)
	assert.Empty(t, consumer.fulfillments)
}

func TestCoordinatorRequestRejected(t *testing.T) {
	c, _ := newCoordinator()

	_, err := c.RequestRandomWords(
		context.Background(),
		episode.RandomnessRequest{Consumer: common.HexToAddress("0x01"), NumWords: 1},
	)
	assert.ErrorIs(t, err, oracle.ErrUnknownConsumer)

	_, err = c.RequestRandomWords(
		context.Background(),
		episode.RandomnessRequest{Consumer: consumerAddress},
	)
	assert.ErrorIs(t, err, oracle.ErrInvalidRequest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.RequestRandomWords(
		ctx,
		episode.RandomnessRequest{Consumer: consumerAddress, NumWords: 1},
	)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.Pending())
}

func TestCoordinatorFulfill(t *testing.T) {
	c, consumer := newCoordinator()

	id, err := c.RequestRandomWords(
		context.Background(),
		episode.RandomnessRequest{Consumer: consumerAddress, NumWords: 2},
	)
	require.NoError(t, err)

	require.NoError(t, c.Fulfill(context.Background(), id))
	require.Len(t, consumer.fulfillments, 1)
	f := consumer.fulfillments[0]
	assert.Equal(t, coordinatorAddress, f.caller)
	assert.Equal(t, id, f.requestID)
	require.Len(t, f.words, 2)

	expected := new(big.Int).SetBytes(episode.Keccak256(
		math.U256Bytes(big.NewInt(1)),
		math.U256Bytes(big.NewInt(0)),
	).Bytes())
	assert.Equal(t, expected.String(), f.words[0].String())
	assert.NotEqual(t, f.words[0].String(), f.words[1].String())

	// Requests are answered once.
	err = c.Fulfill(context.Background(), id)
	assert.ErrorIs(t, err, oracle.ErrUnknownRequest)
	assert.Empty(t, c.Pending())
}

func TestCoordinatorFulfillWithWords(t *testing.T) {
	c, consumer := newCoordinator()
	consumer.err = errors.New("consumer failed")

	id, err := c.RequestRandomWords(
		context.Background(),
		episode.RandomnessRequest{Consumer: consumerAddress, NumWords: 1},
	)
	require.NoError(t, err)

	err = c.FulfillWithWords(context.Background(), id, []*big.Int{big.NewInt(42)})
	assert.ErrorContains(t, err, "consumer failed")
	require.Len(t, consumer.fulfillments, 1)
	assert.Equal(t, int64(42), consumer.fulfillments[0].words[0].Int64())

	err = c.FulfillWithWords(context.Background(), big.NewInt(99), nil)
	assert.ErrorIs(t, err, oracle.ErrUnknownRequest)
}
