package mint_test

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/monuverse/arch-of-peace-contract/config"
	chapters "github.com/monuverse/arch-of-peace-contract/episode"
	"github.com/monuverse/arch-of-peace-contract/mint"
	"github.com/monuverse/arch-of-peace-contract/pricing"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/monuverse/arch-of-peace-contract/whitelist"
)

const maxMintable = 3

type fixture struct {
	sm         *chapters.StateMachine
	registry   *whitelist.Registry
	ledger     *mint.Ledger
	authorizer *mint.Authorizer
	tree       *whitelist.Tree
	records    map[string][]whitelist.Record
}

func account(group string, i int) common.Address {
	return common.BytesToAddress(
		episode.Keccak256([]byte(fmt.Sprintf("%s/%d", group, i))).Bytes(),
	)
}

// newFixture installs ep and whitelists three accounts for each of the first
// three chapters of the default episode, with a limit of maxMintable.
func newFixture(t *testing.T, ep episode.Episode, maxSupply uint64) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		sm:      chapters.NewStateMachine(nil),
		ledger:  mint.NewLedger(maxSupply),
		records: map[string][]whitelist.Record{},
	}
	require.NoError(t, f.sm.Install(ep))
	f.registry = whitelist.NewRegistry(logger, f.sm)
	resolver := pricing.NewResolver(logger, f.sm)
	f.authorizer = mint.NewAuthorizer(
		logger,
		f.sm,
		f.registry,
		resolver,
		f.ledger,
		maxMintable,
	)

	all := []whitelist.Record{}
	for _, label := range []string{
		config.ChapterI,
		config.ChapterII,
		config.ChapterIII,
	} {
		for i := 0; i < 3; i++ {
			r := whitelist.Record{
				Account: account(label, i),
				Limit:   maxMintable,
				Chapter: episode.LabelID(label),
			}
			f.records[label] = append(f.records[label], r)
			all = append(all, r)
		}
	}

	tree, err := whitelist.NewTreeFromRecords(all)
	require.NoError(t, err)
	f.tree = tree
	require.NoError(t, f.registry.SetRoot(tree.Root()))
	return f
}

func (f *fixture) proof(t *testing.T, r whitelist.Record) []common.Hash {
	t.Helper()
	proof, err := f.tree.ProofFor(r.Leaf())
	require.NoError(t, err)
	return proof
}

func (f *fixture) goTo(t *testing.T, label string) {
	t.Helper()
	for {
		current, err := f.sm.CurrentChapter()
		require.NoError(t, err)
		if current.Label == label {
			return
		}
		_, _, err = f.sm.Advance(episode.EventOnlifeProgression)
		require.NoError(t, err)
	}
}

func (f *fixture) mintRestricted(
	t *testing.T,
	r whitelist.Record,
	quantity uint64,
	value *big.Int,
) (*mint.Receipt, error) {
	return f.authorizer.MintRestricted(
		r.Account,
		quantity,
		r.Limit,
		r.Chapter,
		f.proof(t, r),
		value,
	)
}

func ether(t *testing.T, amount string) *big.Int {
	t.Helper()
	wei, err := pricing.ToWei(amount)
	require.NoError(t, err)
	return wei
}

func times(price *big.Int, quantity int64) *big.Int {
	return new(big.Int).Mul(price, big.NewInt(quantity))
}

func TestMintNoMintChapter(t *testing.T) {
	tests := []struct {
		name  string
		reach func(t *testing.T, f *fixture)
	}{
		{
			name:  "introduction",
			reach: func(t *testing.T, f *fixture) {},
		},
		{
			name: "reveal chapter",
			reach: func(t *testing.T, f *fixture) {
				f.goTo(t, config.ChapterV)
			},
		},
		{
			name: "conclusion",
			reach: func(t *testing.T, f *fixture) {
				f.goTo(t, config.ChapterV)
				_, _, err := f.sm.Advance(episode.EventRevealed)
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, config.DefaultEpisode(), 7777)
			tt.reach(t, f)
			r := f.records[config.ChapterI][0]

			_, err := f.mintRestricted(t, r, 1, nil)
			require.ErrorIs(t, err, episode.ErrNoMintChapter)
			assert.Equal(t, "mint restricted: ArchOfPeace: no mint chapter", err.Error())

			_, err = f.authorizer.Mint(r.Account, 1, nil)
			require.ErrorIs(t, err, episode.ErrNoMintChapter)
			assert.Equal(t, "mint: ArchOfPeace: no mint chapter", err.Error())

			assert.Zero(t, f.ledger.TotalSupply())
			assert.Zero(t, f.authorizer.RemainingAllocation())
		})
	}
}

func TestMintRestrictedChapterI(t *testing.T) {
	f := newFixture(t, config.DefaultEpisode(), 7777)
	f.goTo(t, config.ChapterI)

	r := f.records[config.ChapterI][0]
	receipt, err := f.mintRestricted(t, r, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, mint.PathRestricted, receipt.Path)
	assert.Equal(t, uint64(0), receipt.FirstTokenID)
	assert.Equal(t, uint64(2), receipt.Quantity)
	assert.Equal(t, episode.LabelID(config.ChapterI), receipt.Chapter)
	assert.False(t, receipt.ChapterMintedOut)
	assert.Equal(t, uint64(2), f.ledger.BalanceOf(r.Account))

	// Cumulative across transactions.
	receipt, err = f.mintRestricted(t, r, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), receipt.FirstTokenID)

	_, err = f.mintRestricted(t, r, 1, nil)
	assert.ErrorIs(t, err, episode.ErrQuantityNotAllowed)
	assert.Equal(t, uint64(3), f.ledger.BalanceOf(r.Account))
	assert.Equal(
		t,
		uint64(3),
		f.authorizer.Minted(mint.PathRestricted, r.Account, r.Chapter),
	)

	// Chapter II natives are not a group of chapter I.
	other := f.records[config.ChapterII][0]
	_, err = f.mintRestricted(t, other, 1, nil)
	require.ErrorIs(t, err, episode.ErrGroupNotAllowed)
	assert.Equal(t, "mint restricted: ArchOfPeace: group not allowed", err.Error())

	// Chapter I is not open.
	_, err = f.authorizer.Mint(other.Account, 1, nil)
	assert.ErrorIs(t, err, episode.ErrSenderNotWhitelisted)
}

func TestMintRestrictedRejections(t *testing.T) {
	f := newFixture(t, config.DefaultEpisode(), 7777)
	f.goTo(t, config.ChapterII)
	price := ether(t, "0.09")
	native := f.records[config.ChapterII][0]
	builder := f.records[config.ChapterI][0]
	believer := f.records[config.ChapterIII][0]

	tests := []struct {
		name     string
		record   whitelist.Record
		limit    uint64
		proof    []common.Hash
		quantity uint64
		value    *big.Int
		err      error
	}{
		{
			name:     "wrong limit",
			record:   native,
			limit:    maxMintable + 1,
			quantity: 1,
			value:    price,
			err:      episode.ErrSenderNotWhitelisted,
		},
		{
			name:     "no proof",
			record:   native,
			limit:    maxMintable,
			proof:    []common.Hash{},
			quantity: 1,
			value:    price,
			err:      episode.ErrSenderNotWhitelisted,
		},
		{
			name:     "zero quantity",
			record:   native,
			limit:    maxMintable,
			quantity: 0,
			value:    big.NewInt(0),
			err:      episode.ErrQuantityNotAllowed,
		},
		{
			name:     "exceeding quantity",
			record:   native,
			limit:    maxMintable,
			quantity: maxMintable + 1,
			value:    times(price, maxMintable+1),
			err:      episode.ErrQuantityNotAllowed,
		},
		{
			name:     "exceeding quantity in a group not allowed",
			record:   believer,
			limit:    maxMintable,
			quantity: maxMintable + 1,
			value:    times(price, maxMintable+1),
			err:      episode.ErrQuantityNotAllowed,
		},
		{
			name:     "group not allowed",
			record:   believer,
			limit:    maxMintable,
			quantity: 1,
			value:    price,
			err:      episode.ErrGroupNotAllowed,
		},
		{
			name:     "underpaid",
			record:   native,
			limit:    maxMintable,
			quantity: 2,
			value:    price,
			err:      episode.ErrOfferUnmatched,
		},
		{
			name:     "overpaid",
			record:   native,
			limit:    maxMintable,
			quantity: 1,
			value:    times(price, 2),
			err:      episode.ErrOfferUnmatched,
		},
		{
			name:     "arch builder paying the chapter price",
			record:   builder,
			limit:    maxMintable,
			quantity: 1,
			value:    price,
			err:      episode.ErrOfferUnmatched,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proof := tt.proof
			if proof == nil {
				proof = f.proof(t, tt.record)
			}
			_, err := f.authorizer.MintRestricted(
				tt.record.Account,
				tt.quantity,
				tt.limit,
				tt.record.Chapter,
				proof,
				tt.value,
			)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	// Rejections leave no trace.
	assert.Equal(t, uint64(0), f.ledger.TotalSupply())
	assert.Equal(t, 0, f.authorizer.Proceeds().Sign())
	assert.Equal(t, uint64(3777), f.authorizer.RemainingAllocation())
	assert.Equal(
		t,
		uint64(0),
		f.authorizer.Minted(mint.PathRestricted, native.Account, native.Chapter),
	)
}

func TestMintRestrictedGroupPrices(t *testing.T) {
	f := newFixture(t, config.DefaultEpisode(), 7777)
	f.goTo(t, config.ChapterIII)
	price := ether(t, "0.11")

	// Arch builders keep their fixed chapter I price.
	builder := f.records[config.ChapterI][1]
	_, err := f.mintRestricted(t, builder, 3, nil)
	require.NoError(t, err)

	// Chosen ones pay the current price.
	chosen := f.records[config.ChapterII][1]
	_, err = f.mintRestricted(t, chosen, 2, times(price, 2))
	require.NoError(t, err)

	believer := f.records[config.ChapterIII][1]
	receipt, err := f.mintRestricted(t, believer, 1, price)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), receipt.FirstTokenID)
	assert.Equal(t, price.String(), receipt.Paid.String())

	assert.Equal(t, uint64(6), f.ledger.TotalSupply())
	assert.Equal(t, times(price, 3).String(), f.authorizer.Proceeds().String())
}

func TestMintCountersPerChapter(t *testing.T) {
	f := newFixture(t, config.DefaultEpisode(), 7777)
	builder := f.records[config.ChapterI][2]

	f.goTo(t, config.ChapterI)
	_, err := f.mintRestricted(t, builder, maxMintable, nil)
	require.NoError(t, err)

	// A new chapter starts a new count.
	f.goTo(t, config.ChapterII)
	_, err = f.mintRestricted(t, builder, maxMintable, nil)
	require.NoError(t, err)
	_, err = f.mintRestricted(t, builder, 1, nil)
	assert.ErrorIs(t, err, episode.ErrQuantityNotAllowed)

	assert.Equal(t, uint64(2*maxMintable), f.ledger.BalanceOf(builder.Account))
}

func TestMintOpen(t *testing.T) {
	f := newFixture(t, config.DefaultEpisode(), 7777)
	stranger := account("stranger", 0)

	f.goTo(t, config.ChapterIII)
	_, err := f.authorizer.Mint(stranger, 1, ether(t, "0.11"))
	require.ErrorIs(t, err, episode.ErrSenderNotWhitelisted)
	assert.Equal(t, "mint: ArchOfPeace: sender not whitelisted", err.Error())

	f.goTo(t, config.ChapterIV)
	price := ether(t, "0.12")

	_, err = f.authorizer.Mint(stranger, 0, big.NewInt(0))
	assert.ErrorIs(t, err, episode.ErrQuantityNotAllowed)
	_, err = f.authorizer.Mint(stranger, maxMintable+1, times(price, maxMintable+1))
	assert.ErrorIs(t, err, episode.ErrQuantityNotAllowed)
	_, err = f.authorizer.Mint(stranger, 2, price)
	require.ErrorIs(t, err, episode.ErrOfferUnmatched)
	assert.Equal(t, "mint: ArchOfPeace: offer unmatched", err.Error())

	receipt, err := f.authorizer.Mint(stranger, 2, times(price, 2))
	require.NoError(t, err)
	assert.Equal(t, mint.PathOpen, receipt.Path)
	assert.Equal(t, receipt.Chapter, receipt.Origin)

	_, err = f.authorizer.Mint(stranger, 2, times(price, 2))
	assert.ErrorIs(t, err, episode.ErrQuantityNotAllowed)
	_, err = f.authorizer.Mint(stranger, 1, price)
	require.NoError(t, err)

	assert.Equal(t, uint64(maxMintable), f.ledger.BalanceOf(stranger))
	assert.Equal(t, times(price, 3).String(), f.authorizer.Proceeds().String())

	// Restricted counters are separate from open ones.
	builder := f.records[config.ChapterI][0]
	_, err = f.authorizer.Mint(builder.Account, maxMintable, times(price, maxMintable))
	require.NoError(t, err)
	_, err = f.mintRestricted(t, builder, maxMintable, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2*maxMintable), f.ledger.BalanceOf(builder.Account))
}

func TestMintChapterAllocation(t *testing.T) {
	ep := config.DefaultEpisode()
	for i := range ep.Chapters {
		if ep.Chapters[i].Label == config.ChapterI {
			ep.Chapters[i].Minting.Limit = 4
		}
	}
	f := newFixture(t, ep, 7777)
	f.goTo(t, config.ChapterI)
	a, b := f.records[config.ChapterI][0], f.records[config.ChapterI][1]

	receipt, err := f.mintRestricted(t, a, 3, nil)
	require.NoError(t, err)
	assert.False(t, receipt.ChapterMintedOut)
	assert.Equal(t, uint64(1), f.authorizer.RemainingAllocation())

	_, err = f.mintRestricted(t, b, 2, nil)
	assert.ErrorIs(t, err, episode.ErrQuantityNotAllowed)

	receipt, err = f.mintRestricted(t, b, 1, nil)
	require.NoError(t, err)
	assert.True(t, receipt.ChapterMintedOut)
	assert.Equal(t, uint64(0), f.authorizer.RemainingAllocation())

	_, err = f.mintRestricted(t, b, 1, nil)
	assert.ErrorIs(t, err, episode.ErrQuantityNotAllowed)

	// Minting out does not move the episode on.
	current, err := f.sm.CurrentChapter()
	require.NoError(t, err)
	assert.Equal(t, config.ChapterI, current.Label)
}

func TestMintMaxSupply(t *testing.T) {
	f := newFixture(t, config.DefaultEpisode(), 5)
	f.goTo(t, config.ChapterI)
	a, b := f.records[config.ChapterI][0], f.records[config.ChapterI][1]

	_, err := f.mintRestricted(t, a, 3, nil)
	require.NoError(t, err)
	_, err = f.mintRestricted(t, b, 3, nil)
	assert.ErrorIs(t, err, episode.ErrQuantityNotAllowed)

	receipt, err := f.mintRestricted(t, b, 2, nil)
	require.NoError(t, err)
	assert.True(t, receipt.ChapterMintedOut)
	assert.Equal(t, uint64(0), f.ledger.RemainingSupply())
	assert.Equal(t, uint64(0), f.authorizer.RemainingAllocation())
}

func TestAuthorizerStateRoundTrip(t *testing.T) {
	f := newFixture(t, config.DefaultEpisode(), 7777)
	f.goTo(t, config.ChapterII)
	price := ether(t, "0.09")
	for _, r := range f.records[config.ChapterII] {
		_, err := f.mintRestricted(t, r, 2, times(price, 2))
		require.NoError(t, err)
	}
	state := f.authorizer.State()

	g := newFixture(t, config.DefaultEpisode(), 7777)
	g.goTo(t, config.ChapterII)
	g.authorizer.Restore(state)

	assert.Equal(t, state, g.authorizer.State())
	assert.Equal(t, f.ledger.Owners(), g.ledger.Owners())
	assert.Equal(t, f.authorizer.Proceeds().String(), g.authorizer.Proceeds().String())
	assert.Equal(t, f.authorizer.RemainingAllocation(), g.authorizer.RemainingAllocation())

	r := g.records[config.ChapterII][0]
	assert.Equal(t, uint64(2), g.ledger.BalanceOf(r.Account))
	_, err := g.mintRestricted(t, r, 2, times(price, 2))
	assert.ErrorIs(t, err, episode.ErrQuantityNotAllowed)
	receipt, err := g.mintRestricted(t, r, 1, price)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), receipt.FirstTokenID)
}
