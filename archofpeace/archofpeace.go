package archofpeace

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	chapters "github.com/monuverse/arch-of-peace-contract/episode"
	"github.com/monuverse/arch-of-peace-contract/mint"
	"github.com/monuverse/arch-of-peace-contract/pricing"
	"github.com/monuverse/arch-of-peace-contract/reveal"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/monuverse/arch-of-peace-contract/whitelist"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// VRFParams are the randomness request parameters used by Reveal.
type VRFParams struct {
	KeyHash          common.Hash
	SubscriptionID   uint64
	Confirmations    uint16
	CallbackGasLimit uint32
	NumWords         uint32
}

// Params configures an ArchOfPeace instance.
type Params struct {
	// Address identifies the contract as a randomness consumer.
	Address       common.Address
	Owner         common.Address
	Name          string
	Symbol        string
	MaxSupply     uint64
	OpenMintLimit uint64
	VRF           VRFParams
}

// ArchOfPeace is the episode contract: a chapter state machine driving
// whitelist gated, group priced minting and a one-shot randomness reveal.
// Every call is serialized, events are delivered once the call completes.
type ArchOfPeace struct {
	logger *zap.Logger
	params Params
	oracle episode.RandomnessOracle

	mu          sync.Mutex
	machine     *chapters.StateMachine
	registry    *whitelist.Registry
	resolver    *pricing.Resolver
	ledger      *mint.Ledger
	authorizer  *mint.Authorizer
	coordinator *reveal.Coordinator

	listeners []EventListener
	queue     []Event
}

// New creates an ArchOfPeace contract with no episode installed.
func New(
	logger *zap.Logger,
	params Params,
	oracle episode.RandomnessOracle,
) *ArchOfPeace {
	machine := chapters.NewStateMachine(&zapTracer{logger: logger})
	registry := whitelist.NewRegistry(logger, machine)
	resolver := pricing.NewResolver(logger, machine)
	ledger := mint.NewLedger(params.MaxSupply)

	a := &ArchOfPeace{
		logger:   logger,
		params:   params,
		oracle:   oracle,
		machine:  machine,
		registry: registry,
		resolver: resolver,
		ledger:   ledger,
		authorizer: mint.NewAuthorizer(
			logger,
			machine,
			registry,
			resolver,
			ledger,
			params.OpenMintLimit,
		),
		coordinator: reveal.NewCoordinator(
			logger,
			machine,
			oracle,
			episode.RandomnessRequest{
				KeyHash:              params.VRF.KeyHash,
				SubscriptionID:       params.VRF.SubscriptionID,
				MinimumConfirmations: params.VRF.Confirmations,
				CallbackGasLimit:     params.VRF.CallbackGasLimit,
				NumWords:             params.VRF.NumWords,
				Consumer:             params.Address,
			},
		),
	}
	machine.AddListener(a)
	return a
}

// lock acquires the contract and returns the matching release, which
// dispatches the events queued during the call.
func (a *ArchOfPeace) lock() func() {
	a.mu.Lock()
	return func() {
		events := a.queue
		a.queue = nil
		listeners := append([]EventListener(nil), a.listeners...)
		a.mu.Unlock()

		for _, e := range events {
			for _, l := range listeners {
				l.OnEvent(e)
			}
		}
	}
}

// emit queues event. Callers hold the lock.
func (a *ArchOfPeace) emit(event Event) {
	a.queue = append(a.queue, event)
}

func (a *ArchOfPeace) onlyOwner(caller common.Address) error {
	if caller != a.params.Owner {
		return episode.ErrCallerNotOwner
	}
	return nil
}

// AddListener subscribes listener to emitted events.
func (a *ArchOfPeace) AddListener(listener EventListener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, listener)
}

// OnTransition implements episode.TransitionListener.
func (a *ArchOfPeace) OnTransition(
	from episode.ChapterID,
	to episode.ChapterID,
	event episode.EventKind,
) {
	chapter, _ := a.machine.Chapter(to)
	transitionsTotal.WithLabelValues(string(event)).Inc()

	a.logger.Info(
		"chapter entered",
		zap.String("chapter", chapter.Label),
		zap.String("event", string(event)),
		zap.Bool("conclusion", chapter.IsConclusion),
	)

	a.emit(ChapterEntered{
		From:       from,
		To:         to,
		Label:      chapter.Label,
		Trigger:    event,
		Conclusion: chapter.IsConclusion,
	})
}

// Install writes the episode graph. It may be called once, by the owner.
func (a *ArchOfPeace) Install(caller common.Address, ep episode.Episode) error {
	unlock := a.lock()
	defer unlock()

	if err := a.onlyOwner(caller); err != nil {
		return errors.Wrap(err, "install")
	}
	if err := a.machine.Install(ep); err != nil {
		return err
	}

	current, _ := a.machine.CurrentChapter()
	a.logger.Info(
		"episode installed",
		zap.Int("chapters", len(ep.Chapters)),
		zap.Int("transitions", len(ep.Transitions)),
		zap.String("initial", current.Label),
	)
	a.emit(ChapterEntered{
		To:         current.ID(),
		Label:      current.Label,
		Conclusion: current.IsConclusion,
	})
	return nil
}

// SetWhitelistRoot publishes the whitelist Merkle root.
func (a *ArchOfPeace) SetWhitelistRoot(
	caller common.Address,
	root common.Hash,
) error {
	unlock := a.lock()
	defer unlock()

	if err := a.onlyOwner(caller); err != nil {
		return errors.Wrap(err, "set whitelist root")
	}
	return a.registry.SetRoot(root)
}

// Mint is the open mint.
func (a *ArchOfPeace) Mint(
	account common.Address,
	quantity uint64,
	value *big.Int,
) (*mint.Receipt, error) {
	unlock := a.lock()
	defer unlock()

	receipt, err := a.authorizer.Mint(account, quantity, value)
	a.recordMint(mint.PathOpen, receipt, err)
	return receipt, err
}

// MintRestricted is the whitelist gated mint.
func (a *ArchOfPeace) MintRestricted(
	account common.Address,
	quantity uint64,
	limit uint64,
	origin episode.ChapterID,
	proof []common.Hash,
	value *big.Int,
) (*mint.Receipt, error) {
	unlock := a.lock()
	defer unlock()

	receipt, err := a.authorizer.MintRestricted(
		account,
		quantity,
		limit,
		origin,
		proof,
		value,
	)
	a.recordMint(mint.PathRestricted, receipt, err)
	return receipt, err
}

// recordMint updates metrics and queues mint events. Callers hold the lock.
func (a *ArchOfPeace) recordMint(path mint.Path, receipt *mint.Receipt, err error) {
	if err != nil {
		mintAttemptsTotal.WithLabelValues(string(path), "rejected").Inc()
		mintRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		a.logger.Debug(
			"mint rejected",
			zap.String("path", string(path)),
			zap.Error(err),
		)
		return
	}

	chapter, _ := a.machine.Chapter(receipt.Chapter)
	mintAttemptsTotal.WithLabelValues(string(path), "success").Inc()
	tokensMintedTotal.WithLabelValues(chapter.Label).Add(float64(receipt.Quantity))
	totalSupply.Set(float64(a.ledger.TotalSupply()))

	a.emit(Minted{
		Path:         receipt.Path,
		Account:      receipt.Account,
		Chapter:      receipt.Chapter,
		Quantity:     receipt.Quantity,
		FirstTokenID: receipt.FirstTokenID,
		Paid:         new(big.Int).Set(receipt.Paid),
	})

	if receipt.ChapterMintedOut {
		a.logger.Info("chapter minted out", zap.String("chapter", chapter.Label))
		a.emit(ChapterMinted{Chapter: receipt.Chapter, Label: chapter.Label})
	}
}

// SealMinting closes minting by following the current chapter's
// EpisodeMinted transition.
func (a *ArchOfPeace) SealMinting(caller common.Address) error {
	unlock := a.lock()
	defer unlock()

	if err := a.onlyOwner(caller); err != nil {
		return errors.Wrap(err, "seal minting")
	}
	from, to, err := a.machine.Advance(episode.EventMintingSealed)
	if err != nil {
		return errors.Wrap(err, "seal minting")
	}
	a.emit(EpisodeMinted{From: from, To: to})
	return nil
}

// EmitOnlifeEvent records an off-chain progression of the episode.
func (a *ArchOfPeace) EmitOnlifeEvent(caller common.Address) error {
	unlock := a.lock()
	defer unlock()

	if err := a.onlyOwner(caller); err != nil {
		return errors.Wrap(err, "emit onlife event")
	}
	from, to, err := a.machine.Advance(episode.EventOnlifeProgression)
	if err != nil {
		return errors.Wrap(err, "emit onlife event")
	}
	a.emit(EpisodeProgressedOnlife{From: from, To: to})
	return nil
}

// Reveal requests the randomness that seeds the metadata shuffling.
func (a *ArchOfPeace) Reveal(
	ctx context.Context,
	caller common.Address,
) (*big.Int, error) {
	unlock := a.lock()
	defer unlock()

	if err := a.onlyOwner(caller); err != nil {
		return nil, errors.Wrap(err, "reveal")
	}

	requestID, err := a.coordinator.Reveal(ctx)
	revealRequestsTotal.WithLabelValues(status(err)).Inc()
	if err != nil {
		return nil, err
	}

	a.emit(RandomnessRequested{RequestID: new(big.Int).Set(requestID)})
	return requestID, nil
}

// RawFulfillRandomWords is the oracle callback. On success the episode moves
// on through the current chapter's EpisodeRevealed transition, if any.
func (a *ArchOfPeace) RawFulfillRandomWords(
	caller common.Address,
	requestID *big.Int,
	words []*big.Int,
) error {
	unlock := a.lock()
	defer unlock()

	if caller != a.oracle.Address() {
		revealFulfillmentsTotal.WithLabelValues("error").Inc()
		return errors.Wrap(
			episode.ErrOnlyCoordinatorCanFulfill,
			"raw fulfill random words",
		)
	}

	seed, err := a.coordinator.OnRandomnessFulfilled(requestID, words)
	revealFulfillmentsTotal.WithLabelValues(status(err)).Inc()
	if err != nil {
		return errors.Wrap(err, "raw fulfill random words")
	}

	a.emit(EpisodeRevealed{RequestID: new(big.Int).Set(requestID), Seed: seed})

	if _, ok := a.machine.Next(episode.EventRevealed); ok {
		if _, _, err := a.machine.Advance(episode.EventRevealed); err != nil {
			return errors.Wrap(err, "raw fulfill random words")
		}
	}
	return nil
}

func (a *ArchOfPeace) Name() string   { return a.params.Name }
func (a *ArchOfPeace) Symbol() string { return a.params.Symbol }

func (a *ArchOfPeace) Owner() common.Address { return a.params.Owner }

func (a *ArchOfPeace) Address() common.Address { return a.params.Address }

// CurrentChapter returns the active chapter.
func (a *ArchOfPeace) CurrentChapter() (episode.Chapter, error) {
	return a.machine.CurrentChapter()
}

// IsFinalChapter reports whether the episode reached its conclusion.
func (a *ArchOfPeace) IsFinalChapter() bool {
	return a.machine.IsFinalChapter()
}

// Viz renders the chapter graph and the progress through it.
func (a *ArchOfPeace) Viz() *chapters.StateMachineViz {
	return chapters.NewStateMachineViz(a.machine)
}

func (a *ArchOfPeace) WhitelistRoot() common.Hash {
	return a.registry.Root()
}

func (a *ArchOfPeace) GroupRule(
	current episode.ChapterID,
	origin episode.ChapterID,
) (enabled bool, fixedPrice bool) {
	return a.resolver.GroupRule(current, origin)
}

func (a *ArchOfPeace) CurrentGroupPrice(origin episode.ChapterID) *big.Int {
	return a.resolver.CurrentGroupPrice(origin)
}

func (a *ArchOfPeace) CurrentDefaultPrice() *big.Int {
	return a.resolver.CurrentDefaultPrice()
}

func (a *ArchOfPeace) OfferMatchesGroupPrice(
	origin episode.ChapterID,
	quantity uint64,
	offer *big.Int,
) bool {
	return a.resolver.OfferMatchesGroupPrice(origin, quantity, offer)
}

func (a *ArchOfPeace) BalanceOf(account common.Address) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.BalanceOf(account)
}

func (a *ArchOfPeace) OwnerOf(tokenID uint64) (common.Address, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.OwnerOf(tokenID)
}

func (a *ArchOfPeace) TotalSupply() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.TotalSupply()
}

func (a *ArchOfPeace) MaxSupply() uint64 {
	return a.ledger.MaxSupply()
}

// RemainingAllocation returns how many tokens the current chapter can still
// mint.
func (a *ArchOfPeace) RemainingAllocation() uint64 {
	return a.authorizer.RemainingAllocation()
}

// Minted returns how many tokens account minted in chapter through path.
func (a *ArchOfPeace) Minted(
	path mint.Path,
	account common.Address,
	chapter episode.ChapterID,
) uint64 {
	return a.authorizer.Minted(path, account, chapter)
}

// Proceeds returns the total paid for mints, in wei.
func (a *ArchOfPeace) Proceeds() *big.Int {
	return a.authorizer.Proceeds()
}

// RevealStatus returns the reveal progress.
func (a *ArchOfPeace) RevealStatus() reveal.Status {
	return a.coordinator.Status()
}

func (a *ArchOfPeace) Revealed() bool {
	return a.coordinator.Status() == reveal.StatusRevealed
}

// PendingRequest returns the outstanding randomness request, if any.
func (a *ArchOfPeace) PendingRequest() (*big.Int, bool) {
	return a.coordinator.PendingRequest()
}

// Seed returns the metadata shuffling seed, zero until revealed.
func (a *ArchOfPeace) Seed() common.Hash {
	return a.coordinator.Seed()
}

type zapTracer struct {
	logger *zap.Logger
}

func (t *zapTracer) Trace(message string) {
	t.logger.Debug(message)
}

func (t *zapTracer) Error(message string, err error) {
	t.logger.Error(message, zap.Error(err))
}

var _ episode.TransitionListener = (*ArchOfPeace)(nil)
