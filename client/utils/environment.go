package utils

import (
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/monuverse/arch-of-peace-contract/archofpeace"
	"github.com/monuverse/arch-of-peace-contract/config"
	"github.com/monuverse/arch-of-peace-contract/node/store"
	"github.com/monuverse/arch-of-peace-contract/oracle"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Environment is everything a command needs: configuration, logger, the
// persisted contract and the randomness coordinator it talks to.
type Environment struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *store.PebbleDB
	Store    *store.PebbleEpisodeStore
	Monitor  *store.DiskMonitor
	Oracle   *oracle.Coordinator
	Contract *archofpeace.ArchOfPeace

	logCloser io.Closer
}

// ContractParams builds the contract parameters from the configuration.
func ContractParams(cfg *config.Config) (archofpeace.Params, error) {
	owner, err := cfg.Contract.OwnerAddress()
	if err != nil {
		return archofpeace.Params{}, errors.Wrap(err, "contract params")
	}
	address, err := cfg.Contract.ContractAddress()
	if err != nil {
		return archofpeace.Params{}, errors.Wrap(err, "contract params")
	}

	return archofpeace.Params{
		Address:       address,
		Owner:         owner,
		Name:          cfg.Contract.Name,
		Symbol:        cfg.Contract.Symbol,
		MaxSupply:     cfg.Contract.MaxSupply,
		OpenMintLimit: cfg.Contract.OpenMintLimit,
		VRF: archofpeace.VRFParams{
			KeyHash:          cfg.VRF.KeyHashBytes(),
			SubscriptionID:   cfg.VRF.SubscriptionID,
			Confirmations:    cfg.VRF.Confirmations,
			CallbackGasLimit: cfg.VRF.CallbackGasLimit,
			NumWords:         cfg.VRF.NumWords,
		},
	}, nil
}

// OpenEnvironment loads the configuration at configPath, opens the store and
// restores the persisted contract, if any.
func OpenEnvironment(configPath string, debug bool) (*Environment, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "open environment")
	}

	logger, logCloser, err := cfg.CreateLogger(debug)
	if err != nil {
		return nil, errors.Wrap(err, "open environment")
	}

	env := &Environment{Config: cfg, Logger: logger, logCloser: logCloser}
	if err := env.open(); err != nil {
		env.Close()
		return nil, errors.Wrap(err, "open environment")
	}
	return env, nil
}

func (e *Environment) open() error {
	params, err := ContractParams(e.Config)
	if err != nil {
		return err
	}
	coordinatorAddress, err := e.Config.VRF.CoordinatorAddress()
	if err != nil {
		return err
	}

	e.DB, err = store.NewPebbleDB(e.Logger, e.Config.DB)
	if err != nil {
		return err
	}
	e.Store = store.NewPebbleEpisodeStore(e.DB, e.Logger)
	if !e.Config.DB.InMemoryDONOTUSE {
		e.Monitor = store.NewDiskMonitor(*e.Config.DB, e.Logger)
	}

	e.Oracle = oracle.NewCoordinator(e.Logger, coordinatorAddress)
	e.Contract = archofpeace.New(e.Logger, params, e.Oracle)
	e.Oracle.AddConsumer(params.Address, e.Contract)

	snapshot, err := e.Store.GetSnapshot()
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.Debug("no persisted episode")
		return nil
	}
	if err != nil {
		return err
	}
	return e.Contract.Restore(snapshot)
}

// Persist writes the contract state to the store. Writes are refused once the
// store partition is critically full.
func (e *Environment) Persist() error {
	if e.Monitor != nil {
		if err := e.Monitor.Check(); err != nil {
			return errors.Wrap(err, "persist")
		}
	}

	txn, err := e.Store.NewTransaction(false)
	if err != nil {
		return errors.Wrap(err, "persist")
	}
	if err := e.Store.PutSnapshot(txn, e.Contract.Snapshot()); err != nil {
		txn.Abort()
		return errors.Wrap(err, "persist")
	}
	return errors.Wrap(txn.Commit(), "persist")
}

func (e *Environment) Close() error {
	var err error
	if e.DB != nil {
		err = e.DB.Close()
	}
	e.Logger.Sync()
	if e.logCloser != nil {
		e.logCloser.Close()
	}
	return err
}

// Current is the environment opened for the running command.
var Current *Environment

// Caller resolves the --from flag, defaulting to the configured owner.
func (e *Environment) Caller(from string) (common.Address, error) {
	if from == "" {
		return e.Config.Contract.OwnerAddress()
	}
	if !common.IsHexAddress(from) {
		return common.Address{}, errors.Errorf("invalid caller address %q", from)
	}
	return common.HexToAddress(from), nil
}
