package config

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	defaultName          = "Arch of Peace"
	defaultSymbol        = "PEACE"
	defaultMaxSupply     = uint64(7777)
	defaultOpenMintLimit = uint64(3)

	// Chainlink VRF v2 parameters
	defaultCoordinator      = "0x271682DEB8C4E0901D1a1550aD2e64D568E69909"
	defaultKeyHash          = "0xd89b2bf150e3b9e13446986e571fb9cab24b13cea0a43ea20a6049a85cc807cc"
	defaultSubscriptionID   = uint64(1)
	defaultConfirmations    = uint16(3)
	defaultCallbackGasLimit = uint32(100000)
	defaultNumWords         = uint32(1)
)

type ContractConfig struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
	// Address identifies the contract as a randomness consumer.
	Address string `yaml:"address"`
	// Owner is the hex address allowed to drive the episode.
	Owner     string `yaml:"owner"`
	MaxSupply uint64 `yaml:"maxSupply"`
	// Per account, per chapter cap on open (public) mints.
	OpenMintLimit uint64 `yaml:"openMintLimit"`
}

// WithDefaults returns a copy of the ContractConfig with any missing fields set
// to their default values.
func (c ContractConfig) WithDefaults() ContractConfig {
	cpy := c
	if cpy.Name == "" {
		cpy.Name = defaultName
	}
	if cpy.Symbol == "" {
		cpy.Symbol = defaultSymbol
	}
	if cpy.MaxSupply == 0 {
		cpy.MaxSupply = defaultMaxSupply
	}
	if cpy.OpenMintLimit == 0 {
		cpy.OpenMintLimit = defaultOpenMintLimit
	}
	return cpy
}

// OwnerAddress parses the configured owner.
func (c ContractConfig) OwnerAddress() (common.Address, error) {
	if !common.IsHexAddress(c.Owner) {
		return common.Address{}, errors.Errorf("invalid owner address %q", c.Owner)
	}
	return common.HexToAddress(c.Owner), nil
}

// ContractAddress parses the configured contract address, the zero address
// when unset.
func (c ContractConfig) ContractAddress() (common.Address, error) {
	return optionalAddress("contract", c.Address)
}

func optionalAddress(name string, hex string) (common.Address, error) {
	if hex == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(hex) {
		return common.Address{}, errors.Errorf("invalid %s address %q", name, hex)
	}
	return common.HexToAddress(hex), nil
}

type VRFConfig struct {
	// Coordinator is the address of the randomness coordinator, the only
	// account allowed to fulfil requests.
	Coordinator      string `yaml:"coordinator"`
	KeyHash          string `yaml:"keyHash"`
	SubscriptionID   uint64 `yaml:"subscriptionId"`
	Confirmations    uint16 `yaml:"confirmations"`
	CallbackGasLimit uint32 `yaml:"callbackGasLimit"`
	NumWords         uint32 `yaml:"numWords"`
}

// WithDefaults returns a copy of the VRFConfig with any missing fields set to
// their default values.
func (c VRFConfig) WithDefaults() VRFConfig {
	cpy := c
	if cpy.Coordinator == "" {
		cpy.Coordinator = defaultCoordinator
	}
	if cpy.KeyHash == "" {
		cpy.KeyHash = defaultKeyHash
	}
	if cpy.SubscriptionID == 0 {
		cpy.SubscriptionID = defaultSubscriptionID
	}
	if cpy.Confirmations == 0 {
		cpy.Confirmations = defaultConfirmations
	}
	if cpy.CallbackGasLimit == 0 {
		cpy.CallbackGasLimit = defaultCallbackGasLimit
	}
	if cpy.NumWords == 0 {
		cpy.NumWords = defaultNumWords
	}
	return cpy
}

// CoordinatorAddress parses the configured coordinator address.
func (c VRFConfig) CoordinatorAddress() (common.Address, error) {
	return optionalAddress("coordinator", c.Coordinator)
}

// KeyHashBytes returns the gas lane key hash.
func (c VRFConfig) KeyHashBytes() common.Hash {
	return common.HexToHash(c.KeyHash)
}
