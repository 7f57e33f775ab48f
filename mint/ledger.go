package mint

import (
	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the minimal token ownership bookkeeping needed to credit mints.
// Token identifiers are sequential, starting at zero.
type Ledger struct {
	maxSupply uint64
	owners    []common.Address
	balances  map[common.Address]uint64
}

// NewLedger creates an empty ledger capped at maxSupply tokens.
func NewLedger(maxSupply uint64) *Ledger {
	return &Ledger{
		maxSupply: maxSupply,
		owners:    make([]common.Address, 0),
		balances:  make(map[common.Address]uint64),
	}
}

// Credit mints quantity tokens to account and returns the first token id.
// Callers check the supply cap beforehand.
func (l *Ledger) Credit(account common.Address, quantity uint64) uint64 {
	first := uint64(len(l.owners))
	for i := uint64(0); i < quantity; i++ {
		l.owners = append(l.owners, account)
	}
	l.balances[account] += quantity
	return first
}

// BalanceOf returns the number of tokens held by account.
func (l *Ledger) BalanceOf(account common.Address) uint64 {
	return l.balances[account]
}

// OwnerOf returns the owner of tokenID.
func (l *Ledger) OwnerOf(tokenID uint64) (common.Address, bool) {
	if tokenID >= uint64(len(l.owners)) {
		return common.Address{}, false
	}
	return l.owners[tokenID], true
}

func (l *Ledger) TotalSupply() uint64 {
	return uint64(len(l.owners))
}

func (l *Ledger) MaxSupply() uint64 {
	return l.maxSupply
}

// RemainingSupply returns how many tokens can still be minted.
func (l *Ledger) RemainingSupply() uint64 {
	if l.TotalSupply() >= l.maxSupply {
		return 0
	}
	return l.maxSupply - l.TotalSupply()
}

// Owners returns a copy of the token owners, indexed by token id.
func (l *Ledger) Owners() []common.Address {
	return append([]common.Address(nil), l.owners...)
}

// restore replaces the ledger content with owners.
func (l *Ledger) restore(owners []common.Address) {
	l.owners = append(make([]common.Address, 0, len(owners)), owners...)
	l.balances = make(map[common.Address]uint64)
	for _, o := range owners {
		l.balances[o]++
	}
}
