package store

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/monuverse/arch-of-peace-contract/archofpeace"
	"github.com/monuverse/arch-of-peace-contract/whitelist"
)

// EpisodeStore persists an episode between process lifetimes.
type EpisodeStore interface {
	NewTransaction(indexed bool) (Transaction, error)
	GetSnapshot() (*archofpeace.Snapshot, error)
	PutSnapshot(txn Transaction, snapshot *archofpeace.Snapshot) error
	GetWhitelistRecord(
		chapter common.Hash,
		account common.Address,
	) (*whitelist.Record, error)
	PutWhitelistRecords(txn Transaction, records []whitelist.Record) error
	RangeWhitelistRecords(chapter common.Hash) ([]whitelist.Record, error)
	DeleteWhitelistRecords(txn Transaction) error
}
