package store

import (
	"slices"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/monuverse/arch-of-peace-contract/archofpeace"
	"github.com/monuverse/arch-of-peace-contract/types/store"
	"github.com/monuverse/arch-of-peace-contract/whitelist"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("item not found")

const (
	EPISODE                  = 0x01
	EPISODE_SNAPSHOT         = 0x00
	EPISODE_WHITELIST_RECORD = 0x01
)

var _ store.EpisodeStore = (*PebbleEpisodeStore)(nil)

type PebbleEpisodeStore struct {
	db     store.KVDB
	logger *zap.Logger
}

func NewPebbleEpisodeStore(
	db store.KVDB,
	logger *zap.Logger,
) *PebbleEpisodeStore {
	return &PebbleEpisodeStore{
		db,
		logger,
	}
}

func snapshotKey() []byte {
	return []byte{EPISODE, EPISODE_SNAPSHOT}
}

func whitelistRecordPrefix() []byte {
	return []byte{EPISODE, EPISODE_WHITELIST_RECORD}
}

func whitelistChapterKey(chapter common.Hash) []byte {
	return append(whitelistRecordPrefix(), chapter.Bytes()...)
}

func whitelistRecordKey(chapter common.Hash, account common.Address) []byte {
	return append(whitelistChapterKey(chapter), account.Bytes()...)
}

// prefixEnd returns the smallest key greater than every key carrying prefix.
func prefixEnd(prefix []byte) []byte {
	end := slices.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (p *PebbleEpisodeStore) NewTransaction(indexed bool) (
	store.Transaction,
	error,
) {
	return p.db.NewBatch(indexed), nil
}

func (p *PebbleEpisodeStore) GetSnapshot() (*archofpeace.Snapshot, error) {
	data, closer, err := p.db.Get(snapshotKey())
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get snapshot")
	}

	copied := slices.Clone(data)
	closer.Close()

	snapshot, err := archofpeace.DecodeSnapshot(copied)
	return snapshot, errors.Wrap(err, "get snapshot")
}

func (p *PebbleEpisodeStore) PutSnapshot(
	txn store.Transaction,
	snapshot *archofpeace.Snapshot,
) error {
	data, err := archofpeace.EncodeSnapshot(snapshot)
	if err != nil {
		return errors.Wrap(err, "put snapshot")
	}

	if err := txn.Set(snapshotKey(), data); err != nil {
		return errors.Wrap(err, "put snapshot")
	}

	p.logger.Debug("snapshot stored", zap.Int("size", len(data)))
	return nil
}

func (p *PebbleEpisodeStore) GetWhitelistRecord(
	chapter common.Hash,
	account common.Address,
) (*whitelist.Record, error) {
	data, closer, err := p.db.Get(whitelistRecordKey(chapter, account))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get whitelist record")
	}

	copied := slices.Clone(data)
	closer.Close()

	record := &whitelist.Record{}
	if err := rlp.DecodeBytes(copied, record); err != nil {
		return nil, errors.Wrap(err, "get whitelist record")
	}
	return record, nil
}

func (p *PebbleEpisodeStore) PutWhitelistRecords(
	txn store.Transaction,
	records []whitelist.Record,
) error {
	for _, r := range records {
		data, err := rlp.EncodeToBytes(&r)
		if err != nil {
			return errors.Wrap(err, "put whitelist records")
		}
		if err := txn.Set(whitelistRecordKey(r.Chapter, r.Account), data); err != nil {
			return errors.Wrap(err, "put whitelist records")
		}
	}
	return nil
}

// RangeWhitelistRecords returns the records of chapter, or of every chapter
// when chapter is the zero hash, in key order.
func (p *PebbleEpisodeStore) RangeWhitelistRecords(
	chapter common.Hash,
) ([]whitelist.Record, error) {
	prefix := whitelistRecordPrefix()
	if chapter != (common.Hash{}) {
		prefix = whitelistChapterKey(chapter)
	}

	iter, err := p.db.NewIter(prefix, prefixEnd(prefix))
	if err != nil {
		return nil, errors.Wrap(err, "range whitelist records")
	}
	defer iter.Close()

	records := []whitelist.Record{}
	for iter.First(); iter.Valid(); iter.Next() {
		record := whitelist.Record{}
		if err := rlp.DecodeBytes(iter.Value(), &record); err != nil {
			return nil, errors.Wrap(err, "range whitelist records")
		}
		records = append(records, record)
	}

	return records, nil
}

func (p *PebbleEpisodeStore) DeleteWhitelistRecords(
	txn store.Transaction,
) error {
	prefix := whitelistRecordPrefix()
	return errors.Wrap(
		txn.DeleteRange(prefix, prefixEnd(prefix)),
		"delete whitelist records",
	)
}
