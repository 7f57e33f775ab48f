package utils

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/monuverse/arch-of-peace-contract/whitelist"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ReplaceWhitelist swaps the stored whitelist records for records and, when
// publish is set, makes caller publish the new root. Nothing is stored unless
// the current chapter allows whitelisting and the root, if requested, was
// accepted.
func (e *Environment) ReplaceWhitelist(
	caller common.Address,
	records []whitelist.Record,
	publish bool,
) (*whitelist.Tree, []whitelist.Record, error) {
	sorted, err := whitelist.SortRecords(records)
	if err != nil {
		return nil, nil, errors.Wrap(err, "replace whitelist")
	}
	tree, err := whitelist.NewTreeFromRecords(sorted)
	if err != nil {
		return nil, nil, errors.Wrap(err, "replace whitelist")
	}

	current, err := e.Contract.CurrentChapter()
	switch {
	case err == nil && !current.WhitelistingAllowed:
		return nil, nil, errors.Wrapf(
			episode.ErrWhitelistingNotAllowed,
			"replace whitelist: chapter %q",
			current.Label,
		)
	case err != nil && !errors.Is(err, episode.ErrNotInstalled):
		return nil, nil, errors.Wrap(err, "replace whitelist")
	}

	txn, err := e.Store.NewTransaction(false)
	if err != nil {
		return nil, nil, errors.Wrap(err, "replace whitelist")
	}
	if err := e.Store.DeleteWhitelistRecords(txn); err != nil {
		txn.Abort()
		return nil, nil, errors.Wrap(err, "replace whitelist")
	}
	if err := e.Store.PutWhitelistRecords(txn, sorted); err != nil {
		txn.Abort()
		return nil, nil, errors.Wrap(err, "replace whitelist")
	}

	if publish {
		if err := e.Contract.SetWhitelistRoot(caller, tree.Root()); err != nil {
			txn.Abort()
			return nil, nil, errors.Wrap(err, "replace whitelist")
		}
	}

	if err := txn.Commit(); err != nil {
		return nil, nil, errors.Wrap(err, "replace whitelist")
	}

	e.Logger.Info(
		"whitelist replaced",
		zap.Int("records", len(sorted)),
		zap.String("root", tree.Root().Hex()),
		zap.Bool("published", publish),
	)
	return tree, sorted, nil
}

// WhitelistTree rebuilds the whitelist tree from the stored records.
func (e *Environment) WhitelistTree() (
	*whitelist.Tree,
	[]whitelist.Record,
	error,
) {
	records, err := e.Store.RangeWhitelistRecords(common.Hash{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "whitelist tree")
	}
	tree, err := whitelist.NewTreeFromRecords(records)
	if err != nil {
		return nil, nil, errors.Wrap(err, "whitelist tree")
	}
	return tree, records, nil
}

// WhitelistProof returns the stored record of account in chapter and its
// proof against the stored tree.
func (e *Environment) WhitelistProof(
	account common.Address,
	chapter episode.ChapterID,
) (*whitelist.Record, []common.Hash, error) {
	record, err := e.Store.GetWhitelistRecord(chapter, account)
	if err != nil {
		return nil, nil, errors.Wrap(err, "whitelist proof")
	}
	tree, _, err := e.WhitelistTree()
	if err != nil {
		return nil, nil, errors.Wrap(err, "whitelist proof")
	}
	proof, err := tree.ProofFor(record.Leaf())
	if err != nil {
		return nil, nil, errors.Wrap(err, "whitelist proof")
	}
	return record, proof, nil
}
