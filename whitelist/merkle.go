package whitelist

import (
	"bytes"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/pkg/errors"
)

// Record is a single whitelist entry: an account allowed to mint up to Limit
// tokens per chapter, as a native of the Chapter group.
type Record struct {
	Account common.Address
	Limit   uint64
	Chapter episode.ChapterID
}

// Leaf returns keccak256(abi.encodePacked(account, uint256(limit), chapter)).
func Leaf(account common.Address, limit uint64, chapter episode.ChapterID) common.Hash {
	return episode.Keccak256(
		account.Bytes(),
		math.U256Bytes(new(big.Int).SetUint64(limit)),
		chapter.Bytes(),
	)
}

// Leaf returns the tree leaf of the record.
func (r Record) Leaf() common.Hash {
	return Leaf(r.Account, r.Limit, r.Chapter)
}

// hashPair hashes two nodes in ascending byte order, so proofs do not carry
// left/right positions.
func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a.Bytes(), b.Bytes()) <= 0 {
		return episode.Keccak256(a.Bytes(), b.Bytes())
	}
	return episode.Keccak256(b.Bytes(), a.Bytes())
}

// ProcessProof folds proof over leaf and returns the resulting root.
func ProcessProof(proof []common.Hash, leaf common.Hash) common.Hash {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed
}

// VerifyProof reports whether leaf is committed to by root.
func VerifyProof(proof []common.Hash, root common.Hash, leaf common.Hash) bool {
	return ProcessProof(proof, leaf) == root
}

// Tree is a keccak256 Merkle tree with sorted pairs. An odd node at the end of
// a layer is carried up unchanged.
type Tree struct {
	layers [][]common.Hash
	index  map[common.Hash]int
}

// NewTree builds a tree over leaves, in the given order.
func NewTree(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, errors.New("new tree: no leaves")
	}

	t := &Tree{
		layers: [][]common.Hash{append([]common.Hash(nil), leaves...)},
		index:  make(map[common.Hash]int, len(leaves)),
	}
	for i, l := range leaves {
		if _, ok := t.index[l]; !ok {
			t.index[l] = i
		}
	}

	for layer := t.layers[0]; len(layer) > 1; {
		next := make([]common.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			next = append(next, hashPair(layer[i], layer[i+1]))
		}
		t.layers = append(t.layers, next)
		layer = next
	}

	return t, nil
}

// SortRecords orders records by chapter, then account: the order of their
// keys in the episode store. Two records for the same account and chapter are
// rejected.
func SortRecords(records []Record) ([]Record, error) {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b Record) int {
		if c := bytes.Compare(a.Chapter.Bytes(), b.Chapter.Bytes()); c != 0 {
			return c
		}
		return bytes.Compare(a.Account.Bytes(), b.Account.Bytes())
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Chapter == sorted[i-1].Chapter &&
			sorted[i].Account == sorted[i-1].Account {
			return nil, errors.Errorf(
				"sort records: duplicate record for %s in chapter %s",
				sorted[i].Account.Hex(),
				sorted[i].Chapter.Hex(),
			)
		}
	}
	return sorted, nil
}

// NewTreeFromRecords builds a tree over the records' leaves.
func NewTreeFromRecords(records []Record) (*Tree, error) {
	leaves := make([]common.Hash, 0, len(records))
	for _, r := range records {
		leaves = append(leaves, r.Leaf())
	}
	return NewTree(leaves)
}

// Root returns the tree root.
func (t *Tree) Root() common.Hash {
	return t.layers[len(t.layers)-1][0]
}

// Leaves returns the bottom layer.
func (t *Tree) Leaves() []common.Hash {
	return append([]common.Hash(nil), t.layers[0]...)
}

// Proof returns the sibling path of the leaf at index.
func (t *Tree) Proof(index int) ([]common.Hash, error) {
	if index < 0 || index >= len(t.layers[0]) {
		return nil, errors.Errorf("proof: index %d out of range", index)
	}

	proof := []common.Hash{}
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := index ^ 1
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		index /= 2
	}

	return proof, nil
}

// ProofFor returns the proof of the first occurrence of leaf.
func (t *Tree) ProofFor(leaf common.Hash) ([]common.Hash, error) {
	index, ok := t.index[leaf]
	if !ok {
		return nil, errors.Errorf("proof: unknown leaf %s", leaf.Hex())
	}
	return t.Proof(index)
}
