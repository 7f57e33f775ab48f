package whitelist

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Registry holds the published whitelist root. The root may only be rotated
// while the current chapter allows whitelisting.
type Registry struct {
	logger   *zap.Logger
	chapters episode.ChapterSource

	mu   sync.RWMutex
	root common.Hash
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger, chapters episode.ChapterSource) *Registry {
	return &Registry{
		logger:   logger,
		chapters: chapters,
	}
}

// SetRoot publishes a new whitelist root.
func (r *Registry) SetRoot(root common.Hash) error {
	current, err := r.chapters.CurrentChapter()
	if err != nil {
		return errors.Wrap(err, "set root")
	}
	if !current.WhitelistingAllowed {
		return errors.Wrap(episode.ErrWhitelistingNotAllowed, "set root")
	}

	r.mu.Lock()
	previous := r.root
	r.root = root
	r.mu.Unlock()

	r.logger.Info(
		"whitelist root set",
		zap.String("chapter", current.Label),
		zap.String("previous", previous.Hex()),
		zap.String("root", root.Hex()),
	)
	return nil
}

// Root returns the published root, the zero hash if none was set.
func (r *Registry) Root() common.Hash {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root
}

// Restore sets the root without chapter checks, used when loading a persisted
// episode.
func (r *Registry) Restore(root common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.root = root
}

// Verify reports whether (account, limit, origin) is committed to by the
// published root. It has no side effects.
func (r *Registry) Verify(
	account common.Address,
	limit uint64,
	origin episode.ChapterID,
	proof []common.Hash,
) bool {
	root := r.Root()
	if root == (common.Hash{}) {
		return false
	}
	return VerifyProof(proof, root, Leaf(account, limit, origin))
}
