package history

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

const (
	discoveryStartedMessageConstant   = "Discovering commit graph"
	discoveryCompletedMessageConstant = "Commit graph discovered"
	branchFieldNameConstant           = "branch"
	tipFieldNameConstant              = "tip"
	commitCountFieldNameConstant      = "commits"
	rootCountFieldNameConstant        = "roots"
	branchCountFieldNameConstant      = "branches"
)

// GraphDiscoverer walks the ancestry of branch tips into a Store.
type GraphDiscoverer struct {
	repository Repository
	logger     *zap.Logger
}

// NewGraphDiscoverer constructs a discoverer reading from the repository.
func NewGraphDiscoverer(repository Repository, logger *zap.Logger) *GraphDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphDiscoverer{repository: repository, logger: logger}
}

// Discover records every commit reachable from the branch tips, collects the parentless ones,
// and links each commit to its children once traversal has finished.
func (discoverer *GraphDiscoverer) Discover(executionContext context.Context, branches []Branch) (*Store, *RootSet, error) {
	if discoverer.repository == nil {
		return nil, nil, ErrRepositoryNotConfigured
	}

	discoverer.logger.Debug(discoveryStartedMessageConstant, zap.Int(branchCountFieldNameConstant, len(branches)))

	store := NewStore()
	roots := NewRootSet()

	for _, branch := range branches {
		if executionContext.Err() != nil {
			return nil, nil, executionContext.Err()
		}
		discoverer.logger.Debug(discoveryStartedMessageConstant,
			zap.String(branchFieldNameConstant, branch.Name),
			zap.String(tipFieldNameConstant, branch.Target.String()),
		)
		if walkError := discoverer.walk(executionContext, store, roots, branch); walkError != nil {
			return nil, nil, walkError
		}
	}

	store.linkChildren()

	discoverer.logger.Debug(discoveryCompletedMessageConstant,
		zap.Int(commitCountFieldNameConstant, store.Len()),
		zap.Int(rootCountFieldNameConstant, roots.Len()),
	)

	return store, roots, nil
}

type pendingCommit struct {
	commitID     plumbing.Hash
	referencedBy plumbing.Hash
}

func (discoverer *GraphDiscoverer) walk(executionContext context.Context, store *Store, roots *RootSet, branch Branch) error {
	stack := []pendingCommit{{commitID: branch.Target}}

	for len(stack) > 0 {
		if executionContext.Err() != nil {
			return executionContext.Err()
		}

		lastIndex := len(stack) - 1
		pending := stack[lastIndex]
		stack = stack[:lastIndex]

		if store.Contains(pending.commitID) {
			continue
		}

		commit, commitError := discoverer.repository.Commit(executionContext, pending.commitID)
		if commitError != nil {
			return GraphResolutionError{
				ObjectKind:   ObjectKindCommit,
				ObjectID:     pending.commitID,
				ReferencedBy: pending.referencedBy,
				BranchName:   branch.Name,
				Cause:        commitError,
			}
		}

		store.Insert(commit)
		if len(commit.ParentHashes) == 0 {
			roots.Add(commit.Hash)
			continue
		}

		for parentIndex := len(commit.ParentHashes) - 1; parentIndex >= 0; parentIndex-- {
			parentID := commit.ParentHashes[parentIndex]
			if store.Contains(parentID) {
				continue
			}
			stack = append(stack, pendingCommit{commitID: parentID, referencedBy: commit.Hash})
		}
	}

	return nil
}

// Discover is a convenience wrapper around GraphDiscoverer without logging.
func Discover(executionContext context.Context, repository Repository, branches []Branch) (*Store, *RootSet, error) {
	return NewGraphDiscoverer(repository, nil).Discover(executionContext, branches)
}
