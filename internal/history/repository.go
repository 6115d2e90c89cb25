package history

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Branch is a local branch as seen at the start of a run.
type Branch struct {
	Name   string
	Target plumbing.Hash
	Head   bool
}

// Repository is the object store and ref access the rewrite depends on.
type Repository interface {
	// Branches lists local branches and marks the checked-out one.
	Branches(executionContext context.Context) ([]Branch, error)
	// Commit loads a commit by id.
	Commit(executionContext context.Context, commitID plumbing.Hash) (*object.Commit, error)
	// Tree loads a tree by id.
	Tree(executionContext context.Context, treeID plumbing.Hash) (*object.Tree, error)
	// CreateCommit stores a new commit and returns its id. The Hash field of commit is ignored.
	CreateCommit(executionContext context.Context, commit *object.Commit) (plumbing.Hash, error)
	// SetBranch force-creates or moves a local branch.
	SetBranch(executionContext context.Context, branchName string, target plumbing.Hash) error
	// ResetHard resets the checked-out branch and working state to target.
	ResetHard(executionContext context.Context, target plumbing.Hash) error
}
