package history

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

const (
	repositoryNotConfiguredMessageConstant     = "repository not configured"
	missingReplacementMessageConstant          = "branch tip has no replacement commit"
	incompleteRewriteMessageConstant           = "history rewrite did not reach every commit"
	repositoryOpenErrorTemplateConstant        = "unable to open repository %s: %v"
	graphResolutionTipErrorTemplateConstant    = "unable to resolve %s %s for branch %s: %v"
	graphResolutionObjectErrorTemplateConstant = "unable to resolve %s %s referenced by %s: %v"
	commitCreationErrorTemplateConstant        = "unable to create replacement for commit %s: %v"
	refUpdateErrorTemplateConstant             = "unable to move branch %s to %s: %v"
	refResetErrorTemplateConstant              = "unable to reset checked out branch %s to %s: %v"
	// ObjectKindCommit labels commit lookups in GraphResolutionError.
	ObjectKindCommit = "commit"
	// ObjectKindTree labels tree lookups in GraphResolutionError.
	ObjectKindTree = "tree"
)

// ErrRepositoryNotConfigured indicates a component was constructed without a repository.
var ErrRepositoryNotConfigured = errors.New(repositoryNotConfiguredMessageConstant)

// ErrMissingReplacement indicates a branch tip was not rebuilt. It signals a logic error, not bad input.
var ErrMissingReplacement = errors.New(missingReplacementMessageConstant)

// ErrIncompleteRewrite indicates the dependency-ordered rebuild stopped before every commit was rebuilt.
var ErrIncompleteRewrite = errors.New(incompleteRewriteMessageConstant)

// RepositoryOpenError reports a path that is not an accessible repository.
type RepositoryOpenError struct {
	RepositoryPath string
	Cause          error
}

// Error describes the failure.
func (openError RepositoryOpenError) Error() string {
	return fmt.Sprintf(repositoryOpenErrorTemplateConstant, openError.RepositoryPath, openError.Cause)
}

// Unwrap exposes the underlying failure.
func (openError RepositoryOpenError) Unwrap() error {
	return openError.Cause
}

// GraphResolutionError reports a commit or tree that could not be loaded, which means the
// repository is corrupt or unexpectedly shallow.
type GraphResolutionError struct {
	ObjectKind   string
	ObjectID     plumbing.Hash
	ReferencedBy plumbing.Hash
	BranchName   string
	Cause        error
}

// Error describes the failure.
func (resolutionError GraphResolutionError) Error() string {
	if resolutionError.ReferencedBy.IsZero() {
		return fmt.Sprintf(graphResolutionTipErrorTemplateConstant, resolutionError.ObjectKind, resolutionError.ObjectID, resolutionError.BranchName, resolutionError.Cause)
	}
	return fmt.Sprintf(graphResolutionObjectErrorTemplateConstant, resolutionError.ObjectKind, resolutionError.ObjectID, resolutionError.ReferencedBy, resolutionError.Cause)
}

// Unwrap exposes the underlying failure.
func (resolutionError GraphResolutionError) Unwrap() error {
	return resolutionError.Cause
}

// CommitCreationError reports that the object store rejected a replacement commit.
type CommitCreationError struct {
	OriginalCommit plumbing.Hash
	Cause          error
}

// Error describes the failure.
func (creationError CommitCreationError) Error() string {
	return fmt.Sprintf(commitCreationErrorTemplateConstant, creationError.OriginalCommit, creationError.Cause)
}

// Unwrap exposes the underlying failure.
func (creationError CommitCreationError) Unwrap() error {
	return creationError.Cause
}

// RefUpdateError reports a failed branch move or working tree reset.
type RefUpdateError struct {
	BranchName string
	Target     plumbing.Hash
	CheckedOut bool
	Cause      error
}

// Error describes the failure.
func (updateError RefUpdateError) Error() string {
	if updateError.CheckedOut {
		return fmt.Sprintf(refResetErrorTemplateConstant, updateError.BranchName, updateError.Target, updateError.Cause)
	}
	return fmt.Sprintf(refUpdateErrorTemplateConstant, updateError.BranchName, updateError.Target, updateError.Cause)
}

// Unwrap exposes the underlying failure.
func (updateError RefUpdateError) Unwrap() error {
	return updateError.Cause
}
