package gitstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/go-git/go-git/v5/storage/transactional"
	"go.uber.org/zap"

	"github.com/temirov/gitanon/internal/execshell"
	"github.com/temirov/gitanon/internal/history"
)

const (
	repositoryOpenedMessageConstant        = "Repository opened"
	branchReferenceResolveTemplateConstant = "resolve branch %s: %w"
	listBranchesTemplateConstant           = "list branches: %w"
	encodeCommitTemplateConstant           = "encode commit: %w"
	storeCommitTemplateConstant            = "store commit: %w"
	repositoryPathFieldNameConstant        = "repository_path"
	dryRunFieldNameConstant                = "dry_run"
	bareFieldNameConstant                  = "bare"
	resetBackendFieldNameConstant          = "reset_backend"
)

// GitExecutor runs git binary commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Options configures how a repository is opened.
type Options struct {
	DryRun       bool
	ResetBackend ResetBackend
	GitExecutor  GitExecutor
	Logger       *zap.Logger
}

// Repository is a go-git repository exposed through history.Repository.
type Repository struct {
	path       string
	repository *git.Repository
	storer     storage.Storer
	bare       bool
	dryRun     bool
	resetter   workingTreeResetter
	logger     *zap.Logger
}

// Open opens the repository containing repositoryPath.
func Open(executionContext context.Context, repositoryPath string, options Options) (*Repository, error) {
	if executionContext.Err() != nil {
		return nil, executionContext.Err()
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gitRepository, openError := plainOpen(repositoryPath)
	if openError != nil {
		return nil, history.RepositoryOpenError{RepositoryPath: repositoryPath, Cause: openError}
	}

	worktreeRoot := emptyStringConstant
	worktree, worktreeError := gitRepository.Worktree()
	switch {
	case worktreeError == nil:
		worktreeRoot = worktree.Filesystem.Root()
	case errors.Is(worktreeError, git.ErrIsBareRepository):
	default:
		return nil, history.RepositoryOpenError{RepositoryPath: repositoryPath, Cause: worktreeError}
	}
	bare := len(worktreeRoot) == 0

	repositoryStorer := gitRepository.Storer
	if options.DryRun {
		repositoryStorer = transactional.NewStorage(gitRepository.Storer, memory.NewStorage())
		overlayRepository, overlayError := git.Open(repositoryStorer, nil)
		if overlayError != nil {
			return nil, history.RepositoryOpenError{RepositoryPath: repositoryPath, Cause: overlayError}
		}
		gitRepository = overlayRepository
	}

	resolvedPath := repositoryPath
	if !bare {
		resolvedPath = worktreeRoot
	}

	backend := options.ResetBackend.Sanitize()
	repository := &Repository{
		path:       resolvedPath,
		repository: gitRepository,
		storer:     repositoryStorer,
		bare:       bare,
		dryRun:     options.DryRun,
		logger:     logger,
	}
	resetter, resetterError := newWorkingTreeResetter(backend, repository, worktreeRoot, options.GitExecutor)
	if resetterError != nil {
		return nil, history.RepositoryOpenError{RepositoryPath: repositoryPath, Cause: resetterError}
	}
	repository.resetter = resetter

	logger.Debug(repositoryOpenedMessageConstant,
		zap.String(repositoryPathFieldNameConstant, resolvedPath),
		zap.Bool(dryRunFieldNameConstant, options.DryRun),
		zap.Bool(bareFieldNameConstant, bare),
		zap.String(resetBackendFieldNameConstant, string(backend)),
	)

	return repository, nil
}

// plainOpen opens repositoryPath as a repository of its own, so a bare repository nested in a
// working tree opens as itself. Other paths are resolved by searching parents for .git.
func plainOpen(repositoryPath string) (*git.Repository, error) {
	if _, statError := os.Stat(repositoryPath); statError != nil {
		return nil, statError
	}
	gitRepository, openError := git.PlainOpen(repositoryPath)
	if errors.Is(openError, git.ErrRepositoryNotExists) {
		return git.PlainOpenWithOptions(repositoryPath, &git.PlainOpenOptions{DetectDotGit: true})
	}
	return gitRepository, openError
}

// Path returns the working tree root, or the given path for bare repositories.
func (repository *Repository) Path() string {
	return repository.path
}

// IsBare reports whether the repository has no working tree.
func (repository *Repository) IsBare() bool {
	return repository.bare
}

// IsDryRun reports whether writes are kept in memory.
func (repository *Repository) IsDryRun() bool {
	return repository.dryRun
}

// Branches lists local branches sorted by name and marks the one HEAD points at.
func (repository *Repository) Branches(executionContext context.Context) ([]history.Branch, error) {
	if executionContext.Err() != nil {
		return nil, executionContext.Err()
	}

	checkedOutReference := plumbing.ReferenceName(emptyStringConstant)
	headReference, headError := repository.storer.Reference(plumbing.HEAD)
	if headError == nil && headReference.Type() == plumbing.SymbolicReference {
		checkedOutReference = headReference.Target()
	}

	branchIterator, iteratorError := repository.repository.Branches()
	if iteratorError != nil {
		return nil, fmt.Errorf(listBranchesTemplateConstant, iteratorError)
	}
	defer branchIterator.Close()

	var branches []history.Branch
	iterationError := branchIterator.ForEach(func(reference *plumbing.Reference) error {
		resolvedReference := reference
		if reference.Type() != plumbing.HashReference {
			resolved, resolveError := storer.ResolveReference(repository.storer, reference.Name())
			if resolveError != nil {
				return fmt.Errorf(branchReferenceResolveTemplateConstant, reference.Name().Short(), resolveError)
			}
			resolvedReference = resolved
		}
		branches = append(branches, history.Branch{
			Name:   reference.Name().Short(),
			Target: resolvedReference.Hash(),
			Head:   reference.Name() == checkedOutReference,
		})
		return nil
	})
	if iterationError != nil {
		return nil, fmt.Errorf(listBranchesTemplateConstant, iterationError)
	}

	sort.Slice(branches, func(leftIndex int, rightIndex int) bool {
		return strings.Compare(branches[leftIndex].Name, branches[rightIndex].Name) < 0
	})
	return branches, nil
}

// Commit loads a commit object.
func (repository *Repository) Commit(executionContext context.Context, commitID plumbing.Hash) (*object.Commit, error) {
	if executionContext.Err() != nil {
		return nil, executionContext.Err()
	}
	return object.GetCommit(repository.storer, commitID)
}

// Tree loads a tree object.
func (repository *Repository) Tree(executionContext context.Context, treeID plumbing.Hash) (*object.Tree, error) {
	if executionContext.Err() != nil {
		return nil, executionContext.Err()
	}
	return object.GetTree(repository.storer, treeID)
}

// CreateCommit encodes the commit into the object store and returns its id.
func (repository *Repository) CreateCommit(executionContext context.Context, commit *object.Commit) (plumbing.Hash, error) {
	if executionContext.Err() != nil {
		return plumbing.ZeroHash, executionContext.Err()
	}
	encodedObject := repository.storer.NewEncodedObject()
	if encodeError := commit.Encode(encodedObject); encodeError != nil {
		return plumbing.ZeroHash, fmt.Errorf(encodeCommitTemplateConstant, encodeError)
	}
	commitID, storeError := repository.storer.SetEncodedObject(encodedObject)
	if storeError != nil {
		return plumbing.ZeroHash, fmt.Errorf(storeCommitTemplateConstant, storeError)
	}
	return commitID, nil
}

// SetBranch force-creates or moves refs/heads/<branchName>.
func (repository *Repository) SetBranch(executionContext context.Context, branchName string, target plumbing.Hash) error {
	if executionContext.Err() != nil {
		return executionContext.Err()
	}
	return repository.storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName(branchName), target))
}

// ResetHard points the checked-out branch at target and, when a working tree exists, resets it.
func (repository *Repository) ResetHard(executionContext context.Context, target plumbing.Hash) error {
	if executionContext.Err() != nil {
		return executionContext.Err()
	}
	return repository.resetter.Reset(executionContext, target)
}

// WorkingTreeClean reports whether the working tree has no uncommitted changes.
// Bare and dry-run repositories are always clean.
func (repository *Repository) WorkingTreeClean(executionContext context.Context) (bool, error) {
	if executionContext.Err() != nil {
		return false, executionContext.Err()
	}
	return repository.resetter.Clean(executionContext)
}

func (repository *Repository) moveHeadBranch(target plumbing.Hash) error {
	headReference, headError := repository.storer.Reference(plumbing.HEAD)
	if headError != nil {
		return headError
	}
	if headReference.Type() != plumbing.SymbolicReference {
		return repository.storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, target))
	}
	return repository.storer.SetReference(plumbing.NewHashReference(headReference.Target(), target))
}
