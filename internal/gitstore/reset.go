package gitstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/temirov/gitanon/internal/execshell"
)

// ResetBackend selects how the checked-out branch's working tree is reset.
type ResetBackend string

const (
	// ResetBackendNative resets through go-git.
	ResetBackendNative ResetBackend = "native"
	// ResetBackendGit resets by running git reset --hard.
	ResetBackendGit ResetBackend = "git"
)

const (
	emptyStringConstant               = ""
	gitResetSubcommandConstant        = "reset"
	gitResetHardFlagConstant          = "--hard"
	gitResetQuietFlagConstant         = "--quiet"
	gitRevParseSubcommandConstant     = "rev-parse"
	gitHeadRevisionConstant           = "HEAD"
	gitStatusSubcommandConstant       = "status"
	gitStatusPorcelainFlagConstant    = "--porcelain"
	resetVerificationTemplateConstant = "working tree HEAD is %s after reset, expected %s"
	restoreFileTemplateConstant       = "restore %s: %w"
	gitExecutorMissingMessageConstant = "git reset backend requires a git executor"
)

// ErrGitExecutorRequired indicates ResetBackendGit was selected without a GitExecutor.
var ErrGitExecutorRequired = errors.New(gitExecutorMissingMessageConstant)

// Sanitize normalizes the backend name and falls back to ResetBackendNative for unknown values.
func (backend ResetBackend) Sanitize() ResetBackend {
	switch ResetBackend(strings.ToLower(strings.TrimSpace(string(backend)))) {
	case ResetBackendGit:
		return ResetBackendGit
	default:
		return ResetBackendNative
	}
}

type workingTreeResetter interface {
	Reset(executionContext context.Context, target plumbing.Hash) error
	Clean(executionContext context.Context) (bool, error)
}

func newWorkingTreeResetter(backend ResetBackend, repository *Repository, worktreeRoot string, executor GitExecutor) (workingTreeResetter, error) {
	if repository.dryRun || repository.bare {
		return headReferenceResetter{repository: repository}, nil
	}
	if backend == ResetBackendGit {
		if executor == nil {
			return nil, ErrGitExecutorRequired
		}
		return gitCommandResetter{executor: executor, worktreeRoot: worktreeRoot}, nil
	}
	return nativeResetter{repository: repository.repository}, nil
}

// nativeResetter follows git reset --hard with go-git: the checked-out branch and the index
// move to the target, tracked files are restored from its tree, untracked and ignored
// files stay. go-git's own HardReset is not used because it removes untracked files.
type nativeResetter struct {
	repository *git.Repository
}

func (resetter nativeResetter) Reset(_ context.Context, target plumbing.Hash) error {
	worktree, worktreeError := resetter.repository.Worktree()
	if worktreeError != nil {
		return worktreeError
	}
	if resetError := worktree.Reset(&git.ResetOptions{Commit: target, Mode: git.MixedReset}); resetError != nil {
		return resetError
	}

	targetCommit, commitError := resetter.repository.CommitObject(target)
	if commitError != nil {
		return commitError
	}
	targetTree, treeError := targetCommit.Tree()
	if treeError != nil {
		return treeError
	}

	status, statusError := worktree.Status()
	if statusError != nil {
		return statusError
	}
	changedPaths := make([]string, 0, len(status))
	for filePath, fileStatus := range status {
		if fileStatus.Worktree == git.Modified || fileStatus.Worktree == git.Deleted {
			changedPaths = append(changedPaths, filePath)
		}
	}
	sort.Strings(changedPaths)

	for _, changedPath := range changedPaths {
		trackedFile, fileError := targetTree.File(changedPath)
		if errors.Is(fileError, object.ErrFileNotFound) {
			continue
		}
		if fileError != nil {
			return fmt.Errorf(restoreFileTemplateConstant, changedPath, fileError)
		}
		if restoreError := restoreTrackedFile(worktree, trackedFile); restoreError != nil {
			return fmt.Errorf(restoreFileTemplateConstant, changedPath, restoreError)
		}
	}
	return nil
}

func restoreTrackedFile(worktree *git.Worktree, trackedFile *object.File) error {
	switch trackedFile.Mode {
	case filemode.Symlink:
		linkTarget, contentsError := trackedFile.Contents()
		if contentsError != nil {
			return contentsError
		}
		if removeError := worktree.Filesystem.Remove(trackedFile.Name); removeError != nil && !os.IsNotExist(removeError) {
			return removeError
		}
		return worktree.Filesystem.Symlink(linkTarget, trackedFile.Name)
	case filemode.Regular, filemode.Deprecated, filemode.Executable:
	default:
		return nil
	}

	fileMode, modeError := trackedFile.Mode.ToOSFileMode()
	if modeError != nil {
		return modeError
	}
	reader, readerError := trackedFile.Reader()
	if readerError != nil {
		return readerError
	}
	defer reader.Close()

	handle, openError := worktree.Filesystem.OpenFile(trackedFile.Name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode.Perm())
	if openError != nil {
		return openError
	}
	_, copyError := io.Copy(handle, reader)
	closeError := handle.Close()
	if copyError != nil {
		return copyError
	}
	if closeError != nil {
		return closeError
	}
	return os.Chmod(filepath.Join(worktree.Filesystem.Root(), filepath.FromSlash(trackedFile.Name)), fileMode.Perm())
}

func (resetter nativeResetter) Clean(_ context.Context) (bool, error) {
	worktree, worktreeError := resetter.repository.Worktree()
	if worktreeError != nil {
		return false, worktreeError
	}
	status, statusError := worktree.Status()
	if statusError != nil {
		return false, statusError
	}
	return status.IsClean(), nil
}

// gitCommandResetter runs git reset --hard in the working tree root.
type gitCommandResetter struct {
	executor     GitExecutor
	worktreeRoot string
}

func (resetter gitCommandResetter) Reset(executionContext context.Context, target plumbing.Hash) error {
	_, executionError := resetter.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitResetSubcommandConstant, gitResetHardFlagConstant, gitResetQuietFlagConstant, target.String()},
		WorkingDirectory: resetter.worktreeRoot,
	})
	if executionError != nil {
		return executionError
	}

	revisionResult, revisionError := resetter.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitHeadRevisionConstant},
		WorkingDirectory: resetter.worktreeRoot,
	})
	if revisionError != nil {
		return revisionError
	}
	if resolvedHead := strings.TrimSpace(revisionResult.StandardOutput); resolvedHead != target.String() {
		return fmt.Errorf(resetVerificationTemplateConstant, resolvedHead, target)
	}
	return nil
}

func (resetter gitCommandResetter) Clean(executionContext context.Context) (bool, error) {
	statusResult, statusError := resetter.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant},
		WorkingDirectory: resetter.worktreeRoot,
	})
	if statusError != nil {
		return false, statusError
	}
	return len(strings.TrimSpace(statusResult.StandardOutput)) == 0, nil
}

// headReferenceResetter only moves the ref HEAD points at.
type headReferenceResetter struct {
	repository *Repository
}

func (resetter headReferenceResetter) Reset(_ context.Context, target plumbing.Hash) error {
	return resetter.repository.moveHeadBranch(target)
}

// Clean always reports true because nothing on disk is touched.
func (resetter headReferenceResetter) Clean(context.Context) (bool, error) {
	return true, nil
}
