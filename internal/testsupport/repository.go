// Package testsupport provides repository fixtures and stubs shared by package tests.
package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/temirov/gitanon/internal/execshell"
)

const (
	// MainBranchNameConstant is the branch HEAD points at in a new fixture.
	MainBranchNameConstant      = "main"
	fixtureFilePermissions      = 0o644
	fixtureDirectoryPermissions = 0o755
)

// RepositoryFixture is a temporary on-disk repository with a working tree.
type RepositoryFixture struct {
	Path       string
	Repository *git.Repository
}

// NewRepositoryFixture initializes an empty repository whose HEAD points at refs/heads/main.
func NewRepositoryFixture(testInstance *testing.T) *RepositoryFixture {
	testInstance.Helper()
	repositoryPath := testInstance.TempDir()
	repository, initError := git.PlainInit(repositoryPath, false)
	require.NoError(testInstance, initError)
	require.NoError(testInstance, repository.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(MainBranchNameConstant))))
	return &RepositoryFixture{Path: repositoryPath, Repository: repository}
}

// Signature builds a deterministic signature offsetSeconds after a fixed instant in the given zone.
func Signature(name string, email string, offsetSeconds int, zoneOffsetHours int) object.Signature {
	location := time.FixedZone(name, zoneOffsetHours*60*60)
	return object.Signature{
		Name:  name,
		Email: email,
		When:  time.Date(2024, time.February, 29, 12, 0, 0, 0, location).Add(time.Duration(offsetSeconds) * time.Second),
	}
}

// Commit writes a file into the working tree and commits it on the checked-out branch.
func (fixture *RepositoryFixture) Commit(testInstance *testing.T, fileName string, content string, message string, author object.Signature, committer object.Signature, parents ...plumbing.Hash) plumbing.Hash {
	testInstance.Helper()
	worktree, worktreeError := fixture.Repository.Worktree()
	require.NoError(testInstance, worktreeError)

	require.NoError(testInstance, os.WriteFile(filepath.Join(fixture.Path, fileName), []byte(content), fixtureFilePermissions))
	_, addError := worktree.Add(fileName)
	require.NoError(testInstance, addError)

	commitOptions := &git.CommitOptions{Author: &author, Committer: &committer}
	if len(parents) > 0 {
		commitOptions.Parents = parents
	}
	commitID, commitError := worktree.Commit(message, commitOptions)
	require.NoError(testInstance, commitError)
	return commitID
}

// CreateBranch points refs/heads/<branchName> at target.
func (fixture *RepositoryFixture) CreateBranch(testInstance *testing.T, branchName string, target plumbing.Hash) {
	testInstance.Helper()
	require.NoError(testInstance, fixture.Repository.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName(branchName), target)))
}

// Checkout switches the working tree to an existing branch.
func (fixture *RepositoryFixture) Checkout(testInstance *testing.T, branchName string) {
	testInstance.Helper()
	worktree, worktreeError := fixture.Repository.Worktree()
	require.NoError(testInstance, worktreeError)
	require.NoError(testInstance, worktree.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branchName)}))
}

// BranchTarget returns the commit a local branch points at.
func (fixture *RepositoryFixture) BranchTarget(testInstance *testing.T, branchName string) plumbing.Hash {
	testInstance.Helper()
	reference, referenceError := fixture.Repository.Reference(plumbing.NewBranchReferenceName(branchName), true)
	require.NoError(testInstance, referenceError)
	return reference.Hash()
}

// CommitObject loads a commit from the fixture repository.
func (fixture *RepositoryFixture) CommitObject(testInstance *testing.T, commitID plumbing.Hash) *object.Commit {
	testInstance.Helper()
	commit, commitError := fixture.Repository.CommitObject(commitID)
	require.NoError(testInstance, commitError)
	return commit
}

// ReadFile returns the working tree content of a file.
func (fixture *RepositoryFixture) ReadFile(testInstance *testing.T, fileName string) string {
	testInstance.Helper()
	content, readError := os.ReadFile(filepath.Join(fixture.Path, fileName))
	require.NoError(testInstance, readError)
	return string(content)
}

// IsClean reports whether the working tree matches HEAD.
func (fixture *RepositoryFixture) IsClean(testInstance *testing.T) bool {
	testInstance.Helper()
	worktree, worktreeError := fixture.Repository.Worktree()
	require.NoError(testInstance, worktreeError)
	status, statusError := worktree.Status()
	require.NoError(testInstance, statusError)
	return status.IsClean()
}

// WriteFile writes a file below the working tree without staging it, creating parent directories.
func (fixture *RepositoryFixture) WriteFile(testInstance *testing.T, relativePath string, content string) {
	testInstance.Helper()
	absolutePath := filepath.Join(fixture.Path, filepath.FromSlash(relativePath))
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), fixtureDirectoryPermissions))
	require.NoError(testInstance, os.WriteFile(absolutePath, []byte(content), fixtureFilePermissions))
}

// BareRepositoryFixture is a repository without a working tree.
type BareRepositoryFixture struct {
	Path       string
	Repository *git.Repository
}

// NewBareRepositoryFixture initializes a bare repository at repositoryPath with HEAD on refs/heads/main.
func NewBareRepositoryFixture(testInstance *testing.T, repositoryPath string) *BareRepositoryFixture {
	testInstance.Helper()
	repository, initError := git.PlainInit(repositoryPath, true)
	require.NoError(testInstance, initError)
	require.NoError(testInstance, repository.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(MainBranchNameConstant))))
	return &BareRepositoryFixture{Path: repositoryPath, Repository: repository}
}

// Commit stores an empty-tree commit and points branchName at it.
func (fixture *BareRepositoryFixture) Commit(testInstance *testing.T, branchName string, message string, author object.Signature, committer object.Signature, parents ...plumbing.Hash) plumbing.Hash {
	testInstance.Helper()
	treeObject := fixture.Repository.Storer.NewEncodedObject()
	require.NoError(testInstance, (&object.Tree{}).Encode(treeObject))
	treeID, treeError := fixture.Repository.Storer.SetEncodedObject(treeObject)
	require.NoError(testInstance, treeError)

	commit := &object.Commit{Author: author, Committer: committer, Message: message, TreeHash: treeID, ParentHashes: parents}
	commitObject := fixture.Repository.Storer.NewEncodedObject()
	require.NoError(testInstance, commit.Encode(commitObject))
	commitID, commitError := fixture.Repository.Storer.SetEncodedObject(commitObject)
	require.NoError(testInstance, commitError)

	require.NoError(testInstance, fixture.Repository.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName(branchName), commitID)))
	return commitID
}

// CommitObject loads a commit from the bare repository.
func (fixture *BareRepositoryFixture) CommitObject(testInstance *testing.T, commitID plumbing.Hash) *object.Commit {
	testInstance.Helper()
	commit, commitError := fixture.Repository.CommitObject(commitID)
	require.NoError(testInstance, commitError)
	return commit
}

// BranchTarget reads a branch from disk, bypassing any cached repository state.
func (fixture *BareRepositoryFixture) BranchTarget(testInstance *testing.T, branchName string) plumbing.Hash {
	testInstance.Helper()
	reopened, openError := git.PlainOpen(fixture.Path)
	require.NoError(testInstance, openError)
	reference, referenceError := reopened.Reference(plumbing.NewBranchReferenceName(branchName), true)
	require.NoError(testInstance, referenceError)
	return reference.Hash()
}

// GitExecutorStub records git invocations and returns a configured outcome.
type GitExecutorStub struct {
	ExecutedGitCommands []execshell.CommandDetails
	Result              execshell.ExecutionResult
	Error               error
	Responder           func(details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// NewResetEchoingGitExecutor returns a stub that answers rev-parse with the target of the last reset,
// as git would after a successful git reset --hard.
func NewResetEchoingGitExecutor() *GitExecutorStub {
	lastResetTarget := ""
	return &GitExecutorStub{
		Responder: func(details execshell.CommandDetails) (execshell.ExecutionResult, error) {
			if len(details.Arguments) == 0 {
				return execshell.ExecutionResult{}, nil
			}
			switch details.Arguments[0] {
			case "reset":
				lastResetTarget = details.Arguments[len(details.Arguments)-1]
			case "rev-parse":
				return execshell.ExecutionResult{StandardOutput: lastResetTarget + "\n"}, nil
			}
			return execshell.ExecutionResult{}, nil
		},
	}
}

// ExecuteGit records the invocation.
func (executor *GitExecutorStub) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.ExecutedGitCommands = append(executor.ExecutedGitCommands, details)
	if executor.Error != nil {
		return execshell.ExecutionResult{}, executor.Error
	}
	if executor.Responder != nil {
		return executor.Responder(details)
	}
	return executor.Result, nil
}
