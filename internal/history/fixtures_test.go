package history

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

const (
	fixtureAuthorNameConstant     = "Jane Developer"
	fixtureAuthorEmailConstant    = "jane@example.com"
	fixtureCommitterNameConstant  = "Build Bot"
	fixtureCommitterEmailConstant = "bot@example.com"
	fixtureMainBranchConstant     = "main"
	fixtureFeatureBranchConstant  = "feature"
)

var errFixtureFailure = errors.New("fixture failure")

type memoryRepository struct {
	storage        *memory.Storage
	branches       []Branch
	createdCommits []plumbing.Hash
	branchMoves    map[string]plumbing.Hash
	resetTargets   []plumbing.Hash
	createError    error
	setBranchError error
	resetError     error
	missingTrees   map[plumbing.Hash]struct{}
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		storage:      memory.NewStorage(),
		branchMoves:  map[string]plumbing.Hash{},
		missingTrees: map[plumbing.Hash]struct{}{},
	}
}

func (repository *memoryRepository) Branches(context.Context) ([]Branch, error) {
	return repository.branches, nil
}

func (repository *memoryRepository) Commit(_ context.Context, commitID plumbing.Hash) (*object.Commit, error) {
	return object.GetCommit(repository.storage, commitID)
}

func (repository *memoryRepository) Tree(_ context.Context, treeID plumbing.Hash) (*object.Tree, error) {
	if _, missing := repository.missingTrees[treeID]; missing {
		return nil, plumbing.ErrObjectNotFound
	}
	return object.GetTree(repository.storage, treeID)
}

func (repository *memoryRepository) CreateCommit(_ context.Context, commit *object.Commit) (plumbing.Hash, error) {
	if repository.createError != nil {
		return plumbing.ZeroHash, repository.createError
	}
	commitID, storeError := repository.store(commit)
	if storeError != nil {
		return plumbing.ZeroHash, storeError
	}
	repository.createdCommits = append(repository.createdCommits, commitID)
	return commitID, nil
}

func (repository *memoryRepository) SetBranch(_ context.Context, branchName string, target plumbing.Hash) error {
	if repository.setBranchError != nil {
		return repository.setBranchError
	}
	repository.branchMoves[branchName] = target
	return nil
}

func (repository *memoryRepository) ResetHard(_ context.Context, target plumbing.Hash) error {
	if repository.resetError != nil {
		return repository.resetError
	}
	repository.resetTargets = append(repository.resetTargets, target)
	return nil
}

func (repository *memoryRepository) store(commit *object.Commit) (plumbing.Hash, error) {
	encodedObject := repository.storage.NewEncodedObject()
	if encodeError := commit.Encode(encodedObject); encodeError != nil {
		return plumbing.ZeroHash, encodeError
	}
	return repository.storage.SetEncodedObject(encodedObject)
}

func (repository *memoryRepository) treeWithFile(testInstance *testing.T, fileName string) plumbing.Hash {
	testInstance.Helper()
	blobObject := repository.storage.NewEncodedObject()
	blobObject.SetType(plumbing.BlobObject)
	writer, writerError := blobObject.Writer()
	require.NoError(testInstance, writerError)
	_, writeError := writer.Write([]byte(fileName))
	require.NoError(testInstance, writeError)
	require.NoError(testInstance, writer.Close())
	blobID, blobError := repository.storage.SetEncodedObject(blobObject)
	require.NoError(testInstance, blobError)

	tree := &object.Tree{Entries: []object.TreeEntry{{Name: fileName, Mode: filemode.Regular, Hash: blobID}}}
	treeObject := repository.storage.NewEncodedObject()
	require.NoError(testInstance, tree.Encode(treeObject))
	treeID, treeError := repository.storage.SetEncodedObject(treeObject)
	require.NoError(testInstance, treeError)
	return treeID
}

func (repository *memoryRepository) commit(testInstance *testing.T, label string, author object.Signature, committer object.Signature, parents ...plumbing.Hash) plumbing.Hash {
	testInstance.Helper()
	commit := &object.Commit{
		Author:       author,
		Committer:    committer,
		Message:      label + "\n",
		TreeHash:     repository.treeWithFile(testInstance, label),
		ParentHashes: parents,
	}
	commitID, storeError := repository.store(commit)
	require.NoError(testInstance, storeError)
	return commitID
}

func (repository *memoryRepository) authoredCommit(testInstance *testing.T, label string, offset int, parents ...plumbing.Hash) plumbing.Hash {
	testInstance.Helper()
	return repository.commit(testInstance, label, fixtureAuthor(offset), fixtureCommitter(offset), parents...)
}

func (repository *memoryRepository) load(testInstance *testing.T, commitID plumbing.Hash) *object.Commit {
	testInstance.Helper()
	commit, loadError := object.GetCommit(repository.storage, commitID)
	require.NoError(testInstance, loadError)
	return commit
}

func fixtureAuthor(offset int) object.Signature {
	location := time.FixedZone("fixture", 2*60*60)
	return object.Signature{
		Name:  fixtureAuthorNameConstant,
		Email: fixtureAuthorEmailConstant,
		When:  time.Date(2023, time.March, 14, 9, 26, 53+offset, 0, location),
	}
}

func fixtureCommitter(offset int) object.Signature {
	location := time.FixedZone("fixture", -5*60*60)
	return object.Signature{
		Name:  fixtureCommitterNameConstant,
		Email: fixtureCommitterEmailConstant,
		When:  time.Date(2023, time.March, 15, 10, 0, offset, 0, location),
	}
}

func anonymousSignature(offset int) object.Signature {
	return DefaultIdentity().Signature(fixtureAuthor(offset))
}

func sortedHashes(hashes []plumbing.Hash) []string {
	rendered := make([]string, 0, len(hashes))
	for _, hash := range hashes {
		rendered = append(rendered, hash.String())
	}
	sort.Strings(rendered)
	return rendered
}

func discoverAndRewrite(testInstance *testing.T, repository *memoryRepository) (*Store, Statistics) {
	testInstance.Helper()
	store, roots, discoverError := Discover(context.Background(), repository, repository.branches)
	require.NoError(testInstance, discoverError)
	statistics, rewriteError := NewRewriter(repository, DefaultIdentity(), nil).Rewrite(context.Background(), store, roots)
	require.NoError(testInstance, rewriteError)
	return store, statistics
}
