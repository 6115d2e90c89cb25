package discovery_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitanon/internal/repos/discovery"
)

const repositoryDirectoryPermissions = 0o755

func createWorkingTree(testInstance *testing.T, segments ...string) string {
	testInstance.Helper()
	repositoryPath := filepath.Join(segments...)
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, ".git"), repositoryDirectoryPermissions))
	return repositoryPath
}

func createBareRepository(testInstance *testing.T, segments ...string) string {
	testInstance.Helper()
	repositoryPath := filepath.Join(segments...)
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, "objects"), repositoryDirectoryPermissions))
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, "refs", "heads"), repositoryDirectoryPermissions))
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))
	return repositoryPath
}

func TestFilesystemRepositoryDiscovererFindsRepositories(testInstance *testing.T) {
	workspace := testInstance.TempDir()
	applicationRepository := createWorkingTree(testInstance, workspace, "Dev", "Group1", "Repo1")
	serviceRepository := createWorkingTree(testInstance, workspace, "Dev", "Group1", "Repo2")
	nestedRepository := createWorkingTree(testInstance, applicationRepository, "modules", "Nested")
	bareRepository := createBareRepository(testInstance, workspace, "Mirrors", "archive.git")
	require.NoError(testInstance, os.MkdirAll(filepath.Join(workspace, "Dev", "NotARepository"), repositoryDirectoryPermissions))

	testCases := []struct {
		name  string
		roots []string
	}{
		{name: "single_root", roots: []string{workspace}},
		{name: "overlapping_roots", roots: []string{filepath.Join(workspace, "Dev"), workspace, applicationRepository}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			discoverer := discovery.NewFilesystemRepositoryDiscoverer(nil)
			repositories, discoveryError := discoverer.DiscoverRepositories(context.Background(), testCase.roots)
			require.NoError(subtest, discoveryError)
			require.ElementsMatch(subtest, []string{applicationRepository, serviceRepository, nestedRepository, bareRepository}, repositories)
			require.IsIncreasing(subtest, repositories)
		})
	}
}

func TestFilesystemRepositoryDiscovererIgnoresMissingRoots(testInstance *testing.T) {
	discoverer := discovery.NewFilesystemRepositoryDiscoverer(nil)
	repositories, discoveryError := discoverer.DiscoverRepositories(context.Background(), []string{filepath.Join(testInstance.TempDir(), "missing")})
	require.NoError(testInstance, discoveryError)
	require.Empty(testInstance, repositories)
}

func TestFilesystemRepositoryDiscovererStopsOnCancellation(testInstance *testing.T) {
	workspace := testInstance.TempDir()
	createWorkingTree(testInstance, workspace, "Repo")

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	discoverer := discovery.NewFilesystemRepositoryDiscoverer(nil)
	_, discoveryError := discoverer.DiscoverRepositories(cancelledContext, []string{workspace})
	require.ErrorIs(testInstance, discoveryError, context.Canceled)
}
