// Package discovery locates git repositories beneath a set of directories.
package discovery

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
)

const (
	gitMetadataDirectoryNameConstant = ".git"
	bareHeadFileNameConstant         = "HEAD"
	bareObjectsDirectoryNameConstant = "objects"
	bareRefsDirectoryNameConstant    = "refs"
	unreadableEntryMessageConstant   = "Skipping unreadable path during repository discovery"
	pathFieldNameConstant            = "path"
)

// FilesystemRepositoryDiscoverer locates git repositories on disk.
type FilesystemRepositoryDiscoverer struct {
	logger *zap.Logger
}

// NewFilesystemRepositoryDiscoverer constructs a repository discoverer backed by filepath.WalkDir.
func NewFilesystemRepositoryDiscoverer(logger *zap.Logger) *FilesystemRepositoryDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilesystemRepositoryDiscoverer{logger: logger}
}

// DiscoverRepositories walks the roots and returns the sorted, unique set of working trees
// (directories holding a .git entry) and bare repositories found beneath them.
// Repositories nested inside other working trees are reported as well.
func (discoverer *FilesystemRepositoryDiscoverer) DiscoverRepositories(executionContext context.Context, roots []string) ([]string, error) {
	seenRepositories := mapset.NewThreadUnsafeSet[string]()
	repositories := make([]string, 0)

	for _, root := range roots {
		walkError := filepath.WalkDir(root, func(path string, directoryEntry fs.DirEntry, walkError error) error {
			if contextError := executionContext.Err(); contextError != nil {
				return contextError
			}
			if walkError != nil {
				discoverer.logger.Debug(unreadableEntryMessageConstant, zap.String(pathFieldNameConstant, path), zap.Error(walkError))
				if directoryEntry != nil && directoryEntry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if directoryEntry.Name() == gitMetadataDirectoryNameConstant {
				if seenRepositories.Add(filepath.Dir(path)) {
					repositories = append(repositories, filepath.Dir(path))
				}
				if directoryEntry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if directoryEntry.IsDir() && isBareRepository(path) {
				if seenRepositories.Add(path) {
					repositories = append(repositories, path)
				}
				return fs.SkipDir
			}
			return nil
		})
		if walkError != nil {
			return nil, walkError
		}
	}

	sort.Strings(repositories)
	return repositories, nil
}

func isBareRepository(directoryPath string) bool {
	headInfo, headError := os.Stat(filepath.Join(directoryPath, bareHeadFileNameConstant))
	if headError != nil || headInfo.IsDir() {
		return false
	}
	for _, requiredDirectory := range []string{bareObjectsDirectoryNameConstant, bareRefsDirectoryNameConstant} {
		directoryInfo, directoryError := os.Stat(filepath.Join(directoryPath, requiredDirectory))
		if directoryError != nil || !directoryInfo.IsDir() {
			return false
		}
	}
	return true
}
