package pathutils

import (
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	booleanLiteralTrueValueConstant  = "true"
	booleanLiteralFalseValueConstant = "false"
	windowsOperatingSystemConstant   = "windows"
)

// RepositoryPathSanitizerConfiguration controls repository path sanitization behavior.
type RepositoryPathSanitizerConfiguration struct {
	// ExcludeBooleanLiteralCandidates drops "true"/"false" arguments left behind by boolean flags.
	ExcludeBooleanLiteralCandidates bool
	// AbsolutePaths resolves every path against the working directory and cleans it.
	AbsolutePaths bool
	// DeduplicatePaths keeps the first occurrence of each cleaned path.
	DeduplicatePaths bool
	// PruneNestedPaths drops paths located beneath another provided path.
	PruneNestedPaths bool
}

// RepositoryPathSanitizer normalizes repository path inputs consistently across commands.
type RepositoryPathSanitizer struct {
	expander      *HomeExpander
	configuration RepositoryPathSanitizerConfiguration
}

// NewRepositoryPathSanitizer constructs a sanitizer that trims and expands paths only.
func NewRepositoryPathSanitizer() *RepositoryPathSanitizer {
	return NewRepositoryPathSanitizerWithConfiguration(nil, RepositoryPathSanitizerConfiguration{})
}

// NewRepositoryPathSanitizerWithConfiguration constructs a sanitizer with the provided expander and behavior.
func NewRepositoryPathSanitizerWithConfiguration(expander *HomeExpander, configuration RepositoryPathSanitizerConfiguration) *RepositoryPathSanitizer {
	if expander == nil {
		expander = NewHomeExpander()
	}
	return &RepositoryPathSanitizer{expander: expander, configuration: configuration}
}

// Sanitize trims whitespace, expands the home directory and applies the configured filters.
// The relative order of surviving paths is preserved. An empty result is nil.
func (sanitizer *RepositoryPathSanitizer) Sanitize(candidatePaths []string) []string {
	if sanitizer == nil {
		sanitizer = NewRepositoryPathSanitizer()
	}

	sanitizedPaths := make([]string, 0, len(candidatePaths))
	seenPaths := mapset.NewThreadUnsafeSet[string]()
	for _, candidatePath := range candidatePaths {
		trimmedPath := strings.TrimSpace(candidatePath)
		if len(trimmedPath) == 0 {
			continue
		}
		if sanitizer.configuration.ExcludeBooleanLiteralCandidates && isBooleanLiteral(trimmedPath) {
			continue
		}

		expandedPath := sanitizer.expander.Expand(trimmedPath)
		if sanitizer.configuration.AbsolutePaths {
			expandedPath = canonicalizePath(expandedPath)
		}
		if sanitizer.configuration.DeduplicatePaths && !seenPaths.Add(comparisonPath(canonicalizePath(expandedPath))) {
			continue
		}

		sanitizedPaths = append(sanitizedPaths, expandedPath)
	}

	if sanitizer.configuration.PruneNestedPaths {
		sanitizedPaths = pruneNestedPaths(sanitizedPaths)
	}
	if len(sanitizedPaths) == 0 {
		return nil
	}
	return sanitizedPaths
}

func isBooleanLiteral(candidate string) bool {
	loweredCandidate := strings.ToLower(candidate)
	return loweredCandidate == booleanLiteralTrueValueConstant || loweredCandidate == booleanLiteralFalseValueConstant
}

// pruneNestedPaths compares shortest paths first so a parent always claims its descendants.
func pruneNestedPaths(candidatePaths []string) []string {
	type rankedPath struct {
		index      int
		comparison string
	}

	rankedPaths := make([]rankedPath, 0, len(candidatePaths))
	for index, candidatePath := range candidatePaths {
		rankedPaths = append(rankedPaths, rankedPath{index: index, comparison: comparisonPath(canonicalizePath(candidatePath))})
	}
	sort.SliceStable(rankedPaths, func(first int, second int) bool {
		return len(rankedPaths[first].comparison) < len(rankedPaths[second].comparison)
	})

	keptIndexes := make([]int, 0, len(rankedPaths))
	keptComparisons := make([]string, 0, len(rankedPaths))
	for _, candidate := range rankedPaths {
		nested := false
		for _, keptComparison := range keptComparisons {
			if isNestedPath(keptComparison, candidate.comparison) {
				nested = true
				break
			}
		}
		if nested {
			continue
		}
		keptIndexes = append(keptIndexes, candidate.index)
		keptComparisons = append(keptComparisons, candidate.comparison)
	}
	sort.Ints(keptIndexes)

	prunedPaths := make([]string, 0, len(keptIndexes))
	for _, keptIndex := range keptIndexes {
		prunedPaths = append(prunedPaths, candidatePaths[keptIndex])
	}
	return prunedPaths
}

func canonicalizePath(candidatePath string) string {
	absolutePath, absoluteError := filepath.Abs(candidatePath)
	if absoluteError != nil {
		return filepath.Clean(candidatePath)
	}
	return absolutePath
}

func comparisonPath(candidatePath string) string {
	if runtime.GOOS == windowsOperatingSystemConstant {
		return strings.ToLower(candidatePath)
	}
	return candidatePath
}

func isNestedPath(parentPath string, candidatePath string) bool {
	if parentPath == candidatePath {
		return true
	}
	relativePath, relativeError := filepath.Rel(parentPath, candidatePath)
	if relativeError != nil {
		return false
	}
	return relativePath != ".." && !strings.HasPrefix(relativePath, ".."+string(filepath.Separator))
}
