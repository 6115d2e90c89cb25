package anonymize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/temirov/gitanon/internal/history"
)

const (
	repositoryPathRequiredMessageConstant    = "repository path must be provided"
	repositoryOpenerMissingMessageConstant   = "repository opener not configured"
	workingTreeDirtyMessageConstant          = "working tree has uncommitted changes"
	workingTreeDirtyTemplateConstant         = "%w: %s"
	anonymizationCompletedMessageConstant    = "Repository anonymized"
	anonymizationPlannedMessageConstant      = "Repository anonymization planned"
	repositoryWithoutBranchesMessageConstant = "Repository has no local branches"
	logFieldRepositoryPathConstant           = "repository"
	logFieldCommitsVisitedConstant           = "commits_visited"
	logFieldCommitsCreatedConstant           = "commits_created"
	logFieldCommitsCarriedConstant           = "commits_carried_through"
	logFieldBranchesChangedConstant          = "branches_changed"
)

// ErrRepositoryPathRequired indicates the repository path option was empty.
var ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)

// ErrRepositoryOpenerNotConfigured indicates the service was constructed without a repository opener.
var ErrRepositoryOpenerNotConfigured = errors.New(repositoryOpenerMissingMessageConstant)

// ErrWorkingTreeDirty indicates a clean working tree was required but uncommitted changes were found.
var ErrWorkingTreeDirty = errors.New(workingTreeDirtyMessageConstant)

// RepositoryOpener opens the repository at repositoryPath. Dry-run repositories must not persist writes.
type RepositoryOpener func(executionContext context.Context, repositoryPath string, dryRun bool) (history.Repository, error)

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	Logger           *zap.Logger
	Identity         history.Identity
	RepositoryOpener RepositoryOpener
}

// Options configure one repository anonymization.
type Options struct {
	RepositoryPath   string
	DryRun           bool
	ShowIdentityDiff bool
	RequireClean     bool
}

// IdentityDiff is a unified diff between a branch tip and its replacement.
type IdentityDiff struct {
	BranchName string
	Diff       string
}

// Result captures the outcome of one repository anonymization.
type Result struct {
	RepositoryPath string
	DryRun         bool
	Statistics     history.Statistics
	Updates        []history.BranchUpdate
	IdentityDiffs  []IdentityDiff
}

// ChangedBranchCount returns the number of branches whose tip moved.
func (result Result) ChangedBranchCount() int {
	changed := 0
	for _, update := range result.Updates {
		if update.Changed() {
			changed++
		}
	}
	return changed
}

// Service anonymizes the history of individual repositories.
type Service struct {
	logger   *zap.Logger
	identity history.Identity
	opener   RepositoryOpener
}

type pathProvider interface {
	Path() string
}

type workingTreeInspector interface {
	WorkingTreeClean(executionContext context.Context) (bool, error)
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.RepositoryOpener == nil {
		return nil, ErrRepositoryOpenerNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, identity: dependencies.Identity.Sanitize(), opener: dependencies.RepositoryOpener}, nil
}

// Anonymize rewrites every commit reachable from the local branches and repoints the branches.
// Refs and the working tree are only touched after the whole history has been rebuilt.
func (service *Service) Anonymize(executionContext context.Context, options Options) (Result, error) {
	repositoryPath := strings.TrimSpace(options.RepositoryPath)
	if len(repositoryPath) == 0 {
		return Result{}, ErrRepositoryPathRequired
	}

	repository, openError := service.opener(executionContext, repositoryPath, options.DryRun)
	if openError != nil {
		return Result{}, openError
	}
	if provider, ok := repository.(pathProvider); ok {
		repositoryPath = provider.Path()
	}

	result := Result{RepositoryPath: repositoryPath, DryRun: options.DryRun}

	if inspector, ok := repository.(workingTreeInspector); ok && options.RequireClean {
		clean, inspectError := inspector.WorkingTreeClean(executionContext)
		if inspectError != nil {
			return result, inspectError
		}
		if !clean {
			return result, fmt.Errorf(workingTreeDirtyTemplateConstant, ErrWorkingTreeDirty, repositoryPath)
		}
	}

	branches, branchesError := repository.Branches(executionContext)
	if branchesError != nil {
		return result, branchesError
	}
	if len(branches) == 0 {
		service.logger.Info(repositoryWithoutBranchesMessageConstant, zap.String(logFieldRepositoryPathConstant, repositoryPath))
		return result, nil
	}

	repositoryLogger := service.logger.With(zap.String(logFieldRepositoryPathConstant, repositoryPath))

	store, roots, discoverError := history.NewGraphDiscoverer(repository, repositoryLogger).Discover(executionContext, branches)
	if discoverError != nil {
		return result, discoverError
	}

	statistics, rewriteError := history.NewRewriter(repository, service.identity, repositoryLogger).Rewrite(executionContext, store, roots)
	result.Statistics = statistics
	if rewriteError != nil {
		return result, rewriteError
	}

	updates, planError := history.PlanBranchUpdates(store, branches)
	if planError != nil {
		return result, planError
	}
	result.Updates = updates

	if options.ShowIdentityDiff {
		identityDiffs, diffError := service.collectIdentityDiffs(executionContext, repository, updates)
		if diffError != nil {
			return result, diffError
		}
		result.IdentityDiffs = identityDiffs
	}

	summaryFields := []zap.Field{
		zap.String(logFieldRepositoryPathConstant, repositoryPath),
		zap.Int(logFieldCommitsVisitedConstant, statistics.Visited),
		zap.Int(logFieldCommitsCreatedConstant, statistics.Created),
		zap.Int(logFieldCommitsCarriedConstant, statistics.CarriedThrough),
		zap.Int(logFieldBranchesChangedConstant, result.ChangedBranchCount()),
	}

	if options.DryRun {
		service.logger.Info(anonymizationPlannedMessageConstant, summaryFields...)
		return result, nil
	}

	if applyError := history.NewBranchUpdater(repository, repositoryLogger).Apply(executionContext, updates); applyError != nil {
		return result, applyError
	}

	service.logger.Info(anonymizationCompletedMessageConstant, summaryFields...)
	return result, nil
}

func (service *Service) collectIdentityDiffs(executionContext context.Context, repository history.Repository, updates []history.BranchUpdate) ([]IdentityDiff, error) {
	renderedTips := make(map[plumbing.Hash]string)
	identityDiffs := make([]IdentityDiff, 0, len(updates))
	for _, update := range updates {
		if !update.Changed() {
			continue
		}
		diff, rendered := renderedTips[update.OriginalTarget]
		if !rendered {
			original, originalError := repository.Commit(executionContext, update.OriginalTarget)
			if originalError != nil {
				return nil, originalError
			}
			replacement, replacementError := repository.Commit(executionContext, update.ReplacementTarget)
			if replacementError != nil {
				return nil, replacementError
			}
			renderedDiff, renderError := RenderIdentityDiff(original, replacement)
			if renderError != nil {
				return nil, renderError
			}
			diff = renderedDiff
			renderedTips[update.OriginalTarget] = diff
		}
		identityDiffs = append(identityDiffs, IdentityDiff{BranchName: update.BranchName, Diff: diff})
	}
	return identityDiffs, nil
}
