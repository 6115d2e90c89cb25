package history

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

const (
	missingReplacementTemplateConstant = "%w: branch %s at %s"
	branchMovedMessageConstant         = "Branch moved"
	branchResetMessageConstant         = "Checked out branch reset"
	branchUnchangedMessageConstant     = "Branch already points at rewritten history"
	checkedOutFieldNameConstant        = "checked_out"
)

// BranchUpdate describes where one branch pointed before the rewrite and where it points after.
type BranchUpdate struct {
	BranchName        string
	OriginalTarget    plumbing.Hash
	ReplacementTarget plumbing.Hash
	CheckedOut        bool
}

// Changed reports whether the branch must move.
func (update BranchUpdate) Changed() bool {
	return update.OriginalTarget != update.ReplacementTarget
}

// PlanBranchUpdates resolves the replacement of every branch tip without touching refs, so a
// missing replacement aborts before any branch moves.
func PlanBranchUpdates(store *Store, branches []Branch) ([]BranchUpdate, error) {
	updates := make([]BranchUpdate, 0, len(branches))
	for _, branch := range branches {
		replacement, assigned := store.Replacement(branch.Target)
		if !assigned {
			return nil, fmt.Errorf(missingReplacementTemplateConstant, ErrMissingReplacement, branch.Name, branch.Target)
		}
		updates = append(updates, BranchUpdate{
			BranchName:        branch.Name,
			OriginalTarget:    branch.Target,
			ReplacementTarget: replacement,
			CheckedOut:        branch.Head,
		})
	}
	return updates, nil
}

// BranchUpdater applies planned branch updates to a repository.
type BranchUpdater struct {
	repository Repository
	logger     *zap.Logger
}

// NewBranchUpdater constructs an updater for the repository.
func NewBranchUpdater(repository Repository, logger *zap.Logger) *BranchUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BranchUpdater{repository: repository, logger: logger}
}

// Apply force-moves every changed branch and hard-resets the checked-out one last.
func (updater *BranchUpdater) Apply(executionContext context.Context, updates []BranchUpdate) error {
	if updater.repository == nil {
		return ErrRepositoryNotConfigured
	}

	var checkedOutUpdate *BranchUpdate
	for updateIndex := range updates {
		update := updates[updateIndex]
		if executionContext.Err() != nil {
			return executionContext.Err()
		}
		if update.CheckedOut {
			checkedOutUpdate = &updates[updateIndex]
			continue
		}
		if !update.Changed() {
			updater.logger.Debug(branchUnchangedMessageConstant, zap.String(branchFieldNameConstant, update.BranchName))
			continue
		}
		if setError := updater.repository.SetBranch(executionContext, update.BranchName, update.ReplacementTarget); setError != nil {
			return RefUpdateError{BranchName: update.BranchName, Target: update.ReplacementTarget, Cause: setError}
		}
		updater.logger.Debug(branchMovedMessageConstant,
			zap.String(branchFieldNameConstant, update.BranchName),
			zap.String(originalFieldNameConstant, update.OriginalTarget.String()),
			zap.String(replacementFieldNameConstant, update.ReplacementTarget.String()),
		)
	}

	if checkedOutUpdate == nil {
		return nil
	}
	if !checkedOutUpdate.Changed() {
		updater.logger.Debug(branchUnchangedMessageConstant,
			zap.String(branchFieldNameConstant, checkedOutUpdate.BranchName),
			zap.Bool(checkedOutFieldNameConstant, true),
		)
		return nil
	}
	if executionContext.Err() != nil {
		return executionContext.Err()
	}
	if resetError := updater.repository.ResetHard(executionContext, checkedOutUpdate.ReplacementTarget); resetError != nil {
		return RefUpdateError{BranchName: checkedOutUpdate.BranchName, Target: checkedOutUpdate.ReplacementTarget, CheckedOut: true, Cause: resetError}
	}
	updater.logger.Debug(branchResetMessageConstant,
		zap.String(branchFieldNameConstant, checkedOutUpdate.BranchName),
		zap.String(replacementFieldNameConstant, checkedOutUpdate.ReplacementTarget.String()),
	)
	return nil
}

// UpdateBranches plans and applies branch updates in one step.
func UpdateBranches(executionContext context.Context, repository Repository, store *Store, branches []Branch) ([]BranchUpdate, error) {
	updates, planError := PlanBranchUpdates(store, branches)
	if planError != nil {
		return nil, planError
	}
	if applyError := NewBranchUpdater(repository, nil).Apply(executionContext, updates); applyError != nil {
		return nil, applyError
	}
	return updates, nil
}
