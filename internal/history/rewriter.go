package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

const (
	rewriteStartedMessageConstant     = "Rewriting history"
	rewriteCompletedMessageConstant   = "History rewritten"
	commitRewrittenMessageConstant    = "Commit rewritten"
	commitCarriedMessageConstant      = "Commit already anonymous"
	incompleteRewriteTemplateConstant = "%w: rebuilt %d of %d commits"
	missingParentTemplateConstant     = "%w: parent %s of %s has no replacement"
	originalFieldNameConstant         = "original"
	replacementFieldNameConstant      = "replacement"
	createdCountFieldNameConstant     = "created"
	carriedCountFieldNameConstant     = "carried_through"
	visitedCountFieldNameConstant     = "visited"
	signatureHeaderPrefixConstant     = "gpgsig"
)

// Statistics summarizes a rewrite.
type Statistics struct {
	Visited        int
	Created        int
	CarriedThrough int
}

// Rewriter rebuilds stored commits in parent-before-child order under an anonymous identity.
type Rewriter struct {
	repository Repository
	identity   Identity
	logger     *zap.Logger
}

// NewRewriter constructs a rewriter writing replacement commits into the repository.
func NewRewriter(repository Repository, identity Identity, logger *zap.Logger) *Rewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewriter{repository: repository, identity: identity.Sanitize(), logger: logger}
}

// Rewrite assigns a replacement to every stored commit. A commit becomes ready once all of its
// distinct parents have replacements; roots are ready immediately.
func (rewriter *Rewriter) Rewrite(executionContext context.Context, store *Store, roots *RootSet) (Statistics, error) {
	if rewriter.repository == nil {
		return Statistics{}, ErrRepositoryNotConfigured
	}

	rewriter.logger.Debug(rewriteStartedMessageConstant, zap.Int(commitCountFieldNameConstant, store.Len()))

	remainingParents := make(map[plumbing.Hash]int, store.Len())
	for _, commitID := range store.IDs() {
		node, _ := store.Node(commitID)
		distinctParents := make(map[plumbing.Hash]struct{}, len(node.Original.ParentHashes))
		for _, parentID := range node.Original.ParentHashes {
			distinctParents[parentID] = struct{}{}
		}
		remainingParents[commitID] = len(distinctParents)
	}

	readyQueue := make([]plumbing.Hash, 0, roots.Len())
	for _, rootID := range roots.IDs() {
		if store.Contains(rootID) {
			readyQueue = append(readyQueue, rootID)
		}
	}

	statistics := Statistics{}
	for len(readyQueue) > 0 {
		if executionContext.Err() != nil {
			return statistics, executionContext.Err()
		}

		commitID := readyQueue[0]
		readyQueue = readyQueue[1:]

		node, _ := store.Node(commitID)
		if _, assigned := node.Replacement(); assigned {
			continue
		}

		created, rebuildError := rewriter.rebuild(executionContext, store, node)
		if rebuildError != nil {
			return statistics, rebuildError
		}

		statistics.Visited++
		if created {
			statistics.Created++
		} else {
			statistics.CarriedThrough++
		}

		for _, childID := range node.ChildIDs() {
			remainingParents[childID]--
			if remainingParents[childID] == 0 {
				readyQueue = append(readyQueue, childID)
			}
		}
	}

	if statistics.Visited < store.Len() {
		return statistics, fmt.Errorf(incompleteRewriteTemplateConstant, ErrIncompleteRewrite, statistics.Visited, store.Len())
	}

	rewriter.logger.Debug(rewriteCompletedMessageConstant,
		zap.Int(visitedCountFieldNameConstant, statistics.Visited),
		zap.Int(createdCountFieldNameConstant, statistics.Created),
		zap.Int(carriedCountFieldNameConstant, statistics.CarriedThrough),
	)

	return statistics, nil
}

func (rewriter *Rewriter) rebuild(executionContext context.Context, store *Store, node *CommitNode) (bool, error) {
	original := node.Original

	if _, treeError := rewriter.repository.Tree(executionContext, original.TreeHash); treeError != nil {
		return false, GraphResolutionError{
			ObjectKind:   ObjectKindTree,
			ObjectID:     original.TreeHash,
			ReferencedBy: original.Hash,
			Cause:        treeError,
		}
	}

	parentReplacements := make([]plumbing.Hash, 0, len(original.ParentHashes))
	parentsUnchanged := true
	for _, parentID := range original.ParentHashes {
		parentReplacement, assigned := store.Replacement(parentID)
		if !assigned {
			return false, fmt.Errorf(missingParentTemplateConstant, ErrIncompleteRewrite, parentID, original.Hash)
		}
		if parentReplacement != parentID {
			parentsUnchanged = false
		}
		parentReplacements = append(parentReplacements, parentReplacement)
	}

	if rewriter.identity.IsAnonymous(original) && parentsUnchanged {
		node.setReplacement(original.Hash)
		rewriter.logger.Debug(commitCarriedMessageConstant, zap.String(originalFieldNameConstant, original.Hash.String()))
		return false, nil
	}

	replacement := &object.Commit{
		Author:       rewriter.identity.Signature(original.Author),
		Committer:    rewriter.identity.Signature(original.Committer),
		Message:      original.Message,
		TreeHash:     original.TreeHash,
		ParentHashes: parentReplacements,
		Encoding:     original.Encoding,
		MergeTag:     original.MergeTag,
		ExtraHeaders: unsignedHeaders(original.ExtraHeaders),
	}

	replacementID, createError := rewriter.repository.CreateCommit(executionContext, replacement)
	if createError != nil {
		return false, CommitCreationError{OriginalCommit: original.Hash, Cause: createError}
	}

	node.setReplacement(replacementID)
	rewriter.logger.Debug(commitRewrittenMessageConstant,
		zap.String(originalFieldNameConstant, original.Hash.String()),
		zap.String(replacementFieldNameConstant, replacementID.String()),
	)
	return true, nil
}

// unsignedHeaders drops signature headers, which no longer verify once identities change.
func unsignedHeaders(headers []object.ExtraHeader) []object.ExtraHeader {
	var kept []object.ExtraHeader
	for _, header := range headers {
		if strings.HasPrefix(header.Key, signatureHeaderPrefixConstant) {
			continue
		}
		kept = append(kept, header)
	}
	return kept
}
