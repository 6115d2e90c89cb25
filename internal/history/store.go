package history

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitNode tracks one original commit, the commits that name it as a parent, and its replacement.
type CommitNode struct {
	Original       *object.Commit
	children       mapset.Set[plumbing.Hash]
	replacement    plumbing.Hash
	hasReplacement bool
}

func newCommitNode(original *object.Commit) *CommitNode {
	return &CommitNode{
		Original: original,
		children: mapset.NewThreadUnsafeSet[plumbing.Hash](),
	}
}

// ID returns the original commit id.
func (node *CommitNode) ID() plumbing.Hash {
	return node.Original.Hash
}

// Replacement returns the rewritten commit id once it has been assigned.
func (node *CommitNode) Replacement() (plumbing.Hash, bool) {
	return node.replacement, node.hasReplacement
}

// ChildIDs returns the ids of the direct children in ascending hash order.
func (node *CommitNode) ChildIDs() []plumbing.Hash {
	childIdentifiers := node.children.ToSlice()
	sort.Slice(childIdentifiers, func(leftIndex int, rightIndex int) bool {
		return childIdentifiers[leftIndex].String() < childIdentifiers[rightIndex].String()
	})
	return childIdentifiers
}

func (node *CommitNode) setReplacement(replacement plumbing.Hash) bool {
	if node.hasReplacement {
		return false
	}
	node.replacement = replacement
	node.hasReplacement = true
	return true
}

// Store holds every commit reachable from the branch tips, keyed by original id.
type Store struct {
	nodes map[plumbing.Hash]*CommitNode
	order []plumbing.Hash
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{nodes: make(map[plumbing.Hash]*CommitNode)}
}

// Insert records the commit unless it is already present and returns its node.
func (store *Store) Insert(commit *object.Commit) *CommitNode {
	if existingNode, exists := store.nodes[commit.Hash]; exists {
		return existingNode
	}
	node := newCommitNode(commit)
	store.nodes[commit.Hash] = node
	store.order = append(store.order, commit.Hash)
	return node
}

// Node returns the node for the commit id.
func (store *Store) Node(commitID plumbing.Hash) (*CommitNode, bool) {
	node, exists := store.nodes[commitID]
	return node, exists
}

// Contains reports whether the commit id has been recorded.
func (store *Store) Contains(commitID plumbing.Hash) bool {
	_, exists := store.nodes[commitID]
	return exists
}

// Len returns the number of recorded commits.
func (store *Store) Len() int {
	return len(store.nodes)
}

// IDs returns the recorded commit ids in discovery order.
func (store *Store) IDs() []plumbing.Hash {
	identifiers := make([]plumbing.Hash, len(store.order))
	copy(identifiers, store.order)
	return identifiers
}

// Replacement returns the rewritten id of the commit when one has been assigned.
func (store *Store) Replacement(commitID plumbing.Hash) (plumbing.Hash, bool) {
	node, exists := store.nodes[commitID]
	if !exists {
		return plumbing.ZeroHash, false
	}
	return node.Replacement()
}

func (store *Store) linkChildren() {
	for _, commitID := range store.order {
		node := store.nodes[commitID]
		for _, parentID := range node.Original.ParentHashes {
			if parentNode, exists := store.nodes[parentID]; exists {
				parentNode.children.Add(commitID)
			}
		}
	}
}

// RootSet holds the parentless commits in the order discovery found them.
type RootSet struct {
	members mapset.Set[plumbing.Hash]
	order   []plumbing.Hash
}

// NewRootSet creates an empty root set.
func NewRootSet() *RootSet {
	return &RootSet{members: mapset.NewThreadUnsafeSet[plumbing.Hash]()}
}

// Add records a root and reports whether it was new.
func (roots *RootSet) Add(commitID plumbing.Hash) bool {
	if !roots.members.Add(commitID) {
		return false
	}
	roots.order = append(roots.order, commitID)
	return true
}

// Contains reports whether the commit id is a root.
func (roots *RootSet) Contains(commitID plumbing.Hash) bool {
	return roots.members.Contains(commitID)
}

// IDs returns the roots in discovery order.
func (roots *RootSet) IDs() []plumbing.Hash {
	identifiers := make([]plumbing.Hash, len(roots.order))
	copy(identifiers, roots.order)
	return identifiers
}

// Len returns the number of roots.
func (roots *RootSet) Len() int {
	return len(roots.order)
}
