// Package history rebuilds a repository's commit graph with anonymized authorship.
//
// GraphDiscoverer walks every branch tip back to the root commits and records each
// commit once in a Store. Rewriter then recreates the commits in dependency order,
// substituting the configured Identity for author and committer while keeping trees,
// messages, timestamps and parent order intact. BranchUpdater finally repoints the
// local branches at the rebuilt tips.
package history
