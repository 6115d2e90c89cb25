// Package gitstore implements history.Repository on top of go-git.
//
// Repositories are opened from a working tree or bare directory. A dry-run
// repository layers an in-memory store over the on-disk one so new objects
// and refs are never persisted.
package gitstore
