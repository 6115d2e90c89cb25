package history

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	// DefaultAnonymousNameConstant is the name written into rewritten signatures.
	DefaultAnonymousNameConstant = "Anonymous"
	// DefaultAnonymousEmailConstant is the email written into rewritten signatures.
	DefaultAnonymousEmailConstant = "anon@ymo.us"
)

// Identity is the name and email substituted into author and committer signatures.
type Identity struct {
	Name  string
	Email string
}

// DefaultIdentity returns the built-in anonymous identity.
func DefaultIdentity() Identity {
	return Identity{Name: DefaultAnonymousNameConstant, Email: DefaultAnonymousEmailConstant}
}

// Sanitize trims the identity fields and falls back to the defaults for empty values.
func (identity Identity) Sanitize() Identity {
	sanitized := Identity{
		Name:  strings.TrimSpace(identity.Name),
		Email: strings.TrimSpace(identity.Email),
	}
	if len(sanitized.Name) == 0 {
		sanitized.Name = DefaultAnonymousNameConstant
	}
	if len(sanitized.Email) == 0 {
		sanitized.Email = DefaultAnonymousEmailConstant
	}
	return sanitized
}

// Signature replaces the name and email of the original signature, keeping its timestamp and offset.
func (identity Identity) Signature(original object.Signature) object.Signature {
	return object.Signature{
		Name:  identity.Name,
		Email: identity.Email,
		When:  original.When,
	}
}

// Matches reports whether the signature already carries this identity.
func (identity Identity) Matches(signature object.Signature) bool {
	return signature.Name == identity.Name && signature.Email == identity.Email
}

// IsAnonymous reports whether both author and committer of the commit already carry this identity.
func (identity Identity) IsAnonymous(commit *object.Commit) bool {
	if commit == nil {
		return false
	}
	return identity.Matches(commit.Author) && identity.Matches(commit.Committer)
}
