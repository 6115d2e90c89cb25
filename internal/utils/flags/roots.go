package flags

import (
	"github.com/spf13/cobra"

	pathutils "github.com/temirov/gitanon/internal/utils/path"
)

const (
	// DefaultRootFlagName exposes the shared repository root flag name.
	DefaultRootFlagName = "root"
	// DefaultRootFlagUsage describes the shared repository root flag purpose.
	DefaultRootFlagUsage = "Repository paths to anonymize (repeatable)"
)

// RootFlagDefinition captures configuration for the repository root flag.
type RootFlagDefinition struct {
	Name       string
	Usage      string
	Persistent bool
}

// RootFlagValues stores repository root flag values.
type RootFlagValues struct {
	Roots []string
}

// BindRootFlags attaches the repository root flag to the provided command.
func BindRootFlags(command *cobra.Command, defaults RootFlagValues, definition RootFlagDefinition) *RootFlagValues {
	values := RootFlagValues{Roots: append([]string{}, defaults.Roots...)}
	if command == nil {
		return &values
	}

	flagName := definition.Name
	if len(flagName) == 0 {
		flagName = DefaultRootFlagName
	}
	flagUsage := definition.Usage
	if len(flagUsage) == 0 {
		flagUsage = DefaultRootFlagUsage
	}

	targetFlagSet := command.Flags()
	if definition.Persistent {
		targetFlagSet = command.PersistentFlags()
	}
	if targetFlagSet.Lookup(flagName) == nil {
		targetFlagSet.StringSliceVar(&values.Roots, flagName, values.Roots, flagUsage)
	}
	return &values
}

// ResolveRoots picks repository paths from positional arguments and root flags, falling back to
// configured roots when neither is provided, then sanitizes the result.
func ResolveRoots(arguments []string, flagRoots []string, configuredRoots []string, sanitizer *pathutils.RepositoryPathSanitizer) []string {
	requestedRoots := make([]string, 0, len(arguments)+len(flagRoots))
	requestedRoots = append(requestedRoots, arguments...)
	requestedRoots = append(requestedRoots, flagRoots...)

	sanitizedRoots := sanitizer.Sanitize(requestedRoots)
	if len(sanitizedRoots) > 0 {
		return sanitizedRoots
	}
	return sanitizer.Sanitize(configuredRoots)
}
