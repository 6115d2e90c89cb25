// Package flags binds the flags shared by gitanon commands and resolves their effective values.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Rewrite history in memory and report branch moves without changing refs or the working tree"
	// RequireCleanFlagName exposes the shared clean working tree flag name.
	RequireCleanFlagName = "require-clean"
	// RequireCleanFlagUsage describes the shared clean working tree flag purpose.
	RequireCleanFlagUsage = "Refuse to rewrite repositories whose working tree has uncommitted changes"
	trueLiteralConstant   = "true"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	DryRun       bool
	RequireClean bool
}

// ExecutionFlags captures the execution flag values observed on a command invocation.
type ExecutionFlags struct {
	DryRun          bool
	DryRunSet       bool
	RequireClean    bool
	RequireCleanSet bool
}

// BindExecutionFlags attaches the execution flags to the command's persistent flag set.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults) {
	if command == nil {
		return
	}
	bindBoolFlag(command.PersistentFlags(), DryRunFlagName, defaults.DryRun, DryRunFlagUsage)
	bindBoolFlag(command.PersistentFlags(), RequireCleanFlagName, defaults.RequireClean, RequireCleanFlagUsage)
}

// ResolveExecutionFlags reads the execution flags, searching inherited persistent flags as well.
func ResolveExecutionFlags(command *cobra.Command) ExecutionFlags {
	if command == nil {
		return ExecutionFlags{}
	}
	dryRun, dryRunSet := resolveBoolFlag(command, DryRunFlagName)
	requireClean, requireCleanSet := resolveBoolFlag(command, RequireCleanFlagName)
	return ExecutionFlags{
		DryRun:          dryRun,
		DryRunSet:       dryRunSet,
		RequireClean:    requireClean,
		RequireCleanSet: requireCleanSet,
	}
}

func bindBoolFlag(flagSet *pflag.FlagSet, flagName string, defaultValue bool, usage string) {
	if flagSet.Lookup(flagName) != nil {
		return
	}
	flagSet.Bool(flagName, defaultValue, usage)
}

func resolveBoolFlag(command *cobra.Command, flagName string) (bool, bool) {
	resolvedFlag := command.Flags().Lookup(flagName)
	if resolvedFlag == nil {
		resolvedFlag = command.InheritedFlags().Lookup(flagName)
	}
	if resolvedFlag == nil {
		return false, false
	}
	return resolvedFlag.Value.String() == trueLiteralConstant, resolvedFlag.Changed
}
