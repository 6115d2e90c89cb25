package flags_test

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/temirov/gitanon/internal/utils/flags"
	pathutils "github.com/temirov/gitanon/internal/utils/path"
)

func TestBindExecutionFlagsUsesDefaults(testInstance *testing.T) {
	command := &cobra.Command{Use: "anonymize"}
	flags.BindExecutionFlags(command, flags.ExecutionDefaults{DryRun: true})

	require.NoError(testInstance, command.ParseFlags(nil))
	resolved := flags.ResolveExecutionFlags(command)
	require.True(testInstance, resolved.DryRun)
	require.False(testInstance, resolved.DryRunSet)
}

func TestResolveExecutionFlagsReadsInheritedFlag(testInstance *testing.T) {
	rootCommand := &cobra.Command{Use: "gitanon"}
	flags.BindExecutionFlags(rootCommand, flags.ExecutionDefaults{})

	var resolved flags.ExecutionFlags
	childCommand := &cobra.Command{
		Use: "anonymize",
		RunE: func(command *cobra.Command, arguments []string) error {
			resolved = flags.ResolveExecutionFlags(command)
			return nil
		},
	}
	rootCommand.AddCommand(childCommand)
	rootCommand.SetArgs([]string{"anonymize", "--" + flags.DryRunFlagName})

	require.NoError(testInstance, rootCommand.Execute())
	require.True(testInstance, resolved.DryRun)
	require.True(testInstance, resolved.DryRunSet)
}

func TestResolveExecutionFlagsParsesRequireClean(testInstance *testing.T) {
	testCases := []struct {
		name              string
		arguments         []string
		expectedValue     bool
		expectedSetMarker bool
	}{
		{name: "default", arguments: nil, expectedValue: false, expectedSetMarker: false},
		{name: "enabled", arguments: []string{"--" + flags.RequireCleanFlagName}, expectedValue: true, expectedSetMarker: true},
		{name: "explicitly disabled", arguments: []string{"--" + flags.RequireCleanFlagName + "=false"}, expectedValue: false, expectedSetMarker: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			command := &cobra.Command{Use: "anonymize"}
			flags.BindExecutionFlags(command, flags.ExecutionDefaults{})

			require.NoError(subtest, command.ParseFlags(testCase.arguments))
			resolved := flags.ResolveExecutionFlags(command)
			require.Equal(subtest, testCase.expectedValue, resolved.RequireClean)
			require.Equal(subtest, testCase.expectedSetMarker, resolved.RequireCleanSet)
			require.False(subtest, resolved.DryRunSet)
		})
	}
}

func TestBindExecutionFlagsIgnoresDuplicateBinding(testInstance *testing.T) {
	command := &cobra.Command{Use: "anonymize"}
	flags.BindExecutionFlags(command, flags.ExecutionDefaults{DryRun: true})
	flags.BindExecutionFlags(command, flags.ExecutionDefaults{})

	require.NoError(testInstance, command.ParseFlags(nil))
	require.True(testInstance, flags.ResolveExecutionFlags(command).DryRun)
}

func TestResolveExecutionFlagsWithoutBinding(testInstance *testing.T) {
	require.Equal(testInstance, flags.ExecutionFlags{}, flags.ResolveExecutionFlags(&cobra.Command{}))
	require.Equal(testInstance, flags.ExecutionFlags{}, flags.ResolveExecutionFlags(nil))
}

func TestBindRootFlagsUsesDefaultsAndParsesValues(testInstance *testing.T) {
	command := &cobra.Command{}

	values := flags.BindRootFlags(command, flags.RootFlagValues{Roots: []string{"/tmp/default"}}, flags.RootFlagDefinition{})
	require.Equal(testInstance, []string{"/tmp/default"}, values.Roots)

	parseError := command.ParseFlags([]string{"--" + flags.DefaultRootFlagName, "/workspace", "--" + flags.DefaultRootFlagName, "/projects"})
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, []string{"/workspace", "/projects"}, values.Roots)
}

func TestResolveRoots(testInstance *testing.T) {
	workspace := testInstance.TempDir()
	firstRepository := filepath.Join(workspace, "first")
	secondRepository := filepath.Join(workspace, "second")
	configuredRepository := filepath.Join(workspace, "configured")

	sanitizer := pathutils.NewRepositoryPathSanitizerWithConfiguration(nil, pathutils.RepositoryPathSanitizerConfiguration{DeduplicatePaths: true})

	testCases := []struct {
		name       string
		arguments  []string
		flagRoots  []string
		configured []string
		expected   []string
	}{
		{
			name:       "arguments_and_flags_combined",
			arguments:  []string{firstRepository},
			flagRoots:  []string{secondRepository, firstRepository},
			configured: []string{configuredRepository},
			expected:   []string{firstRepository, secondRepository},
		},
		{
			name:       "configuration_fallback",
			arguments:  []string{" "},
			configured: []string{configuredRepository},
			expected:   []string{configuredRepository},
		},
		{
			name:     "nothing_requested",
			expected: nil,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtest *testing.T) {
			require.Equal(subtest, testCase.expected, flags.ResolveRoots(testCase.arguments, testCase.flagRoots, testCase.configured, sanitizer))
		})
	}
}
