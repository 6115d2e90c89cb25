package anonymize_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gitanon/internal/anonymize"
	"github.com/temirov/gitanon/internal/testsupport"
)

type recordingDiscoverer struct {
	receivedRoots []string
	repositories  []string
}

func (discoverer *recordingDiscoverer) DiscoverRepositories(_ context.Context, roots []string) ([]string, error) {
	discoverer.receivedRoots = append([]string{}, roots...)
	return discoverer.repositories, nil
}

type scriptedAnonymizer struct {
	processedPaths []string
	failures       map[string]error
}

func (anonymizer *scriptedAnonymizer) Anonymize(_ context.Context, options anonymize.Options) (anonymize.Result, error) {
	anonymizer.processedPaths = append(anonymizer.processedPaths, options.RepositoryPath)
	if failure, failing := anonymizer.failures[options.RepositoryPath]; failing {
		return anonymize.Result{}, failure
	}
	return anonymize.Result{RepositoryPath: options.RepositoryPath, DryRun: options.DryRun}, nil
}

func executeAnonymizeCommand(testInstance *testing.T, builder *anonymize.CommandBuilder, arguments ...string) (string, error) {
	testInstance.Helper()
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)
	command.SetArgs(arguments)
	command.SetContext(context.Background())

	executionError := command.Execute()
	return outputBuffer.String(), executionError
}

func outputLines(output string) []string {
	return strings.Split(strings.TrimSpace(output), "\n")
}

func TestAnonymizeCommandRequiresRepositoryPaths(testInstance *testing.T) {
	_, executionError := executeAnonymizeCommand(testInstance, &anonymize.CommandBuilder{})
	require.ErrorIs(testInstance, executionError, anonymize.ErrRepositoryPathsRequired)
}

func TestAnonymizeCommandRewritesRepositories(testInstance *testing.T) {
	fixture := buildLinearFixture(testInstance)
	originalMain := fixture.commits[2]

	output, executionError := executeAnonymizeCommand(testInstance, &anonymize.CommandBuilder{}, fixture.repository.Path)
	require.NoError(testInstance, executionError)

	rewrittenMain := fixture.repository.BranchTarget(testInstance, testsupport.MainBranchNameConstant)
	lines := outputLines(output)
	require.Len(testInstance, lines, 2)
	require.True(testInstance, strings.HasPrefix(lines[0], "REWROTE: "))
	require.Contains(testInstance, lines[0], " feature "+fixture.commits[1].String()+" → ")
	require.True(testInstance, strings.HasSuffix(lines[1], " main "+originalMain.String()+" → "+rewrittenMain.String()+" (checked out)"))

	secondOutput, secondError := executeAnonymizeCommand(testInstance, &anonymize.CommandBuilder{}, fixture.repository.Path)
	require.NoError(testInstance, secondError)
	for _, line := range outputLines(secondOutput) {
		require.True(testInstance, strings.HasPrefix(line, "SKIP (already anonymous): "))
	}
	require.Contains(testInstance, secondOutput, " main "+rewrittenMain.String())
}

func TestAnonymizeCommandDryRunPrintsPlan(testInstance *testing.T) {
	fixture := buildLinearFixture(testInstance)

	output, executionError := executeAnonymizeCommand(testInstance, &anonymize.CommandBuilder{}, "--dry-run", "--show-identity-diff", fixture.repository.Path)
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, "PLAN-REWRITE: ")
	require.Contains(testInstance, output, "IDENTITY DIFF: ")
	require.NotContains(testInstance, output, "REWROTE: ")
	require.Equal(testInstance, fixture.commits[2], fixture.repository.BranchTarget(testInstance, testsupport.MainBranchNameConstant))
}

func TestAnonymizeCommandContinuesAfterFailureAndWritesReport(testInstance *testing.T) {
	firstFixture := buildLinearFixture(testInstance)
	secondFixture := buildLinearFixture(testInstance)
	missingPath := filepath.Join(testInstance.TempDir(), "missing")
	reportPath := filepath.Join(testInstance.TempDir(), "report.yaml")

	output, executionError := executeAnonymizeCommand(testInstance, &anonymize.CommandBuilder{},
		firstFixture.repository.Path, missingPath, secondFixture.repository.Path, "--report", reportPath)
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), missingPath)
	require.Len(testInstance, outputLines(output), 4)

	require.NotEqual(testInstance, firstFixture.commits[2], firstFixture.repository.BranchTarget(testInstance, testsupport.MainBranchNameConstant))
	require.NotEqual(testInstance, secondFixture.commits[2], secondFixture.repository.BranchTarget(testInstance, testsupport.MainBranchNameConstant))

	reportContent, readError := os.ReadFile(reportPath)
	require.NoError(testInstance, readError)

	var report anonymize.Report
	require.NoError(testInstance, yaml.Unmarshal(reportContent, &report))
	require.Len(testInstance, report.Repositories, 3)
	require.Empty(testInstance, report.Repositories[0].Error)
	require.Equal(testInstance, 3, report.Repositories[0].CommitsCreated)
	require.Len(testInstance, report.Repositories[0].Branches, 2)
	require.Equal(testInstance, missingPath, report.Repositories[1].Path)
	require.NotEmpty(testInstance, report.Repositories[1].Error)
	require.Empty(testInstance, report.Repositories[2].Error)
}

func TestAnonymizeCommandUsesGitResetBackend(testInstance *testing.T) {
	fixture := buildLinearFixture(testInstance)
	executor := testsupport.NewResetEchoingGitExecutor()

	_, executionError := executeAnonymizeCommand(testInstance, &anonymize.CommandBuilder{GitExecutor: executor}, "--reset-backend", "git", fixture.repository.Path)
	require.NoError(testInstance, executionError)

	require.Len(testInstance, executor.ExecutedGitCommands, 2)
	arguments := executor.ExecutedGitCommands[0].Arguments
	require.Equal(testInstance, []string{"reset", "--hard", "--quiet"}, arguments[:3])
	require.NotEqual(testInstance, fixture.commits[2].String(), arguments[3])
	require.NotEqual(testInstance, fixture.commits[1], fixture.repository.BranchTarget(testInstance, testFeatureBranchConstant))
}

func TestAnonymizeCommandDiscoversRepositories(testInstance *testing.T) {
	workspace := testInstance.TempDir()
	discoverer := &recordingDiscoverer{repositories: []string{"/srv/alpha", "/srv/beta"}}
	anonymizer := &scriptedAnonymizer{}

	builder := &anonymize.CommandBuilder{
		RepositoryDiscoverer: discoverer,
		ServiceProvider: func(anonymize.ServiceDependencies) (anonymize.RepositoryAnonymizer, error) {
			return anonymizer, nil
		},
	}

	_, executionError := executeAnonymizeCommand(testInstance, builder, "--discover", "--root", workspace)
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, []string{workspace}, discoverer.receivedRoots)
	require.Equal(testInstance, []string{"/srv/alpha", "/srv/beta"}, anonymizer.processedPaths)
}

func TestAnonymizeCommandStopsOnCancellation(testInstance *testing.T) {
	anonymizer := &scriptedAnonymizer{failures: map[string]error{"/srv/alpha": context.Canceled}}
	builder := &anonymize.CommandBuilder{
		ServiceProvider: func(anonymize.ServiceDependencies) (anonymize.RepositoryAnonymizer, error) {
			return anonymizer, nil
		},
	}

	_, executionError := executeAnonymizeCommand(testInstance, builder, "/srv/alpha", "/srv/beta")
	require.ErrorIs(testInstance, executionError, context.Canceled)
	require.Equal(testInstance, []string{"/srv/alpha"}, anonymizer.processedPaths)
}

func TestAnonymizeCommandFallsBackToConfiguration(testInstance *testing.T) {
	anonymizer := &scriptedAnonymizer{}
	var receivedDependencies anonymize.ServiceDependencies
	builder := &anonymize.CommandBuilder{
		ConfigurationProvider: func() anonymize.CommandConfiguration {
			configuration := anonymize.DefaultCommandConfiguration()
			configuration.RepositoryRoots = []string{"/srv/configured"}
			configuration.DryRun = true
			configuration.Identity = anonymize.IdentityConfiguration{Name: "Nobody", Email: "nobody@example.invalid"}
			return configuration
		},
		ServiceProvider: func(dependencies anonymize.ServiceDependencies) (anonymize.RepositoryAnonymizer, error) {
			receivedDependencies = dependencies
			return anonymizer, nil
		},
	}

	_, executionError := executeAnonymizeCommand(testInstance, builder)
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, []string{"/srv/configured"}, anonymizer.processedPaths)
	require.Equal(testInstance, "Nobody", receivedDependencies.Identity.Name)
	require.Equal(testInstance, "nobody@example.invalid", receivedDependencies.Identity.Email)
	require.NotNil(testInstance, receivedDependencies.RepositoryOpener)
}

func TestAnonymizeCommandRequireCleanRefusesDirtyWorkingTree(testInstance *testing.T) {
	fixture := buildLinearFixture(testInstance)
	require.NoError(testInstance, os.WriteFile(filepath.Join(fixture.repository.Path, testFileNameConstant), []byte("local edit\n"), 0o644))

	_, executionError := executeAnonymizeCommand(testInstance, &anonymize.CommandBuilder{}, "--require-clean", fixture.repository.Path)
	require.ErrorIs(testInstance, executionError, anonymize.ErrWorkingTreeDirty)
	require.Equal(testInstance, fixture.commits[2], fixture.repository.BranchTarget(testInstance, testsupport.MainBranchNameConstant))
	require.Equal(testInstance, "local edit\n", fixture.repository.ReadFile(testInstance, testFileNameConstant))
}
