package anonymize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitanon/internal/execshell"
	"github.com/temirov/gitanon/internal/gitstore"
	"github.com/temirov/gitanon/internal/history"
	"github.com/temirov/gitanon/internal/repos/discovery"
	"github.com/temirov/gitanon/internal/ui"
	"github.com/temirov/gitanon/internal/utils/flags"
	pathutils "github.com/temirov/gitanon/internal/utils/path"
)

const (
	commandUseConstant                       = "anonymize [repository paths...]"
	commandShortDescriptionConstant          = "Replace author and committer identities across repository history"
	commandLongDescriptionConstant           = "anonymize rewrites every commit reachable from the local branches so that author and committer carry the configured anonymous identity, keeping trees, messages, timestamps and parent order intact, then repoints the branches and hard-resets the checked-out one."
	discoverFlagNameConstant                 = "discover"
	discoverFlagUsageConstant                = "Treat the paths as directories to search for repositories"
	reportFlagNameConstant                   = "report"
	reportFlagUsageConstant                  = "Write a YAML report of every processed repository to this file"
	identityDiffFlagNameConstant             = "show-identity-diff"
	identityDiffFlagUsageConstant            = "Print a header diff between each branch tip and its replacement"
	resetBackendFlagNameConstant             = "reset-backend"
	resetBackendFlagUsageConstant            = "Working tree reset implementation: native or git"
	repositoryPathsRequiredMessageConstant   = "at least one repository path is required"
	rewroteLineTemplateConstant              = "REWROTE: %s %s %s → %s%s\n"
	plannedLineTemplateConstant              = "PLAN-REWRITE: %s %s %s → %s%s\n"
	skippedLineTemplateConstant              = "SKIP (already anonymous): %s %s %s\n"
	identityDiffHeaderTemplateConstant       = "IDENTITY DIFF: %s %s\n"
	checkedOutSuffixConstant                 = " (checked out)"
	repositoryFailureTemplateConstant        = "%s: %w"
	repositoryDiscoveryErrorTemplateConstant = "repository discovery failed: %w"
	reportWriteErrorTemplateConstant         = "unable to write report %s: %w"
	repositoryFailedMessageConstant          = "Repository anonymization failed"
	repositoryDiscoveryFailedMessageConstant = "Repository discovery failed"
	noRepositoriesDiscoveredMessageConstant  = "No repositories discovered"
	reportWrittenMessageConstant             = "Report written"
	logFieldRepositoryRootsConstant          = "roots"
	logFieldReportPathConstant               = "report"
)

// ErrRepositoryPathsRequired indicates that no repository path was supplied by arguments, flags or configuration.
var ErrRepositoryPathsRequired = errors.New(repositoryPathsRequiredMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// RepositoryDiscoverer locates Git repositories beneath provided roots.
type RepositoryDiscoverer interface {
	DiscoverRepositories(executionContext context.Context, roots []string) ([]string, error)
}

// RepositoryAnonymizer anonymizes one repository.
type RepositoryAnonymizer interface {
	Anonymize(executionContext context.Context, options Options) (Result, error)
}

// ServiceProvider constructs a RepositoryAnonymizer from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (RepositoryAnonymizer, error)

type commandOptions struct {
	repositoryPaths  []string
	discover         bool
	dryRun           bool
	requireClean     bool
	reportPath       string
	showIdentityDiff bool
	resetBackend     gitstore.ResetBackend
	identity         history.Identity
}

// CommandBuilder assembles the anonymize Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  gitstore.GitExecutor
	RepositoryDiscoverer         RepositoryDiscoverer
	ServiceProvider              ServiceProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the anonymize command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE:          builder.Run,
	}

	builder.BindFlags(command)
	flags.BindExecutionFlags(command, flags.ExecutionDefaults{})

	return command, nil
}

// BindFlags attaches the anonymize flags to command so the root command can run anonymization directly.
func (builder *CommandBuilder) BindFlags(command *cobra.Command) {
	flags.BindRootFlags(command, flags.RootFlagValues{}, flags.RootFlagDefinition{})
	command.Flags().Bool(discoverFlagNameConstant, false, discoverFlagUsageConstant)
	command.Flags().String(reportFlagNameConstant, "", reportFlagUsageConstant)
	command.Flags().Bool(identityDiffFlagNameConstant, false, identityDiffFlagUsageConstant)
	command.Flags().String(resetBackendFlagNameConstant, string(gitstore.ResetBackendNative), resetBackendFlagUsageConstant)
}

// Run anonymizes every requested repository. Failures are collected per repository and joined;
// cancellation stops the loop immediately.
func (builder *CommandBuilder) Run(command *cobra.Command, arguments []string) error {
	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	options := builder.parseOptions(command, arguments)
	if len(options.repositoryPaths) == 0 {
		return ErrRepositoryPathsRequired
	}

	logger := builder.resolveLogger()
	executor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return executorError
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:           logger,
		Identity:         options.identity,
		RepositoryOpener: newRepositoryOpener(options.resetBackend, executor, logger),
	})
	if serviceError != nil {
		return serviceError
	}

	repositories := options.repositoryPaths
	if options.discover {
		discoveredRepositories, discoveryError := builder.resolveRepositoryDiscoverer(logger).DiscoverRepositories(executionContext, options.repositoryPaths)
		if discoveryError != nil {
			logger.Error(repositoryDiscoveryFailedMessageConstant, zap.Strings(logFieldRepositoryRootsConstant, options.repositoryPaths), zap.Error(discoveryError))
			return fmt.Errorf(repositoryDiscoveryErrorTemplateConstant, discoveryError)
		}
		if len(discoveredRepositories) == 0 {
			logger.Info(noRepositoriesDiscoveredMessageConstant, zap.Strings(logFieldRepositoryRootsConstant, options.repositoryPaths))
		}
		repositories = discoveredRepositories
	}

	outputWriter := command.OutOrStdout()
	report := Report{Repositories: make([]RepositoryReport, 0, len(repositories))}
	var anonymizationErrors []error

	for _, repositoryPath := range repositories {
		result, anonymizeError := service.Anonymize(executionContext, Options{
			RepositoryPath:   repositoryPath,
			DryRun:           options.dryRun,
			ShowIdentityDiff: options.showIdentityDiff,
			RequireClean:     options.requireClean,
		})
		report.Repositories = append(report.Repositories, NewRepositoryReport(repositoryPath, result, anonymizeError))
		if anonymizeError != nil {
			if errors.Is(anonymizeError, context.Canceled) || errors.Is(anonymizeError, context.DeadlineExceeded) {
				return anonymizeError
			}
			failure := fmt.Errorf(repositoryFailureTemplateConstant, repositoryPath, anonymizeError)
			logger.Warn(repositoryFailedMessageConstant, zap.String(logFieldRepositoryPathConstant, repositoryPath), zap.Error(anonymizeError))
			anonymizationErrors = append(anonymizationErrors, failure)
			continue
		}
		printResult(outputWriter, result)
	}

	if len(options.reportPath) > 0 {
		if reportError := writeReportFile(options.reportPath, report); reportError != nil {
			anonymizationErrors = append(anonymizationErrors, reportError)
		} else {
			logger.Info(reportWrittenMessageConstant, zap.String(logFieldReportPathConstant, options.reportPath))
		}
	}

	return errors.Join(anonymizationErrors...)
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string) commandOptions {
	configuration := builder.resolveConfiguration()

	sanitizer := pathutils.NewRepositoryPathSanitizerWithConfiguration(nil, pathutils.RepositoryPathSanitizerConfiguration{
		ExcludeBooleanLiteralCandidates: true,
		DeduplicatePaths:                true,
	})
	flagRoots, _ := command.Flags().GetStringSlice(flags.DefaultRootFlagName)

	options := commandOptions{
		repositoryPaths:  flags.ResolveRoots(arguments, flagRoots, configuration.RepositoryRoots, sanitizer),
		discover:         configuration.Discover,
		dryRun:           configuration.DryRun,
		requireClean:     configuration.RequireClean,
		reportPath:       configuration.ReportPath,
		showIdentityDiff: configuration.ShowIdentityDiff,
		resetBackend:     gitstore.ResetBackend(configuration.ResetBackend).Sanitize(),
		identity:         configuration.IdentityValue(),
	}

	executionFlags := flags.ResolveExecutionFlags(command)
	if executionFlags.DryRunSet {
		options.dryRun = executionFlags.DryRun
	}
	if executionFlags.RequireCleanSet {
		options.requireClean = executionFlags.RequireClean
	}
	if command.Flags().Changed(discoverFlagNameConstant) {
		options.discover, _ = command.Flags().GetBool(discoverFlagNameConstant)
	}
	if command.Flags().Changed(reportFlagNameConstant) {
		reportPath, _ := command.Flags().GetString(reportFlagNameConstant)
		options.reportPath = strings.TrimSpace(reportPath)
	}
	if command.Flags().Changed(identityDiffFlagNameConstant) {
		options.showIdentityDiff, _ = command.Flags().GetBool(identityDiffFlagNameConstant)
	}
	if command.Flags().Changed(resetBackendFlagNameConstant) {
		resetBackend, _ := command.Flags().GetString(resetBackendFlagNameConstant)
		options.resetBackend = gitstore.ResetBackend(resetBackend).Sanitize()
	}

	return options
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger) (gitstore.GitExecutor, error) {
	if builder.GitExecutor != nil {
		return builder.GitExecutor, nil
	}

	var observers []execshell.CommandEventObserver
	if builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider() {
		observers = append(observers, ui.NewConsoleCommandEventLogger(logger))
	}
	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), observers...)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

func (builder *CommandBuilder) resolveRepositoryDiscoverer(logger *zap.Logger) RepositoryDiscoverer {
	if builder.RepositoryDiscoverer != nil {
		return builder.RepositoryDiscoverer
	}
	return discovery.NewFilesystemRepositoryDiscoverer(logger)
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (RepositoryAnonymizer, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	service, creationError := NewService(dependencies)
	if creationError != nil {
		return nil, creationError
	}
	return service, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func newRepositoryOpener(resetBackend gitstore.ResetBackend, executor gitstore.GitExecutor, logger *zap.Logger) RepositoryOpener {
	return func(executionContext context.Context, repositoryPath string, dryRun bool) (history.Repository, error) {
		repository, openError := gitstore.Open(executionContext, repositoryPath, gitstore.Options{
			DryRun:       dryRun,
			ResetBackend: resetBackend,
			GitExecutor:  executor,
			Logger:       logger,
		})
		if openError != nil {
			return nil, openError
		}
		return repository, nil
	}
}

func printResult(writer io.Writer, result Result) {
	for _, update := range result.Updates {
		if !update.Changed() {
			fmt.Fprintf(writer, skippedLineTemplateConstant, result.RepositoryPath, update.BranchName, update.OriginalTarget)
			continue
		}
		lineTemplate := rewroteLineTemplateConstant
		if result.DryRun {
			lineTemplate = plannedLineTemplateConstant
		}
		checkedOutSuffix := ""
		if update.CheckedOut {
			checkedOutSuffix = checkedOutSuffixConstant
		}
		fmt.Fprintf(writer, lineTemplate, result.RepositoryPath, update.BranchName, update.OriginalTarget, update.ReplacementTarget, checkedOutSuffix)
	}
	for _, identityDiff := range result.IdentityDiffs {
		fmt.Fprintf(writer, identityDiffHeaderTemplateConstant, result.RepositoryPath, identityDiff.BranchName)
		io.WriteString(writer, identityDiff.Diff)
	}
}

func writeReportFile(reportPath string, report Report) error {
	reportFile, createError := os.Create(reportPath)
	if createError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, createError)
	}
	writeError := report.WriteYAML(reportFile)
	closeError := reportFile.Close()
	if writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, writeError)
	}
	if closeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, closeError)
	}
	return nil
}
