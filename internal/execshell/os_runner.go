package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"
)

const (
	environmentAssignmentTemplateConstant = "%s=%s"
	processWaitDelayConstant              = 5 * time.Second
)

// gitEnvironmentDefaults keeps git non-interactive and its porcelain output locale-independent.
var gitEnvironmentDefaults = map[string]string{
	"GIT_TERMINAL_PROMPT": "0",
	"LC_ALL":              "C",
}

// OSCommandRunner executes commands using os/exec.
type OSCommandRunner struct {
	baseEnvironment func() []string
}

// NewOSCommandRunner constructs a runner that inherits the process environment.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{baseEnvironment: os.Environ}
}

// Run executes the command and reports non-zero exits through ExecutionResult.ExitCode.
// A cancelled context is returned as an error even when the process was already killed.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executable := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	executable.WaitDelay = processWaitDelayConstant
	executable.Dir = command.Details.WorkingDirectory
	executable.Env = runner.environment(command)

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	executable.Stdout = &standardOutputBuffer
	executable.Stderr = &standardErrorBuffer
	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	runError := executable.Run()
	if contextError := executionContext.Err(); contextError != nil {
		return ExecutionResult{}, contextError
	}

	result := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}
	if runError == nil {
		return result, nil
	}

	var exitError *exec.ExitError
	if errors.As(runError, &exitError) {
		result.ExitCode = exitError.ExitCode()
		return result, nil
	}
	return ExecutionResult{}, runError
}

func (runner *OSCommandRunner) environment(command ShellCommand) []string {
	overrides := make(map[string]string, len(gitEnvironmentDefaults)+len(command.Details.EnvironmentVariables))
	if command.Name == CommandGit {
		for environmentKey, environmentValue := range gitEnvironmentDefaults {
			overrides[environmentKey] = environmentValue
		}
	}
	for environmentKey, environmentValue := range command.Details.EnvironmentVariables {
		overrides[environmentKey] = environmentValue
	}
	if len(overrides) == 0 {
		return nil
	}

	environmentKeys := make([]string, 0, len(overrides))
	for environmentKey := range overrides {
		environmentKeys = append(environmentKeys, environmentKey)
	}
	sort.Strings(environmentKeys)

	baseEnvironment := os.Environ
	if runner.baseEnvironment != nil {
		baseEnvironment = runner.baseEnvironment
	}
	mergedEnvironment := append([]string{}, baseEnvironment()...)
	for _, environmentKey := range environmentKeys {
		mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentAssignmentTemplateConstant, environmentKey, overrides[environmentKey]))
	}
	return mergedEnvironment
}
