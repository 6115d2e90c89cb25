package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testMessagesWorkingDirectoryConstant = "/workspace/repo"
	testMessagesTargetConstant           = "0123456789abcdef0123456789abcdef01234567"
)

func TestCommandMessageFormatterDescribesHardReset(testInstance *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"reset", "--hard", testMessagesTargetConstant},
			WorkingDirectory: testMessagesWorkingDirectoryConstant,
		},
	}

	testCases := []struct {
		name     string
		build    func() string
		expected string
	}{
		{
			name:     "start",
			build:    func() string { return formatter.BuildStartedMessage(command) },
			expected: "Resetting working tree in /workspace/repo to " + testMessagesTargetConstant,
		},
		{
			name:     "success",
			build:    func() string { return formatter.BuildSuccessMessage(command) },
			expected: "Working tree in /workspace/repo now at " + testMessagesTargetConstant,
		},
		{
			name: "failure",
			build: func() string {
				return formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 128, StandardError: "fatal: bad object\n"})
			},
			expected: "Failed to reset working tree in /workspace/repo to " + testMessagesTargetConstant + " (exit code 128: fatal: bad object)",
		},
		{
			name:     "execution failure",
			build:    func() string { return formatter.BuildExecutionFailureMessage(command, errors.New("no git")) },
			expected: "Unable to reset working tree in /workspace/repo to " + testMessagesTargetConstant + ": no git",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, testCase.build())
		})
	}
}

func TestCommandMessageFormatterDescribesRevParse(testInstance *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name:    CommandGit,
		Details: CommandDetails{Arguments: []string{"rev-parse", "HEAD"}},
	}

	require.Equal(testInstance, "Resolving HEAD in current directory", formatter.BuildStartedMessage(command))
	require.Equal(testInstance, "HEAD in current directory did not resolve to a revision", formatter.BuildSuccessMessage(command))
}

func TestCommandMessageFormatterFallsBackToGenericMessages(testInstance *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"reset", "--soft", "HEAD~1"},
			WorkingDirectory: testMessagesWorkingDirectoryConstant,
		},
	}

	require.Equal(testInstance, "Running git reset --soft HEAD~1 (in /workspace/repo)", formatter.BuildStartedMessage(command))
	require.Equal(testInstance, "git reset --soft HEAD~1 (in /workspace/repo) failed: unknown error", formatter.BuildExecutionFailureMessage(command, nil))
}
