package execshell

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	CommandStarted(command ShellCommand)
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports a process that produced no result at all.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// observerGroup forwards every event to each member in registration order.
type observerGroup []CommandEventObserver

func newObserverGroup(candidates []CommandEventObserver) observerGroup {
	group := make(observerGroup, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate != nil {
			group = append(group, candidate)
		}
	}
	return group
}

func (group observerGroup) CommandStarted(command ShellCommand) {
	for _, member := range group {
		member.CommandStarted(command)
	}
}

func (group observerGroup) CommandCompleted(command ShellCommand, result ExecutionResult) {
	for _, member := range group {
		member.CommandCompleted(command, result)
	}
}

func (group observerGroup) CommandExecutionFailed(command ShellCommand, failure error) {
	for _, member := range group {
		member.CommandExecutionFailed(command, failure)
	}
}
