// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with logging and lifecycle events,
// OSCommandRunner runs processes through os/exec, and CommandMessageFormatter
// renders the git invocations used by the repository tooling in plain language.
package execshell
