// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner
// for default process execution and StreamingCommandRunner for commands whose
// output should surface live, and defines the abstractions trunk uses to run
// git and JavaScript package managers in a testable manner.
package execshell
