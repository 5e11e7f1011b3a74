// Package deps detects JavaScript package managers from lockfile presence
// and reinstalls dependencies when the lockfile content changed across a
// pull, using each manager's reproducible install command.
package deps
