// Package gitrepo answers git-specific questions about a single repository
// and performs the mutations trunk needs: branch resolution and switching,
// worktree status, pulls, deletions, and structured parsing of verbose
// branch listings. All behavior flows through an injected shell executor.
package gitrepo
