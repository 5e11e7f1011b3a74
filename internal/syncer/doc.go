// Package syncer orchestrates the full repository synchronization workflow:
// fetching, branch switching, working-tree reconciliation, merged and stale
// branch cleanup, and dependency reinstallation.
package syncer
