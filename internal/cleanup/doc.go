// Package cleanup decides which local branches can be deleted without losing
// work. It combines a merged-set membership check with a tree-identity
// fallback for rebased branches, and classifies remote-gone branches as
// stale by a calendar-month age policy.
package cleanup
