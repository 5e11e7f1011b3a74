package cleanup

import (
	"context"
	"sort"
	"time"
)

const (
	protectedMainBranchNameConstant   = "main"
	protectedMasterBranchNameConstant = "master"
)

// FindStaleBranches enumerates local branches whose upstream was deleted on
// the remote and whose tip commit is older than the staleness window. The
// window is measured by calendar month subtraction in UTC so daylight saving
// shifts never skew the boundary.
//
// Remote tracking references are pruned first so gone annotations are
// current. The active branch, the conventional main branch names, and
// branches that never had an upstream are skipped unconditionally. When more
// candidates exist than the configured limit, the full set is sorted by name
// and the first entries up to the limit are kept, so selection stays
// deterministic and the displayed list alphabetical.
func (classifier *Classifier) FindStaleBranches(executionContext context.Context, mainBranchName string, remoteName string) ([]DeletionCandidate, error) {
	if pruneError := classifier.inspector.PruneRemote(executionContext, remoteName); pruneError != nil {
		return nil, pruneError
	}

	localBranches, listingError := classifier.inspector.ListLocalBranches(executionContext)
	if listingError != nil {
		return nil, listingError
	}

	currentBranchName, currentBranchError := classifier.inspector.CurrentBranch(executionContext)
	if currentBranchError != nil {
		return nil, currentBranchError
	}

	currentTime := classifier.clock.Now().UTC()
	stalenessCutoff := currentTime.AddDate(0, -classifier.configuration.StalenessWindowMonths, 0)

	deletionCandidates := []DeletionCandidate{}
	for _, localBranch := range localBranches {
		if localBranch.IsCurrent || localBranch.Name == currentBranchName {
			continue
		}
		if localBranch.Name == protectedMainBranchNameConstant || localBranch.Name == protectedMasterBranchNameConstant {
			continue
		}
		if localBranch.Tracking == nil {
			continue
		}
		if !localBranch.RemoteGone() {
			continue
		}

		commitTimestamp, timestampError := classifier.inspector.LastCommitTimestamp(executionContext, localBranch.Name)
		if timestampError != nil {
			return nil, timestampError
		}

		commitTime := time.Unix(commitTimestamp, 0).UTC()
		if !commitTime.Before(stalenessCutoff) {
			continue
		}

		unpushedCount, unpushedError := classifier.inspector.UnpushedCommitCount(executionContext, localBranch.Name, mainBranchName)
		if unpushedError != nil {
			return nil, unpushedError
		}

		deletionCandidates = append(deletionCandidates, DeletionCandidate{
			Branch:              localBranch,
			Reason:              SafetyReasonRemoteGoneAndStale,
			AgeSeconds:          currentTime.Unix() - commitTimestamp,
			UnpushedCommitCount: unpushedCount,
		})
	}

	sort.Slice(deletionCandidates, func(firstIndex int, secondIndex int) bool {
		return deletionCandidates[firstIndex].Branch.Name < deletionCandidates[secondIndex].Branch.Name
	})

	if len(deletionCandidates) > classifier.configuration.CandidateLimit {
		deletionCandidates = deletionCandidates[:classifier.configuration.CandidateLimit]
	}

	return deletionCandidates, nil
}
