package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/trunk/internal/gitrepo"
)

const (
	currentBranchCaseNameConstant    = "current_branch_with_upstream"
	goneUpstreamCaseNameConstant     = "gone_upstream"
	divergedBranchCaseNameConstant   = "ahead_and_behind_counters"
	noUpstreamCaseNameConstant       = "branch_without_upstream"
	bracketedSubjectCaseNameConstant = "subject_starting_with_bracket"
	detachedHeadCaseNameConstant     = "detached_head_skipped"
	worktreeMarkerCaseNameConstant   = "linked_worktree_marker"
	emptyListingCaseNameConstant     = "empty_listing"
	malformedLineCaseNameConstant    = "malformed_line"
	malformedCounterCaseNameConstant = "malformed_ahead_counter"
	multipleBranchesCaseNameConstant = "multiple_branches"
)

func TestParseBranchListing(testInstance *testing.T) {
	testCases := []struct {
		name             string
		listingOutput    string
		expectedBranches []gitrepo.Branch
		expectError      bool
	}{
		{
			name:          currentBranchCaseNameConstant,
			listingOutput: "* main 1a2b3c4 [origin/main] Add release notes\n",
			expectedBranches: []gitrepo.Branch{
				{
					Name:      "main",
					Hash:      "1a2b3c4",
					IsCurrent: true,
					Tracking:  &gitrepo.BranchTracking{Upstream: "origin/main"},
					Subject:   "Add release notes",
				},
			},
		},
		{
			name:          goneUpstreamCaseNameConstant,
			listingOutput: "  feature-login 5d6e7f8 [origin/feature-login: gone] Implement login form\n",
			expectedBranches: []gitrepo.Branch{
				{
					Name:     "feature-login",
					Hash:     "5d6e7f8",
					Tracking: &gitrepo.BranchTracking{Upstream: "origin/feature-login", Gone: true},
					Subject:  "Implement login form",
				},
			},
		},
		{
			name:          divergedBranchCaseNameConstant,
			listingOutput: "  diverged 9a8b7c6 [origin/diverged: ahead 2, behind 1] Rework pagination\n",
			expectedBranches: []gitrepo.Branch{
				{
					Name:     "diverged",
					Hash:     "9a8b7c6",
					Tracking: &gitrepo.BranchTracking{Upstream: "origin/diverged", AheadCount: 2, BehindCount: 1},
					Subject:  "Rework pagination",
				},
			},
		},
		{
			name:          noUpstreamCaseNameConstant,
			listingOutput: "  local-only abc1234 Local experiments\n",
			expectedBranches: []gitrepo.Branch{
				{Name: "local-only", Hash: "abc1234", Subject: "Local experiments"},
			},
		},
		{
			name:          bracketedSubjectCaseNameConstant,
			listingOutput: "  wip-notes def5678 [WIP] fix parser edge case\n",
			expectedBranches: []gitrepo.Branch{
				{Name: "wip-notes", Hash: "def5678", Subject: "[WIP] fix parser edge case"},
			},
		},
		{
			name:          detachedHeadCaseNameConstant,
			listingOutput: "* (HEAD detached at 1a2b3c4) 1a2b3c4 Temporary checkout\n  main 1a2b3c4 [origin/main] Add release notes\n",
			expectedBranches: []gitrepo.Branch{
				{
					Name:     "main",
					Hash:     "1a2b3c4",
					Tracking: &gitrepo.BranchTracking{Upstream: "origin/main"},
					Subject:  "Add release notes",
				},
			},
		},
		{
			name:          worktreeMarkerCaseNameConstant,
			listingOutput: "+ hotfix 0f1e2d3 [origin/hotfix] Patch CVE\n",
			expectedBranches: []gitrepo.Branch{
				{
					Name:     "hotfix",
					Hash:     "0f1e2d3",
					Tracking: &gitrepo.BranchTracking{Upstream: "origin/hotfix"},
					Subject:  "Patch CVE",
				},
			},
		},
		{
			name:             emptyListingCaseNameConstant,
			listingOutput:    "\n\n",
			expectedBranches: []gitrepo.Branch{},
		},
		{
			name:          malformedLineCaseNameConstant,
			listingOutput: "  loneword\n",
			expectError:   true,
		},
		{
			name:          malformedCounterCaseNameConstant,
			listingOutput: "  broken 1234567 [origin/broken: ahead two] Subject\n",
			expectError:   true,
		},
		{
			name: multipleBranchesCaseNameConstant,
			listingOutput: "* main 1a2b3c4 [origin/main] Add release notes\n" +
				"  feature-a 2b3c4d5 [origin/feature-a: gone] Feature A\n" +
				"  feature-b 3c4d5e6 Feature B without upstream\n",
			expectedBranches: []gitrepo.Branch{
				{
					Name:      "main",
					Hash:      "1a2b3c4",
					IsCurrent: true,
					Tracking:  &gitrepo.BranchTracking{Upstream: "origin/main"},
					Subject:   "Add release notes",
				},
				{
					Name:     "feature-a",
					Hash:     "2b3c4d5",
					Tracking: &gitrepo.BranchTracking{Upstream: "origin/feature-a", Gone: true},
					Subject:  "Feature A",
				},
				{Name: "feature-b", Hash: "3c4d5e6", Subject: "Feature B without upstream"},
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			parsedBranches, parseError := gitrepo.ParseBranchListing(testCase.listingOutput)

			if testCase.expectError {
				require.Error(subtestInstance, parseError)
				return
			}

			require.NoError(subtestInstance, parseError)
			require.Equal(subtestInstance, testCase.expectedBranches, parsedBranches)
		})
	}
}

func TestBranchRemoteGone(testInstance *testing.T) {
	testCases := []struct {
		name         string
		branch       gitrepo.Branch
		expectedGone bool
	}{
		{
			name:         "no_tracking",
			branch:       gitrepo.Branch{Name: "local-only"},
			expectedGone: false,
		},
		{
			name:         "tracking_alive",
			branch:       gitrepo.Branch{Name: "alive", Tracking: &gitrepo.BranchTracking{Upstream: "origin/alive"}},
			expectedGone: false,
		},
		{
			name:         "tracking_gone",
			branch:       gitrepo.Branch{Name: "stale", Tracking: &gitrepo.BranchTracking{Upstream: "origin/stale", Gone: true}},
			expectedGone: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			require.Equal(subtestInstance, testCase.expectedGone, testCase.branch.RemoteGone())
		})
	}
}
