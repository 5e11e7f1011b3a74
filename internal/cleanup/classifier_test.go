package cleanup_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/trunk/internal/cleanup"
	"github.com/temirov/trunk/internal/gitrepo"
)

const (
	mainBranchNameConstant   = "main"
	remoteNameConstant       = "origin"
	mergedBranchNameConstant = "feature-merged"
	squashedBranchName       = "feature-squashed"
	aheadBranchNameConstant  = "feature-ahead"
)

type stubRepositoryInspector struct {
	mergedBranchNames []string
	branchTreeHashes  map[string]string
	localBranches     []gitrepo.Branch
	commitTimestamps  map[string]int64
	unpushedCounts    map[string]int
	currentBranchName string
	prunedRemoteNames []string
}

func (inspector *stubRepositoryInspector) MergedBranches(context.Context, string) ([]string, error) {
	return inspector.mergedBranchNames, nil
}

func (inspector *stubRepositoryInspector) BranchTree(_ context.Context, branchName string) (string, error) {
	return inspector.branchTreeHashes[branchName], nil
}

func (inspector *stubRepositoryInspector) ListLocalBranches(context.Context) ([]gitrepo.Branch, error) {
	return inspector.localBranches, nil
}

func (inspector *stubRepositoryInspector) LastCommitTimestamp(_ context.Context, branchName string) (int64, error) {
	return inspector.commitTimestamps[branchName], nil
}

func (inspector *stubRepositoryInspector) UnpushedCommitCount(_ context.Context, branchName string, _ string) (int, error) {
	return inspector.unpushedCounts[branchName], nil
}

func (inspector *stubRepositoryInspector) PruneRemote(_ context.Context, remoteName string) error {
	inspector.prunedRemoteNames = append(inspector.prunedRemoteNames, remoteName)
	return nil
}

func (inspector *stubRepositoryInspector) CurrentBranch(context.Context) (string, error) {
	return inspector.currentBranchName, nil
}

type fixedClock struct {
	currentTime time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.currentTime
}

func TestNewClassifierRequiresInspector(testInstance *testing.T) {
	classifier, creationError := cleanup.NewClassifier(nil, cleanup.SystemClock{}, cleanup.ClassifierConfiguration{})
	require.Nil(testInstance, classifier)
	require.ErrorIs(testInstance, creationError, cleanup.ErrInspectorNotConfigured)
}

func TestClassifyDeletion(testInstance *testing.T) {
	testCases := []struct {
		name               string
		branchName         string
		mergedBranchNames  []string
		branchTreeHashes   map[string]string
		expectedAssessment cleanup.DeletionAssessment
	}{
		{
			name:              "fully_merged_branch",
			branchName:        mergedBranchNameConstant,
			mergedBranchNames: []string{mainBranchNameConstant, mergedBranchNameConstant},
			expectedAssessment: cleanup.DeletionAssessment{
				Safe:   true,
				Reason: cleanup.SafetyReasonFullyMerged,
			},
		},
		{
			name:       "squash_merged_identical_tree",
			branchName: squashedBranchName,
			branchTreeHashes: map[string]string{
				squashedBranchName:     "tree-hash-equal",
				mainBranchNameConstant: "tree-hash-equal",
			},
			expectedAssessment: cleanup.DeletionAssessment{
				Safe:   true,
				Reason: cleanup.SafetyReasonIdenticalTree,
			},
		},
		{
			name:       "branch_with_unique_commits",
			branchName: aheadBranchNameConstant,
			branchTreeHashes: map[string]string{
				aheadBranchNameConstant: "tree-hash-branch",
				mainBranchNameConstant:  "tree-hash-main",
			},
			expectedAssessment: cleanup.DeletionAssessment{
				Safe:   false,
				Reason: cleanup.SafetyReasonUniqueCommits,
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			inspector := &stubRepositoryInspector{
				mergedBranchNames: testCase.mergedBranchNames,
				branchTreeHashes:  testCase.branchTreeHashes,
			}
			classifier, creationError := cleanup.NewClassifier(inspector, cleanup.SystemClock{}, cleanup.ClassifierConfiguration{})
			require.NoError(subtestInstance, creationError)

			assessment, assessmentError := classifier.ClassifyDeletion(context.Background(), testCase.branchName, mainBranchNameConstant)

			require.NoError(subtestInstance, assessmentError)
			require.Equal(subtestInstance, testCase.expectedAssessment, assessment)
		})
	}
}
