package gitrepo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/trunk/internal/execshell"
	"github.com/temirov/trunk/internal/gitrepo"
)

const (
	testWorkingDirectoryConstant = "/tmp/repository"
	testRemoteNameConstant       = "origin"
)

type scriptedGitResponse struct {
	result         execshell.ExecutionResult
	executionError error
}

type scriptedGitExecutor struct {
	recordedDetails []execshell.CommandDetails
	responses       []scriptedGitResponse
}

func (executor *scriptedGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	if len(executor.responses) == 0 {
		return execshell.ExecutionResult{}, nil
	}
	nextResponse := executor.responses[0]
	executor.responses = executor.responses[1:]
	return nextResponse.result, nextResponse.executionError
}

func commandFailure(standardError string) error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Result:  execshell.ExecutionResult{StandardError: standardError, ExitCode: 1},
	}
}

func newTestInspector(testInstance *testing.T, executor *scriptedGitExecutor) *gitrepo.Inspector {
	testInstance.Helper()

	inspector, creationError := gitrepo.NewInspector(executor, gitrepo.InspectorConfiguration{
		WorkingDirectory:       testWorkingDirectoryConstant,
		DisableTerminalPrompts: true,
	})
	require.NoError(testInstance, creationError)
	return inspector
}

func TestNewInspectorValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		executor      gitrepo.GitExecutor
		configuration gitrepo.InspectorConfiguration
		expectedError error
	}{
		{
			name:          "missing_executor",
			executor:      nil,
			configuration: gitrepo.InspectorConfiguration{WorkingDirectory: testWorkingDirectoryConstant},
			expectedError: gitrepo.ErrGitExecutorNotConfigured,
		},
		{
			name:          "missing_working_directory",
			executor:      &scriptedGitExecutor{},
			configuration: gitrepo.InspectorConfiguration{},
			expectedError: gitrepo.ErrWorkingDirectoryRequired,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			inspector, creationError := gitrepo.NewInspector(testCase.executor, testCase.configuration)
			require.Nil(subtestInstance, inspector)
			require.ErrorIs(subtestInstance, creationError, testCase.expectedError)
		})
	}
}

func TestDefaultRemote(testInstance *testing.T) {
	testCases := []struct {
		name           string
		remoteOutput   string
		expectedRemote string
		expectedError  error
	}{
		{
			name:           "single_remote",
			remoteOutput:   "origin\n",
			expectedRemote: testRemoteNameConstant,
		},
		{
			name:           "first_remote_wins",
			remoteOutput:   "origin\nupstream\n",
			expectedRemote: testRemoteNameConstant,
		},
		{
			name:          "no_remotes",
			remoteOutput:  "\n",
			expectedError: gitrepo.ErrNoRemote,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			executor := &scriptedGitExecutor{responses: []scriptedGitResponse{
				{result: execshell.ExecutionResult{StandardOutput: testCase.remoteOutput}},
			}}
			inspector := newTestInspector(subtestInstance, executor)

			remoteName, remoteError := inspector.DefaultRemote(context.Background())

			if testCase.expectedError != nil {
				require.ErrorIs(subtestInstance, remoteError, testCase.expectedError)
				return
			}
			require.NoError(subtestInstance, remoteError)
			require.Equal(subtestInstance, testCase.expectedRemote, remoteName)
		})
	}
}

func TestResolveMainBranch(testInstance *testing.T) {
	testCases := []struct {
		name           string
		explicitName   string
		responses      []scriptedGitResponse
		expectedBranch string
	}{
		{
			name:           "explicit_name_passthrough",
			explicitName:   "release",
			expectedBranch: "release",
		},
		{
			name: "main_exists",
			responses: []scriptedGitResponse{
				{result: execshell.ExecutionResult{StandardOutput: "abc123\n"}},
			},
			expectedBranch: "main",
		},
		{
			name: "master_fallback",
			responses: []scriptedGitResponse{
				{executionError: commandFailure("")},
			},
			expectedBranch: "master",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			executor := &scriptedGitExecutor{responses: testCase.responses}
			inspector := newTestInspector(subtestInstance, executor)

			resolvedBranch, resolveError := inspector.ResolveMainBranch(context.Background(), testCase.explicitName)

			require.NoError(subtestInstance, resolveError)
			require.Equal(subtestInstance, testCase.expectedBranch, resolvedBranch)
		})
	}
}

func TestStatus(testInstance *testing.T) {
	testCases := []struct {
		name           string
		porcelainLines string
		expectedStatus gitrepo.WorktreeStatus
	}{
		{
			name:           "clean_tree",
			porcelainLines: "",
			expectedStatus: gitrepo.WorktreeStatus{Dirty: false, Files: []string{}},
		},
		{
			name:           "modified_and_untracked",
			porcelainLines: " M src/app.ts\n?? notes.md\n",
			expectedStatus: gitrepo.WorktreeStatus{Dirty: true, Files: []string{"src/app.ts", "notes.md"}},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			executor := &scriptedGitExecutor{responses: []scriptedGitResponse{
				{result: execshell.ExecutionResult{StandardOutput: testCase.porcelainLines}},
			}}
			inspector := newTestInspector(subtestInstance, executor)

			worktreeStatus, statusError := inspector.Status(context.Background())

			require.NoError(subtestInstance, statusError)
			require.Equal(subtestInstance, testCase.expectedStatus, worktreeStatus)
		})
	}
}

func TestPull(testInstance *testing.T) {
	trackingMissingMessage := "There is no tracking information for the current branch."

	testCases := []struct {
		name             string
		customBranchMode bool
		responses        []scriptedGitResponse
		expectedOutcome  gitrepo.PullOutcome
		expectError      bool
		expectedCalls    int
	}{
		{
			name: "fast_forward_up_to_date",
			responses: []scriptedGitResponse{
				{result: execshell.ExecutionResult{StandardOutput: "Already up to date.\n"}},
			},
			expectedOutcome: gitrepo.PullOutcome{UpToDate: true},
			expectedCalls:   1,
		},
		{
			name: "fast_forward_brought_commits",
			responses: []scriptedGitResponse{
				{result: execshell.ExecutionResult{StandardOutput: "Updating 1a2b3c4..5d6e7f8\nFast-forward\n"}},
			},
			expectedOutcome: gitrepo.PullOutcome{UpToDate: false},
			expectedCalls:   1,
		},
		{
			name: "fallback_full_pull",
			responses: []scriptedGitResponse{
				{executionError: commandFailure("fatal: Not possible to fast-forward, aborting.")},
				{result: execshell.ExecutionResult{StandardOutput: "Merge made by the 'ort' strategy.\n"}},
			},
			expectedOutcome: gitrepo.PullOutcome{UpToDate: false},
			expectedCalls:   2,
		},
		{
			name:             "tracking_missing_custom_branch",
			customBranchMode: true,
			responses: []scriptedGitResponse{
				{executionError: commandFailure(trackingMissingMessage)},
			},
			expectedOutcome: gitrepo.PullOutcome{TrackingMissing: true},
			expectedCalls:   1,
		},
		{
			name: "tracking_missing_main_branch",
			responses: []scriptedGitResponse{
				{executionError: commandFailure(trackingMissingMessage)},
			},
			expectError:   true,
			expectedCalls: 1,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			executor := &scriptedGitExecutor{responses: testCase.responses}
			inspector := newTestInspector(subtestInstance, executor)

			pullOutcome, pullError := inspector.Pull(context.Background(), testCase.customBranchMode)

			require.Len(subtestInstance, executor.recordedDetails, testCase.expectedCalls)
			if testCase.expectError {
				require.Error(subtestInstance, pullError)
				return
			}
			require.NoError(subtestInstance, pullError)
			require.Equal(subtestInstance, testCase.expectedOutcome, pullOutcome)
		})
	}
}

func TestBranchExistsLocally(testInstance *testing.T) {
	testCases := []struct {
		name           string
		responses      []scriptedGitResponse
		expectedExists bool
	}{
		{
			name: "branch_present",
			responses: []scriptedGitResponse{
				{result: execshell.ExecutionResult{StandardOutput: "abc123\n"}},
			},
			expectedExists: true,
		},
		{
			name: "branch_absent",
			responses: []scriptedGitResponse{
				{executionError: commandFailure("")},
			},
			expectedExists: false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			executor := &scriptedGitExecutor{responses: testCase.responses}
			inspector := newTestInspector(subtestInstance, executor)

			branchExists, existenceError := inspector.BranchExistsLocally(context.Background(), "feature")

			require.NoError(subtestInstance, existenceError)
			require.Equal(subtestInstance, testCase.expectedExists, branchExists)
		})
	}
}

func TestNetworkOperationsDisableTerminalPrompts(testInstance *testing.T) {
	executor := &scriptedGitExecutor{}
	inspector := newTestInspector(testInstance, executor)

	require.NoError(testInstance, inspector.Fetch(context.Background()))

	require.Len(testInstance, executor.recordedDetails, 1)
	recordedDetails := executor.recordedDetails[0]
	require.Equal(testInstance, []string{"fetch", "--prune"}, recordedDetails.Arguments)
	require.Equal(testInstance, testWorkingDirectoryConstant, recordedDetails.WorkingDirectory)
	require.Equal(testInstance, "0", recordedDetails.EnvironmentVariables["GIT_TERMINAL_PROMPT"])
}

func TestLocalOperationsOmitEnvironmentOverrides(testInstance *testing.T) {
	executor := &scriptedGitExecutor{responses: []scriptedGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: "main\n"}},
	}}
	inspector := newTestInspector(testInstance, executor)

	currentBranch, currentBranchError := inspector.CurrentBranch(context.Background())

	require.NoError(testInstance, currentBranchError)
	require.Equal(testInstance, "main", currentBranch)
	require.Len(testInstance, executor.recordedDetails, 1)
	require.Empty(testInstance, executor.recordedDetails[0].EnvironmentVariables)
	require.Equal(testInstance, []string{"branch", "--show-current"}, executor.recordedDetails[0].Arguments)
}

func TestUnpushedCommitCount(testInstance *testing.T) {
	executor := &scriptedGitExecutor{responses: []scriptedGitResponse{
		{result: execshell.ExecutionResult{StandardOutput: "3\n"}},
	}}
	inspector := newTestInspector(testInstance, executor)

	commitCount, countError := inspector.UnpushedCommitCount(context.Background(), "feature", "main")

	require.NoError(testInstance, countError)
	require.Equal(testInstance, 3, commitCount)
	require.Equal(testInstance, []string{"rev-list", "--count", "main..feature"}, executor.recordedDetails[0].Arguments)
}
