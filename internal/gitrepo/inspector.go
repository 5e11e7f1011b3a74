package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/trunk/internal/execshell"
)

const (
	gitRemoteSubcommandConstant             = "remote"
	gitRemotePruneSubcommandConstant        = "prune"
	gitRevParseSubcommandConstant           = "rev-parse"
	gitInsideWorkTreeFlagConstant           = "--is-inside-work-tree"
	gitShowTopLevelFlagConstant             = "--show-toplevel"
	gitVerifyFlagConstant                   = "--verify"
	gitQuietFlagConstant                    = "--quiet"
	gitBranchSubcommandConstant             = "branch"
	gitShowCurrentFlagConstant              = "--show-current"
	gitVerboseTrackingFlagConstant          = "-vv"
	gitNoColorFlagConstant                  = "--no-color"
	gitMergedFlagConstant                   = "--merged"
	gitFormatFlagConstant                   = "--format"
	gitRefNameShortFormatConstant           = "%(refname:short)"
	gitForceDeleteFlagConstant              = "-D"
	gitStatusSubcommandConstant             = "status"
	gitPorcelainFlagConstant                = "--porcelain"
	gitCheckoutSubcommandConstant           = "checkout"
	gitNewBranchFlagConstant                = "-b"
	gitTrackFlagConstant                    = "--track"
	gitFetchSubcommandConstant              = "fetch"
	gitPruneFlagConstant                    = "--prune"
	gitPullSubcommandConstant               = "pull"
	gitFastForwardOnlyFlagConstant          = "--ff-only"
	gitMergeBaseSubcommandConstant          = "merge-base"
	gitLogSubcommandConstant                = "log"
	gitSingleCommitFlagConstant             = "-1"
	gitCommitTimestampFormatConstant        = "--format=%ct"
	gitRevListSubcommandConstant            = "rev-list"
	gitCountFlagConstant                    = "--count"
	gitLSRemoteSubcommandConstant           = "ls-remote"
	gitHeadsFlagConstant                    = "--heads"
	gitAddSubcommandConstant                = "add"
	gitAllFlagConstant                      = "--all"
	gitResetSubcommandConstant              = "reset"
	gitHardFlagConstant                     = "--hard"
	localBranchReferencePrefixConstant      = "refs/heads/"
	commitRangeTemplateConstant             = "%s..%s"
	pullUpToDateOutputFragmentConstant      = "Already up to date"
	pullNoTrackingOutputFragmentConstant    = "no tracking information"
	conventionalMainBranchNameConstant      = "main"
	conventionalMasterBranchNameConstant    = "master"
	statusPorcelainPathOffsetConstant       = 3
)

const (
	gitTerminalPromptEnvironmentNameConstant = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledValueConstant   = "0"
)

const (
	noRemoteMessageConstant                 = "repository has no configured remote"
	notARepositoryMessageConstant           = "current directory is not a git repository"
	gitExecutorMissingMessageConstant       = "git executor not configured"
	workingDirectoryRequiredMessageConstant = "working directory must be provided"
	timestampParseErrorTemplateConstant     = "failed to parse commit timestamp for %q: %w"
	commitCountParseErrorTemplateConstant   = "failed to parse commit count for %q: %w"
	branchListingFailureTemplateConstant    = "failed to list local branches: %w"
)

// ErrNoRemote indicates the repository has no configured remote.
var ErrNoRemote = errors.New(noRemoteMessageConstant)

// ErrNotARepository indicates the working directory is not inside a git repository.
var ErrNotARepository = errors.New(notARepositoryMessageConstant)

// ErrGitExecutorNotConfigured indicates the inspector was built without an executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrWorkingDirectoryRequired indicates the inspector configuration omitted a working directory.
var ErrWorkingDirectoryRequired = errors.New(workingDirectoryRequiredMessageConstant)

// GitExecutor exposes the subset of shell execution used by the inspector.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// InspectorConfiguration carries explicit settings for repository inspection;
// there are no ambient toggles.
type InspectorConfiguration struct {
	WorkingDirectory       string
	DisableTerminalPrompts bool
}

// WorktreeStatus reports working tree cleanliness and the affected paths.
type WorktreeStatus struct {
	Dirty bool
	Files []string
}

// PullOutcome reports the observable results of a pull.
type PullOutcome struct {
	UpToDate        bool
	TrackingMissing bool
}

// Inspector answers git-specific questions and performs git mutations for a
// single repository through a shell executor.
type Inspector struct {
	executor      GitExecutor
	configuration InspectorConfiguration
}

// NewInspector validates dependencies and constructs an Inspector.
func NewInspector(executor GitExecutor, configuration InspectorConfiguration) (*Inspector, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if len(strings.TrimSpace(configuration.WorkingDirectory)) == 0 {
		return nil, ErrWorkingDirectoryRequired
	}
	return &Inspector{executor: executor, configuration: configuration}, nil
}

// EnsureRepository verifies the working directory is inside a git work tree.
func (inspector *Inspector) EnsureRepository(executionContext context.Context) error {
	_, executionError := inspector.executeGit(executionContext, gitRevParseSubcommandConstant, gitInsideWorkTreeFlagConstant)
	if executionError != nil {
		return ErrNotARepository
	}
	return nil
}

// DefaultRemote returns the first configured remote name.
func (inspector *Inspector) DefaultRemote(executionContext context.Context) (string, error) {
	executionResult, executionError := inspector.executeGit(executionContext, gitRemoteSubcommandConstant)
	if executionError != nil {
		return "", executionError
	}

	remoteNames := splitNonEmptyLines(executionResult.StandardOutput)
	if len(remoteNames) == 0 {
		return "", ErrNoRemote
	}
	return strings.TrimSpace(remoteNames[0]), nil
}

// RepositoryRoot resolves the absolute path of the repository top level.
func (inspector *Inspector) RepositoryRoot(executionContext context.Context) (string, error) {
	executionResult, executionError := inspector.executeGit(executionContext, gitRevParseSubcommandConstant, gitShowTopLevelFlagConstant)
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// ResolveMainBranch returns the explicit name when provided; otherwise it
// probes for a local branch literally named main, falling back to master.
// No other heuristics are applied.
func (inspector *Inspector) ResolveMainBranch(executionContext context.Context, explicitName string) (string, error) {
	trimmedExplicitName := strings.TrimSpace(explicitName)
	if len(trimmedExplicitName) > 0 {
		return trimmedExplicitName, nil
	}

	mainExists, existenceError := inspector.BranchExistsLocally(executionContext, conventionalMainBranchNameConstant)
	if existenceError != nil {
		return "", existenceError
	}
	if mainExists {
		return conventionalMainBranchNameConstant, nil
	}
	return conventionalMasterBranchNameConstant, nil
}

// CurrentBranch returns the checked out branch name; empty for detached HEAD.
func (inspector *Inspector) CurrentBranch(executionContext context.Context) (string, error) {
	executionResult, executionError := inspector.executeGit(executionContext, gitBranchSubcommandConstant, gitShowCurrentFlagConstant)
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// Status reports worktree cleanliness with the ordered list of touched paths.
func (inspector *Inspector) Status(executionContext context.Context) (WorktreeStatus, error) {
	executionResult, executionError := inspector.executeGit(executionContext, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if executionError != nil {
		return WorktreeStatus{}, executionError
	}

	statusFiles := []string{}
	for _, statusLine := range splitNonEmptyLines(executionResult.StandardOutput) {
		if len(statusLine) > statusPorcelainPathOffsetConstant {
			statusFiles = append(statusFiles, statusLine[statusPorcelainPathOffsetConstant:])
			continue
		}
		statusFiles = append(statusFiles, strings.TrimSpace(statusLine))
	}

	return WorktreeStatus{Dirty: len(statusFiles) > 0, Files: statusFiles}, nil
}

// BranchTree resolves the working tree hash of the named branch.
func (inspector *Inspector) BranchTree(executionContext context.Context, branchName string) (string, error) {
	treeReference := branchName + "^{tree}"
	executionResult, executionError := inspector.executeGit(executionContext, gitRevParseSubcommandConstant, treeReference)
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// MergeBase resolves the best common ancestor of two references.
func (inspector *Inspector) MergeBase(executionContext context.Context, firstReference string, secondReference string) (string, error) {
	executionResult, executionError := inspector.executeGit(executionContext, gitMergeBaseSubcommandConstant, firstReference, secondReference)
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// LastCommitTimestamp returns the unix timestamp of the branch tip commit.
func (inspector *Inspector) LastCommitTimestamp(executionContext context.Context, branchName string) (int64, error) {
	executionResult, executionError := inspector.executeGit(executionContext, gitLogSubcommandConstant, gitSingleCommitFlagConstant, gitCommitTimestampFormatConstant, branchName)
	if executionError != nil {
		return 0, executionError
	}

	commitTimestamp, parseError := strconv.ParseInt(strings.TrimSpace(executionResult.StandardOutput), 10, 64)
	if parseError != nil {
		return 0, fmt.Errorf(timestampParseErrorTemplateConstant, branchName, parseError)
	}
	return commitTimestamp, nil
}

// Fetch updates remote tracking references, pruning deleted remote branches.
func (inspector *Inspector) Fetch(executionContext context.Context) error {
	_, executionError := inspector.executeNetworkGit(executionContext, gitFetchSubcommandConstant, gitPruneFlagConstant)
	return executionError
}

// PruneRemote drops remote tracking references whose remote branch no longer exists.
func (inspector *Inspector) PruneRemote(executionContext context.Context, remoteName string) error {
	_, executionError := inspector.executeNetworkGit(executionContext, gitRemoteSubcommandConstant, gitRemotePruneSubcommandConstant, remoteName)
	return executionError
}

// Checkout switches the working tree to an existing branch.
func (inspector *Inspector) Checkout(executionContext context.Context, branchName string) error {
	_, executionError := inspector.executeGit(executionContext, gitCheckoutSubcommandConstant, branchName)
	return executionError
}

// CheckoutNewTracking creates a branch tracking the provided remote reference.
func (inspector *Inspector) CheckoutNewTracking(executionContext context.Context, branchName string, remoteReference string) error {
	_, executionError := inspector.executeGit(executionContext, gitCheckoutSubcommandConstant, gitNewBranchFlagConstant, branchName, gitTrackFlagConstant, remoteReference)
	return executionError
}

// CheckoutNewFrom creates a branch from the given start point, or from HEAD
// when the start point is empty.
func (inspector *Inspector) CheckoutNewFrom(executionContext context.Context, branchName string, startPoint string) error {
	checkoutArguments := []string{gitCheckoutSubcommandConstant, gitNewBranchFlagConstant, branchName}
	trimmedStartPoint := strings.TrimSpace(startPoint)
	if len(trimmedStartPoint) > 0 {
		checkoutArguments = append(checkoutArguments, trimmedStartPoint)
	}
	_, executionError := inspector.executeGit(executionContext, checkoutArguments...)
	return executionError
}

// Pull synchronizes the current branch with its upstream. A fast-forward
// merge is attempted first; on failure a full pull runs. Missing tracking
// information is swallowed only in custom-branch mode.
func (inspector *Inspector) Pull(executionContext context.Context, customBranchMode bool) (PullOutcome, error) {
	fastForwardResult, fastForwardError := inspector.executeNetworkGit(executionContext, gitPullSubcommandConstant, gitFastForwardOnlyFlagConstant)
	if fastForwardError == nil {
		return PullOutcome{UpToDate: reportsUpToDate(fastForwardResult.StandardOutput)}, nil
	}

	if trackingMissing(fastForwardError) {
		if customBranchMode {
			return PullOutcome{TrackingMissing: true}, nil
		}
		return PullOutcome{}, fastForwardError
	}

	fullPullResult, fullPullError := inspector.executeNetworkGit(executionContext, gitPullSubcommandConstant)
	if fullPullError != nil {
		if trackingMissing(fullPullError) && customBranchMode {
			return PullOutcome{TrackingMissing: true}, nil
		}
		return PullOutcome{}, fullPullError
	}

	return PullOutcome{UpToDate: reportsUpToDate(fullPullResult.StandardOutput)}, nil
}

// ListLocalBranches enumerates local branches with their tracking annotations.
func (inspector *Inspector) ListLocalBranches(executionContext context.Context) ([]Branch, error) {
	executionResult, executionError := inspector.executeGit(executionContext, gitBranchSubcommandConstant, gitVerboseTrackingFlagConstant, gitNoColorFlagConstant)
	if executionError != nil {
		return nil, executionError
	}

	parsedBranches, parseError := ParseBranchListing(executionResult.StandardOutput)
	if parseError != nil {
		return nil, fmt.Errorf(branchListingFailureTemplateConstant, parseError)
	}
	return parsedBranches, nil
}

// MergedBranches returns the names of branches fully merged into the target branch.
func (inspector *Inspector) MergedBranches(executionContext context.Context, targetBranchName string) ([]string, error) {
	executionResult, executionError := inspector.executeGit(
		executionContext,
		gitBranchSubcommandConstant,
		gitMergedFlagConstant,
		targetBranchName,
		gitFormatFlagConstant,
		gitRefNameShortFormatConstant,
	)
	if executionError != nil {
		return nil, executionError
	}
	return splitNonEmptyLines(executionResult.StandardOutput), nil
}

// DeleteBranch force-deletes the named local branch. No merge check happens
// at the git layer; callers are responsible for safety classification.
func (inspector *Inspector) DeleteBranch(executionContext context.Context, branchName string) error {
	_, executionError := inspector.executeGit(executionContext, gitBranchSubcommandConstant, gitForceDeleteFlagConstant, branchName)
	return executionError
}

// BranchExistsLocally probes for a local branch reference.
func (inspector *Inspector) BranchExistsLocally(executionContext context.Context, branchName string) (bool, error) {
	localReference := localBranchReferencePrefixConstant + branchName
	_, executionError := inspector.executeGit(executionContext, gitRevParseSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, localReference)
	if executionError != nil {
		failedCommand := execshell.CommandFailedError{}
		if errors.As(executionError, &failedCommand) {
			return false, nil
		}
		return false, executionError
	}
	return true, nil
}

// BranchExistsOnRemote probes the remote for a branch with the given name.
func (inspector *Inspector) BranchExistsOnRemote(executionContext context.Context, remoteName string, branchName string) (bool, error) {
	remoteReference := localBranchReferencePrefixConstant + branchName
	executionResult, executionError := inspector.executeNetworkGit(executionContext, gitLSRemoteSubcommandConstant, gitHeadsFlagConstant, remoteName, remoteReference)
	if executionError != nil {
		return false, executionError
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// UnpushedCommitCount counts commits reachable from the branch but not from
// the target branch.
func (inspector *Inspector) UnpushedCommitCount(executionContext context.Context, branchName string, targetBranchName string) (int, error) {
	commitRange := fmt.Sprintf(commitRangeTemplateConstant, targetBranchName, branchName)
	executionResult, executionError := inspector.executeGit(executionContext, gitRevListSubcommandConstant, gitCountFlagConstant, commitRange)
	if executionError != nil {
		return 0, executionError
	}

	commitCount, parseError := strconv.Atoi(strings.TrimSpace(executionResult.StandardOutput))
	if parseError != nil {
		return 0, fmt.Errorf(commitCountParseErrorTemplateConstant, branchName, parseError)
	}
	return commitCount, nil
}

// StageAll stages every modification and untracked file.
func (inspector *Inspector) StageAll(executionContext context.Context) error {
	_, executionError := inspector.executeGit(executionContext, gitAddSubcommandConstant, gitAllFlagConstant)
	return executionError
}

// HardReset irreversibly discards all staged and unstaged changes.
func (inspector *Inspector) HardReset(executionContext context.Context) error {
	_, executionError := inspector.executeGit(executionContext, gitResetSubcommandConstant, gitHardFlagConstant)
	return executionError
}

func (inspector *Inspector) executeGit(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return inspector.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: inspector.configuration.WorkingDirectory,
	})
}

func (inspector *Inspector) executeNetworkGit(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: inspector.configuration.WorkingDirectory,
	}
	if inspector.configuration.DisableTerminalPrompts {
		commandDetails.EnvironmentVariables = map[string]string{
			gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptDisabledValueConstant,
		}
	}
	return inspector.executor.ExecuteGit(executionContext, commandDetails)
}

func reportsUpToDate(pullOutput string) bool {
	return strings.Contains(pullOutput, pullUpToDateOutputFragmentConstant)
}

func trackingMissing(pullError error) bool {
	failedCommand := execshell.CommandFailedError{}
	if !errors.As(pullError, &failedCommand) {
		return false
	}
	combinedOutput := failedCommand.Result.StandardError + failedCommand.Result.StandardOutput
	return strings.Contains(strings.ToLower(combinedOutput), pullNoTrackingOutputFragmentConstant)
}

func splitNonEmptyLines(commandOutput string) []string {
	outputLines := []string{}
	for _, outputLine := range strings.Split(commandOutput, "\n") {
		trimmedLine := strings.TrimRight(outputLine, "\r")
		if len(strings.TrimSpace(trimmedLine)) == 0 {
			continue
		}
		outputLines = append(outputLines, trimmedLine)
	}
	return outputLines
}
