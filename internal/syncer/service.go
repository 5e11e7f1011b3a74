package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/trunk/internal/cleanup"
	"github.com/temirov/trunk/internal/deps"
	"github.com/temirov/trunk/internal/gitrepo"
	"github.com/temirov/trunk/internal/prompt"
)

const (
	loggerMissingMessageConstant          = "logger not configured"
	inspectorMissingMessageConstant       = "repository inspector not configured"
	classifierMissingMessageConstant      = "safety classifier not configured"
	lockfileManagerMissingMessageConstant = "lockfile manager not configured"
	prompterMissingMessageConstant        = "confirmation prompter not configured"
	userDeclinedMessageConstant           = "confirmation declined"
	worktreeNotCleanMessageConstant       = "working tree is not clean on a non-main branch"

	remoteResolutionFailureTemplateConstant = "failed to resolve default remote: %w"
	rootResolutionFailureTemplateConstant   = "failed to resolve repository root: %w"
	fetchFailureTemplateConstant            = "failed to fetch updates: %w"
	statusFailureTemplateConstant           = "failed to inspect working tree: %w"
	checkoutFailureTemplateConstant         = "failed to switch to branch %q: %w"
	pullFailureTemplateConstant             = "failed to pull latest changes: %w"
	revertFailureTemplateConstant           = "failed to revert local changes: %w"
	snapshotFailureTemplateConstant         = "failed to snapshot lockfile: %w"
	installFailureTemplateConstant          = "failed to reinstall dependencies: %w"
	deletionFailureTemplateConstant         = "failed to delete branch %q: %w"

	createBranchPromptTemplateConstant  = "Branch %q does not exist locally or on %q. Create it?"
	revertPromptMessageConstant         = "Revert all local changes?"
	staleDeletionPromptTemplateConstant = "Delete %d %s with deleted remotes?"

	dirtyFileLogMessageConstant      = "working tree contains changes"
	logFieldFileConstant             = "file"
	logFieldBranchConstant           = "branch"
	logFieldReasonConstant           = "reason"
	logFieldAgeDaysConstant          = "age_days"
	logFieldUnpushedCommitsConstant  = "unpushed_commits"
	logFieldPackageManagerConstant   = "package_manager"
	branchDeletedLogMessageConstant  = "deleted merged branch"
	branchSkippedLogMessageConstant  = "kept branch"
	staleCandidateLogMessageConstant = "stale branch candidate"
	staleDeclinedLogMessageConstant  = "stale branch deletion declined"
	noStaleBranchesMessageConstant   = "No branches with deleted remotes found"
	deletedSummaryTemplateConstant   = "Deleted %d %s"
	dryRunDeletionLogMessageConstant = "dry-run: would delete branch"
	dryRunInstallLogMessageConstant  = "dry-run: would reinstall dependencies"
	reinstallLogMessageConstant      = "lockfile changed, reinstalling dependencies"
	upToDateLogMessageConstant       = "branch already up to date, skipping merged branch cleanup"
	pullSkippedLogMessageConstant    = "skipping pull for newly created branch with carried changes"

	branchWordSingularConstant      = "branch"
	branchWordPluralConstant        = "branches"
	remoteReferenceTemplateConstant = "%s/%s"
	protectedMainNameConstant       = "main"
	protectedMasterNameConstant     = "master"
	secondsPerDayConstant           = 86400
)

// ErrUserDeclined indicates the user answered a required confirmation negatively.
var ErrUserDeclined = errors.New(userDeclinedMessageConstant)

// ErrWorktreeNotClean indicates uncommitted changes on a branch the tool refuses to revert.
var ErrWorktreeNotClean = errors.New(worktreeNotCleanMessageConstant)

// Dependency validation errors.
var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerMissingMessageConstant)
	// ErrInspectorNotConfigured indicates the repository inspector dependency was missing.
	ErrInspectorNotConfigured = errors.New(inspectorMissingMessageConstant)
	// ErrClassifierNotConfigured indicates the safety classifier dependency was missing.
	ErrClassifierNotConfigured = errors.New(classifierMissingMessageConstant)
	// ErrLockfileManagerNotConfigured indicates the lockfile manager dependency was missing.
	ErrLockfileManagerNotConfigured = errors.New(lockfileManagerMissingMessageConstant)
	// ErrPrompterNotConfigured indicates the confirmation prompter dependency was missing.
	ErrPrompterNotConfigured = errors.New(prompterMissingMessageConstant)
)

// RepositoryInspector enumerates the git operations the orchestrator sequences.
type RepositoryInspector interface {
	EnsureRepository(executionContext context.Context) error
	DefaultRemote(executionContext context.Context) (string, error)
	RepositoryRoot(executionContext context.Context) (string, error)
	ResolveMainBranch(executionContext context.Context, explicitName string) (string, error)
	CurrentBranch(executionContext context.Context) (string, error)
	Status(executionContext context.Context) (gitrepo.WorktreeStatus, error)
	Fetch(executionContext context.Context) error
	Checkout(executionContext context.Context, branchName string) error
	CheckoutNewTracking(executionContext context.Context, branchName string, remoteReference string) error
	CheckoutNewFrom(executionContext context.Context, branchName string, startPoint string) error
	Pull(executionContext context.Context, customBranchMode bool) (gitrepo.PullOutcome, error)
	ListLocalBranches(executionContext context.Context) ([]gitrepo.Branch, error)
	DeleteBranch(executionContext context.Context, branchName string) error
	BranchExistsLocally(executionContext context.Context, branchName string) (bool, error)
	BranchExistsOnRemote(executionContext context.Context, remoteName string, branchName string) (bool, error)
	StageAll(executionContext context.Context) error
	HardReset(executionContext context.Context) error
}

// SafetyClassifier decides branch deletion safety and staleness.
type SafetyClassifier interface {
	ClassifyDeletion(executionContext context.Context, branchName string, mainBranchName string) (cleanup.DeletionAssessment, error)
	FindStaleBranches(executionContext context.Context, mainBranchName string, remoteName string) ([]cleanup.DeletionCandidate, error)
}

// LockfileManager snapshots lockfiles and reinstalls dependencies.
type LockfileManager interface {
	Snapshot(repositoryRoot string) (deps.LockfileSnapshot, error)
	Install(executionContext context.Context, packageManagerKind deps.PackageManagerKind, repositoryRoot string) error
}

// Dependencies enumerates the collaborators required by the orchestrator.
type Dependencies struct {
	Logger          *zap.Logger
	Inspector       RepositoryInspector
	Classifier      SafetyClassifier
	LockfileManager LockfileManager
	Prompter        prompt.ConfirmationPrompter
}

// Options configures a single synchronization run.
type Options struct {
	BranchName string
	RemoteName string
	DryRun     bool
	AssumeYes  bool
}

// Result captures the observable outcomes of a synchronization run.
type Result struct {
	MainBranch            string
	BranchCreated         bool
	DeletedMergedBranches []string
	DeletedStaleBranches  []string
	ReinstalledWith       deps.PackageManagerKind
}

// switchPlan describes how the branch switch step will mutate the repository.
type switchPlan int

const (
	switchToExisting switchPlan = iota
	switchToLocalBranch
	switchTrackingRemote
	switchCreateNew
)

// Service sequences repository inspection, safety classification, prompting,
// and mutation into the full synchronization workflow.
type Service struct {
	logger          *zap.Logger
	inspector       RepositoryInspector
	classifier      SafetyClassifier
	lockfileManager LockfileManager
	prompter        prompt.ConfirmationPrompter
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Inspector == nil {
		return nil, ErrInspectorNotConfigured
	}
	if dependencies.Classifier == nil {
		return nil, ErrClassifierNotConfigured
	}
	if dependencies.LockfileManager == nil {
		return nil, ErrLockfileManagerNotConfigured
	}
	if dependencies.Prompter == nil {
		return nil, ErrPrompterNotConfigured
	}
	return &Service{
		logger:          dependencies.Logger,
		inspector:       dependencies.Inspector,
		classifier:      dependencies.Classifier,
		lockfileManager: dependencies.LockfileManager,
		prompter:        dependencies.Prompter,
	}, nil
}

// Run executes the synchronization workflow. Decisions are always made on
// freshly queried repository state; no state captured before a mutation is
// reused afterwards.
func (service *Service) Run(executionContext context.Context, options Options) (Result, error) {
	if repositoryError := service.inspector.EnsureRepository(executionContext); repositoryError != nil {
		return Result{}, repositoryError
	}

	remoteName, repositoryRoot, environmentError := service.resolveEnvironment(executionContext, options)
	if environmentError != nil {
		return Result{}, environmentError
	}

	if fetchError := service.inspector.Fetch(executionContext); fetchError != nil {
		return Result{}, fmt.Errorf(fetchFailureTemplateConstant, fetchError)
	}

	explicitBranchName := strings.TrimSpace(options.BranchName)
	customBranchMode := len(explicitBranchName) > 0

	mainBranchName, resolveError := service.inspector.ResolveMainBranch(executionContext, explicitBranchName)
	if resolveError != nil {
		return Result{}, resolveError
	}

	currentBranchName, currentBranchError := service.inspector.CurrentBranch(executionContext)
	if currentBranchError != nil {
		return Result{}, currentBranchError
	}

	plan, planError := service.planBranchSwitch(executionContext, options, customBranchMode, mainBranchName, remoteName)
	if planError != nil {
		return Result{}, planError
	}

	worktreeStatus, statusError := service.inspector.Status(executionContext)
	if statusError != nil {
		return Result{}, fmt.Errorf(statusFailureTemplateConstant, statusError)
	}

	creatingNewBranch := plan == switchCreateNew
	carriedDirtyState := false
	if worktreeStatus.Dirty {
		if creatingNewBranch {
			carriedDirtyState = true
		} else if currentBranchName == mainBranchName {
			if revertError := service.revertWithConfirmation(executionContext, options, worktreeStatus); revertError != nil {
				return Result{}, revertError
			}
		} else {
			return Result{}, ErrWorktreeNotClean
		}
	}

	lockfileBefore, lockfileBeforeError := service.lockfileManager.Snapshot(repositoryRoot)
	if lockfileBeforeError != nil {
		return Result{}, fmt.Errorf(snapshotFailureTemplateConstant, lockfileBeforeError)
	}

	if switchError := service.switchBranch(executionContext, plan, mainBranchName, currentBranchName, remoteName); switchError != nil {
		return Result{}, switchError
	}

	runResult := Result{MainBranch: mainBranchName, BranchCreated: creatingNewBranch}

	pullOutcome := gitrepo.PullOutcome{UpToDate: true}
	if creatingNewBranch && carriedDirtyState {
		service.logger.Info(pullSkippedLogMessageConstant, zap.String(logFieldBranchConstant, mainBranchName))
	} else {
		var pullError error
		pullOutcome, pullError = service.inspector.Pull(executionContext, customBranchMode)
		if pullError != nil {
			return Result{}, fmt.Errorf(pullFailureTemplateConstant, pullError)
		}
	}

	if !customBranchMode {
		deletedMerged, mergedCleanupError := service.cleanupMergedBranches(executionContext, options, pullOutcome, mainBranchName)
		if mergedCleanupError != nil {
			return Result{}, mergedCleanupError
		}
		runResult.DeletedMergedBranches = deletedMerged

		deletedStale, staleCleanupError := service.cleanupStaleBranches(executionContext, options, mainBranchName, remoteName)
		if staleCleanupError != nil {
			return Result{}, staleCleanupError
		}
		runResult.DeletedStaleBranches = deletedStale
	}

	reinstalledWith, dependencyError := service.synchronizeDependencies(executionContext, options, repositoryRoot, lockfileBefore)
	if dependencyError != nil {
		return Result{}, dependencyError
	}
	runResult.ReinstalledWith = reinstalledWith

	return runResult, nil
}

// resolveEnvironment resolves the default remote and the repository root. A
// configured remote name bypasses the remote query. Both queries are
// read-only and independent, so they run concurrently.
func (service *Service) resolveEnvironment(executionContext context.Context, options Options) (string, string, error) {
	remoteName := strings.TrimSpace(options.RemoteName)
	var remoteError error
	var repositoryRoot string
	var rootError error

	var queries sync.WaitGroup
	queries.Add(2)
	go func() {
		defer queries.Done()
		if len(remoteName) > 0 {
			return
		}
		remoteName, remoteError = service.inspector.DefaultRemote(executionContext)
	}()
	go func() {
		defer queries.Done()
		repositoryRoot, rootError = service.inspector.RepositoryRoot(executionContext)
	}()
	queries.Wait()

	if remoteError != nil {
		if errors.Is(remoteError, gitrepo.ErrNoRemote) {
			return "", "", remoteError
		}
		return "", "", fmt.Errorf(remoteResolutionFailureTemplateConstant, remoteError)
	}
	if rootError != nil {
		return "", "", fmt.Errorf(rootResolutionFailureTemplateConstant, rootError)
	}
	return remoteName, repositoryRoot, nil
}

func (service *Service) planBranchSwitch(executionContext context.Context, options Options, customBranchMode bool, targetBranchName string, remoteName string) (switchPlan, error) {
	if !customBranchMode {
		return switchToExisting, nil
	}

	existsLocally, localExistenceError := service.inspector.BranchExistsLocally(executionContext, targetBranchName)
	if localExistenceError != nil {
		return switchToExisting, localExistenceError
	}
	if existsLocally {
		return switchToLocalBranch, nil
	}

	existsOnRemote, remoteExistenceError := service.inspector.BranchExistsOnRemote(executionContext, remoteName, targetBranchName)
	if remoteExistenceError != nil {
		return switchToExisting, remoteExistenceError
	}
	if existsOnRemote {
		return switchTrackingRemote, nil
	}

	creationPrompt := fmt.Sprintf(createBranchPromptTemplateConstant, targetBranchName, remoteName)
	creationConfirmed, confirmationError := service.confirm(options, creationPrompt)
	if confirmationError != nil {
		return switchToExisting, confirmationError
	}
	if !creationConfirmed {
		return switchToExisting, ErrUserDeclined
	}
	return switchCreateNew, nil
}

func (service *Service) revertWithConfirmation(executionContext context.Context, options Options, worktreeStatus gitrepo.WorktreeStatus) error {
	for _, touchedFile := range worktreeStatus.Files {
		service.logger.Info(dirtyFileLogMessageConstant, zap.String(logFieldFileConstant, touchedFile))
	}

	revertConfirmed, confirmationError := service.confirm(options, revertPromptMessageConstant)
	if confirmationError != nil {
		return confirmationError
	}
	if !revertConfirmed {
		return ErrUserDeclined
	}

	if stageError := service.inspector.StageAll(executionContext); stageError != nil {
		return fmt.Errorf(revertFailureTemplateConstant, stageError)
	}
	if resetError := service.inspector.HardReset(executionContext); resetError != nil {
		return fmt.Errorf(revertFailureTemplateConstant, resetError)
	}
	return nil
}

func (service *Service) switchBranch(executionContext context.Context, plan switchPlan, targetBranchName string, currentBranchName string, remoteName string) error {
	switch plan {
	case switchToExisting:
		if currentBranchName == targetBranchName {
			return nil
		}
		if checkoutError := service.inspector.Checkout(executionContext, targetBranchName); checkoutError != nil {
			return fmt.Errorf(checkoutFailureTemplateConstant, targetBranchName, checkoutError)
		}
	case switchToLocalBranch:
		if checkoutError := service.inspector.Checkout(executionContext, targetBranchName); checkoutError != nil {
			return fmt.Errorf(checkoutFailureTemplateConstant, targetBranchName, checkoutError)
		}
	case switchTrackingRemote:
		remoteReference := fmt.Sprintf(remoteReferenceTemplateConstant, remoteName, targetBranchName)
		if checkoutError := service.inspector.CheckoutNewTracking(executionContext, targetBranchName, remoteReference); checkoutError != nil {
			return fmt.Errorf(checkoutFailureTemplateConstant, targetBranchName, checkoutError)
		}
	case switchCreateNew:
		if checkoutError := service.inspector.CheckoutNewFrom(executionContext, targetBranchName, ""); checkoutError != nil {
			return fmt.Errorf(checkoutFailureTemplateConstant, targetBranchName, checkoutError)
		}
	}
	return nil
}

// cleanupMergedBranches deletes branches proven safe by the classifier. The
// step only runs when the pull brought new commits; an up-to-date branch is
// treated as having nothing to clean. No confirmation is required because the
// safety check guarantees no data loss.
func (service *Service) cleanupMergedBranches(executionContext context.Context, options Options, pullOutcome gitrepo.PullOutcome, mainBranchName string) ([]string, error) {
	if pullOutcome.UpToDate {
		service.logger.Debug(upToDateLogMessageConstant, zap.String(logFieldBranchConstant, mainBranchName))
		return nil, nil
	}

	localBranches, listingError := service.inspector.ListLocalBranches(executionContext)
	if listingError != nil {
		return nil, listingError
	}

	deletedBranchNames := []string{}
	for _, localBranch := range localBranches {
		if localBranch.IsCurrent || protectedBranchName(localBranch.Name, mainBranchName) {
			continue
		}

		assessment, assessmentError := service.classifier.ClassifyDeletion(executionContext, localBranch.Name, mainBranchName)
		if assessmentError != nil {
			return nil, assessmentError
		}
		if !assessment.Safe {
			service.logger.Info(
				branchSkippedLogMessageConstant,
				zap.String(logFieldBranchConstant, localBranch.Name),
				zap.String(logFieldReasonConstant, string(assessment.Reason)),
			)
			continue
		}

		if options.DryRun {
			service.logger.Info(dryRunDeletionLogMessageConstant, zap.String(logFieldBranchConstant, localBranch.Name))
			deletedBranchNames = append(deletedBranchNames, localBranch.Name)
			continue
		}

		if deletionError := service.inspector.DeleteBranch(executionContext, localBranch.Name); deletionError != nil {
			return nil, fmt.Errorf(deletionFailureTemplateConstant, localBranch.Name, deletionError)
		}
		service.logger.Info(
			branchDeletedLogMessageConstant,
			zap.String(logFieldBranchConstant, localBranch.Name),
			zap.String(logFieldReasonConstant, string(assessment.Reason)),
		)
		deletedBranchNames = append(deletedBranchNames, localBranch.Name)
	}

	return deletedBranchNames, nil
}

// cleanupStaleBranches removes remote-gone branches after explicit
// confirmation. Unlike merged cleanup, the gate always runs because
// remote-gone plus age is a heuristic that could discard unpushed work.
// Declining skips deletion without failing the run.
func (service *Service) cleanupStaleBranches(executionContext context.Context, options Options, mainBranchName string, remoteName string) ([]string, error) {
	deletionCandidates, classificationError := service.classifier.FindStaleBranches(executionContext, mainBranchName, remoteName)
	if classificationError != nil {
		return nil, classificationError
	}

	if len(deletionCandidates) == 0 {
		service.logger.Info(noStaleBranchesMessageConstant)
		return nil, nil
	}

	for _, deletionCandidate := range deletionCandidates {
		service.logger.Info(
			staleCandidateLogMessageConstant,
			zap.String(logFieldBranchConstant, deletionCandidate.Branch.Name),
			zap.Int64(logFieldAgeDaysConstant, deletionCandidate.AgeSeconds/secondsPerDayConstant),
			zap.Int(logFieldUnpushedCommitsConstant, deletionCandidate.UnpushedCommitCount),
		)
	}

	deletionPrompt := fmt.Sprintf(staleDeletionPromptTemplateConstant, len(deletionCandidates), branchCountNoun(len(deletionCandidates)))
	deletionConfirmed, confirmationError := service.confirm(options, deletionPrompt)
	if confirmationError != nil {
		return nil, confirmationError
	}
	if !deletionConfirmed {
		service.logger.Info(staleDeclinedLogMessageConstant)
		return nil, nil
	}

	deletedBranchNames := []string{}
	for _, deletionCandidate := range deletionCandidates {
		if options.DryRun {
			service.logger.Info(dryRunDeletionLogMessageConstant, zap.String(logFieldBranchConstant, deletionCandidate.Branch.Name))
			deletedBranchNames = append(deletedBranchNames, deletionCandidate.Branch.Name)
			continue
		}
		if deletionError := service.inspector.DeleteBranch(executionContext, deletionCandidate.Branch.Name); deletionError != nil {
			return nil, fmt.Errorf(deletionFailureTemplateConstant, deletionCandidate.Branch.Name, deletionError)
		}
		deletedBranchNames = append(deletedBranchNames, deletionCandidate.Branch.Name)
	}

	service.logger.Info(fmt.Sprintf(deletedSummaryTemplateConstant, len(deletedBranchNames), branchCountNoun(len(deletedBranchNames))))
	return deletedBranchNames, nil
}

func (service *Service) synchronizeDependencies(executionContext context.Context, options Options, repositoryRoot string, lockfileBefore deps.LockfileSnapshot) (deps.PackageManagerKind, error) {
	lockfileAfter, snapshotError := service.lockfileManager.Snapshot(repositoryRoot)
	if snapshotError != nil {
		return "", fmt.Errorf(snapshotFailureTemplateConstant, snapshotError)
	}

	if !deps.ShouldReinstall(lockfileBefore, lockfileAfter) || len(lockfileAfter.Kind) == 0 {
		return "", nil
	}

	if options.DryRun {
		service.logger.Info(dryRunInstallLogMessageConstant, zap.String(logFieldPackageManagerConstant, string(lockfileAfter.Kind)))
		return lockfileAfter.Kind, nil
	}

	service.logger.Info(reinstallLogMessageConstant, zap.String(logFieldPackageManagerConstant, string(lockfileAfter.Kind)))
	if installError := service.lockfileManager.Install(executionContext, lockfileAfter.Kind, repositoryRoot); installError != nil {
		return "", fmt.Errorf(installFailureTemplateConstant, installError)
	}
	return lockfileAfter.Kind, nil
}

func (service *Service) confirm(options Options, promptMessage string) (bool, error) {
	if options.AssumeYes {
		return true, nil
	}
	return service.prompter.Confirm(promptMessage)
}

func protectedBranchName(branchName string, mainBranchName string) bool {
	return branchName == mainBranchName ||
		branchName == protectedMainNameConstant ||
		branchName == protectedMasterNameConstant
}

func branchCountNoun(branchCount int) string {
	if branchCount == 1 {
		return branchWordSingularConstant
	}
	return branchWordPluralConstant
}
