package cleanup

import (
	"context"
	"errors"
	"time"

	"github.com/temirov/trunk/internal/gitrepo"
)

const (
	inspectorMissingMessageConstant      = "repository inspector not configured"
	defaultStalenessWindowMonthsConstant = 1
	defaultCandidateLimitConstant        = 5
)

// ErrInspectorNotConfigured indicates the classifier was built without an inspector.
var ErrInspectorNotConfigured = errors.New(inspectorMissingMessageConstant)

// SafetyReason explains why a branch was judged deletable or kept.
type SafetyReason string

// Deletion safety reasons.
const (
	// SafetyReasonFullyMerged marks branches whose commits are all reachable from the main branch.
	SafetyReasonFullyMerged SafetyReason = "fully_merged"
	// SafetyReasonIdenticalTree marks branches whose tree hash equals the main branch tree.
	SafetyReasonIdenticalTree SafetyReason = "identical_tree"
	// SafetyReasonRemoteGoneAndStale marks branches whose upstream disappeared and whose tip is old.
	SafetyReasonRemoteGoneAndStale SafetyReason = "remote_gone_and_stale"
	// SafetyReasonUniqueCommits marks branches that may carry work absent from the main branch.
	SafetyReasonUniqueCommits SafetyReason = "may_contain_unique_commits"
)

// DeletionAssessment reports whether a branch can be deleted without data loss.
type DeletionAssessment struct {
	Safe   bool
	Reason SafetyReason
}

// DeletionCandidate describes a stale branch proposed for deletion. Values
// are computed once per run and never mutated afterwards.
type DeletionCandidate struct {
	Branch              gitrepo.Branch
	Reason              SafetyReason
	AgeSeconds          int64
	UnpushedCommitCount int
}

// RepositoryInspector enumerates the git queries the classifier relies on.
type RepositoryInspector interface {
	MergedBranches(executionContext context.Context, targetBranchName string) ([]string, error)
	BranchTree(executionContext context.Context, branchName string) (string, error)
	ListLocalBranches(executionContext context.Context) ([]gitrepo.Branch, error)
	LastCommitTimestamp(executionContext context.Context, branchName string) (int64, error)
	UnpushedCommitCount(executionContext context.Context, branchName string, targetBranchName string) (int, error)
	PruneRemote(executionContext context.Context, remoteName string) error
	CurrentBranch(executionContext context.Context) (string, error)
}

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClassifierConfiguration carries staleness policy knobs.
type ClassifierConfiguration struct {
	StalenessWindowMonths int
	CandidateLimit        int
}

// Classifier decides which branches can be deleted without losing work.
type Classifier struct {
	inspector     RepositoryInspector
	clock         Clock
	configuration ClassifierConfiguration
}

// NewClassifier validates dependencies and applies configuration defaults.
func NewClassifier(inspector RepositoryInspector, clock Clock, configuration ClassifierConfiguration) (*Classifier, error) {
	if inspector == nil {
		return nil, ErrInspectorNotConfigured
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if configuration.StalenessWindowMonths <= 0 {
		configuration.StalenessWindowMonths = defaultStalenessWindowMonthsConstant
	}
	if configuration.CandidateLimit <= 0 {
		configuration.CandidateLimit = defaultCandidateLimitConstant
	}
	return &Classifier{inspector: inspector, clock: clock, configuration: configuration}, nil
}

// ClassifyDeletion decides whether the branch can be deleted without data
// loss. Membership in the merged set wins; otherwise tree identity catches
// rebased or squashed branches whose content already landed. Anything else is
// conservatively kept. Only O(1) git metadata operations run per branch.
func (classifier *Classifier) ClassifyDeletion(executionContext context.Context, branchName string, mainBranchName string) (DeletionAssessment, error) {
	mergedBranchNames, mergedError := classifier.inspector.MergedBranches(executionContext, mainBranchName)
	if mergedError != nil {
		return DeletionAssessment{}, mergedError
	}
	for _, mergedBranchName := range mergedBranchNames {
		if mergedBranchName == branchName {
			return DeletionAssessment{Safe: true, Reason: SafetyReasonFullyMerged}, nil
		}
	}

	branchTreeHash, branchTreeError := classifier.inspector.BranchTree(executionContext, branchName)
	if branchTreeError != nil {
		return DeletionAssessment{}, branchTreeError
	}
	mainTreeHash, mainTreeError := classifier.inspector.BranchTree(executionContext, mainBranchName)
	if mainTreeError != nil {
		return DeletionAssessment{}, mainTreeError
	}
	if branchTreeHash == mainTreeHash {
		return DeletionAssessment{Safe: true, Reason: SafetyReasonIdenticalTree}, nil
	}

	return DeletionAssessment{Safe: false, Reason: SafetyReasonUniqueCommits}, nil
}
