package gitrepo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	currentBranchMarkerConstant              = "*"
	worktreeBranchMarkerConstant             = "+"
	detachedHeadPrefixConstant               = "("
	annotationOpenDelimiterConstant          = "["
	annotationCloseDelimiterConstant         = "]"
	annotationStatusSeparatorConstant        = ":"
	annotationStatusGoneConstant             = "gone"
	annotationStatusAheadConstant            = "ahead"
	annotationStatusBehindConstant           = "behind"
	annotationStatusPartSeparatorConstant    = ","
	branchLineFieldCountMinimumConstant      = 2
	malformedBranchLineTemplateConstant      = "malformed branch listing line: %q"
	malformedAnnotationCountTemplateConstant = "malformed tracking count in %q: %w"
)

// ErrEmptyBranchListing indicates the listing output contained no branch lines.
var ErrEmptyBranchListing = errors.New("branch listing output is empty")

// BranchTracking describes the upstream annotation of a local branch.
type BranchTracking struct {
	Upstream    string
	Gone        bool
	AheadCount  int
	BehindCount int
}

// Branch captures one local branch parsed from verbose branch listing output.
// Tracking is nil for branches that never had an upstream configured.
type Branch struct {
	Name      string
	Hash      string
	IsCurrent bool
	Tracking  *BranchTracking
	Subject   string
}

// RemoteGone reports whether the branch tracked an upstream that no longer exists.
func (branch Branch) RemoteGone() bool {
	return branch.Tracking != nil && branch.Tracking.Gone
}

// ParseBranchListing tokenizes `git branch -vv` style output into Branch
// values. Each line is split into marker, name, hash, an optional bracketed
// tracking annotation, and the commit subject; the annotation grammar is
// validated explicitly rather than matched with a single pattern. Detached
// HEAD entries are skipped.
func ParseBranchListing(listingOutput string) ([]Branch, error) {
	branches := []Branch{}
	for _, rawLine := range strings.Split(listingOutput, "\n") {
		if len(strings.TrimSpace(rawLine)) == 0 {
			continue
		}

		parsedBranch, skipLine, parseError := parseBranchLine(rawLine)
		if parseError != nil {
			return nil, parseError
		}
		if skipLine {
			continue
		}
		branches = append(branches, parsedBranch)
	}
	return branches, nil
}

func parseBranchLine(line string) (Branch, bool, error) {
	marker := ""
	remainder := line
	if len(line) >= 2 {
		marker = strings.TrimSpace(line[:2])
		remainder = line[2:]
	}

	trimmedRemainder := strings.TrimSpace(remainder)
	if strings.HasPrefix(trimmedRemainder, detachedHeadPrefixConstant) {
		return Branch{}, true, nil
	}

	nameAndRest := strings.Fields(trimmedRemainder)
	if len(nameAndRest) < branchLineFieldCountMinimumConstant {
		return Branch{}, false, fmt.Errorf(malformedBranchLineTemplateConstant, line)
	}

	branchName := nameAndRest[0]
	branchHash := nameAndRest[1]

	restOffset := strings.Index(trimmedRemainder, branchHash) + len(branchHash)
	rest := strings.TrimSpace(trimmedRemainder[restOffset:])

	parsedBranch := Branch{
		Name:      branchName,
		Hash:      branchHash,
		IsCurrent: marker == currentBranchMarkerConstant,
	}

	if strings.HasPrefix(rest, annotationOpenDelimiterConstant) {
		closeIndex := strings.Index(rest, annotationCloseDelimiterConstant)
		if closeIndex > 0 {
			annotationBody := rest[len(annotationOpenDelimiterConstant):closeIndex]
			tracking, isTrackingAnnotation, annotationError := parseTrackingAnnotation(annotationBody)
			if annotationError != nil {
				return Branch{}, false, annotationError
			}
			if isTrackingAnnotation {
				parsedBranch.Tracking = &tracking
				rest = strings.TrimSpace(rest[closeIndex+len(annotationCloseDelimiterConstant):])
			}
		}
	}

	parsedBranch.Subject = rest
	return parsedBranch, false, nil
}

// parseTrackingAnnotation validates the bracketed annotation grammar:
// upstream ref, optionally followed by ": gone" or divergence counters
// ("ahead N", "behind N", or both separated by a comma). A body that does not
// look like an upstream reference is reported as not-a-tracking-annotation so
// commit subjects beginning with a bracket are left intact.
func parseTrackingAnnotation(annotationBody string) (BranchTracking, bool, error) {
	upstreamPart := annotationBody
	statusPart := ""
	if separatorIndex := strings.Index(annotationBody, annotationStatusSeparatorConstant); separatorIndex >= 0 {
		upstreamPart = annotationBody[:separatorIndex]
		statusPart = strings.TrimSpace(annotationBody[separatorIndex+len(annotationStatusSeparatorConstant):])
	}

	trimmedUpstream := strings.TrimSpace(upstreamPart)
	if len(trimmedUpstream) == 0 || strings.ContainsAny(trimmedUpstream, " \t") || !strings.Contains(trimmedUpstream, "/") {
		return BranchTracking{}, false, nil
	}

	tracking := BranchTracking{Upstream: trimmedUpstream}
	if len(statusPart) == 0 {
		return tracking, true, nil
	}

	if statusPart == annotationStatusGoneConstant {
		tracking.Gone = true
		return tracking, true, nil
	}

	for _, statusToken := range strings.Split(statusPart, annotationStatusPartSeparatorConstant) {
		counterFields := strings.Fields(statusToken)
		if len(counterFields) != 2 {
			return BranchTracking{}, false, nil
		}

		counterValue, counterError := strconv.Atoi(counterFields[1])
		if counterError != nil {
			return BranchTracking{}, false, fmt.Errorf(malformedAnnotationCountTemplateConstant, annotationBody, counterError)
		}

		switch counterFields[0] {
		case annotationStatusAheadConstant:
			tracking.AheadCount = counterValue
		case annotationStatusBehindConstant:
			tracking.BehindCount = counterValue
		default:
			return BranchTracking{}, false, nil
		}
	}

	return tracking, true, nil
}
