package deps

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/temirov/trunk/internal/execshell"
)

const (
	yarnLockfileNameConstant = "yarn.lock"
	pnpmLockfileNameConstant = "pnpm-lock.yaml"
	npmLockfileNameConstant  = "package-lock.json"

	fileSystemMissingMessageConstant = "file system not configured"
	executorMissingMessageConstant   = "package manager executor not configured"
)

// ErrFileSystemNotConfigured indicates the manager was built without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// ErrExecutorNotConfigured indicates the manager was built without an executor.
var ErrExecutorNotConfigured = errors.New(executorMissingMessageConstant)

// PackageManagerKind identifies a supported JavaScript package manager.
type PackageManagerKind string

// Supported package managers, in lockfile detection priority order.
const (
	PackageManagerYarn PackageManagerKind = "yarn"
	PackageManagerPnpm PackageManagerKind = "pnpm"
	PackageManagerNpm  PackageManagerKind = "npm"
)

// LockfileSnapshot captures the raw lockfile content at one point in time.
// Content is empty when no lockfile exists. Snapshots are compared by exact
// string equality; any byte difference triggers a reinstall.
type LockfileSnapshot struct {
	Kind    PackageManagerKind
	Content string
}

// PackageManagerExecutor runs package manager commands.
type PackageManagerExecutor interface {
	ExecutePackageManager(executionContext context.Context, packageManagerName execshell.CommandName, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

type packageManagerDefinition struct {
	kind             PackageManagerKind
	lockfileName     string
	commandName      execshell.CommandName
	installArguments []string
}

// detectionOrder fixes the lockfile priority: yarn, then pnpm, then npm.
// The first matching lockfile wins; multiple lockfiles are not treated as a
// conflict.
var detectionOrder = []packageManagerDefinition{
	{kind: PackageManagerYarn, lockfileName: yarnLockfileNameConstant, commandName: execshell.CommandYarn, installArguments: []string{"install", "--immutable"}},
	{kind: PackageManagerPnpm, lockfileName: pnpmLockfileNameConstant, commandName: execshell.CommandPnpm, installArguments: []string{"install", "--frozen-lockfile"}},
	{kind: PackageManagerNpm, lockfileName: npmLockfileNameConstant, commandName: execshell.CommandNpm, installArguments: []string{"ci"}},
}

// Manager detects the active package manager from lockfile presence and
// reinstalls dependencies with its reproducible install command.
type Manager struct {
	fileSystem afero.Fs
	executor   PackageManagerExecutor
}

// NewManager validates dependencies and constructs a Manager.
func NewManager(fileSystem afero.Fs, executor PackageManagerExecutor) (*Manager, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Manager{fileSystem: fileSystem, executor: executor}, nil
}

// Detect reports the package manager whose lockfile is present in the root.
func (manager *Manager) Detect(repositoryRoot string) (PackageManagerKind, bool, error) {
	for _, definition := range detectionOrder {
		lockfilePath := filepath.Join(repositoryRoot, definition.lockfileName)
		lockfileExists, existsError := afero.Exists(manager.fileSystem, lockfilePath)
		if existsError != nil {
			return "", false, existsError
		}
		if lockfileExists {
			return definition.kind, true, nil
		}
	}
	return "", false, nil
}

// Snapshot captures the current lockfile kind and raw content. A repository
// without any lockfile yields a zero snapshot.
func (manager *Manager) Snapshot(repositoryRoot string) (LockfileSnapshot, error) {
	detectedKind, lockfileFound, detectError := manager.Detect(repositoryRoot)
	if detectError != nil {
		return LockfileSnapshot{}, detectError
	}
	if !lockfileFound {
		return LockfileSnapshot{}, nil
	}

	definition := definitionForKind(detectedKind)
	lockfilePath := filepath.Join(repositoryRoot, definition.lockfileName)
	lockfileContent, readError := afero.ReadFile(manager.fileSystem, lockfilePath)
	if readError != nil {
		return LockfileSnapshot{}, readError
	}

	return LockfileSnapshot{Kind: detectedKind, Content: string(lockfileContent)}, nil
}

// ShouldReinstall reports whether the lockfile changed between snapshots.
// Exact string equality is the sole trigger; no semantic diffing happens.
func ShouldReinstall(beforeSnapshot LockfileSnapshot, afterSnapshot LockfileSnapshot) bool {
	return beforeSnapshot != afterSnapshot
}

// Install runs the package manager's reproducible install command in the root.
func (manager *Manager) Install(executionContext context.Context, packageManagerKind PackageManagerKind, repositoryRoot string) error {
	definition := definitionForKind(packageManagerKind)
	_, executionError := manager.executor.ExecutePackageManager(executionContext, definition.commandName, execshell.CommandDetails{
		Arguments:        definition.installArguments,
		WorkingDirectory: repositoryRoot,
	})
	return executionError
}

func definitionForKind(packageManagerKind PackageManagerKind) packageManagerDefinition {
	for _, definition := range detectionOrder {
		if definition.kind == packageManagerKind {
			return definition
		}
	}
	return detectionOrder[len(detectionOrder)-1]
}
