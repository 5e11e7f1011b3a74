package syncer

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/trunk/internal/cleanup"
	"github.com/temirov/trunk/internal/deps"
	"github.com/temirov/trunk/internal/execshell"
	"github.com/temirov/trunk/internal/gitrepo"
	"github.com/temirov/trunk/internal/prompt"
	"github.com/temirov/trunk/internal/ui"
)

const (
	commandUseConstant              = "trunk [branch]"
	commandShortDescriptionConstant = "Switch to the main branch, reconcile local state, and prune obsolete branches"
	commandLongDescriptionConstant  = "trunk fetches the latest remote state, switches to the main branch (or a named branch), reverts or carries local changes after confirmation, deletes branches proven merged, offers to remove stale remote-gone branches, and reinstalls JavaScript dependencies when the lockfile changed."

	commandExecutionErrorTemplateConstant = "synchronization failed: %w"

	flagDryRunNameConstant        = "dry-run"
	flagDryRunDescriptionConstant = "Preview branch deletions and dependency installs without making changes"
	flagYesNameConstant           = "yes"
	flagYesDescriptionConstant    = "Assume an affirmative answer for every confirmation prompt"
	flagRemoteNameConstant        = "remote"
	flagRemoteDescriptionConstant = "Name of the remote to synchronize against"

	installStreamTitleConstant = "installing dependencies"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// HumanReadableLoggingProvider reports whether console-formatted output is active.
type HumanReadableLoggingProvider func() bool

// ConfigurationProvider supplies the persisted command configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the Cobra command for repository synchronization.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider HumanReadableLoggingProvider
	ConfigurationProvider        ConfigurationProvider
	GitExecutor                  gitrepo.GitExecutor
	PackageManagerExecutor       deps.PackageManagerExecutor
	Prompter                     prompt.ConfirmationPrompter
	WorkingDirectory             string
}

// Build constructs the synchronization command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}

	command.Flags().Bool(flagDryRunNameConstant, false, flagDryRunDescriptionConstant)
	command.Flags().Bool(flagYesNameConstant, false, flagYesDescriptionConstant)
	command.Flags().String(flagRemoteNameConstant, "", flagRemoteDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()

	options, optionsError := builder.parseOptions(command, arguments, configuration)
	if optionsError != nil {
		return optionsError
	}

	workingDirectory, workingDirectoryError := builder.resolveWorkingDirectory()
	if workingDirectoryError != nil {
		return workingDirectoryError
	}

	gitExecutor, gitExecutorError := builder.resolveGitExecutor(logger)
	if gitExecutorError != nil {
		return gitExecutorError
	}

	inspector, inspectorError := gitrepo.NewInspector(gitExecutor, gitrepo.InspectorConfiguration{
		WorkingDirectory:       workingDirectory,
		DisableTerminalPrompts: true,
	})
	if inspectorError != nil {
		return inspectorError
	}

	classifier, classifierError := cleanup.NewClassifier(inspector, cleanup.SystemClock{}, cleanup.ClassifierConfiguration{
		StalenessWindowMonths: configuration.StalenessWindowMonths,
		CandidateLimit:        configuration.CandidateLimit,
	})
	if classifierError != nil {
		return classifierError
	}

	packageManagerExecutor, packageManagerExecutorError := builder.resolvePackageManagerExecutor(logger)
	if packageManagerExecutorError != nil {
		return packageManagerExecutorError
	}

	lockfileManager, lockfileManagerError := deps.NewManager(afero.NewOsFs(), packageManagerExecutor)
	if lockfileManagerError != nil {
		return lockfileManagerError
	}

	service, serviceError := NewService(Dependencies{
		Logger:          logger,
		Inspector:       inspector,
		Classifier:      classifier,
		LockfileManager: lockfileManager,
		Prompter:        builder.resolvePrompter(),
	})
	if serviceError != nil {
		return serviceError
	}

	if _, runError := service.Run(command.Context(), options); runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string, configuration CommandConfiguration) (Options, error) {
	branchName := ""
	if len(arguments) > 0 {
		branchName = strings.TrimSpace(arguments[0])
	}

	dryRunValue, _ := command.Flags().GetBool(flagDryRunNameConstant)
	assumeYesValue, _ := command.Flags().GetBool(flagYesNameConstant)

	remoteName := strings.TrimSpace(configuration.Remote)
	if command.Flags().Changed(flagRemoteNameConstant) {
		remoteFlagValue, _ := command.Flags().GetString(flagRemoteNameConstant)
		remoteName = strings.TrimSpace(remoteFlagValue)
	}

	commandOptions := Options{
		BranchName: branchName,
		RemoteName: remoteName,
		DryRun:     dryRunValue,
		AssumeYes:  assumeYesValue || configuration.AssumeYes,
	}

	return commandOptions, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	configuration := CommandConfiguration{
		StalenessWindowMonths: defaultStalenessWindowMonthsConstant,
		CandidateLimit:        defaultCandidateLimitConstant,
	}
	if builder.ConfigurationProvider != nil {
		provided := builder.ConfigurationProvider()
		if provided.StalenessWindowMonths > 0 {
			configuration.StalenessWindowMonths = provided.StalenessWindowMonths
		}
		if provided.CandidateLimit > 0 {
			configuration.CandidateLimit = provided.CandidateLimit
		}
		configuration.Remote = provided.Remote
		configuration.AssumeYes = provided.AssumeYes
	}
	return configuration
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveWorkingDirectory() (string, error) {
	if len(strings.TrimSpace(builder.WorkingDirectory)) > 0 {
		return builder.WorkingDirectory, nil
	}
	return os.Getwd()
}

func (builder *CommandBuilder) humanReadableLogging() bool {
	return builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider()
}

func (builder *CommandBuilder) resolveGitExecutor(logger *zap.Logger) (gitrepo.GitExecutor, error) {
	if builder.GitExecutor != nil {
		return builder.GitExecutor, nil
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if creationError != nil {
		return nil, creationError
	}
	if builder.humanReadableLogging() {
		shellExecutor.RegisterEventObserver(ui.NewConsoleCommandEventLogger(logger))
	}

	return shellExecutor, nil
}

// resolvePackageManagerExecutor prefers a streaming runner when console
// output is active so install progress reaches the terminal line by line.
func (builder *CommandBuilder) resolvePackageManagerExecutor(logger *zap.Logger) (deps.PackageManagerExecutor, error) {
	if builder.PackageManagerExecutor != nil {
		return builder.PackageManagerExecutor, nil
	}

	var commandRunner execshell.CommandRunner = execshell.NewOSCommandRunner()
	if builder.humanReadableLogging() {
		installStreamer := ui.NewInstallStreamer(installStreamTitleConstant, os.Stderr)
		commandRunner = execshell.NewStreamingCommandRunner(installStreamer)
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner)
	if creationError != nil {
		return nil, creationError
	}

	return shellExecutor, nil
}

func (builder *CommandBuilder) resolvePrompter() prompt.ConfirmationPrompter {
	if builder.Prompter != nil {
		return builder.Prompter
	}
	return prompt.NewIOConfirmationPrompter(os.Stdin, os.Stderr)
}
