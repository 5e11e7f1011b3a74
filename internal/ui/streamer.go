package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/temirov/trunk/internal/execshell"
)

const (
	spinnerCharacterSetIndexConstant = 14
	spinnerUpdateIntervalConstant    = 100 * time.Millisecond
	spinnerSuffixSeparatorConstant   = " "
	streamedLinePrefixConstant       = "  "
	successMarkerConstant            = "✔"
	failureMarkerConstant            = "✖"
	markerLineTemplateConstant       = "%s %s\n"
)

// InstallStreamer renders live package manager output beneath a spinner while
// an install runs. It implements execshell.StreamObserver.
type InstallStreamer struct {
	title          string
	outputWriter   io.Writer
	commandSpinner *spinner.Spinner
	mutex          sync.Mutex
}

// NewInstallStreamer constructs a streamer titled with the operation description.
func NewInstallStreamer(title string, outputWriter io.Writer) *InstallStreamer {
	commandSpinner := spinner.New(spinner.CharSets[spinnerCharacterSetIndexConstant], spinnerUpdateIntervalConstant)
	commandSpinner.Suffix = spinnerSuffixSeparatorConstant + title
	if outputWriter != nil {
		commandSpinner.Writer = outputWriter
	}
	return &InstallStreamer{title: title, outputWriter: outputWriter, commandSpinner: commandSpinner}
}

// StreamStarted begins the spinner animation.
func (streamer *InstallStreamer) StreamStarted(execshell.ShellCommand) {
	streamer.commandSpinner.Start()
}

// StreamLine prints one line of live command output beneath the spinner.
func (streamer *InstallStreamer) StreamLine(line string) {
	streamer.mutex.Lock()
	defer streamer.mutex.Unlock()
	if streamer.outputWriter == nil {
		return
	}
	fmt.Fprintln(streamer.outputWriter, streamedLinePrefixConstant+strings.TrimRight(line, "\n"))
}

// StreamFinished stops the spinner and prints a final success or failure marker.
func (streamer *InstallStreamer) StreamFinished(command execshell.ShellCommand, result execshell.ExecutionResult) {
	streamer.commandSpinner.Stop()
	streamer.mutex.Lock()
	defer streamer.mutex.Unlock()
	if streamer.outputWriter == nil {
		return
	}
	if result.ExitCode == 0 {
		fmt.Fprintf(streamer.outputWriter, markerLineTemplateConstant, color.GreenString(successMarkerConstant), streamer.title)
		return
	}
	fmt.Fprintf(streamer.outputWriter, markerLineTemplateConstant, color.RedString(failureMarkerConstant), streamer.title)
}
