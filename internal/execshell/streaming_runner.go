package execshell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
)

// StreamObserver receives live output lines while a streamed command runs.
type StreamObserver interface {
	// StreamStarted notifies the observer that a streamed command is beginning.
	StreamStarted(command ShellCommand)
	// StreamLine delivers a single line of combined stdout/stderr output.
	StreamLine(line string)
	// StreamFinished notifies the observer that the streamed command ended.
	StreamFinished(command ShellCommand, result ExecutionResult)
}

// noopStreamObserver discards all stream events.
type noopStreamObserver struct{}

// StreamStarted implements StreamObserver for the no-op observer.
func (noopStreamObserver) StreamStarted(ShellCommand) {}

// StreamLine implements StreamObserver for the no-op observer.
func (noopStreamObserver) StreamLine(string) {}

// StreamFinished implements StreamObserver for the no-op observer.
func (noopStreamObserver) StreamFinished(ShellCommand, ExecutionResult) {}

// StreamingCommandRunner executes commands while forwarding their output
// line by line to an observer. Long-running package manager installs use it
// so progress is visible before the command finishes.
type StreamingCommandRunner struct {
	streamObserver StreamObserver
}

// NewStreamingCommandRunner constructs a runner that reports output to the
// provided observer. A nil observer disables streaming notifications.
func NewStreamingCommandRunner(streamObserver StreamObserver) *StreamingCommandRunner {
	if streamObserver == nil {
		streamObserver = noopStreamObserver{}
	}
	return &StreamingCommandRunner{streamObserver: streamObserver}
}

// Run executes the command, streaming each output line as it arrives while
// also buffering the full output for the returned result.
func (runner *StreamingCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executable := newExecutableCommand(executionContext, command)

	standardOutputPipe, standardOutputError := executable.StdoutPipe()
	if standardOutputError != nil {
		return ExecutionResult{}, standardOutputError
	}
	standardErrorPipe, standardErrorError := executable.StderrPipe()
	if standardErrorError != nil {
		return ExecutionResult{}, standardErrorError
	}

	if startError := executable.Start(); startError != nil {
		return ExecutionResult{}, startError
	}

	runner.streamObserver.StreamStarted(command)

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	var pipeReaders sync.WaitGroup
	pipeReaders.Add(2)
	go runner.forwardLines(standardOutputPipe, &standardOutputBuffer, &pipeReaders)
	go runner.forwardLines(standardErrorPipe, &standardErrorBuffer, &pipeReaders)
	pipeReaders.Wait()

	waitError := executable.Wait()
	executionResult := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
		ExitCode:       0,
	}

	if waitError != nil {
		exitError := &exec.ExitError{}
		if !errors.As(waitError, &exitError) {
			runner.streamObserver.StreamFinished(command, executionResult)
			return ExecutionResult{}, waitError
		}
		executionResult.ExitCode = exitError.ExitCode()
	}

	runner.streamObserver.StreamFinished(command, executionResult)
	return executionResult, nil
}

func (runner *StreamingCommandRunner) forwardLines(pipe io.Reader, buffer *bytes.Buffer, pipeReaders *sync.WaitGroup) {
	defer pipeReaders.Done()
	lineScanner := bufio.NewScanner(pipe)
	for lineScanner.Scan() {
		outputLine := lineScanner.Text()
		buffer.WriteString(outputLine)
		buffer.WriteByte('\n')
		if len(outputLine) > 0 {
			runner.streamObserver.StreamLine(outputLine)
		}
	}
}
