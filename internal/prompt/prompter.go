// Package prompt collects user confirmations before destructive actions.
package prompt

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

const (
	affirmativeAnswerConstant  = "y"
	negativeAnswerConstant     = "n"
	promptSuffixConstant       = " [y/n] "
	inputClosedMessageConstant = "confirmation input closed before an answer was given"
)

// ErrInputClosed indicates the input stream ended before a valid answer arrived.
var ErrInputClosed = errors.New(inputClosedMessageConstant)

// ConfirmationPrompter collects user confirmations prior to mutating actions.
type ConfirmationPrompter interface {
	Confirm(promptMessage string) (bool, error)
}

// IOConfirmationPrompter reads confirmation responses from an io.Reader. It
// accepts only the literal answers "y" and "n" (case-sensitive, no default
// for empty input) and re-prompts on anything else. The call blocks until a
// valid answer or end of input.
type IOConfirmationPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOConfirmationPrompter constructs a prompter from the provided reader and writer.
func NewIOConfirmationPrompter(input io.Reader, output io.Writer) *IOConfirmationPrompter {
	return &IOConfirmationPrompter{reader: bufio.NewReader(input), writer: output}
}

// Confirm writes the prompt and loops until a literal "y" or "n" answer arrives.
func (prompter *IOConfirmationPrompter) Confirm(promptMessage string) (bool, error) {
	for {
		if prompter.writer != nil {
			if _, writeError := io.WriteString(prompter.writer, promptMessage+promptSuffixConstant); writeError != nil {
				return false, writeError
			}
		}

		response, readError := prompter.reader.ReadString('\n')
		answer := strings.TrimRight(response, "\r\n")

		switch answer {
		case affirmativeAnswerConstant:
			return true, nil
		case negativeAnswerConstant:
			return false, nil
		}

		if readError != nil {
			return false, ErrInputClosed
		}
	}
}

// AssumeYesPrompter answers every confirmation affirmatively without blocking.
type AssumeYesPrompter struct{}

// Confirm always reports an affirmative answer.
func (AssumeYesPrompter) Confirm(string) (bool, error) {
	return true, nil
}
