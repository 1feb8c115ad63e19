package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ivankudzin/giftexchange/internal/domain/enums"
)

// Exit codes for assignctl.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // engine run failed
	ExitCommandError = 2 // bad flags, config or unreachable dependencies
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that carry no code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// render writes data as indented JSON or through text.
func render(w io.Writer, format string, data any, text func(io.Writer) error) error {
	if f, _ := enums.ParseOutputFormat(format); f == enums.OutputFormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}
	return text(w)
}
