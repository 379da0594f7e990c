package cmd

import (
	"io"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/runtime"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

// errorDocument is the JSON shape of a failed run.
type errorDocument struct {
	Error string `json:"error"`
}

// ExitCode maps err to a process exit code. Commands choose specific codes by
// returning a *runtime.ExitError; everything else is a plain failure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *runtime.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// WriteError writes err as a single {"error": message} line.
func WriteError(w io.Writer, err error) {
	_ = runtime.WriteJSON(w, errorDocument{Error: err.Error()})
}
