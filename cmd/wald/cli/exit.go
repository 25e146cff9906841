package cli

import (
	"errors"
	"fmt"

	"github.com/FordUniver/wald/lib/walderr"
)

// ExitError signals a non-zero exit code without printing an extra
// error message. Use it when the command has already written its own
// explanation (e.g. "doctor" printing a failing checklist) and a
// generic "Error: ..." line from main would be redundant.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit code %d", e.Code) }

func (e *ExitError) ExitCode() int { return e.Code }

// Exit codes: 0 success, 1 for any wald-level error (validation or
// precondition), 2 when the underlying git subprocess failed.
const (
	ExitOK      = 0
	ExitGeneric = 1
	ExitGit     = 2
)

// ExitCodeFor maps an error returned from a command's Run function to
// a process exit code. A failed git subprocess anywhere in the chain
// exits 2; every other error (wald's own taxonomy, flag parsing,
// workspace discovery) exits 1.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if walderr.IsKind(err, walderr.KindGitCommandFailed) {
		return ExitGit
	}
	return ExitGeneric
}
