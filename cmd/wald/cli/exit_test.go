package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/FordUniver/wald/lib/walderr"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	gitErr := walderr.GitCommandFailed([]string{"fetch"}, "/ws", 128, "fatal: no remote", errors.New("exit status 128"))

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"precondition", walderr.New(walderr.KindWorkspaceDirty, "dirty"), ExitGeneric},
		{"validation", walderr.New(walderr.KindInvalidRepoId, "bad id"), ExitGeneric},
		{"git failure", gitErr, ExitGit},
		{"wrapped git failure", walderr.Wrap(walderr.KindWorktreeRemoveFailed, gitErr, "removing"), ExitGit},
		{"plain error", fmt.Errorf("usage: wald plant"), ExitGeneric},
		{"explicit exit error", &ExitError{Code: 1}, 1},
	}
	for _, test := range tests {
		if got := ExitCodeFor(test.err); got != test.want {
			t.Errorf("%s: ExitCodeFor = %d, want %d", test.name, got, test.want)
		}
	}
}
