// Package walderr defines wald's closed error taxonomy. Every fallible
// core operation returns an error constructed through New, Wrap or
// GitCommandFailed, which derive the category from a specific named
// [Kind] so callers can branch on either the coarse category (for generic
// handling: abort vs. continue, exit code selection) or the precise
// condition (for targeted recovery, e.g. retrying after a
// WorkspaceDirty error is resolved).
package walderr

import (
	"errors"
	"fmt"
)

// Category classifies an error for programmatic handling: does the
// caller retry, fix input, or give up.
type Category string

const (
	// CategoryValidation: the caller supplied invalid input.
	CategoryValidation Category = "validation"
	// CategoryPrecondition: the operation's preconditions were not met
	// (workspace/baum/repo state does not allow this operation).
	CategoryPrecondition Category = "precondition"
	// CategoryOperational: a subprocess or filesystem operation failed.
	CategoryOperational Category = "operational"
	// CategoryAdvisory: not a failure — an accumulated warning returned
	// alongside a successful result.
	CategoryAdvisory Category = "advisory"
)

// Kind is one of the named conditions in the closed taxonomy (spec.md
// §7). Kind values are used with errors.Is through [Sentinel].
type Kind string

const (
	// Validation kinds.
	KindInvalidRepoId            Kind = "invalid_repo_id"
	KindInvalidFilter            Kind = "invalid_filter"
	KindInvalidBaumManifest      Kind = "invalid_baum_manifest"
	KindInvalidWorkspaceManifest Kind = "invalid_workspace_manifest"

	// Precondition kinds.
	KindAlreadyInitialized     Kind = "already_initialized"
	KindNestedWorkspace        Kind = "nested_workspace"
	KindWorkspaceDirty         Kind = "workspace_dirty"
	KindWorkspaceDiverged      Kind = "workspace_diverged"
	KindContainerNotDirectory  Kind = "container_not_directory"
	KindContainerAlreadyExists Kind = "container_already_exists"
	KindDestinationExists      Kind = "destination_exists"
	KindBranchAlreadyPlanted   Kind = "branch_already_planted"
	KindBaumRepoMismatch       Kind = "baum_repo_mismatch"
	KindRepoAlreadyRegistered  Kind = "repo_already_registered"
	KindRepoNotRegistered      Kind = "repo_not_registered"
	KindBareRepoMissing        Kind = "bare_repo_missing"
	KindBaumNotFound           Kind = "baum_not_found"
	KindAliasAlreadyUsed       Kind = "alias_already_used"
	KindOutsideWorkspace       Kind = "outside_workspace"

	// Operational kinds.
	KindGitCommandFailed     Kind = "git_command_failed"
	KindManifestReadFailed   Kind = "manifest_read_failed"
	KindManifestWriteFailed  Kind = "manifest_write_failed"
	KindWorktreeRemoveFailed Kind = "worktree_remove_failed"

	// Recoverable advisory kinds.
	KindPartialCloneWarning    Kind = "partial_clone_warning"
	KindMissingWorktreeWarning Kind = "missing_worktree_warning"
	KindNoRepositoriesToActOn  Kind = "no_repositories_to_act_on"
)

// categoryOf maps each kind to its category, so constructors built
// from a bare Kind don't need the caller to also specify a category.
var categoryOf = map[Kind]Category{
	KindInvalidRepoId:            CategoryValidation,
	KindInvalidFilter:            CategoryValidation,
	KindInvalidBaumManifest:      CategoryValidation,
	KindInvalidWorkspaceManifest: CategoryValidation,

	KindAlreadyInitialized:     CategoryPrecondition,
	KindNestedWorkspace:        CategoryPrecondition,
	KindWorkspaceDirty:         CategoryPrecondition,
	KindWorkspaceDiverged:      CategoryPrecondition,
	KindContainerNotDirectory:  CategoryPrecondition,
	KindContainerAlreadyExists: CategoryPrecondition,
	KindDestinationExists:      CategoryPrecondition,
	KindBranchAlreadyPlanted:   CategoryPrecondition,
	KindBaumRepoMismatch:       CategoryPrecondition,
	KindRepoAlreadyRegistered:  CategoryPrecondition,
	KindRepoNotRegistered:      CategoryPrecondition,
	KindBareRepoMissing:        CategoryPrecondition,
	KindBaumNotFound:           CategoryPrecondition,
	KindAliasAlreadyUsed:       CategoryPrecondition,
	KindOutsideWorkspace:       CategoryPrecondition,

	KindGitCommandFailed:     CategoryOperational,
	KindManifestReadFailed:   CategoryOperational,
	KindManifestWriteFailed:  CategoryOperational,
	KindWorktreeRemoveFailed: CategoryOperational,

	KindPartialCloneWarning:    CategoryAdvisory,
	KindMissingWorktreeWarning: CategoryAdvisory,
	KindNoRepositoriesToActOn:  CategoryAdvisory,
}

// Error is a categorized, kinded error. It wraps an inner error,
// preserving the full chain for errors.Is/errors.As while adding the
// taxonomy metadata the CLI layer uses to pick an exit code (§6).
type Error struct {
	Kind     Kind
	Category Category
	Err      error

	// ExitCode, GitStderr are populated for KindGitCommandFailed.
	ExitCode  int
	GitStderr string
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, walderr.Sentinel(walderr.KindX)) by
// comparing the Kind. Kind does not implement error itself; this makes
// *Error satisfy errors.Is checks against the kindSentinel values below.
func (e *Error) Is(target error) bool {
	other, ok := target.(*kindSentinel)
	if !ok {
		return false
	}
	return e.Kind == other.kind
}

// kindSentinel lets callers write errors.Is(err, walderr.Sentinel(KindFoo))
// without needing bespoke sentinel error values per kind.
type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return string(s.kind) }

// Sentinel returns an error value usable with errors.Is to test
// whether an error carries the given Kind.
func Sentinel(kind Kind) error { return &kindSentinel{kind: kind} }

// New constructs an *Error for the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	category, ok := categoryOf[kind]
	if !ok {
		category = CategoryOperational
	}
	return &Error{Kind: kind, Category: category, Err: fmt.Errorf(format, args...)}
}

// Wrap constructs an *Error for the given kind, wrapping an existing error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	category, ok := categoryOf[kind]
	if !ok {
		category = CategoryOperational
	}
	wrapped := fmt.Errorf(format+": %w", append(args, err)...)
	return &Error{Kind: kind, Category: category, Err: wrapped}
}

// GitCommandFailed constructs the operational error for a failed git
// subprocess, carrying the exit code and captured stderr.
func GitCommandFailed(args []string, dir string, exitCode int, stderr string, err error) *Error {
	return &Error{
		Kind:      KindGitCommandFailed,
		Category:  CategoryOperational,
		Err:       fmt.Errorf("git %v in %s: exit %d: %w", args, dir, exitCode, err),
		ExitCode:  exitCode,
		GitStderr: stderr,
	}
}

// IsKind reports whether err (or anything it wraps) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, Sentinel(kind))
}

// Warning is a non-fatal advisory accumulated alongside a successful
// result (PartialCloneWarning, MissingWorktreeWarning, ...).
type Warning struct {
	Kind    Kind
	Message string
}

func (w Warning) String() string { return w.Message }
