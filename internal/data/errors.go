package data

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrUserNotFound is returned when a user record is absent.
	ErrUserNotFound = errors.New("user not found")

	// ErrConversationNotFound is returned when a conversation's message log
	// was never created.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrSummaryNotFound is returned when a participant's summary list has no
	// entry for the conversation.
	ErrSummaryNotFound = errors.New("conversation summary not found")

	// ErrWriteFailed is returned when the store rejected a write.
	ErrWriteFailed = errors.New("write failed")

	// ErrWriteConflict is returned when a guarded write lost every retry.
	ErrWriteConflict = errors.New("write conflict")

	// ErrFailedToFetch is returned when the user directory is absent or
	// malformed.
	ErrFailedToFetch = errors.New("failed to fetch")

	// ErrDirectoryUpdate is returned when a user was stored but could not be
	// added to the directory list. The user record is not rolled back.
	ErrDirectoryUpdate = errors.New("directory update failed")

	// ErrInvalidIdentity is returned for identities that are not a single
	// store path segment.
	ErrInvalidIdentity = errors.New("invalid identity")
)

// writeError carries both ErrWriteFailed and the store's own error.
type writeError struct {
	path string
	err  error
}

func (e *writeError) Error() string {
	return ErrWriteFailed.Error() + ": " + e.path + ": " + e.err.Error()
}

func (e *writeError) Unwrap() error { return e.err }

func (e *writeError) Is(target error) bool { return target == ErrWriteFailed }

func writeFailed(path string, err error) error {
	return errors.WithStack(&writeError{path: path, err: err})
}

// checkIdentity rejects identities that would address more or less than one
// node below the root.
func checkIdentity(identity string) error {
	if identity == "" || strings.Contains(identity, "/") {
		return errors.Wrapf(ErrInvalidIdentity, "%q", identity)
	}
	return nil
}
