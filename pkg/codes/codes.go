// Package codes defines the stable error taxonomy shared by the engine
// and its front ends. Each kind maps to a single-byte process exit code.
package codes

import (
	"errors"
	"fmt"

	"github.com/mdobak/go-xerrors"
)

// Sentinel kinds. Callers classify failures with errors.Is.
var (
	ErrFileNotFound         = errors.New("file not found")
	ErrIncompatibleFile     = errors.New("incompatible audio file")
	ErrNoSongMatch          = errors.New("no song match")
	ErrSpectrogramFailure   = errors.New("spectrogram generation failure")
	ErrDatabaseInsert       = errors.New("database insert error")
	ErrDatabaseQuery        = errors.New("database query error")
	ErrExternalCollaborator = errors.New("external collaborator error")
)

// Exit codes reported by the CLI.
const (
	ExitOK                   = 0
	ExitFileNotFound         = 1
	ExitIncompatibleFile     = 2
	ExitNoSongMatch          = 3
	ExitSpectrogramFailure   = 4
	ExitDatabaseInsertError  = 5
	ExitDatabaseQueryError   = 6
	ExitExternalCollaborator = 7
	ExitUnknown              = 9
)

// Mark tags cause with one of the sentinel kinds, attaching a stack
// trace at the call site. With a nil cause the kind alone is returned.
func Mark(kind error, cause error) error {
	if cause == nil {
		return xerrors.New(kind)
	}
	return xerrors.New(fmt.Errorf("%w: %w", kind, cause))
}

// Markf tags a formatted message with kind.
func Markf(kind error, format string, args ...any) error {
	return xerrors.New(fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)))
}

// ExitCode maps an error to the CLI exit byte.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrFileNotFound):
		return ExitFileNotFound
	case errors.Is(err, ErrIncompatibleFile):
		return ExitIncompatibleFile
	case errors.Is(err, ErrNoSongMatch):
		return ExitNoSongMatch
	case errors.Is(err, ErrSpectrogramFailure):
		return ExitSpectrogramFailure
	case errors.Is(err, ErrDatabaseInsert):
		return ExitDatabaseInsertError
	case errors.Is(err, ErrDatabaseQuery):
		return ExitDatabaseQueryError
	case errors.Is(err, ErrExternalCollaborator):
		return ExitExternalCollaborator
	default:
		return ExitUnknown
	}
}
