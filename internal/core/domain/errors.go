package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")

	// ErrGenerationFailure is fatal for a turn and always reaches the caller.
	ErrGenerationFailure = errors.New("generation failure")
	// ErrEvidenceUnavailable tags a failed evidence source. It is absorbed by
	// the retrieval fallbacks and never returned from the orchestrator.
	ErrEvidenceUnavailable = errors.New("evidence unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
