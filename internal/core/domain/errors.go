package domain

import (
	"errors"
	"fmt"
)

var (
	// Business outcomes. They reach the final answer as honest
	// "insufficient data" language, never as turn failures.
	ErrAmbiguousEntity = errors.New("ambiguous entity")
	ErrNoCandidates    = errors.New("no candidates")

	// Transport failures after the retry budget. The only class allowed
	// to abort a turn.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	ErrModelUnavailable = errors.New("language model unavailable")

	ErrUnparsableSelection = errors.New("unparsable selection")
	ErrInvalidInput        = errors.New("invalid input")
	ErrTemporary           = errors.New("temporary failure")
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
