// Package ctxerr defines the error taxonomy shared across the indexing and
// retrieval pipeline. Errors are classified by kind, not by Go type, so that
// callers can branch on errors.Is against the sentinels below regardless of
// which layer produced them.
package ctxerr

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel kinds. Wrap with fmt.Errorf("...: %w", KindX) to attach detail
// while keeping errors.Is(err, KindX) true.
var (
	ErrInvalidPath       = errors.New("invalid path")
	ErrIO                = errors.New("io error")
	ErrSizeLimitExceeded = errors.New("size limit exceeded")
	ErrDecode            = errors.New("decode error")
	ErrEmbedder          = errors.New("embedder error")
	ErrCatalog           = errors.New("catalog error")
	ErrProvider          = errors.New("provider error")
)

// IsCancelled reports whether err represents cooperative cancellation
// (context.Canceled or context.DeadlineExceeded). Cancellation must never be
// wrapped into one of the kinds above; callers check this first and
// propagate it bare.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Wrap attaches kind to err with a message, unless err is itself a
// cancellation, in which case it is returned unchanged.
func Wrap(kind error, msg string, err error) error {
	if err != nil && IsCancelled(err) {
		return err
	}
	if err == nil {
		return fmt.Errorf("%s: %w", msg, kind)
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}
