package metadata

import (
	"context"
	"errors"
	"fmt"
)

// Publisher stores a document and returns the URI it can be fetched from.
type Publisher interface {
	Publish(ctx context.Context, doc Document) (string, error)
}

// PublishError wraps every backend failure. Retryable marks transient
// failures; nothing in this service retries on its own.
type PublishError struct {
	Backend   string
	Retryable bool
	Err       error
}

func (e *PublishError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "transient"
	}
	return fmt.Sprintf("metadata: %s publish failed (%s): %v", e.Backend, kind, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient publish failure.
func IsRetryable(err error) bool {
	var pe *PublishError
	return errors.As(err, &pe) && pe.Retryable
}

func contextRetryable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
