package transport

import (
	"context"
	"errors"
	"fmt"
)

// Notification is a fully rendered message ready for delivery.
type Notification struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Transport delivers rendered notifications. Implementations classify
// failures via TransientError / PermanentError so the dispatcher knows
// whether to retry.
type Transport interface {
	Send(ctx context.Context, notification Notification) error
	TestConfiguration(ctx context.Context) error
}

// SendError wraps a transport failure with its retry classification.
type SendError struct {
	Permanent bool
	Err       error
}

func (e *SendError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("permanent transport failure: %v", e.Err)
	}
	return fmt.Sprintf("transient transport failure: %v", e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// TransientError marks err as retryable.
func TransientError(err error) error {
	return &SendError{Permanent: false, Err: err}
}

// PermanentError marks err as not worth retrying.
func PermanentError(err error) error {
	return &SendError{Permanent: true, Err: err}
}

// IsPermanent reports whether err is classified as a permanent failure.
// Unclassified errors count as transient: retrying a permanent failure
// wastes attempts, dropping a transient one loses a notification.
func IsPermanent(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr) && sendErr.Permanent
}
