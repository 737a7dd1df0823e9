// Package channel defines the narrow outbound-messaging contract the claim
// coordinator depends on. Concrete channels (WhatsApp, SMTP) live in
// subpackages; the coordinator never sees a wire format.
package channel

import (
	"context"
	"fmt"
)

// Sender delivers one message to one contact handle and returns a channel
// delivery id. Implementations may block on network I/O; callers must keep
// Send off any lock guarding claim arbitration.
type Sender interface {
	Send(ctx context.Context, contactHandle, message string) (deliveryID string, err error)
}

// DeliveryError reports that one candidate could not be reached. It is
// recovered locally: broadcast continues for the remaining candidates.
type DeliveryError struct {
	ContactHandle string
	Err           error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.ContactHandle, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewDeliveryError wraps err as a delivery failure for the given handle.
func NewDeliveryError(contactHandle string, err error) *DeliveryError {
	return &DeliveryError{ContactHandle: contactHandle, Err: err}
}
