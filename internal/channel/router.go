package channel

import (
	"context"
	"errors"
	"strings"

	"estate_portal_backend/platform/phone"
)

// Router picks a concrete channel by contact handle shape: valid phone
// numbers go over WhatsApp, addresses containing '@' over email. Either
// channel may be nil when not configured.
type Router struct {
	whatsapp Sender
	email    Sender
}

// NewRouter creates a channel router. Nil senders are allowed; a handle
// routed to a missing channel yields a DeliveryError.
func NewRouter(whatsapp, email Sender) *Router {
	return &Router{whatsapp: whatsapp, email: email}
}

// Send routes the message to the channel matching the handle.
func (r *Router) Send(ctx context.Context, contactHandle, message string) (string, error) {
	switch {
	case phone.IsPhoneNumber(contactHandle):
		if r.whatsapp == nil {
			return "", NewDeliveryError(contactHandle, errors.New("whatsapp channel not configured"))
		}
		return r.whatsapp.Send(ctx, contactHandle, message)
	case strings.Contains(contactHandle, "@"):
		if r.email == nil {
			return "", NewDeliveryError(contactHandle, errors.New("email channel not configured"))
		}
		return r.email.Send(ctx, contactHandle, message)
	default:
		return "", NewDeliveryError(contactHandle, errors.New("unrecognized contact handle"))
	}
}

var _ Sender = (*Router)(nil)
