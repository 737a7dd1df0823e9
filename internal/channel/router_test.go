package channel

import (
	"context"
	"errors"
	"testing"
)

type recordingSender struct {
	handles []string
	err     error
}

func (s *recordingSender) Send(_ context.Context, handle, _ string) (string, error) {
	s.handles = append(s.handles, handle)
	if s.err != nil {
		return "", s.err
	}
	return "delivery-1", nil
}

func TestRouterPicksChannelByHandleShape(t *testing.T) {
	wa := &recordingSender{}
	mail := &recordingSender{}
	r := NewRouter(wa, mail)

	if _, err := r.Send(context.Background(), "+31612345678", "hi"); err != nil {
		t.Fatalf("phone send: %v", err)
	}
	if _, err := r.Send(context.Background(), "agent@example.com", "hi"); err != nil {
		t.Fatalf("email send: %v", err)
	}

	if len(wa.handles) != 1 || wa.handles[0] != "+31612345678" {
		t.Fatalf("whatsapp channel got %v", wa.handles)
	}
	if len(mail.handles) != 1 || mail.handles[0] != "agent@example.com" {
		t.Fatalf("email channel got %v", mail.handles)
	}
}

func TestRouterReportsUnroutableHandles(t *testing.T) {
	r := NewRouter(nil, nil)

	for _, handle := range []string{"not-a-handle", "+31612345678", "a@b.nl"} {
		_, err := r.Send(context.Background(), handle, "hi")
		var deliveryErr *DeliveryError
		if !errors.As(err, &deliveryErr) {
			t.Errorf("%s: expected DeliveryError, got %v", handle, err)
		}
	}
}
