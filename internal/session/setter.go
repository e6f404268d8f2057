package session

import (
	"context"

	"github.com/stashly/stashly/internal/backend"
	"github.com/stashly/stashly/internal/pinpad"
)

// Setter is the backend call behind the create flow.
type Setter interface {
	SetPIN(ctx context.Context, email, pin string) (backend.Ack, error)
}

// AckSetter adapts a backend Setter to the pin pad, surfacing the
// acknowledgment message.
func AckSetter(s Setter) pinpad.PINSetter {
	return pinpad.PINSetterFunc(func(ctx context.Context, email, pin string) (string, error) {
		ack, err := s.SetPIN(ctx, email, pin)
		if err != nil {
			return "", err
		}
		return ack.Message, nil
	})
}
