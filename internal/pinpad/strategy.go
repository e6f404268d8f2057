package pinpad

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultConfirmDelay is how long LocalConfirm waits before resolving.
const DefaultConfirmDelay = time.Second

// ErrPINMismatch is returned by LocalConfirm when the confirmation differs
// from the PIN chosen in the create step.
var ErrPINMismatch error = &rejection{detail: "PINs do not match"}

// Receipt is what a successful submission returns.
type Receipt struct {
	Message string
}

// Submitter is the capability invoked once a PIN is complete.
type Submitter interface {
	Submit(ctx context.Context, id Identity, pin string) (Receipt, error)
}

// SubmitFunc adapts a function to Submitter.
type SubmitFunc func(ctx context.Context, id Identity, pin string) (Receipt, error)

// Submit calls f.
func (f SubmitFunc) Submit(ctx context.Context, id Identity, pin string) (Receipt, error) {
	return f(ctx, id, pin)
}

// PINSetter is the remote set-PIN capability. It returns the acknowledgment
// message shown to the user.
type PINSetter interface {
	SetPIN(ctx context.Context, email, pin string) (string, error)
}

// PINSetterFunc adapts a function to PINSetter.
type PINSetterFunc func(ctx context.Context, email, pin string) (string, error)

// SetPIN calls f.
func (f PINSetterFunc) SetPIN(ctx context.Context, email, pin string) (string, error) {
	return f(ctx, email, pin)
}

// RemoteSetter submits a new PIN to the savings backend.
type RemoteSetter struct {
	setter PINSetter
}

// NewRemoteSetter wraps setter as a Submitter.
func NewRemoteSetter(setter PINSetter) *RemoteSetter {
	return &RemoteSetter{setter: setter}
}

// Submit sends the identity and PIN to the backend.
func (r *RemoteSetter) Submit(ctx context.Context, id Identity, pin string) (Receipt, error) {
	msg, err := r.setter.SetPIN(ctx, id.Email(), pin)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Message: msg}, nil
}

// LocalConfirm resolves a confirmation step without calling the backend.
// When Expected holds a bcrypt hash the entered PIN must match it.
type LocalConfirm struct {
	Delay    time.Duration
	Expected []byte
}

// Submit waits for Delay, then compares against Expected if set.
func (c LocalConfirm) Submit(ctx context.Context, _ Identity, pin string) (Receipt, error) {
	if c.Delay > 0 {
		timer := time.NewTimer(c.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		}
	}
	if len(c.Expected) > 0 {
		if err := bcrypt.CompareHashAndPassword(c.Expected, []byte(pin)); err != nil {
			return Receipt{}, ErrPINMismatch
		}
	}
	return Receipt{Message: "PIN confirmed"}, nil
}

// HashPIN returns the bcrypt hash handed from the create step to LocalConfirm.
func HashPIN(pin string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
}

type rejection struct {
	detail string
}

func (r *rejection) Error() string      { return r.detail }
func (r *rejection) UserDetail() string { return r.detail }
