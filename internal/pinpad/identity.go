package pinpad

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var (
	// ErrMissingIdentity is returned when a PIN operation has no identity to scope it.
	ErrMissingIdentity = errors.New("identity is required")
	// ErrInvalidIdentity is returned for an identity that is not a bare email address.
	ErrInvalidIdentity = errors.New("identity must be an email address")
)

// Identity scopes a PIN operation. It is validated once by NewIdentity and
// immutable afterwards.
type Identity struct {
	email string
}

// NewIdentity validates email and returns the identity for it.
func NewIdentity(email string) (Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Identity{}, ErrMissingIdentity
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, email)
	}
	return Identity{email: email}, nil
}

// Email returns the address the identity was built from.
func (i Identity) Email() string { return i.email }

// IsZero reports whether the identity was never set.
func (i Identity) IsZero() bool { return i.email == "" }

func (i Identity) String() string { return i.email }
