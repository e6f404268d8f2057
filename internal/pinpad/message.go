package pinpad

import (
	"errors"
	"strings"
)

// DefaultFallbackMessage is shown when a rejection carries no detail.
const DefaultFallbackMessage = "Something went wrong. Please try again."

const missingIdentityMessage = "Identity is required to continue."

// FailureMessage extracts the text shown to the user for err. A structured
// detail anywhere in the chain wins; anything else gets fallback.
func FailureMessage(err error, fallback string) string {
	if fallback == "" {
		fallback = DefaultFallbackMessage
	}
	if err == nil {
		return fallback
	}
	if errors.Is(err, ErrMissingIdentity) {
		return missingIdentityMessage
	}
	var d interface{ UserDetail() string }
	if errors.As(err, &d) {
		if detail := d.UserDetail(); strings.TrimSpace(detail) != "" {
			return detail
		}
	}
	return fallback
}
