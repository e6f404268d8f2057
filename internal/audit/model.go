package audit

import "time"

const (
	// OutcomeSuccess marks an accepted PIN submission.
	OutcomeSuccess = "success"
	// OutcomeFailed marks a rejected PIN submission.
	OutcomeFailed = "failed"
)

// Attempt records one PIN submission. The PIN itself is never stored.
type Attempt struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Flow      string    `json:"flow"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
