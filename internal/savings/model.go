package savings

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stashly/stashly/internal/backend"
)

// Kind identifies a savings product.
type Kind string

const (
	KindSafeLock  Kind = "safelock"
	KindMyGoal    Kind = "mygoal"
	KindFlexi     Kind = "flexi"
	KindEmergency Kind = "emergency"
)

// ParseKind validates a plan kind reported by the backend.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSafeLock, KindMyGoal, KindFlexi, KindEmergency:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown plan kind %q", s)
}

// Plan is a savings plan owned by a user.
type Plan struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Name      string          `json:"name"`
	Target    decimal.Decimal `json:"target"`
	Saved     decimal.Decimal `json:"saved"`
	Currency  string          `json:"currency"`
	MaturesAt *time.Time      `json:"matures_at,omitempty"`
}

// LockedAt reports whether funds in the plan cannot be withdrawn at now.
// Only SafeLock plans lock, until their maturity date.
func (p Plan) LockedAt(now time.Time) bool {
	return p.Kind == KindSafeLock && p.MaturesAt != nil && now.Before(*p.MaturesAt)
}

// Goal is a plan together with its progress.
type Goal struct {
	Plan     Plan     `json:"plan"`
	Progress Progress `json:"progress"`
}

func planFromBackend(p backend.Plan) (Plan, error) {
	kind, err := ParseKind(p.Kind)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		ID:        p.ID,
		Kind:      kind,
		Name:      p.Name,
		Target:    p.Target,
		Saved:     p.Saved,
		Currency:  p.Currency,
		MaturesAt: p.MaturesAt,
	}, nil
}
