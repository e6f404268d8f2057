package pinpad

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultLength is the PIN length used when Config.Length is zero.
const DefaultLength = 4

var tracer = otel.Tracer("github.com/stashly/stashly/internal/pinpad")

// ErrUnknownFlow is returned for a flow other than create or verify.
var ErrUnknownFlow = errors.New("unknown flow")

// State of the verification workflow.
type State int

const (
	Idle State = iota
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Flow selects which screen the machine backs.
type Flow string

const (
	// FlowCreate sets a new PIN remotely and forwards it to the confirm step.
	FlowCreate Flow = "create"
	// FlowVerify confirms a PIN locally.
	FlowVerify Flow = "verify"
)

// ParseFlow validates a flow name.
func ParseFlow(s string) (Flow, error) {
	switch Flow(s) {
	case FlowCreate, FlowVerify:
		return Flow(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFlow, s)
}

// Handoff is forwarded to the next screen after a successful submission.
// PIN is only populated by the create flow.
type Handoff struct {
	Identity Identity
	PIN      string
}

// Outcome is the result of one submission attempt.
type Outcome struct {
	State   State
	Message string
	Handoff Handoff
	Err     error
}

// Config parameterises a Machine.
type Config struct {
	Flow      Flow
	Identity  Identity
	Length    int
	Submitter Submitter
	// FallbackMessage replaces DefaultFallbackMessage when set.
	FallbackMessage string
	// OnTransition is called with the machine lock held; it must not call
	// back into the machine.
	OnTransition func(from, to State)
}

// Snapshot is the externally visible state. The digits themselves are never
// exposed, only how many have been entered.
type Snapshot struct {
	Flow    Flow
	State   State
	Filled  int
	Length  int
	Message string
}

// Machine is the PIN entry and verification state machine shared by the
// create and verify screens.
type Machine struct {
	mu      sync.Mutex
	cfg     Config
	buf     *Buffer
	trigger *Trigger
	state   State
	message string
}

// NewMachine builds a machine in the Idle state with an empty buffer.
func NewMachine(cfg Config) (*Machine, error) {
	if _, err := ParseFlow(string(cfg.Flow)); err != nil {
		return nil, err
	}
	if cfg.Length == 0 {
		cfg.Length = DefaultLength
	}
	if cfg.Length < 1 {
		return nil, fmt.Errorf("pin length must be positive, got %d", cfg.Length)
	}
	if cfg.Submitter == nil {
		return nil, errors.New("submitter is required")
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = DefaultFallbackMessage
	}
	return &Machine{
		cfg:     cfg,
		buf:     NewBuffer(cfg.Length),
		trigger: NewTrigger(cfg.Length),
		state:   Idle,
	}, nil
}

// Press applies one key. Input is ignored unless the machine is Idle. When the
// press completes the buffer, exactly one submission starts and its Attempt
// is returned; every other press returns a nil Attempt.
//
// The submission outlives ctx cancellation and deadline. Timeouts belong to
// the submitter's transport.
func (m *Machine) Press(ctx context.Context, key Key) (Snapshot, *Attempt) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Idle {
		return m.snapshotLocked(), nil
	}

	switch key.Kind {
	case KeyDigit:
		if !m.buf.Append(key.Digit) {
			return m.snapshotLocked(), nil
		}
	case KeyBackspace:
		m.buf.RemoveLast()
		return m.snapshotLocked(), nil
	default:
		return m.snapshotLocked(), nil
	}

	if !m.trigger.Observe(m.buf.Len()) {
		return m.snapshotLocked(), nil
	}

	attempt := newAttempt()
	if m.cfg.Identity.IsZero() {
		m.transitionLocked(Failed)
		attempt.resolve(m.failLocked(ErrMissingIdentity))
		return m.snapshotLocked(), attempt
	}

	pin := m.buf.value()
	m.transitionLocked(Submitting)
	go m.submit(context.WithoutCancel(ctx), attempt, pin)
	return m.snapshotLocked(), attempt
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// State returns the current workflow state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) submit(ctx context.Context, attempt *Attempt, pin string) {
	ctx, span := tracer.Start(ctx, "pinpad.submit", trace.WithAttributes(
		attribute.String("pinpad.flow", string(m.cfg.Flow)),
	))
	defer span.End()

	receipt, err := m.cfg.Submitter.Submit(ctx, m.cfg.Identity, pin)

	m.mu.Lock()
	var outcome Outcome
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission rejected")
		m.transitionLocked(Failed)
		outcome = m.failLocked(err)
	} else {
		m.transitionLocked(Success)
		m.buf.Reset()
		m.message = receipt.Message
		outcome = Outcome{State: Success, Message: receipt.Message, Handoff: m.handoff(pin)}
	}
	m.mu.Unlock()

	attempt.resolve(outcome)
}

// failLocked clears the buffer, re-arms the trigger and returns to Idle.
func (m *Machine) failLocked(err error) Outcome {
	msg := FailureMessage(err, m.cfg.FallbackMessage)
	m.message = msg
	m.buf.Reset()
	m.trigger.Rearm()
	m.transitionLocked(Idle)
	return Outcome{State: Failed, Message: msg, Err: err}
}

func (m *Machine) handoff(pin string) Handoff {
	h := Handoff{Identity: m.cfg.Identity}
	if m.cfg.Flow == FlowCreate {
		h.PIN = pin
	}
	return h
}

func (m *Machine) transitionLocked(to State) {
	from := m.state
	m.state = to
	if m.cfg.OnTransition != nil && from != to {
		m.cfg.OnTransition(from, to)
	}
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		Flow:    m.cfg.Flow,
		State:   m.state,
		Filled:  m.buf.Len(),
		Length:  m.buf.Size(),
		Message: m.message,
	}
}

// Attempt tracks one in-flight submission.
type Attempt struct {
	done    chan struct{}
	outcome Outcome
}

func newAttempt() *Attempt {
	return &Attempt{done: make(chan struct{})}
}

// Done is closed once the outcome is available.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Wait blocks until the submission resolves or ctx ends. Ending ctx does not
// cancel the submission.
func (a *Attempt) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-a.done:
		return a.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (a *Attempt) resolve(o Outcome) {
	a.outcome = o
	close(a.done)
}
