package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stashly/stashly/internal/audit"
	"github.com/stashly/stashly/internal/notification"
	"github.com/stashly/stashly/internal/pinpad"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrConfirmTokenInvalid is returned when a verify session names a
	// confirm token that does not exist, expired, or belongs to someone else.
	ErrConfirmTokenInvalid = errors.New("confirm token is invalid or expired")
)

// Options tune the pin pad sessions.
type Options struct {
	PINLength       int
	ConfirmDelay    time.Duration
	TTL             time.Duration
	WaitTimeout     time.Duration
	FallbackMessage string
}

func (o *Options) withDefaults() {
	if o.PINLength == 0 {
		o.PINLength = pinpad.DefaultLength
	}
	if o.TTL <= 0 {
		o.TTL = 10 * time.Minute
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 15 * time.Second
	}
}

// OpenInput describes the screen a session backs.
type OpenInput struct {
	Flow         pinpad.Flow
	Email        string
	ConfirmToken string
}

// View is what clients see of a session.
type View struct {
	ID           string    `json:"session_id"`
	Flow         string    `json:"flow"`
	Email        string    `json:"email"`
	State        string    `json:"state"`
	Filled       int       `json:"filled"`
	Length       int       `json:"length"`
	Message      string    `json:"message,omitempty"`
	Outcome      string    `json:"outcome,omitempty"`
	ConfirmToken string    `json:"confirm_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type entry struct {
	id           string
	flow         pinpad.Flow
	identity     pinpad.Identity
	machine      *pinpad.Machine
	touched      time.Time
	confirmToken string
}

// pending is the handoff from a successful create session to its verify
// session. Only a bcrypt hash of the PIN is kept.
type pending struct {
	identity pinpad.Identity
	hash     []byte
	expires  time.Time
}

// Service hosts live pin pad sessions.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*entry
	confirms map[string]pending

	setter   pinpad.PINSetter
	attempts audit.Repository
	notifier notification.Notifier
	logger   *slog.Logger
	opts     Options
	now      func() time.Time
}

// NewService wires the session host.
func NewService(setter Setter, attempts audit.Repository, notifier notification.Notifier, logger *slog.Logger, opts Options) *Service {
	opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions: make(map[string]*entry),
		confirms: make(map[string]pending),
		setter:   AckSetter(setter),
		attempts: attempts,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// Open validates the identity and starts a session for the requested flow.
func (s *Service) Open(ctx context.Context, in OpenInput) (View, error) {
	flow, err := pinpad.ParseFlow(string(in.Flow))
	if err != nil {
		return View{}, err
	}
	identity, err := pinpad.NewIdentity(in.Email)
	if err != nil {
		return View{}, err
	}

	e := &entry{id: uuid.NewString(), flow: flow, identity: identity, touched: s.now()}

	var submitter pinpad.Submitter
	switch flow {
	case pinpad.FlowCreate:
		submitter = s.createSubmitter(e)
	case pinpad.FlowVerify:
		confirm := pinpad.LocalConfirm{Delay: s.opts.ConfirmDelay}
		if in.ConfirmToken != "" {
			hash, err := s.claimConfirm(in.ConfirmToken, identity)
			if err != nil {
				return View{}, err
			}
			confirm.Expected = hash
		}
		submitter = confirm
	}

	logger := s.logger.With(slog.String("session_id", e.id), slog.String("flow", string(flow)))
	machine, err := pinpad.NewMachine(pinpad.Config{
		Flow:            flow,
		Identity:        identity,
		Length:          s.opts.PINLength,
		Submitter:       submitter,
		FallbackMessage: s.opts.FallbackMessage,
		OnTransition: func(from, to pinpad.State) {
			logger.Debug("pin session transition", slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})
	if err != nil {
		return View{}, err
	}
	e.machine = machine

	s.mu.Lock()
	s.sweepLocked()
	s.sessions[e.id] = e
	s.mu.Unlock()

	logger.InfoContext(ctx, "pin session opened", slog.String("email", identity.Email()))
	return s.view(e, ""), nil
}

// Press applies a key to the session. A press that completes the PIN waits up
// to WaitTimeout for the outcome; past that the current state is returned and
// the client polls Get.
func (s *Service) Press(ctx context.Context, id string, key pinpad.Key) (View, error) {
	e, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}

	_, attempt := e.machine.Press(ctx, key)
	if attempt == nil {
		return s.view(e, ""), nil
	}

	settled := make(chan View, 1)
	detached := context.WithoutCancel(ctx)
	go func() {
		out, _ := attempt.Wait(detached)
		settled <- s.settle(detached, e, out)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.WaitTimeout)
	defer cancel()
	select {
	case v := <-settled:
		return v, nil
	case <-waitCtx.Done():
		return s.view(e, ""), nil
	}
}

// Get returns the current view of a session.
func (s *Service) Get(id string) (View, error) {
	e, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	return s.view(e, ""), nil
}

// Close discards a session.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Attempts lists recorded attempts for email, newest first.
func (s *Service) Attempts(ctx context.Context, email string, limit int) ([]audit.Attempt, error) {
	identity, err := pinpad.NewIdentity(email)
	if err != nil {
		return nil, err
	}
	return s.attempts.ListByEmail(ctx, identity.Email(), limit)
}

func (s *Service) settle(ctx context.Context, e *entry, out pinpad.Outcome) View {
	record := audit.Attempt{
		ID:        uuid.NewString(),
		Email:     e.identity.Email(),
		Flow:      string(e.flow),
		Outcome:   audit.OutcomeFailed,
		Message:   out.Message,
		CreatedAt: s.now().UTC(),
	}
	if out.State == pinpad.Success {
		record.Outcome = audit.OutcomeSuccess
	}
	if err := s.attempts.Record(ctx, record); err != nil {
		s.logger.Warn("record pin attempt", slog.String("session_id", e.id), slog.Any("error", err))
	}

	if out.State != pinpad.Success {
		s.logger.Info("pin attempt rejected", slog.String("session_id", e.id), slog.String("message", out.Message), slog.Any("error", out.Err))
		return s.view(e, audit.OutcomeFailed)
	}

	kind := notification.KindPINConfirmed
	if e.flow == pinpad.FlowCreate {
		kind = notification.KindPINSet
	}
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: e.identity.Email(), Body: out.Message}); err != nil {
			s.logger.Warn("send pin acknowledgment", slog.String("session_id", e.id), slog.Any("error", err))
		}
	}
	s.logger.Info("pin attempt accepted", slog.String("session_id", e.id))
	return s.view(e, audit.OutcomeSuccess)
}

// createSubmitter sets the PIN remotely and registers the confirm token on
// e before the machine can report success, so any view showing success also
// carries the token.
func (s *Service) createSubmitter(e *entry) pinpad.Submitter {
	remote := pinpad.NewRemoteSetter(s.setter)
	return pinpad.SubmitFunc(func(ctx context.Context, id pinpad.Identity, pin string) (pinpad.Receipt, error) {
		receipt, err := remote.Submit(ctx, id, pin)
		if err != nil {
			return pinpad.Receipt{}, err
		}
		hash, err := pinpad.HashPIN(pin)
		if err != nil {
			s.logger.Error("hash pin for confirmation", slog.String("session_id", e.id), slog.Any("error", err))
			return pinpad.Receipt{}, err
		}
		token := uuid.NewString()
		s.mu.Lock()
		s.confirms[token] = pending{identity: id, hash: hash, expires: s.now().Add(s.opts.TTL)}
		e.confirmToken = token
		s.mu.Unlock()
		return receipt, nil
	})
}

func (s *Service) claimConfirm(token string, identity pinpad.Identity) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	p, ok := s.confirms[token]
	if !ok || p.identity != identity {
		return nil, ErrConfirmTokenInvalid
	}
	delete(s.confirms, token)
	return p.hash, nil
}

func (s *Service) lookup(id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.touched = s.now()
	return e, nil
}

// sweepLocked drops idle sessions and expired confirm tokens.
func (s *Service) sweepLocked() {
	now := s.now()
	for id, e := range s.sessions {
		if now.Sub(e.touched) > s.opts.TTL && e.machine.State() != pinpad.Submitting {
			delete(s.sessions, id)
		}
	}
	for token, p := range s.confirms {
		if now.After(p.expires) {
			delete(s.confirms, token)
		}
	}
}

func (s *Service) view(e *entry, outcome string) View {
	snap := e.machine.Snapshot()
	s.mu.Lock()
	token := e.confirmToken
	expires := e.touched.Add(s.opts.TTL)
	s.mu.Unlock()
	return View{
		ID:           e.id,
		Flow:         string(e.flow),
		Email:        e.identity.Email(),
		State:        snap.State.String(),
		Filled:       snap.Filled,
		Length:       snap.Length,
		Message:      snap.Message,
		Outcome:      outcome,
		ConfirmToken: token,
		ExpiresAt:    expires.UTC(),
	}
}
