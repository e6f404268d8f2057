package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stashly/stashly/internal/audit"
	"github.com/stashly/stashly/internal/backend"
	"github.com/stashly/stashly/internal/logging"
	"github.com/stashly/stashly/internal/notification"
	"github.com/stashly/stashly/internal/pinpad"
)

type fakeSetter struct {
	mu    sync.Mutex
	pins  []string
	err   error
	block chan struct{}
}

func (f *fakeSetter) SetPIN(ctx context.Context, email, pin string) (backend.Ack, error) {
	f.mu.Lock()
	f.pins = append(f.pins, pin)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return backend.Ack{}, f.err
	}
	return backend.Ack{Message: "PIN set successfully"}, nil
}

func (f *fakeSetter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pins)
}

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, m.Kind)
	return nil
}

func newTestService(setter *fakeSetter, notifier notification.Notifier) (*Service, audit.Repository) {
	repo := audit.NewMemoryRepository()
	svc := NewService(setter, repo, notifier, logging.Discard(), Options{
		PINLength:   4,
		WaitTimeout: 2 * time.Second,
	})
	return svc, repo
}

func pressDigits(t *testing.T, svc *Service, id, digits string) View {
	t.Helper()
	var view View
	for _, r := range digits {
		key, err := pinpad.ParseKey(string(r))
		if err != nil {
			t.Fatalf("parse key %q: %v", r, err)
		}
		view, err = svc.Press(context.Background(), id, key)
		if err != nil {
			t.Fatalf("press %q: %v", r, err)
		}
	}
	return view
}

func TestCreateThenVerifyWithConfirmToken(t *testing.T) {
	setter := &fakeSetter{}
	notifier := &recordingNotifier{}
	svc, repo := newTestService(setter, notifier)
	ctx := context.Background()

	created, err := svc.Open(ctx, OpenInput{Flow: pinpad.FlowCreate, Email: "saver@example.com"})
	if err != nil {
		t.Fatalf("open create: %v", err)
	}
	if created.State != "idle" || created.Length != 4 {
		t.Fatalf("unexpected initial view %+v", created)
	}

	done := pressDigits(t, svc, created.ID, "2580")
	if done.State != "success" || done.Outcome != audit.OutcomeSuccess {
		t.Fatalf("expected success, got %+v", done)
	}
	if done.ConfirmToken == "" {
		t.Fatal("expected a confirm token after create success")
	}
	if done.Message != "PIN set successfully" {
		t.Fatalf("unexpected message %q", done.Message)
	}
	if setter.count() != 1 {
		t.Fatalf("expected one backend call, got %d", setter.count())
	}

	if _, err := svc.Open(ctx, OpenInput{Flow: pinpad.FlowVerify, Email: "someone@example.com", ConfirmToken: done.ConfirmToken}); !errors.Is(err, ErrConfirmTokenInvalid) {
		t.Fatalf("expected token bound to identity, got %v", err)
	}

	verify, err := svc.Open(ctx, OpenInput{Flow: pinpad.FlowVerify, Email: "saver@example.com", ConfirmToken: done.ConfirmToken})
	if err != nil {
		t.Fatalf("open verify: %v", err)
	}

	mismatch := pressDigits(t, svc, verify.ID, "1111")
	if mismatch.State != "idle" || mismatch.Outcome != audit.OutcomeFailed || mismatch.Message != "PINs do not match" {
		t.Fatalf("expected mismatch to reset, got %+v", mismatch)
	}
	if mismatch.Filled != 0 {
		t.Fatalf("expected empty buffer after failure, got %d", mismatch.Filled)
	}

	confirmed := pressDigits(t, svc, verify.ID, "2580")
	if confirmed.State != "success" || confirmed.Message != "PIN confirmed" {
		t.Fatalf("expected confirmation, got %+v", confirmed)
	}

	if _, err := svc.Open(ctx, OpenInput{Flow: pinpad.FlowVerify, Email: "saver@example.com", ConfirmToken: done.ConfirmToken}); !errors.Is(err, ErrConfirmTokenInvalid) {
		t.Fatalf("expected confirm token to be single use, got %v", err)
	}

	attempts, err := repo.ListByEmail(ctx, "saver@example.com", 0)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.kinds) != 2 || notifier.kinds[0] != notification.KindPINSet || notifier.kinds[1] != notification.KindPINConfirmed {
		t.Fatalf("unexpected notifications %v", notifier.kinds)
	}
}

func TestVerifyWithoutTokenAcceptsAnyPIN(t *testing.T) {
	svc, _ := newTestService(&fakeSetter{}, nil)
	view, err := svc.Open(context.Background(), OpenInput{Flow: pinpad.FlowVerify, Email: "saver@example.com"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	done := pressDigits(t, svc, view.ID, "9876")
	if done.State != "success" {
		t.Fatalf("expected success, got %+v", done)
	}
}

func TestBackendRejectionResetsSession(t *testing.T) {
	setter := &fakeSetter{err: &backend.APIError{StatusCode: 400, Detail: "PIN too weak"}}
	svc, _ := newTestService(setter, nil)
	view, err := svc.Open(context.Background(), OpenInput{Flow: pinpad.FlowCreate, Email: "saver@example.com"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	failed := pressDigits(t, svc, view.ID, "1234")
	if failed.State != "idle" || failed.Message != "PIN too weak" || failed.ConfirmToken != "" {
		t.Fatalf("unexpected failure view %+v", failed)
	}

	setter.mu.Lock()
	setter.err = nil
	setter.mu.Unlock()
	retried := pressDigits(t, svc, view.ID, "4321")
	if retried.State != "success" {
		t.Fatalf("expected retry to succeed, got %+v", retried)
	}
	if setter.count() != 2 {
		t.Fatalf("expected two backend calls, got %d", setter.count())
	}
}

func TestPressReturnsSubmittingWhenOutcomeIsSlow(t *testing.T) {
	setter := &fakeSetter{block: make(chan struct{})}
	repo := audit.NewMemoryRepository()
	svc := NewService(setter, repo, nil, logging.Discard(), Options{WaitTimeout: 20 * time.Millisecond})

	view, err := svc.Open(context.Background(), OpenInput{Flow: pinpad.FlowCreate, Email: "saver@example.com"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	pending := pressDigits(t, svc, view.ID, "1234")
	if pending.State != "submitting" {
		t.Fatalf("expected submitting, got %+v", pending)
	}

	extra := pressDigits(t, svc, view.ID, "5")
	if extra.Filled != 4 || extra.State != "submitting" {
		t.Fatalf("expected input ignored while submitting, got %+v", extra)
	}

	close(setter.block)
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := svc.Get(view.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.State == "success" && got.ConfirmToken != "" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never settled: %+v", got)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if setter.count() != 1 {
		t.Fatalf("expected exactly one backend call, got %d", setter.count())
	}
}

func TestSuccessViewAlwaysCarriesConfirmToken(t *testing.T) {
	for i := 0; i < 20; i++ {
		setter := &fakeSetter{block: make(chan struct{})}
		svc := NewService(setter, audit.NewMemoryRepository(), nil, logging.Discard(), Options{WaitTimeout: time.Millisecond})

		view, err := svc.Open(context.Background(), OpenInput{Flow: pinpad.FlowCreate, Email: "saver@example.com"})
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if got := pressDigits(t, svc, view.ID, "1234"); got.State != "submitting" {
			t.Fatalf("expected submitting after timeout, got %+v", got)
		}

		close(setter.block)
		deadline := time.Now().Add(2 * time.Second)
		var got View
		for {
			got, err = svc.Get(view.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.State == "success" {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("session never settled: %+v", got)
			}
		}
		if got.ConfirmToken == "" {
			t.Fatalf("run %d: success view without confirm token: %+v", i, got)
		}
		if _, err := svc.Open(context.Background(), OpenInput{Flow: pinpad.FlowVerify, Email: "saver@example.com", ConfirmToken: got.ConfirmToken}); err != nil {
			t.Fatalf("run %d: confirm token from poll rejected: %v", i, err)
		}
	}
}

func TestOpenValidation(t *testing.T) {
	svc, _ := newTestService(&fakeSetter{}, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		in   OpenInput
		want error
	}{
		{"unknown flow", OpenInput{Flow: "reset", Email: "saver@example.com"}, pinpad.ErrUnknownFlow},
		{"missing identity", OpenInput{Flow: pinpad.FlowCreate, Email: "  "}, pinpad.ErrMissingIdentity},
		{"invalid identity", OpenInput{Flow: pinpad.FlowCreate, Email: "not-an-email"}, pinpad.ErrInvalidIdentity},
		{"unknown token", OpenInput{Flow: pinpad.FlowVerify, Email: "saver@example.com", ConfirmToken: "nope"}, ErrConfirmTokenInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Open(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestIdleSessionsExpire(t *testing.T) {
	svc, _ := newTestService(&fakeSetter{}, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	view, err := svc.Open(context.Background(), OpenInput{Flow: pinpad.FlowCreate, Email: "saver@example.com"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	now = now.Add(11 * time.Minute)
	if _, err := svc.Get(view.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestCloseSession(t *testing.T) {
	svc, _ := newTestService(&fakeSetter{}, nil)
	view, err := svc.Open(context.Background(), OpenInput{Flow: pinpad.FlowCreate, Email: "saver@example.com"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := svc.Close(view.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := svc.Close(view.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found on second close, got %v", err)
	}
}
