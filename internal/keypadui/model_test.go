package keypadui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stashly/stashly/internal/pinpad"
)

func newMachine(t *testing.T, submit pinpad.SubmitFunc) *pinpad.Machine {
	t.Helper()
	id, err := pinpad.NewIdentity("saver@example.com")
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	m, err := pinpad.NewMachine(pinpad.Config{Flow: pinpad.FlowCreate, Identity: id, Submitter: submit})
	if err != nil {
		t.Fatalf("machine: %v", err)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send applies msg and runs any command it returns, feeding the result back.
func send(t *testing.T, m Model, msg tea.Msg) (Model, bool) {
	t.Helper()
	next, cmd := m.Update(msg)
	model := next.(Model)
	for cmd != nil {
		out := cmd()
		if _, ok := out.(tea.QuitMsg); ok {
			return model, true
		}
		next, cmd = model.Update(out)
		model = next.(Model)
	}
	return model, false
}

func TestTypingCompletesPIN(t *testing.T) {
	var got string
	model := New("Create PIN", newMachine(t, func(_ context.Context, _ pinpad.Identity, pin string) (pinpad.Receipt, error) {
		got = pin
		return pinpad.Receipt{Message: "PIN set successfully"}, nil
	}))

	var quit bool
	for _, k := range []tea.Msg{runes("1"), runes("2"), tea.KeyMsg{Type: tea.KeyBackspace}, runes("3"), runes("4"), runes("5")} {
		model, quit = send(t, model, k)
	}
	if !quit {
		t.Fatal("expected program to quit after success")
	}
	out, ok := model.Result()
	if !ok || out.Handoff.PIN != "1345" {
		t.Fatalf("unexpected result %+v ok=%v", out, ok)
	}
	if got != "1345" {
		t.Fatalf("submitted %q", got)
	}
}

func TestArrowNavigationPressesGridKeys(t *testing.T) {
	model := New("Create PIN", newMachine(t, func(context.Context, pinpad.Identity, string) (pinpad.Receipt, error) {
		return pinpad.Receipt{}, nil
	}))

	// Cursor starts on 1; down twice and right once lands on 8.
	model, _ = send(t, model, tea.KeyMsg{Type: tea.KeyDown})
	model, _ = send(t, model, tea.KeyMsg{Type: tea.KeyDown})
	model, _ = send(t, model, tea.KeyMsg{Type: tea.KeyRight})
	model, _ = send(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if model.snap.Filled != 1 {
		t.Fatalf("expected one digit, got %d", model.snap.Filled)
	}

	// Up from the top row wraps to the bottom row; column 1 is 0.
	model, _ = send(t, model, tea.KeyMsg{Type: tea.KeyUp})
	model, _ = send(t, model, tea.KeyMsg{Type: tea.KeyUp})
	model, _ = send(t, model, tea.KeyMsg{Type: tea.KeyUp})
	if model.layout[model.row][model.col] != pinpad.Digit('0') {
		t.Fatalf("expected cursor on 0, got %v", model.layout[model.row][model.col])
	}
}

func TestRejectionShowsMessageAndKeepsRunning(t *testing.T) {
	model := New("Create PIN", newMachine(t, func(context.Context, pinpad.Identity, string) (pinpad.Receipt, error) {
		return pinpad.Receipt{}, errors.New("network down")
	}))

	var quit bool
	for _, r := range "9999" {
		model, quit = send(t, model, runes(string(r)))
	}
	if quit {
		t.Fatal("did not expect quit after failure")
	}
	if _, ok := model.Result(); ok {
		t.Fatal("expected no result")
	}
	view := model.View()
	if !strings.Contains(view, pinpad.DefaultFallbackMessage) {
		t.Fatalf("expected fallback message in view:\n%s", view)
	}
	if strings.Count(view, "●") != 0 {
		t.Fatalf("expected empty buffer after failure:\n%s", view)
	}
}

func TestQuit(t *testing.T) {
	model := New("Confirm PIN", newMachine(t, func(context.Context, pinpad.Identity, string) (pinpad.Receipt, error) {
		return pinpad.Receipt{}, nil
	}))
	model, quit := send(t, model, runes("q"))
	if !quit || model.View() != "" {
		t.Fatalf("expected quit with empty view, quit=%v", quit)
	}
}

func TestQuitWaitsForInFlightSubmission(t *testing.T) {
	for _, tc := range []struct {
		name    string
		err     error
		wantSet bool
	}{
		{"accepted", nil, true},
		{"rejected", errors.New("network down"), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			release := make(chan struct{})
			model := New("Create PIN", newMachine(t, func(context.Context, pinpad.Identity, string) (pinpad.Receipt, error) {
				<-release
				if tc.err != nil {
					return pinpad.Receipt{}, tc.err
				}
				return pinpad.Receipt{Message: "PIN set successfully"}, nil
			}))

			var wait tea.Cmd
			for _, r := range "1234" {
				next, cmd := model.Update(runes(string(r)))
				model = next.(Model)
				if cmd != nil {
					wait = cmd
				}
			}
			if wait == nil || model.snap.State != pinpad.Submitting {
				t.Fatalf("expected submission in flight, state=%v", model.snap.State)
			}

			for _, k := range []tea.Msg{runes("q"), tea.KeyMsg{Type: tea.KeyEsc}} {
				next, cmd := model.Update(k)
				model = next.(Model)
				if cmd != nil {
					t.Fatalf("expected quit to be held while submitting, got cmd for %v", k)
				}
			}
			if !strings.Contains(model.View(), "will exit once the backend answers") {
				t.Fatalf("expected pending exit notice:\n%s", model.View())
			}

			close(release)
			next, cmd := model.Update(wait())
			model = next.(Model)
			if cmd == nil {
				t.Fatal("expected quit once the outcome arrived")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Fatal("expected tea.Quit")
			}
			if _, ok := model.Result(); ok != tc.wantSet {
				t.Fatalf("expected result=%v, got %v", tc.wantSet, ok)
			}
		})
	}
}
