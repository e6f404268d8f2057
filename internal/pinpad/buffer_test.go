package pinpad

import (
	"math/rand"
	"testing"
)

func TestBufferLengthStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	buf := NewBuffer(4)
	for i := 0; i < 5000; i++ {
		if rng.Intn(3) == 0 {
			buf.RemoveLast()
		} else {
			buf.Append(byte('0' + rng.Intn(10)))
		}
		if buf.Len() < 0 || buf.Len() > 4 {
			t.Fatalf("step %d: length %d out of range", i, buf.Len())
		}
	}
}

func TestBufferAppendWhenFullIsNoop(t *testing.T) {
	buf := NewBuffer(4)
	for _, d := range []byte("1234") {
		if !buf.Append(d) {
			t.Fatalf("append %c rejected", d)
		}
	}
	if buf.Append('5') {
		t.Fatal("expected fifth digit to be rejected")
	}
	if got := buf.value(); got != "1234" {
		t.Fatalf("expected 1234, got %s", got)
	}
}

func TestBufferRejectsNonDigits(t *testing.T) {
	buf := NewBuffer(4)
	if buf.Append('a') {
		t.Fatal("expected non-digit to be rejected")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected empty buffer, got %d", buf.Len())
	}
}

func TestBufferRemoveLastOnEmpty(t *testing.T) {
	buf := NewBuffer(4)
	if buf.RemoveLast() {
		t.Fatal("expected no-op on empty buffer")
	}
	buf.Append('1')
	buf.Append('2')
	buf.RemoveLast()
	if got := buf.value(); got != "1" {
		t.Fatalf("expected 1, got %s", got)
	}
	buf.Reset()
	if buf.Len() != 0 {
		t.Fatalf("expected reset buffer, got %d", buf.Len())
	}
}

func TestTriggerFiresOncePerFill(t *testing.T) {
	trig := NewTrigger(4)
	for _, n := range []int{1, 2, 1, 2, 3} {
		if trig.Observe(n) {
			t.Fatalf("fired early at length %d", n)
		}
	}
	if !trig.Observe(4) {
		t.Fatal("expected trigger to fire at length 4")
	}
	if trig.Observe(4) {
		t.Fatal("trigger fired twice in one fill")
	}
	trig.Rearm()
	if !trig.Armed() {
		t.Fatal("expected trigger to be armed after rearm")
	}
	if !trig.Observe(4) {
		t.Fatal("expected trigger to fire after rearm")
	}
}

func TestParseKey(t *testing.T) {
	cases := map[string]Key{
		"7":         Digit('7'),
		" 0 ":       Digit('0'),
		"backspace": Backspace,
		"DEL":       Backspace,
		"":          Blank,
		"blank":     Blank,
	}
	for in, want := range cases {
		got, err := ParseKey(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %v, got %v", in, want, got)
		}
	}
	if _, err := ParseKey("12"); err == nil {
		t.Fatal("expected error for multi-digit key")
	}
}

func TestLayoutShape(t *testing.T) {
	rows := Layout()
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	last := rows[3]
	if last[0] != Blank || last[1] != Digit('0') || last[2] != Backspace {
		t.Fatalf("unexpected last row: %v", last)
	}
}
