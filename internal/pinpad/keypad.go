package pinpad

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKey is returned by ParseKey for input that is not on the pad.
var ErrUnknownKey = errors.New("unknown key")

// KeyKind distinguishes the three kinds of key on the pad.
type KeyKind int

const (
	// KeyBlank is the inert placeholder rendered next to zero.
	KeyBlank KeyKind = iota
	KeyDigit
	KeyBackspace
)

// Key is a single press on the pad.
type Key struct {
	Kind  KeyKind
	Digit byte
}

var (
	// Blank is the disabled placeholder key.
	Blank = Key{Kind: KeyBlank}
	// Backspace removes the last digit.
	Backspace = Key{Kind: KeyBackspace}
)

// Digit returns the key for the digit character d ('0'..'9').
func Digit(d byte) Key {
	return Key{Kind: KeyDigit, Digit: d}
}

// ParseKey maps a textual key name to a Key. Digits are "0" through "9";
// "backspace", "back" and "del" remove a digit; "" and "blank" are the
// placeholder.
func ParseKey(s string) (Key, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "blank":
		return Blank, nil
	case "backspace", "back", "del":
		return Backspace, nil
	}
	if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
		return Digit(s[0]), nil
	}
	return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

func (k Key) String() string {
	switch k.Kind {
	case KeyDigit:
		return string(k.Digit)
	case KeyBackspace:
		return "backspace"
	default:
		return "blank"
	}
}

// Layout returns the pad rows top to bottom: 1-9, then blank, 0, backspace.
func Layout() [][]Key {
	return [][]Key{
		{Digit('1'), Digit('2'), Digit('3')},
		{Digit('4'), Digit('5'), Digit('6')},
		{Digit('7'), Digit('8'), Digit('9')},
		{Blank, Digit('0'), Backspace},
	}
}
