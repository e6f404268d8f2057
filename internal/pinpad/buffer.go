package pinpad

// Buffer holds the digits entered on the pad. Its length never exceeds the
// size it was created with.
type Buffer struct {
	digits []byte
	size   int
}

// NewBuffer creates an empty buffer that accepts up to size digits.
func NewBuffer(size int) *Buffer {
	return &Buffer{digits: make([]byte, 0, size), size: size}
}

// Append adds a digit when there is room. It reports whether the buffer changed.
func (b *Buffer) Append(digit byte) bool {
	if digit < '0' || digit > '9' {
		return false
	}
	if len(b.digits) >= b.size {
		return false
	}
	b.digits = append(b.digits, digit)
	return true
}

// RemoveLast drops the most recent digit. It reports whether the buffer changed.
func (b *Buffer) RemoveLast() bool {
	if len(b.digits) == 0 {
		return false
	}
	b.digits = b.digits[:len(b.digits)-1]
	return true
}

// Reset clears the buffer.
func (b *Buffer) Reset() {
	for i := range b.digits {
		b.digits[i] = 0
	}
	b.digits = b.digits[:0]
}

// Len returns the number of digits entered.
func (b *Buffer) Len() int { return len(b.digits) }

// Size returns the required number of digits.
func (b *Buffer) Size() int { return b.size }

// Full reports whether the buffer holds Size digits.
func (b *Buffer) Full() bool { return len(b.digits) == b.size }

func (b *Buffer) value() string { return string(b.digits) }
