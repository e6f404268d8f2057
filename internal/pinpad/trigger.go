package pinpad

// Trigger fires once when the buffer first reaches the required length and
// stays silent until Rearm is called.
type Trigger struct {
	size  int
	armed bool
}

// NewTrigger returns an armed trigger for the given length.
func NewTrigger(size int) *Trigger {
	return &Trigger{size: size, armed: true}
}

// Observe is called with the buffer length after every mutation. It returns
// true exactly once per fill cycle.
func (t *Trigger) Observe(length int) bool {
	if !t.armed || length != t.size {
		return false
	}
	t.armed = false
	return true
}

// Rearm allows the trigger to fire again on the next fill.
func (t *Trigger) Rearm() { t.armed = true }

// Armed reports whether the next fill will fire.
func (t *Trigger) Armed() bool { return t.armed }
