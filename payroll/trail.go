package payroll

import "fmt"

// Trail is the append-only calculation log returned with every payment.
// It is shown to users, so each line is a complete sentence about one
// decision. A nil *Trail discards writes.
type Trail struct {
	lines []string
}

func NewTrail() *Trail {
	return &Trail{}
}

// Addf appends one formatted line.
func (t *Trail) Addf(format string, args ...any) {
	if t == nil {
		return
	}
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the lines written so far.
func (t *Trail) Lines() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

func (t *Trail) Len() int {
	if t == nil {
		return 0
	}
	return len(t.lines)
}
