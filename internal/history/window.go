package history

import "helperbot/internal/domain"

// DefaultMaxHistory is the window size used when none is configured.
const DefaultMaxHistory = 10

// Window is a bounded FIFO of turns: pushing past capacity evicts the oldest.
type Window struct {
	max   int
	turns []domain.Turn
}

// NewWindow creates a window holding at most max turns.
func NewWindow(max int) *Window {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &Window{max: max, turns: make([]domain.Turn, 0, max)}
}

func (w *Window) Push(turns ...domain.Turn) {
	w.turns = append(w.turns, turns...)
	if over := len(w.turns) - w.max; over > 0 {
		w.turns = append(w.turns[:0], w.turns[over:]...)
	}
}

// Turns returns a copy of the window in chronological order.
func (w *Window) Turns() []domain.Turn {
	return append([]domain.Turn(nil), w.turns...)
}

func (w *Window) Len() int { return len(w.turns) }
func (w *Window) Cap() int { return w.max }

func (w *Window) Reset() { w.turns = w.turns[:0] }
