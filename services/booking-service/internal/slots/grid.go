package slots

import (
	"time"
)

const layout = "15:04"

// Grid describes the bookable slot starts of a business day. Close is inclusive: a grid from
// 08:00 to 18:00 every 30 minutes yields 21 slots.
type Grid struct {
	Open  time.Duration
	Close time.Duration
	Step  time.Duration
}

// DefaultGrid is the canonical day: 08:00 to 18:00, every 30 minutes.
var DefaultGrid = Grid{
	Open:  8 * time.Hour,
	Close: 18 * time.Hour,
	Step:  30 * time.Minute,
}

var canonical = DefaultGrid.Times()

// Canonical returns the canonical slot sequence. Callers own the returned slice.
func Canonical() []string {
	out := make([]string, len(canonical))
	copy(out, canonical)
	return out
}

// Valid reports whether t is a slot of the canonical grid.
func Valid(t string) bool {
	for _, s := range canonical {
		if s == t {
			return true
		}
	}
	return false
}

// Times returns the slot starts of g in chronological order as "HH:MM".
func (g Grid) Times() []string {
	if g.Step <= 0 || g.Close < g.Open || g.Open < 0 || g.Close >= 24*time.Hour {
		return nil
	}

	var out []string
	midnight := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for t := midnight.Add(g.Open); !t.After(midnight.Add(g.Close)); t = t.Add(g.Step) {
		out = append(out, t.Format(layout))
	}
	return out
}
