package gap

import "strings"

// Key identifies the (rep, day) a removal note belongs to. Gaps spanning
// midnight land on the day of the pin that closed them.
type Key struct {
	Rep string
	Day string
}

// Notes accumulates human-readable gap-removal notes per (rep, day), in
// the chronological order the gaps occurred.
type Notes struct {
	byDay map[Key][]string
}

// NewNotes returns an empty accumulator scoped to one run.
func NewNotes() *Notes {
	return &Notes{byDay: make(map[Key][]string)}
}

func (n *Notes) add(key Key, note string) {
	n.byDay[key] = append(n.byDay[key], note)
}

// Joined returns the day's notes as one newline-joined string, empty when
// nothing was removed.
func (n *Notes) Joined(rep, day string) string {
	return strings.Join(n.byDay[Key{Rep: rep, Day: day}], "\n")
}

// Len reports how many (rep, day) groups carry notes.
func (n *Notes) Len() int {
	return len(n.byDay)
}
