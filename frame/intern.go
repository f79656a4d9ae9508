package frame

import "sync"

// Table interns Frame values behind a content hash, so a call tree under
// allocation pressure can store a single *Frame per distinct (class,
// method) pair instead of re-allocating the pair's strings for every
// sample (spec §9 "dynamic frame identity"). Table is a standalone helper:
// calltree nodes store bare Frame values, and calltree takes no Table.
type Table struct {
	mu    sync.Mutex
	known map[Frame]*Frame
}

// NewTable returns an empty interning table.
func NewTable() *Table {
	return &Table{known: make(map[Frame]*Frame)}
}

// Intern returns the canonical *Frame for f, allocating one the first time
// f's (class, method) pair is seen.
func (t *Table) Intern(f Frame) *Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.known[f]; ok {
		return p
	}
	p := new(Frame)
	*p = f
	t.known[f] = p
	return p
}

// Len reports how many distinct frames have been interned.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.known)
}
