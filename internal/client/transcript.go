package client

import "sync"

type Origin string

const (
	OriginUser  Origin = "user"
	OriginBot   Origin = "bot"
	OriginError Origin = "error"
)

type Entry struct {
	Origin Origin
	Text   string
}

// Transcript is the append-only log of one client session.
type Transcript struct {
	mu        sync.Mutex
	entries   []Entry
	observers []func(Entry)
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Observe registers fn to run after every append, in append order. fn runs
// with the transcript locked and must not call back into it.
func (t *Transcript) Observe(fn func(Entry)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

func (t *Transcript) Append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	for _, fn := range t.observers {
		fn(e)
	}
}

// Entries returns a copy of the log.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
