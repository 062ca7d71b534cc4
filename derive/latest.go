package derive

import "sync/atomic"

// Latest tracks which of several in-flight derivations is the newest.
//
// A caller takes a ticket with Begin before starting a derivation and asks
// Current when the result arrives; results whose ticket is no longer
// current are stale and should be dropped. The zero value is ready to use.
type Latest struct {
	seq atomic.Uint64
}

// Begin returns a ticket newer than every ticket issued before it.
func (l *Latest) Begin() uint64 {
	return l.seq.Add(1)
}

// Current reports whether ticket is the most recently issued one.
func (l *Latest) Current(ticket uint64) bool {
	return ticket != 0 && l.seq.Load() == ticket
}
