package raft

// LogEntry is an immutable (term, index, command) triple. Equality is
// structural on all three fields.
type LogEntry struct {
	Term    uint64
	Index   uint64
	Command []byte
}

func (e LogEntry) Equal(other LogEntry) bool {
	return e.Term == other.Term && e.Index == other.Index && bytesEqual(e.Command, other.Command)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Log is an ordered, zero-indexed sequence of LogEntry. The log-matching
// invariant is maintained by every mutator in this file: entries are only
// ever appended or truncated from the tail, never edited in place.
type Log struct {
	entries []LogEntry
}

// Len returns the number of entries in the log.
func (l *Log) Len() int {
	return len(l.entries)
}

// LastIndex returns the index of the last entry, or nil if the log is empty.
func (l *Log) LastIndex() *uint64 {
	if len(l.entries) == 0 {
		return nil
	}
	return u64ptr(l.entries[len(l.entries)-1].Index)
}

// LastTerm returns the term of the last entry, or 0 if the log is empty.
func (l *Log) LastTerm() uint64 {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Term
}

// Get returns the entry at the given absolute index.
func (l *Log) Get(index uint64) (LogEntry, bool) {
	if index >= uint64(len(l.entries)) {
		return LogEntry{}, false
	}
	return l.entries[index], true
}

// Append adds entries to the tail of the log.
func (l *Log) Append(entries ...LogEntry) {
	l.entries = append(l.entries, entries...)
}

// TruncateTo keeps entries [0, index] inclusive and drops everything after.
// A nil index clears the log entirely.
func (l *Log) TruncateTo(index *uint64) {
	if index == nil {
		l.entries = l.entries[:0]
		return
	}
	if *index+1 < uint64(len(l.entries)) {
		l.entries = l.entries[:*index+1]
	}
}

// From returns a copy of entries starting at the given absolute index
// (inclusive). An out-of-range index yields an empty slice.
func (l *Log) From(index uint64) []LogEntry {
	if index >= uint64(len(l.entries)) {
		return nil
	}
	out := make([]LogEntry, len(l.entries)-int(index))
	copy(out, l.entries[index:])
	return out
}

// FindMatch returns the highest index i such that entry i has the given
// (index, term) pair, i.e. it is the entry itself when present.
func (l *Log) FindMatch(index, term uint64) (uint64, bool) {
	entry, ok := l.Get(index)
	if !ok || entry.Term != term {
		return 0, false
	}
	return index, true
}

// lastLogIndexAndTerm returns the (index, term) pair of the log's last
// entry, or (nil, nil) if the log is empty, for building a RequestVote.
func lastLogIndexAndTerm(l *Log) (*uint64, *uint64) {
	idx := l.LastIndex()
	if idx == nil {
		return nil, nil
	}
	entry, _ := l.Get(*idx)
	return idx, u64ptr(entry.Term)
}

func u64ptr(v uint64) *uint64 {
	return &v
}

// u64val dereferences an optional index/term, treating nil as "before the
// start of the log" rather than a magic -1 value, so callers cannot
// confuse "no such index" with a real index 0.
func u64val(p *uint64) (uint64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
