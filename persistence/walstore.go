// Package persistence durably records a Node's persistent state (current
// term, vote, and log) so it survives a restart. It is grounded on
// statemachine.WAL's append-only bufio.Writer plus encoding/binary framing,
// but fsyncs after every record instead of relying on a buffered flush:
// raft's safety invariants depend on the term/vote/log records reaching
// disk before the corresponding response leaves the process, whereas the
// state machine's own WAL only needs to survive losing its last few
// already-committed entries.
package persistence

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/ghostfox-code2305/raftkv/raft"
)

type recordType byte

const (
	recTerm     recordType = 1
	recVote     recordType = 2
	recEntry    recordType = 3
	recTruncate recordType = 4
)

// Log is a raft.Persister backed by a single append-only file. It is safe
// for concurrent use.
type Log struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewLog opens (creating if necessary) the persistent-state log under
// dirPath.
func NewLog(dirPath string) (*Log, error) {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return nil, errors.Wrap(err, "create persistence directory")
	}
	path := filepath.Join(dirPath, "raft.wal")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open raft persistent-state log")
	}
	return &Log{file: file, writer: bufio.NewWriter(file), path: path}, nil
}

func (l *Log) flushAndSync() error {
	if err := l.writer.Flush(); err != nil {
		return errors.Wrap(err, "flush persistent-state writer")
	}
	return errors.Wrap(l.file.Sync(), "fsync persistent-state log")
}

func writeString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r *bufio.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeBytes(w *bufio.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r *bufio.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// PersistTerm implements raft.Persister.
func (l *Log) PersistTerm(term uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.WriteByte(byte(recTerm)); err != nil {
		return errors.Wrap(err, "write term record tag")
	}
	if err := binary.Write(l.writer, binary.LittleEndian, term); err != nil {
		return errors.Wrap(err, "write term")
	}
	return l.flushAndSync()
}

// PersistVote implements raft.Persister.
func (l *Log) PersistVote(term uint64, votedFor raft.NodeID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.WriteByte(byte(recVote)); err != nil {
		return errors.Wrap(err, "write vote record tag")
	}
	if err := binary.Write(l.writer, binary.LittleEndian, term); err != nil {
		return errors.Wrap(err, "write vote term")
	}
	if err := writeString(l.writer, string(votedFor)); err != nil {
		return errors.Wrap(err, "write voted_for")
	}
	return l.flushAndSync()
}

// PersistEntries implements raft.Persister.
func (l *Log) PersistEntries(entries []raft.LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entry := range entries {
		if err := l.writer.WriteByte(byte(recEntry)); err != nil {
			return errors.Wrap(err, "write entry record tag")
		}
		if err := binary.Write(l.writer, binary.LittleEndian, entry.Index); err != nil {
			return errors.Wrap(err, "write entry index")
		}
		if err := binary.Write(l.writer, binary.LittleEndian, entry.Term); err != nil {
			return errors.Wrap(err, "write entry term")
		}
		if err := writeBytes(l.writer, entry.Command); err != nil {
			return errors.Wrap(err, "write entry command")
		}
	}
	return l.flushAndSync()
}

// PersistTruncate implements raft.Persister.
func (l *Log) PersistTruncate(keepUpToInclusive *uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.WriteByte(byte(recTruncate)); err != nil {
		return errors.Wrap(err, "write truncate record tag")
	}
	hasIndex := keepUpToInclusive != nil
	if err := l.writer.WriteByte(boolByte(hasIndex)); err != nil {
		return errors.Wrap(err, "write truncate flag")
	}
	if hasIndex {
		if err := binary.Write(l.writer, binary.LittleEndian, *keepUpToInclusive); err != nil {
			return errors.Wrap(err, "write truncate index")
		}
	}
	return l.flushAndSync()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Recovered is the reconstructed persistent state read back by Load.
type Recovered struct {
	CurrentTerm uint64
	VotedFor    *raft.NodeID
	Entries     []raft.LogEntry
}

// Load replays the log from the start to reconstruct the persistent state
// a Node had before the process last stopped. It is the embedder's
// responsibility to call this before constructing the Node and to seed
// the Node's log/term/vote from the result; raft.Node has no awareness of
// persistence beyond the Persister interface it writes through.
func Load(dirPath string) (Recovered, error) {
	path := filepath.Join(dirPath, "raft.wal")
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return Recovered{}, nil
	}
	if err != nil {
		return Recovered{}, errors.Wrap(err, "open raft persistent-state log")
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var rec Recovered
	entries := map[uint64]raft.LogEntry{}
	var maxIndex int64 = -1

	for {
		tag, err := reader.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Recovered{}, errors.Wrap(err, "read record tag")
		}
		switch recordType(tag) {
		case recTerm:
			var term uint64
			if err := binary.Read(reader, binary.LittleEndian, &term); err != nil {
				return Recovered{}, errors.Wrap(err, "read term record")
			}
			rec.CurrentTerm = term
			rec.VotedFor = nil
		case recVote:
			var term uint64
			if err := binary.Read(reader, binary.LittleEndian, &term); err != nil {
				return Recovered{}, errors.Wrap(err, "read vote term")
			}
			votedFor, err := readString(reader)
			if err != nil {
				return Recovered{}, errors.Wrap(err, "read voted_for")
			}
			if term == rec.CurrentTerm {
				id := raft.NodeID(votedFor)
				rec.VotedFor = &id
			}
		case recEntry:
			var index, term uint64
			if err := binary.Read(reader, binary.LittleEndian, &index); err != nil {
				return Recovered{}, errors.Wrap(err, "read entry index")
			}
			if err := binary.Read(reader, binary.LittleEndian, &term); err != nil {
				return Recovered{}, errors.Wrap(err, "read entry term")
			}
			command, err := readBytes(reader)
			if err != nil {
				return Recovered{}, errors.Wrap(err, "read entry command")
			}
			entries[index] = raft.LogEntry{Index: index, Term: term, Command: command}
			if int64(index) > maxIndex {
				maxIndex = int64(index)
			}
		case recTruncate:
			flag, err := reader.ReadByte()
			if err != nil {
				return Recovered{}, errors.Wrap(err, "read truncate flag")
			}
			if flag == 0 {
				entries = map[uint64]raft.LogEntry{}
				maxIndex = -1
				continue
			}
			var keep uint64
			if err := binary.Read(reader, binary.LittleEndian, &keep); err != nil {
				return Recovered{}, errors.Wrap(err, "read truncate index")
			}
			for idx := range entries {
				if idx > keep {
					delete(entries, idx)
				}
			}
			maxIndex = int64(keep)
		default:
			return Recovered{}, errors.Errorf("persistence: unknown record tag %d", tag)
		}
	}

	if maxIndex >= 0 {
		rec.Entries = make([]raft.LogEntry, 0, maxIndex+1)
		for i := int64(0); i <= maxIndex; i++ {
			entry, ok := entries[uint64(i)]
			if !ok {
				break
			}
			rec.Entries = append(rec.Entries, entry)
		}
	}
	return rec, nil
}

// ToRaft adapts a Recovered snapshot into the shape raft.Config.Recovered
// expects.
func (r Recovered) ToRaft() raft.RecoveredState {
	return raft.RecoveredState{
		CurrentTerm: r.CurrentTerm,
		VotedFor:    r.VotedFor,
		Entries:     r.Entries,
	}
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		return errors.Wrap(err, "flush persistent-state writer")
	}
	return errors.Wrap(l.file.Close(), "close persistent-state log")
}
