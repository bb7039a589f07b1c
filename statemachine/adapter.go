package statemachine

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// Command is the serialized form of a client mutation carried inside a raft
// log entry.
type Command struct {
	Type  string `json:"type"` // "PUT" or "DELETE"
	Key   string `json:"key"`
	Value []byte `json:"value,omitempty"`
}

// Adapter applies committed raft log entries to a Store. Its Handle method
// is the commit_handler callback raft.Node invokes once per committed
// index, in order, never out of order and never for an index twice within
// one Node's lifetime (a restarted Node re-applies from index 0).
type Adapter struct {
	store *Store
	log   *logrus.Entry
}

// NewAdapter wires a Store to be driven purely by committed commands.
func NewAdapter(dataDir string, log *logrus.Entry) (*Adapter, error) {
	store, err := NewStore(dataDir)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{store: store, log: log.WithField("component", "statemachine")}, nil
}

// Handle decodes and applies a single committed command. It is total: a
// malformed command is logged and dropped rather than returned as an error,
// since the commit_handler contract has no error channel back to the raft
// core and commit_index must never roll back because of it.
func (a *Adapter) Handle(command []byte) {
	var cmd Command
	if err := json.Unmarshal(command, &cmd); err != nil {
		a.log.WithError(err).Error("dropping unparseable committed command")
		return
	}

	var err error
	switch cmd.Type {
	case "PUT":
		err = a.store.Put(cmd.Key, cmd.Value)
	case "DELETE":
		err = a.store.Delete(cmd.Key)
	default:
		a.log.WithField("type", cmd.Type).Error("dropping committed command of unknown type")
		return
	}
	if err != nil {
		a.log.WithError(err).WithField("key", cmd.Key).Error("failed to apply committed command")
	}
}

// Get reads the current value for a key, for client-facing read paths
// that bypass raft entirely; this repo does not implement linearizable
// reads.
func (a *Adapter) Get(key string) ([]byte, error) {
	return a.store.Get(key)
}

// Close releases the underlying store's resources.
func (a *Adapter) Close() error {
	return a.store.Close()
}

// Stats reports the underlying store's memtable size and SSTable count,
// for the embedder's periodic diagnostics logging.
func (a *Adapter) Stats() map[string]interface{} {
	return a.store.Stats()
}

// EncodePut builds the wire bytes for a PUT command, for use by client code
// submitting a raft.Command.
func EncodePut(key string, value []byte) ([]byte, error) {
	return json.Marshal(Command{Type: "PUT", Key: key, Value: value})
}

// EncodeDelete builds the wire bytes for a DELETE command.
func EncodeDelete(key string) ([]byte, error) {
	return json.Marshal(Command{Type: "DELETE", Key: key})
}
