package grpcraft

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// codecName is negotiated as the gRPC content-subtype
// ("application/grpc+raftgob"). Registering under encoding.RegisterCodec
// makes it available to both grpc.NewServer (server-wide default) and
// individual grpc.Dial/Invoke calls via grpc.CallContentSubtype.
const codecName = "raftgob"

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// gobCodec implements encoding.Codec with encoding/gob instead of
// protobuf, since there is no protoc toolchain available here to
// generate message stubs. gob is the standard library's own wire
// format, so using it doesn't pull in a new dependency.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string {
	return codecName
}
