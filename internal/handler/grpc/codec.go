// Package grpc exposes the admin-plane control surface spec §6 names for
// cross-service calls that don't belong on the public REST API: connection
// stats and forced disconnect. The teacher's own gRPC payloads are generated
// from a private protos/im repository that isn't part of this retrieval
// pack, so this package uses hand-written, proto-shaped Go structs carried
// over grpc's standard framing via a JSON codec registered under the
// "proto" name — the only grpc traffic in this service is between its own
// two binaries, so there is no external client expecting real protobuf
// wire bytes.
package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
