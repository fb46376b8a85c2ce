// Package api defines the groupledger RPC surface: request and response
// messages, procedure names, and typed Connect handlers and clients.
//
// Messages are plain Go structs carried as JSON. Both handlers and clients
// install Codec, which replaces Connect's protobuf-JSON codec under the
// "json" name, so any Connect or gRPC-JSON client can call the services with
// Content-Type application/json.
package api

import (
	"encoding/json"
	"strings"

	"connectrpc.com/connect"
)

const (
	// GroupServiceName is the fully-qualified name of the GroupService.
	GroupServiceName = "groupledger.v1.GroupService"
	// LedgerServiceName is the fully-qualified name of the LedgerService.
	LedgerServiceName = "groupledger.v1.LedgerService"
)

// Codec marshals messages as JSON with encoding/json.
type Codec struct{}

var _ connect.Codec = Codec{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}

func trimBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}
