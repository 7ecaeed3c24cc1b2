// Package connect provides Connect RPC service implementations.
package connect

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// jsonCodec marshals plain Go structs. It replaces connect's protobuf
// JSON codec so services need no generated code.
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "marshal message")
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrap(err, "unmarshal message")
	}
	return nil
}
