package grpcserver

import "encoding/json"

// jsonCodec replaces the default proto codec. The admin surface has
// exactly two tiny unary methods and only in-repo callers, so plain
// JSON framing beats maintaining generated message code.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "json" }
