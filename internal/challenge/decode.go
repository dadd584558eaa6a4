package challenge

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeBatch parses a session payload. It does not apply the capture
// acceptance rules; see session.Store.Ingest for those.
func DecodeBatch(body []byte) (*AnswerBatch, error) {
	var b AnswerBatch
	if err := codec.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("decoding session payload: %w", err)
	}
	return &b, nil
}

// UnmarshalJSON accepts either an object or an array of objects.
func (g *PairGroup) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		g.Members = nil
		return nil
	case data[0] == '[':
		var members []map[string]any
		if err := codec.Unmarshal(data, &members); err != nil {
			return fmt.Errorf("decoding pair group: %w", err)
		}
		g.Members = members
		return nil
	case data[0] == '{':
		var m map[string]any
		if err := codec.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decoding pair group: %w", err)
		}
		g.Members = []map[string]any{m}
		return nil
	}
	return fmt.Errorf("decoding pair group: unexpected JSON %q", truncate(data, 32))
}

// MarshalJSON writes a single-member group as an object, others as an array.
func (g PairGroup) MarshalJSON() ([]byte, error) {
	if len(g.Members) == 1 {
		return codec.Marshal(g.Members[0])
	}
	return codec.Marshal(g.Members)
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
