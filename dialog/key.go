package dialog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QueryKey identifies a response by query text (nil for AnyQuery) and an
// optional state constraint. It is encoded as a JSON array so that it can
// be used as an object key by clients.
type QueryKey struct {
	Query  *string
	States *string
}

// Encode returns the compact JSON array form of the key: [query] or
// [query, states]. HTML characters are not escaped so that the encoding
// matches what browser clients produce with JSON.stringify.
func (k QueryKey) Encode() string {
	pair := []*string{k.Query}
	if k.States != nil {
		pair = append(pair, k.States)
	}
	data, err := marshalCompact(pair)
	if err != nil {
		// a slice of string pointers always encodes
		panic(err)
	}
	return string(data)
}

// String implements fmt.Stringer.
func (k QueryKey) String() string {
	return k.Encode()
}

// DecodeKey parses an encoded query key.
func DecodeKey(encoded string) (QueryKey, error) {
	var pair []*string
	if err := json.Unmarshal([]byte(encoded), &pair); err != nil {
		return QueryKey{}, fmt.Errorf("invalid query key %q: %w", encoded, err)
	}
	switch len(pair) {
	case 1:
		return QueryKey{Query: pair[0]}, nil
	case 2:
		if pair[1] == nil {
			return QueryKey{}, fmt.Errorf("invalid query key %q: null states", encoded)
		}
		return QueryKey{Query: pair[0], States: pair[1]}, nil
	}
	return QueryKey{}, fmt.Errorf("invalid query key %q: expected 1 or 2 elements, got %d", encoded, len(pair))
}

func marshalCompact(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
