package dialog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QueryMap maps encoded query keys to records, preserving the position of
// the first insertion of each key.
type QueryMap struct {
	keys    []string
	records map[string]Record
}

// BuildQueryMap indexes records by query key. When several records share a
// key the last one wins.
func BuildQueryMap(records []Record) *QueryMap {
	m := &QueryMap{records: make(map[string]Record, len(records))}
	for _, record := range records {
		m.put(record.Key().Encode(), record)
	}
	return m
}

func (m *QueryMap) put(key string, record Record) {
	if _, ok := m.records[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.records[key] = record
}

// Len returns the number of unique keys.
func (m *QueryMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns encoded keys in insertion order.
func (m *QueryMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the record for an encoded key.
func (m *QueryMap) Get(key string) (Record, bool) {
	if m == nil {
		return Record{}, false
	}
	record, ok := m.records[key]
	return record, ok
}

// Embeddable returns keys whose record has query text, in insertion order.
func (m *QueryMap) Embeddable() []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, key := range m.keys {
		if m.records[key].HasQuery() {
			out = append(out, key)
		}
	}
	return out
}

// MarshalJSON encodes the map as a flat object in insertion order.
func (m *QueryMap) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	if m != nil {
		for i, key := range m.keys {
			if err := writeMember(buf, i, key, m.records[key]); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat object. Key order follows the document.
func (m *QueryMap) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.records = map[string]Record{}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		var record Record
		if err := json.Unmarshal(raw, &record); err != nil {
			return fmt.Errorf("queryMap[%s]: %w", key, err)
		}
		m.put(key, record)
		return nil
	})
}

func writeMember(buf *bytes.Buffer, i int, key string, value any) error {
	if i > 0 {
		buf.WriteByte(',')
	}
	name, err := marshalCompact(key)
	if err != nil {
		return err
	}
	buf.Write(name)
	buf.WriteByte(':')
	data, err := marshalCompact(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	buf.Write(data)
	return nil
}

func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
