package dialog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// EmbeddingMap maps encoded query keys to query embeddings.
type EmbeddingMap struct {
	order   []string
	vectors map[string][]float32
}

// NewEmbeddingMap creates an empty map. The order of keys, when given,
// drives serialization; keys outside of it are written last, sorted.
func NewEmbeddingMap(order []string) *EmbeddingMap {
	return &EmbeddingMap{order: order, vectors: map[string][]float32{}}
}

// Set stores a vector.
func (m *EmbeddingMap) Set(key string, vector []float32) {
	m.vectors[key] = vector
}

// Get returns a vector.
func (m *EmbeddingMap) Get(key string) ([]float32, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vectors[key]
	return v, ok
}

// Len returns number of vectors.
func (m *EmbeddingMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.vectors)
}

// Keys returns keys in serialization order.
func (m *EmbeddingMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.vectors))
	seen := make(map[string]bool, len(m.vectors))
	for _, key := range m.order {
		if _, ok := m.vectors[key]; ok && !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	var rest []string
	for key := range m.vectors {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Dimension returns the vector length shared by all entries, or 0 when empty.
func (m *EmbeddingMap) Dimension() int {
	keys := m.Keys()
	if len(keys) == 0 {
		return 0
	}
	return len(m.vectors[keys[0]])
}

// MarshalJSON encodes the map as a flat object.
func (m *EmbeddingMap) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, key := range m.Keys() {
		if err := writeMember(buf, i, key, m.vectors[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat object.
func (m *EmbeddingMap) UnmarshalJSON(data []byte) error {
	m.order = nil
	m.vectors = map[string][]float32{}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		var vector []float32
		if err := json.Unmarshal(raw, &vector); err != nil {
			return fmt.Errorf("embeddingMap[%s]: %w", key, err)
		}
		m.order = append(m.order, key)
		m.vectors[key] = vector
		return nil
	})
}

// Model is the serialized per-bot artifact loaded by clients.
type Model struct {
	QueryMap     *QueryMap     `json:"queryMap"`
	EmbeddingMap *EmbeddingMap `json:"embeddingMap"`
}

// MarshalJSON always emits both members, empty when unset.
func (m *Model) MarshalJSON() ([]byte, error) {
	queryMap := m.QueryMap
	if queryMap == nil {
		queryMap = BuildQueryMap(nil)
	}
	embeddingMap := m.EmbeddingMap
	if embeddingMap == nil {
		embeddingMap = NewEmbeddingMap(nil)
	}
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	if err := writeMember(buf, 0, "queryMap", queryMap); err != nil {
		return nil, err
	}
	if err := writeMember(buf, 1, "embeddingMap", embeddingMap); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode returns the compact JSON form of the model. Unlike json.Marshal
// it leaves '<', '>' and '&' unescaped.
func (m *Model) Encode() ([]byte, error) {
	return marshalCompact(m)
}

// ParseModel decodes a serialized model.
func ParseModel(data []byte) (*Model, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	model := &Model{QueryMap: BuildQueryMap(nil), EmbeddingMap: NewEmbeddingMap(nil)}
	if v, ok := raw["queryMap"]; ok {
		if err := model.QueryMap.UnmarshalJSON(v); err != nil {
			return nil, fmt.Errorf("decode model: %w", err)
		}
	}
	if v, ok := raw["embeddingMap"]; ok {
		if err := model.EmbeddingMap.UnmarshalJSON(v); err != nil {
			return nil, fmt.Errorf("decode model: %w", err)
		}
	}
	return model, nil
}
