package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Entry is one key/value pair of an OrderedMap.
type Entry[V any] struct {
	Key   string `json:"key"`
	Value V      `json:"value"`
}

// OrderedMap is a JSON object decoded with its keys in document order.
// The backend emits several mappings (status counts, trend series, key
// metrics) whose order is the display order, so a Go map is not enough.
type OrderedMap[V any] struct {
	entries []Entry[V]
}

// NewOrderedMap builds a map holding entries in the given order
func NewOrderedMap[V any](entries ...Entry[V]) OrderedMap[V] {
	return OrderedMap[V]{entries: entries}
}

func (m OrderedMap[V]) Len() int {
	return len(m.entries)
}

func (m OrderedMap[V]) Entries() []Entry[V] {
	out := make([]Entry[V], len(m.entries))
	copy(out, m.entries)
	return out
}

func (m OrderedMap[V]) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		keys = append(keys, e.Key)
	}
	return keys
}

func (m OrderedMap[V]) Values() []V {
	values := make([]V, 0, len(m.entries))
	for _, e := range m.entries {
		values = append(values, e.Value)
	}
	return values
}

// Get returns the value stored under key
func (m OrderedMap[V]) Get(key string) (V, bool) {
	for _, e := range m.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	var zero V
	return zero, false
}

func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid JSON object")
	}

	result := gjson.ParseBytes(data)
	if result.Type == gjson.Null {
		m.entries = nil
		return nil
	}
	if !result.IsObject() {
		return fmt.Errorf("expected JSON object, got %s", result.Type)
	}

	var (
		entries   []Entry[V]
		decodeErr error
	)
	result.ForEach(func(key, value gjson.Result) bool {
		var v V
		if err := json.Unmarshal([]byte(value.Raw), &v); err != nil {
			decodeErr = fmt.Errorf("key %q: %w", key.String(), err)
			return false
		}
		entries = append(entries, Entry[V]{Key: key.String(), Value: v})
		return true
	})
	if decodeErr != nil {
		return decodeErr
	}

	m.entries = entries
	return nil
}

func (m OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", e.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
