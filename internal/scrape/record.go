package scrape

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one extracted item as a flat field-to-value map.
//
// Field order is significant: tabular exports and JSON output emit fields in
// the order they were set, so identical input pages always produce identical
// output. Values are either string or []string.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// Set stores value under key. Setting an existing key replaces its value
// in place without changing its position.
func (r *Record) Set(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Len reports the number of fields in the record.
func (r *Record) Len() int {
	return len(r.keys)
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// MarshalJSON emits the record as a JSON object with fields in insertion
// order. HTML characters in values are not escaped, so extracted text
// round-trips readably.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalNoEscape(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder.Encode appends a newline; strip it.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ResultSet is the ordered sequence of records accumulated across all pages
// of a run. Discovery order is preserved and no deduplication is performed.
type ResultSet []*Record

// Columns returns the union of field names across all records, ordered by
// first appearance. Tabular exporters use this as the header row.
func (rs ResultSet) Columns() []string {
	var cols []string
	seen := make(map[string]bool)
	for _, rec := range rs {
		for _, k := range rec.keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}
