// Package sgml decodes SEC EDGAR submission text files into ordered record trees.
package sgml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Value is one of Scalar, *Record, Records or Strings.
type Value interface {
	isValue()
}

// Scalar is a single string field.
type Scalar string

// Records is an ordered sequence of nested blocks.
type Records []*Record

// Strings is an ordered sequence of string fields.
type Strings []string

func (Scalar) isValue()  {}
func (*Record) isValue() {}
func (Records) isValue() {}
func (Strings) isValue() {}

// Record is an ordered mapping from field name to Value.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// Keys returns field names in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Set stores v under key. An existing key keeps its position.
func (r *Record) Set(key string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Scalar returns the string stored under key.
func (r *Record) Scalar(key string) (string, bool) {
	s, ok := r.values[key].(Scalar)
	return string(s), ok
}

// Record returns the nested block stored under key.
func (r *Record) Record(key string) (*Record, bool) {
	rec, ok := r.values[key].(*Record)
	return rec, ok
}

// Records returns the block sequence stored under key, or nil.
func (r *Record) Records(key string) Records {
	recs, _ := r.values[key].(Records)
	return recs
}

// Strings returns the string sequence stored under key, or nil.
func (r *Record) Strings(key string) Strings {
	strs, _ := r.values[key].(Strings)
	return strs
}

// appendRecord appends child to the Records sequence under key.
func (r *Record) appendRecord(key string, child *Record) bool {
	existing, ok := r.values[key]
	if !ok {
		r.Set(key, Records{child})
		return true
	}
	recs, ok := existing.(Records)
	if !ok {
		return false
	}
	r.values[key] = append(recs, child)
	return true
}

// appendString appends s to the Strings sequence under key.
func (r *Record) appendString(key string, s string) bool {
	existing, ok := r.values[key]
	if !ok {
		r.Set(key, Strings{s})
		return true
	}
	strs, ok := existing.(Strings)
	if !ok {
		return false
	}
	r.values[key] = append(strs, s)
	return true
}

// Equal reports whether both records hold the same fields with equal values.
// Field order is not compared; sequence order is.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.keys) != len(other.keys) {
		return false
	}
	for key, v := range r.values {
		ov, ok := other.values[key]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case Scalar:
		bv, ok := b.(Scalar)
		return ok && av == bv
	case *Record:
		bv, ok := b.(*Record)
		return ok && av.Equal(bv)
	case Records:
		bv, ok := b.(Records)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}
		return true
	case Strings:
		bv, ok := b.(Strings)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the record as compact JSON.
func (r *Record) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("<record: %v>", err)
	}
	return string(data)
}

// MarshalJSON writes the record as a JSON object in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyData, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyData)
		buf.WriteByte(':')

		var valueData []byte
		switch v := r.values[key].(type) {
		case Scalar:
			valueData, err = json.Marshal(string(v))
		case *Record:
			valueData, err = v.MarshalJSON()
		case Records:
			valueData, err = json.Marshal([]*Record(v))
		case Strings:
			valueData, err = json.Marshal([]string(v))
		default:
			err = fmt.Errorf("field %q: unsupported value %T", key, v)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(valueData)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object produced by MarshalJSON. Strings become
// Scalar, objects *Record, arrays of objects Records and any other array
// (including an empty one) Strings.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	rec, err := decodeJSONRecord(dec)
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

func decodeJSONRecord(dec *json.Decoder) (*Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	rec := NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected field name, got %v", tok)
		}
		v, err := decodeJSONValue(dec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		rec.Set(key, v)
	}
	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty value")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return Scalar(s), nil
	case '{':
		child := NewRecord()
		if err := child.UnmarshalJSON(trimmed); err != nil {
			return nil, err
		}
		return child, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		if len(items) > 0 && bytes.HasPrefix(bytes.TrimSpace(items[0]), []byte("{")) {
			recs := make(Records, 0, len(items))
			for _, item := range items {
				child := NewRecord()
				if err := child.UnmarshalJSON(item); err != nil {
					return nil, err
				}
				recs = append(recs, child)
			}
			return recs, nil
		}
		strs := make(Strings, 0, len(items))
		for _, item := range items {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, err
			}
			strs = append(strs, s)
		}
		return strs, nil
	}
	return nil, fmt.Errorf("unsupported JSON value %s", trimmed)
}

// MarshalYAML renders the record as a YAML mapping in insertion order.
func (r *Record) MarshalYAML() (interface{}, error) {
	return r.yamlNode(), nil
}

func (r *Record) yamlNode() *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range r.keys {
		node.Content = append(node.Content, yamlString(key), yamlValue(r.values[key]))
	}
	return node
}

func yamlValue(v Value) *yaml.Node {
	switch v := v.(type) {
	case *Record:
		return v.yamlNode()
	case Records:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, child := range v {
			seq.Content = append(seq.Content, child.yamlNode())
		}
		return seq
	case Strings:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, s := range v {
			seq.Content = append(seq.Content, yamlString(s))
		}
		return seq
	case Scalar:
		return yamlString(string(v))
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// yamlString keeps every scalar a string; multi-line TEXT payloads use block style.
func yamlString(s string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.Contains(s, "\n") {
		node.Style = yaml.LiteralStyle
	}
	return node
}
