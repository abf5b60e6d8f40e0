/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: candidate.go
Description: Candidate payload model for the Evogene Fuzzer. A Candidate is one
evolvable JSON payload: an ordered mapping from field name to a dynamically-typed
value (string, int, float, bool, or list of strings). Provides copy-on-write
cloning and order-preserving JSON serialization for the genetic operators and
the finding tracker.
*/

package genome

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldKind identifies the dynamic type carried by a FieldValue
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindFloat
	KindBool
	KindList
)

// FieldValue is the tagged union stored under each candidate field.
// Operators must switch on Kind rather than assume a fixed schema.
type FieldValue struct {
	Kind  FieldKind `json:"-"`
	Str   string    `json:"-"`
	Int   int64     `json:"-"`
	Float float64   `json:"-"`
	Bool  bool      `json:"-"`
	List  []string  `json:"-"`
}

// String creates a string-valued field
func String(s string) FieldValue { return FieldValue{Kind: KindString, Str: s} }

// Int creates an integer-valued field
func Int(i int64) FieldValue { return FieldValue{Kind: KindInt, Int: i} }

// Float creates a float-valued field
func Float(f float64) FieldValue { return FieldValue{Kind: KindFloat, Float: f} }

// Bool creates a boolean-valued field
func Bool(b bool) FieldValue { return FieldValue{Kind: KindBool, Bool: b} }

// List creates a list-of-strings field. The slice is copied.
func List(items []string) FieldValue {
	copied := make([]string, len(items))
	copy(copied, items)
	return FieldValue{Kind: KindList, List: copied}
}

// Clone returns an independent copy of the value
func (v FieldValue) Clone() FieldValue {
	if v.Kind == KindList {
		return List(v.List)
	}
	return v
}

// Equal reports whether two values have the same kind and content
func (v FieldValue) Equal(other FieldValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == other.Str
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindBool:
		return v.Bool == other.Bool
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != other.List[i] {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON serializes the underlying dynamic value
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return nil, fmt.Errorf("unknown field kind: %d", v.Kind)
}

// UnmarshalJSON reconstructs the tagged union from raw JSON
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case string:
		*v = String(t)
		return nil
	case bool:
		*v = Bool(t)
		return nil
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			if i, err := t.Int64(); err == nil {
				*v = Int(i)
				return nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return err
		}
		*v = Float(f)
		return nil
	case json.Delim:
		if t == '[' {
			var items []string
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("unsupported list element type: %w", err)
			}
			*v = List(items)
			return nil
		}
	}
	return fmt.Errorf("unsupported candidate field value: %s", string(data))
}

// Candidate represents one evolvable JSON payload.
// Field order is preserved so serialized payloads stay stable across
// clone/persist cycles. Candidates are never shared between population
// slots: operators clone before modifying.
type Candidate struct {
	keys   []string
	values map[string]FieldValue
}

// NewCandidate creates an empty candidate
func NewCandidate() *Candidate {
	return &Candidate{values: make(map[string]FieldValue)}
}

// Set stores a field value, appending the key if it is new
func (c *Candidate) Set(name string, value FieldValue) {
	if _, exists := c.values[name]; !exists {
		c.keys = append(c.keys, name)
	}
	c.values[name] = value
}

// Get returns the value for a field and whether it exists
func (c *Candidate) Get(name string) (FieldValue, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Has reports whether the candidate carries a field
func (c *Candidate) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Delete removes a field if present
func (c *Candidate) Delete(name string) {
	if _, ok := c.values[name]; !ok {
		return
	}
	delete(c.values, name)
	for i, k := range c.keys {
		if k == name {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of fields
func (c *Candidate) Len() int {
	return len(c.keys)
}

// Keys returns the field names in insertion order
func (c *Candidate) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Clone returns a deep copy with independent storage.
// List values are copied so mutating a clone never aliases the parent.
func (c *Candidate) Clone() *Candidate {
	clone := &Candidate{
		keys:   make([]string, len(c.keys)),
		values: make(map[string]FieldValue, len(c.values)),
	}
	copy(clone.keys, c.keys)
	for k, v := range c.values {
		clone.values[k] = v.Clone()
	}
	return clone
}

// Equal reports whether two candidates carry the same fields and values
// in the same order
func (c *Candidate) Equal(other *Candidate) bool {
	if c.Len() != other.Len() {
		return false
	}
	for i, k := range c.keys {
		if other.keys[i] != k {
			return false
		}
		if !c.values[k].Equal(other.values[k]) {
			return false
		}
	}
	return true
}

// MarshalJSON serializes the candidate as a JSON object preserving
// field insertion order
func (c *Candidate) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := c.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reconstructs a candidate, preserving the key order of
// the JSON object
func (c *Candidate) UnmarshalJSON(data []byte) error {
	c.keys = nil
	c.values = make(map[string]FieldValue)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("candidate payload must be a JSON object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("invalid candidate field name: %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var value FieldValue
		if err := value.UnmarshalJSON(raw); err != nil {
			return err
		}
		c.Set(key, value)
	}
	// consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// String renders the candidate as compact JSON for logging
func (c *Candidate) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<unserializable candidate: %v>", err)
	}
	return string(data)
}
