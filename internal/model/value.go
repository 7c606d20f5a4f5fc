// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the type of a Value. The set is closed so that structural
// comparison over event payloads stays total.
type Kind uint8

// Value kinds
const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindTime
	KindMap
	KindList
)

// String returns the kind name for logging and error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is one entry of an event data bag: a string, number, boolean,
// timestamp, nested Data map or ordered list. The zero Value is the empty
// string.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
	m    *Data
	list []Value
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int creates a numeric value from an integer.
func Int(i int64) Value { return Value{kind: KindNumber, num: float64(i)} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time creates a timestamp value. Timestamps serialize as RFC 3339 strings
// and deserialize as strings; comparisons treat the two forms as equivalent.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t.UTC()} }

// Map creates a nested map value.
func Map(d *Data) Value { return Value{kind: KindMap, m: d} }

// List creates an ordered list value.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload. Zero unless Kind is KindString.
func (v Value) Str() string { return v.str }

// Num returns the numeric payload. Zero unless Kind is KindNumber.
func (v Value) Num() float64 { return v.num }

// BoolVal returns the boolean payload. Zero unless Kind is KindBool.
func (v Value) BoolVal() bool { return v.b }

// TimeVal returns the timestamp payload. Zero unless Kind is KindTime.
func (v Value) TimeVal() time.Time { return v.t }

// MapVal returns the nested map, or nil when Kind is not KindMap.
func (v Value) MapVal() *Data { return v.m }

// ListVal returns the list elements, or nil when Kind is not KindList.
func (v Value) ListVal() []Value { return v.list }

// IsScalar reports whether the value is a leaf (not a map or list).
func (v Value) IsScalar() bool { return v.kind != KindMap && v.kind != KindList }

// Text returns the canonical scalar text of the value. Maps and lists return
// their JSON form.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	default:
		b, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Equal reports deep value equality. A timestamp equals a string holding its
// RFC 3339 form, so data that went through storage still compares equal to
// freshly built data; all other cross-kind pairs are unequal.
func (v Value) Equal(o Value) bool {
	if v.IsScalar() && o.IsScalar() && v.kind != o.kind {
		timely := v.kind == KindTime && o.kind == KindString ||
			v.kind == KindString && o.kind == KindTime
		return timely && v.Text() == o.Text()
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	}
	if v.kind == KindMap {
		return v.m.Equal(o.m)
	}
	if len(v.list) != len(o.list) {
		return false
	}
	for i := range v.list {
		if !v.list[i].Equal(o.list[i]) {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return v.m.MarshalJSON()
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, el := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := el.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("marshaling value: unknown kind %d", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	val, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// decodeValue reads one JSON value from the decoder. JSON null decodes as the
// empty string so that optional fields added later stay readable.
func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			d := NewData()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("decoding event data: object key is %T", keyTok)
				}
				el, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				d.Set(key, el)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return Map(d), nil
		case '[':
			var list []Value
			for dec.More() {
				el, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				list = append(list, el)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return List(list...), nil
		default:
			return Value{}, fmt.Errorf("decoding event data: unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("decoding event data: %w", err)
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return String(""), nil
	default:
		return Value{}, fmt.Errorf("decoding event data: unexpected token %T", tok)
	}
}

// Data is an ordered mapping from string key to Value. Insertion order is
// preserved on iteration and serialization; setting an existing key keeps its
// original position.
type Data struct {
	keys   []string
	values map[string]Value
}

// NewData creates an empty data bag.
func NewData() *Data {
	return &Data{values: make(map[string]Value)}
}

// Set stores a value under key, keeping the key's first-insert position.
func (d *Data) Set(key string, v Value) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

// Get returns the value for key and whether it exists.
func (d *Data) Get(key string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	v, ok := d.values[key]
	return v, ok
}

// Delete removes a key if present.
func (d *Data) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (d *Data) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of entries.
func (d *Data) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Clone returns a shallow copy of the bag; nested maps are shared.
func (d *Data) Clone() *Data {
	out := NewData()
	if d == nil {
		return out
	}
	for _, k := range d.keys {
		out.Set(k, d.values[k])
	}
	return out
}

// Equal reports deep equality, ignoring key order.
func (d *Data) Equal(o *Data) bool {
	if d.Len() != o.Len() {
		return false
	}
	if d == nil || o == nil {
		return true
	}
	for _, k := range d.keys {
		ov, ok := o.values[k]
		if !ok || !d.values[k].Equal(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler, writing keys in insertion order.
func (d *Data) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := d.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving key order.
func (d *Data) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if v.Kind() != KindMap {
		return fmt.Errorf("decoding event data: expected object, got %s", v.Kind())
	}
	*d = *v.MapVal()
	return nil
}

// ParseData decodes a JSON object into a Data bag.
func ParseData(raw string) (*Data, error) {
	d := NewData()
	if raw == "" || raw == "{}" {
		return d, nil
	}
	if err := d.UnmarshalJSON([]byte(raw)); err != nil {
		return nil, err
	}
	return d, nil
}
