// Package value implements the structured value stored under each configuration key:
// a tagged variant of null, bool, number, string, sequence and mapping, with strict
// conversions to and from Go types and a YAML codec.
package value

import (
	"math"
	"sort"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

type numForm uint8

const (
	numInt numForm = iota
	numUint
	numFloat
)

// Value is an immutable tagged variant. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	form numForm
	i    int64
	u    uint64
	f    float64
	s    string
	seq  []Value
	m    map[string]Value
}

func Null() Value         { return Value{} }
func Bool(b bool) Value   { return Value{kind: KindBool, b: b} }
func Int(i int64) Value   { return Value{kind: KindNumber, form: numInt, i: i} }
func Float(f float64) Value {
	return Value{kind: KindNumber, form: numFloat, f: f}
}
func String(s string) Value { return Value{kind: KindString, s: s} }

// Uint stores u as a signed integer when it fits, so equal numbers compare equal
// regardless of how they were produced.
func Uint(u uint64) Value {
	if u <= math.MaxInt64 {
		return Int(int64(u))
	}
	return Value{kind: KindNumber, form: numUint, u: u}
}

// Seq copies items into a new sequence value.
func Seq(items ...Value) Value {
	seq := make([]Value, len(items))
	copy(seq, items)
	return Value{kind: KindSequence, seq: seq}
}

// Map copies m into a new mapping value.
func Map(m map[string]Value) Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return Value{kind: KindMapping, m: out}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt reports the integer value; floats and integers outside the int64 range do not convert.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber || v.form != numInt {
		return 0, false
	}
	return v.i, true
}

// AsUint reports the value of a non-negative integer.
func (v Value) AsUint() (uint64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	switch v.form {
	case numInt:
		if v.i < 0 {
			return 0, false
		}
		return uint64(v.i), true
	case numUint:
		return v.u, true
	}
	return 0, false
}

// AsFloat reports any number as a float64.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	switch v.form {
	case numInt:
		return float64(v.i), true
	case numUint:
		return float64(v.u), true
	}
	return v.f, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsSeq returns a copy of the sequence items.
func (v Value) AsSeq() ([]Value, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	out := make([]Value, len(v.seq))
	copy(out, v.seq)
	return out, true
}

// AsMap returns a copy of the mapping entries.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMapping {
		return nil, false
	}
	out := make(map[string]Value, len(v.m))
	for k, e := range v.m {
		out[k] = e
	}
	return out, true
}

// Len is the number of items of a sequence or entries of a mapping, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.m)
	}
	return 0
}

// Keys returns the mapping keys in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interface returns the natural Go form of v: nil, bool, int64, uint64, float64,
// string, []any or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		switch v.form {
		case numInt:
			return v.i
		case numUint:
			return v.u
		}
		return v.f
	case KindString:
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Interface()
		}
		return out
	}
	return nil
}

// Equal reports deep equality. Numbers compare by form and value, so 1 and 1.0 differ;
// NaN equals NaN.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		if v.form != o.form {
			return false
		}
		switch v.form {
		case numInt:
			return v.i == o.i
		case numUint:
			return v.u == o.u
		}
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}
