package value

import (
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is the top level of a configuration document: string keys mapped to values.
type Document map[string]Value

// Keys returns the document keys in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy; values are immutable so it is safe to share them.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// MarshalBSON encodes d as a BSON document. Unsigned integers above MaxInt64 are
// stored as doubles since BSON has no unsigned type.
func (d Document) MarshalBSON() ([]byte, error) {
	m := make(bson.M, len(d))
	for k, v := range d {
		m[k] = toBSON(v)
	}
	return bson.Marshal(m)
}

// UnmarshalBSON replaces the content of d with the decoded document, skipping _id.
func (d *Document) UnmarshalBSON(data []byte) error {
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return err
	}
	out := make(Document, len(m))
	for k, raw := range m {
		if k == "_id" {
			continue
		}
		v, err := fromBSON(raw, 0)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		out[k] = v
	}
	*d = out
	return nil
}

func toBSON(v Value) any {
	switch v.kind {
	case KindNumber:
		if v.form == numUint {
			return float64(v.u)
		}
	case KindSequence:
		out := make(bson.A, len(v.seq))
		for i, e := range v.seq {
			out[i] = toBSON(e)
		}
		return out
	case KindMapping:
		out := make(bson.M, len(v.m))
		for k, e := range v.m {
			out[k] = toBSON(e)
		}
		return out
	}
	return v.Interface()
}

func fromBSON(raw any, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, fmt.Errorf("value: nesting exceeds %d levels", maxDepth)
	}
	switch x := raw.(type) {
	case primitive.D:
		m := make(map[string]Value, len(x))
		for _, e := range x {
			v, err := fromBSON(e.Value, depth+1)
			if err != nil {
				return Value{}, err
			}
			m[e.Key] = v
		}
		return Value{kind: KindMapping, m: m}, nil
	case primitive.M:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			v, err := fromBSON(e, depth+1)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return Value{kind: KindMapping, m: m}, nil
	case primitive.A:
		seq := make([]Value, len(x))
		for i, e := range x {
			v, err := fromBSON(e, depth+1)
			if err != nil {
				return Value{}, err
			}
			seq[i] = v
		}
		return Value{kind: KindSequence, seq: seq}, nil
	case primitive.DateTime:
		return String(x.Time().UTC().Format(time.RFC3339Nano)), nil
	case primitive.Null, primitive.Undefined:
		return Null(), nil
	}
	return From(raw)
}
