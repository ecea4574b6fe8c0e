package value

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrUnsupportedType = errors.New("unsupported type")

var (
	valueType           = reflect.TypeOf(Value{})
	yamlMarshalerType   = reflect.TypeOf((*yaml.Marshaler)(nil)).Elem()
	yamlUnmarshalerType = reflect.TypeOf((*yaml.Unmarshaler)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// DecodeError reports a value whose shape does not match the Go target.
type DecodeError struct {
	Path   string
	Target reflect.Type
	Got    Kind
	Reason string
}

func (e *DecodeError) Error() string {
	path := e.Path
	if path == "" {
		path = "."
	}
	if e.Reason != "" {
		return fmt.Sprintf("value: cannot decode %s at %s into %s: %s", e.Got, path, e.Target, e.Reason)
	}
	return fmt.Sprintf("value: cannot decode %s at %s into %s", e.Got, path, e.Target)
}

// From converts a Go value into a Value. Structs follow yaml struct tags
// (name, "-", omitempty, inline); types implementing yaml.Marshaler or
// encoding.TextMarshaler are converted through those methods.
func From(in any) (Value, error) {
	if in == nil {
		return Null(), nil
	}
	return fromReflect(reflect.ValueOf(in), 0)
}

// MustFrom is From for values known to be convertible; it panics otherwise.
func MustFrom(in any) Value {
	v, err := From(in)
	if err != nil {
		panic(err)
	}
	return v
}

func fromReflect(rv reflect.Value, depth int) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}
	if depth > maxDepth {
		return Value{}, fmt.Errorf("value: nesting exceeds %d levels", maxDepth)
	}
	t := rv.Type()
	if t == valueType {
		return rv.Interface().(Value), nil
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		if rv.Kind() == reflect.Pointer && t.Elem() == valueType {
			return rv.Elem().Interface().(Value), nil
		}
	}
	if rv.CanInterface() {
		if t.Implements(yamlMarshalerType) {
			out, err := rv.Interface().(yaml.Marshaler).MarshalYAML()
			if err != nil {
				return Value{}, err
			}
			if n, ok := out.(*yaml.Node); ok {
				return new(decoder).fromNode(n, depth+1)
			}
			return fromReflect(reflect.ValueOf(out), depth+1)
		}
		if t.Implements(textMarshalerType) {
			text, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
			if err != nil {
				return Value{}, err
			}
			return String(string(text)), nil
		}
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return fromReflect(rv.Elem(), depth+1)
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint()), nil
	case reflect.Float32:
		// shortest float32 text keeps 0.1 as 0.1 instead of 0.10000000149011612
		f, _ := strconv.ParseFloat(strconv.FormatFloat(rv.Float(), 'g', -1, 32), 64)
		return Float(f), nil
	case reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		seq := make([]Value, rv.Len())
		for i := range seq {
			e, err := fromReflect(rv.Index(i), depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			seq[i] = e
		}
		return Value{kind: KindSequence, seq: seq}, nil
	case reflect.Map:
		m := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := mapKeyString(iter.Key())
			if err != nil {
				return Value{}, err
			}
			e, err := fromReflect(iter.Value(), depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", key, err)
			}
			m[key] = e
		}
		return Value{kind: KindMapping, m: m}, nil
	case reflect.Struct:
		m := make(map[string]Value)
		for _, f := range fieldsOf(t) {
			fv := rv.FieldByIndex(f.index)
			if f.omitEmpty && isEmpty(fv) {
				continue
			}
			e, err := fromReflect(fv, depth+1)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", f.name, err)
			}
			m[f.name] = e
		}
		return Value{kind: KindMapping, m: m}, nil
	}
	return Value{}, fmt.Errorf("value: %w: %s", ErrUnsupportedType, t)
}

func mapKeyString(k reflect.Value) (string, error) {
	if k.Kind() == reflect.Interface {
		if k.IsNil() {
			return "", fmt.Errorf("value: %w: nil map key", ErrUnsupportedType)
		}
		k = k.Elem()
	}
	if k.Type().Implements(textMarshalerType) && k.CanInterface() {
		text, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		return string(text), err
	}
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("value: %w: map key %s", ErrUnsupportedType, k.Type())
}

func isEmpty(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return rv.Len() == 0
	}
	return rv.IsZero()
}

// Decode stores v into the value pointed to by out. Shapes must match exactly:
// a string never decodes into a number, a float never into an integer, and
// integers that overflow the target type are rejected.
func (v Value) Decode(out any) error {
	rv := reflect.ValueOf(out)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("value: Decode requires a non-nil pointer, got %T", out)
	}
	return decode(v, rv.Elem(), "", 0)
}

func mismatch(v Value, rv reflect.Value, path string) error {
	return &DecodeError{Path: path, Target: rv.Type(), Got: v.kind}
}

func decode(v Value, rv reflect.Value, path string, depth int) error {
	if depth > maxDepth {
		return &DecodeError{Path: path, Target: rv.Type(), Got: v.kind, Reason: "nesting too deep"}
	}
	t := rv.Type()
	if t == valueType {
		rv.Set(reflect.ValueOf(v))
		return nil
	}
	if t.Kind() != reflect.Pointer && rv.CanAddr() {
		pt := reflect.PointerTo(t)
		if pt.Implements(yamlUnmarshalerType) {
			if err := rv.Addr().Interface().(yaml.Unmarshaler).UnmarshalYAML(v.node()); err != nil {
				return &DecodeError{Path: path, Target: t, Got: v.kind, Reason: err.Error()}
			}
			return nil
		}
		if pt.Implements(textUnmarshalerType) {
			s, ok := v.AsString()
			if !ok {
				return mismatch(v, rv, path)
			}
			if err := rv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
				return &DecodeError{Path: path, Target: t, Got: v.kind, Reason: err.Error()}
			}
			return nil
		}
	}

	switch t.Kind() {
	case reflect.Pointer:
		if v.kind == KindNull {
			rv.Set(reflect.Zero(t))
			return nil
		}
		elem := reflect.New(t.Elem())
		if err := decode(v, elem.Elem(), path, depth+1); err != nil {
			return err
		}
		rv.Set(elem)
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return &DecodeError{Path: path, Target: t, Got: v.kind, Reason: "non-empty interface"}
		}
		if v.kind == KindNull {
			rv.Set(reflect.Zero(t))
			return nil
		}
		rv.Set(reflect.ValueOf(v.Interface()))
	case reflect.Bool:
		b, ok := v.AsBool()
		if !ok {
			return mismatch(v, rv, path)
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := v.AsInt()
		if !ok {
			return mismatch(v, rv, path)
		}
		if rv.OverflowInt(i) {
			return &DecodeError{Path: path, Target: t, Got: v.kind, Reason: "overflow"}
		}
		rv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, ok := v.AsUint()
		if !ok {
			return mismatch(v, rv, path)
		}
		if rv.OverflowUint(u) {
			return &DecodeError{Path: path, Target: t, Got: v.kind, Reason: "overflow"}
		}
		rv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, ok := v.AsFloat()
		if !ok {
			return mismatch(v, rv, path)
		}
		if !math.IsInf(f, 0) && rv.OverflowFloat(f) {
			return &DecodeError{Path: path, Target: t, Got: v.kind, Reason: "overflow"}
		}
		rv.SetFloat(f)
	case reflect.String:
		s, ok := v.AsString()
		if !ok {
			return mismatch(v, rv, path)
		}
		rv.SetString(s)
	case reflect.Slice:
		if v.kind != KindSequence {
			return mismatch(v, rv, path)
		}
		s := reflect.MakeSlice(t, len(v.seq), len(v.seq))
		for i, e := range v.seq {
			if err := decode(e, s.Index(i), fmt.Sprintf("%s[%d]", path, i), depth+1); err != nil {
				return err
			}
		}
		rv.Set(s)
	case reflect.Array:
		if v.kind != KindSequence {
			return mismatch(v, rv, path)
		}
		if len(v.seq) != t.Len() {
			return &DecodeError{Path: path, Target: t, Got: v.kind,
				Reason: fmt.Sprintf("length %d, want %d", len(v.seq), t.Len())}
		}
		tmp := reflect.New(t).Elem()
		for i, e := range v.seq {
			if err := decode(e, tmp.Index(i), fmt.Sprintf("%s[%d]", path, i), depth+1); err != nil {
				return err
			}
		}
		rv.Set(tmp)
	case reflect.Map:
		if v.kind != KindMapping {
			return mismatch(v, rv, path)
		}
		m := reflect.MakeMapWithSize(t, len(v.m))
		for _, k := range v.Keys() {
			kv, err := parseMapKey(k, t.Key())
			if err != nil {
				return &DecodeError{Path: path, Target: t, Got: v.kind, Reason: err.Error()}
			}
			ev := reflect.New(t.Elem()).Elem()
			if err := decode(v.m[k], ev, path+"."+k, depth+1); err != nil {
				return err
			}
			m.SetMapIndex(kv, ev)
		}
		rv.Set(m)
	case reflect.Struct:
		if v.kind != KindMapping {
			return mismatch(v, rv, path)
		}
		tmp := reflect.New(t).Elem()
		for _, f := range fieldsOf(t) {
			e, ok := v.m[f.name]
			if !ok {
				continue
			}
			if err := decode(e, tmp.FieldByIndex(f.index), path+"."+f.name, depth+1); err != nil {
				return err
			}
		}
		rv.Set(tmp)
	default:
		return &DecodeError{Path: path, Target: t, Got: v.kind, Reason: ErrUnsupportedType.Error()}
	}
	return nil
}

func parseMapKey(k string, t reflect.Type) (reflect.Value, error) {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		kv := reflect.New(t)
		if err := kv.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(k)); err != nil {
			return reflect.Value{}, err
		}
		return kv.Elem(), nil
	}
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(k).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(k, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(i).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(k, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(u).Convert(t), nil
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return reflect.ValueOf(k), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%w: map key %s", ErrUnsupportedType, t)
}

type field struct {
	name      string
	index     []int
	omitEmpty bool
}

var fieldCache sync.Map // reflect.Type -> []field

func fieldsOf(t reflect.Type) []field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field)
	}
	fields := collectFields(t, nil)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].name < fields[j].name })
	fieldCache.Store(t, fields)
	return fields
}

func collectFields(t reflect.Type, parent []int) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, opts, _ := strings.Cut(sf.Tag.Get("yaml"), ",")
		if name == "-" {
			continue
		}
		index := make([]int, len(parent)+1)
		copy(index, parent)
		index[len(parent)] = i

		if hasOption(opts, "inline") && sf.Type.Kind() == reflect.Struct {
			out = append(out, collectFields(sf.Type, index)...)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = strings.ToLower(sf.Name)
		}
		out = append(out, field{name: name, index: index, omitEmpty: hasOption(opts, "omitempty")})
	}
	return out
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}
