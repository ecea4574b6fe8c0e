package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// maxDepth bounds recursion through nested values and YAML aliases.
	maxDepth = 1000
	// maxNodes bounds the number of values one document may expand to, so a
	// small file of nested aliases cannot blow up in memory.
	maxNodes = 250_000
)

var ErrDocumentTooLarge = errors.New("yaml: document expands to too many values")

// MarshalYAML emits v as a YAML node: mapping keys sorted, floats always with a
// decimal point or exponent so they load back as floats.
func (v Value) MarshalYAML() (any, error) {
	return v.node(), nil
}

// UnmarshalYAML loads any YAML node into v. Aliases and merge keys are resolved;
// scalars with tags other than null, bool, int and float load as strings.
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	out, err := new(decoder).fromNode(n, 0)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// UnmarshalYAML loads a top-level mapping into d. The whole document shares one
// expansion budget.
func (d *Document) UnmarshalYAML(n *yaml.Node) error {
	out, err := new(decoder).fromNode(n, 0)
	if err != nil {
		return err
	}
	switch out.kind {
	case KindNull:
		*d = Document{}
	case KindMapping:
		*d = Document(out.m)
	default:
		return fmt.Errorf("yaml: cannot load a %s as a configuration document at line %d", out.kind, n.Line)
	}
	return nil
}

func (v Value) node() *yaml.Node {
	switch v.kind {
	case KindBool:
		return scalar("!!bool", strconv.FormatBool(v.b))
	case KindNumber:
		switch v.form {
		case numInt:
			return scalar("!!int", strconv.FormatInt(v.i, 10))
		case numUint:
			return scalar("!!int", strconv.FormatUint(v.u, 10))
		}
		return scalar("!!float", formatFloat(v.f))
	case KindString:
		return scalar("!!str", v.s)
	case KindSequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v.seq {
			n.Content = append(n.Content, e.node())
		}
		return n
	case KindMapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.Keys() {
			n.Content = append(n.Content, scalar("!!str", k), v.m[k].node())
		}
		return n
	}
	return scalar("!!null", "null")
}

func scalar(tag, text string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: text}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// decoder converts YAML nodes into values, counting every value it produces.
type decoder struct {
	nodes int
}

func (d *decoder) fromNode(n *yaml.Node, depth int) (Value, error) {
	if n == nil {
		return Null(), nil
	}
	d.nodes++
	if d.nodes > maxNodes {
		return Value{}, fmt.Errorf("%w: more than %d at line %d", ErrDocumentTooLarge, maxNodes, n.Line)
	}
	if depth > maxDepth {
		return Value{}, fmt.Errorf("yaml: document nesting exceeds %d levels at line %d", maxDepth, n.Line)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return d.fromNode(n.Content[0], depth+1)
	case yaml.AliasNode:
		return d.fromNode(n.Alias, depth+1)
	case yaml.ScalarNode:
		return fromScalar(n)
	case yaml.SequenceNode:
		seq := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			e, err := d.fromNode(c, depth+1)
			if err != nil {
				return Value{}, err
			}
			seq = append(seq, e)
		}
		return Value{kind: KindSequence, seq: seq}, nil
	case yaml.MappingNode:
		return d.fromMapping(n, depth)
	}
	return Value{}, fmt.Errorf("yaml: unsupported node kind %d at line %d", n.Kind, n.Line)
}

func fromScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err == nil {
			return Uint(u), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return Float(f), nil
	}
	return String(n.Value), nil
}

// fromMapping collects explicit keys first; merged mappings ("<<") only fill keys
// that are still missing, earlier merge sources winning over later ones.
func (d *decoder) fromMapping(n *yaml.Node, depth int) (Value, error) {
	out := make(map[string]Value, len(n.Content)/2)
	var merged []map[string]Value
	for i := 0; i+1 < len(n.Content); i += 2 {
		kn, vn := n.Content[i], n.Content[i+1]
		if kn.Kind == yaml.ScalarNode && kn.ShortTag() == "!!merge" {
			src, err := d.fromNode(vn, depth+1)
			if err != nil {
				return Value{}, err
			}
			switch src.kind {
			case KindMapping:
				merged = append(merged, src.m)
			case KindSequence:
				for _, e := range src.seq {
					if e.kind != KindMapping {
						return Value{}, fmt.Errorf("yaml: merge sequence item is a %s at line %d", e.kind, vn.Line)
					}
					merged = append(merged, e.m)
				}
			default:
				return Value{}, fmt.Errorf("yaml: cannot merge a %s at line %d", src.kind, vn.Line)
			}
			continue
		}
		if kn.Kind == yaml.AliasNode && kn.Alias != nil {
			kn = kn.Alias
		}
		if kn.Kind != yaml.ScalarNode {
			return Value{}, fmt.Errorf("yaml: unsupported non-scalar mapping key at line %d", kn.Line)
		}
		e, err := d.fromNode(vn, depth+1)
		if err != nil {
			return Value{}, err
		}
		out[kn.Value] = e
	}
	for _, m := range merged {
		for k, e := range m {
			if _, ok := out[k]; !ok {
				out[k] = e
			}
		}
	}
	return Value{kind: KindMapping, m: out}, nil
}
