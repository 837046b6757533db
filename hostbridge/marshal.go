package hostbridge

import (
	"bytes"
	"encoding/json"
	"fmt"

	goccy "github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/zond/monty/value"
)

// GoFromValue decodes v into dst (a pointer), round-tripping through a
// JSON-shaped intermediate (spec.md §4.F+), the same
// marshal-then-unmarshal-into-dst idiom as the teacher's
// RunContext.Copy (stringify then goccy.Unmarshal into dst), generalized
// from a V8 value source to a Monty value.Value source.
func (b *Bridge) GoFromValue(dst any, v value.Value) error {
	generic, err := toGeneric(v, b.heap)
	if err != nil {
		return errors.WithStack(err)
	}
	bs, err := goccy.Marshal(generic)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := goccy.Unmarshal(bs, dst); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// ValueFromGo marshals x to JSON and rebuilds it as a value.Value tree,
// the same marshal-then-parse idiom as the teacher's RunContext.JSFromGo
// (goccy.Marshal then JSON-parse into the target runtime's own value
// representation), generalized from V8's JSON.parse to Monty's heap.
func (b *Bridge) ValueFromGo(x any) (value.Value, error) {
	bs, err := goccy.Marshal(x)
	if err != nil {
		return value.Value{}, errors.WithStack(err)
	}
	dec := goccy.NewDecoder(bytes.NewReader(bs))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return value.Value{}, errors.WithStack(err)
	}
	return b.fromGeneric(generic)
}

func toGeneric(v value.Value, h *value.Heap) (any, error) {
	switch v.Kind() {
	case value.KindNone:
		return nil, nil
	case value.KindBool:
		return v.AsBool(), nil
	case value.KindInt:
		if v.IsSmallInt() {
			return v.Int64(), nil
		}
		return v.AsBigInt().String(), nil
	case value.KindFloat:
		return v.AsFloat(), nil
	case value.KindStr:
		return v.AsStr(), nil
	case value.KindBytes:
		return v.AsBytes(), nil
	case value.KindList:
		return toGenericSeq(v.AsList(), h)
	case value.KindTuple:
		return toGenericSeq(v.AsTuple(), h)
	case value.KindDict:
		out := map[string]any{}
		for _, e := range v.DictItems() {
			if e.Key.Kind() != value.KindStr {
				return nil, fmt.Errorf("hostbridge: dict keys crossing the host boundary must be str, got %s", e.Key.Kind().String())
			}
			val, err := toGeneric(e.Val, h)
			if err != nil {
				return nil, err
			}
			out[e.Key.AsStr()] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("hostbridge: %s cannot cross the host boundary", v.Kind().String())
	}
}

func toGenericSeq(items []value.Value, h *value.Heap) (any, error) {
	out := make([]any, len(items))
	for i, it := range items {
		g, err := toGeneric(it, h)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}

func (b *Bridge) fromGeneric(g any) (value.Value, error) {
	switch x := g.(type) {
	case nil:
		return value.None, nil
	case bool:
		return value.Bool(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return value.Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return value.Value{}, errors.WithStack(err)
		}
		return value.Float(f), nil
	case string:
		return b.heap.Str(x)
	case []any:
		items := make([]value.Value, len(x))
		for i, e := range x {
			v, err := b.fromGeneric(e)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return b.heap.List(items)
	case map[string]any:
		d, err := b.heap.Dict()
		if err != nil {
			return value.Value{}, err
		}
		for k, e := range x {
			key, err := b.heap.Str(k)
			if err != nil {
				return value.Value{}, err
			}
			val, err := b.fromGeneric(e)
			if err != nil {
				return value.Value{}, err
			}
			if err := b.heap.DictSet(d, key, val); err != nil {
				return value.Value{}, err
			}
		}
		return d, nil
	default:
		return value.Value{}, fmt.Errorf("hostbridge: unsupported host value %T", g)
	}
}
