// Package starlark evaluates .star variable files into a template context.
package starlark

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/stache/internal/template"
	"github.com/shopspring/decimal"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// FromValue converts a template value to a Starlark value.
// Maps become dicts with keys inserted in sorted order.
func FromValue(v template.Value) (starlark.Value, error) {
	switch val := v.(type) {
	case nil, template.Null:
		return starlark.None, nil

	case template.Bool:
		return starlark.Bool(val), nil

	case template.Number:
		d := val.Decimal()
		if d.IsInteger() {
			return starlark.MakeBigInt(d.BigInt()), nil
		}
		return starlark.Float(d.InexactFloat64()), nil

	case template.String:
		return starlark.String(val), nil

	case template.List:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := FromValue(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case template.Map:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dict := starlark.NewDict(len(val))
		for _, k := range keys {
			sv, err := FromValue(val[k])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToValue converts a Starlark value to a template value.
// Integers keep full precision; structs become maps.
func ToValue(v starlark.Value) (template.Value, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return template.Null{}, nil

	case starlark.String:
		return template.String(val), nil

	case starlark.Bool:
		return template.Bool(val), nil

	case starlark.Int:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return nil, fmt.Errorf("int %s: %w", val, err)
		}
		return template.NewNumber(d), nil

	case starlark.Float:
		return template.FromGo(float64(val)), nil

	case *starlark.List:
		return iterableToList(val, val.Len(), "list")

	case starlark.Tuple:
		return iterableToList(val, val.Len(), "tuple")

	case *starlark.Set:
		return iterableToList(val, val.Len(), "set")

	case *starlark.Dict:
		result := make(template.Map, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			tv, err := ToValue(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", string(key), err)
			}
			result[string(key)] = tv
		}
		return result, nil

	case *starlarkstruct.Struct:
		result := make(template.Map)
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				return nil, fmt.Errorf("struct field %q: %w", name, err)
			}
			tv, err := ToValue(attr)
			if err != nil {
				return nil, fmt.Errorf("struct field %q: %w", name, err)
			}
			result[name] = tv
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported type: %s", v.Type())
	}
}

func iterableToList(it starlark.Iterable, n int, what string) (template.List, error) {
	result := make(template.List, 0, n)
	iter := it.Iterate()
	defer iter.Done()

	var item starlark.Value
	for i := 0; iter.Next(&item); i++ {
		tv, err := ToValue(item)
		if err != nil {
			return nil, fmt.Errorf("%s index %d: %w", what, i, err)
		}
		result = append(result, tv)
	}
	return result, nil
}
