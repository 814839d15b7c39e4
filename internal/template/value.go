package template

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Kind identifies the variant held by a Value.
type Kind int

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
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
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a context value. The set of implementations is closed:
// Null, Bool, Number, String, List and Map.
type Value interface {
	Kind() Kind
	// String is the text a {{ }} reference renders.
	String() string
	// Truth decides whether a section renders.
	Truth() bool
	value()
}

// Null is an explicit null. It renders empty and is falsy.
type Null struct{}

func (Null) Kind() Kind     { return KindNull }
func (Null) String() string { return "" }
func (Null) Truth() bool    { return false }
func (Null) value()         {}

// MarshalJSON encodes Null as a JSON null.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Bool wraps a boolean.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b Bool) Truth() bool { return bool(b) }
func (Bool) value()        {}

// Number is an arbitrary precision decimal. Zero is truthy.
type Number struct {
	d decimal.Decimal
}

// NewNumber wraps a decimal.
func NewNumber(d decimal.Decimal) Number { return Number{d: d} }

// Int returns the Number for an integer.
func Int(i int64) Number { return Number{d: decimal.NewFromInt(i)} }

// Float returns the Number for a float. Callers must reject NaN and Inf.
func Float(f float64) Number { return Number{d: decimal.NewFromFloat(f)} }

// Decimal returns the underlying decimal.
func (n Number) Decimal() decimal.Decimal { return n.d }

func (Number) Kind() Kind { return KindNumber }

// String renders the canonical decimal form: no exponent, no trailing zeros.
func (n Number) String() string { return n.d.String() }
func (Number) Truth() bool      { return true }
func (Number) value()           {}

// MarshalJSON encodes the number unquoted.
func (n Number) MarshalJSON() ([]byte, error) { return []byte(n.d.String()), nil }

// String wraps a string. The empty string is truthy.
type String string

func (String) Kind() Kind       { return KindString }
func (s String) String() string { return string(s) }
func (String) Truth() bool      { return true }
func (String) value()           {}

// List is an ordered sequence of values.
type List []Value

func (List) Kind() Kind       { return KindList }
func (l List) String() string { return encodeJSON(l) }
func (l List) Truth() bool    { return len(l) > 0 }
func (List) value()           {}

// Map is a string-keyed mapping. It is also the variable context type.
type Map map[string]Value

func (Map) Kind() Kind       { return KindMap }
func (m Map) String() string { return encodeJSON(m) }
func (m Map) Truth() bool    { return len(m) > 0 }
func (Map) value()           {}

// encodeJSON renders structured values as compact JSON with sorted map keys.
// A value that cannot be encoded renders empty.
func encodeJSON(v any) string {
	b, err := json.MarshalWithOption(v, json.DisableHTMLEscape())
	if err != nil {
		return ""
	}
	return string(b)
}

// NewContext converts a map[string]any into a Map.
func NewContext(m map[string]any) Map {
	ctx := make(Map, len(m))
	for k, v := range m {
		ctx[k] = FromGo(v)
	}
	return ctx
}

// FromGo converts a Go value to a Value.
// Nested maps, slices, arrays and structs are converted recursively.
func FromGo(v any) Value {
	if v == nil {
		return Null{}
	}
	switch t := v.(type) {
	case Value:
		return t
	case string:
		return String(t)
	case []byte:
		return String(string(t))
	case bool:
		return Bool(t)
	case int, int8, int16, int32, int64:
		return Int(cast.ToInt64(t))
	case uint, uint8, uint16, uint32, uint64:
		d, err := decimal.NewFromString(cast.ToString(t))
		if err != nil {
			return String(cast.ToString(t))
		}
		return NewNumber(d)
	case float32:
		return floatValue(float64(t))
	case float64:
		return floatValue(t)
	case decimal.Decimal:
		return NewNumber(t)
	case json.Number:
		if d, err := decimal.NewFromString(string(t)); err == nil {
			return NewNumber(d)
		}
		return String(string(t))
	case map[string]any:
		return NewContext(t)
	case []any:
		out := make(List, len(t))
		for i, item := range t {
			out[i] = FromGo(item)
		}
		return out
	case fmt.Stringer:
		return String(t.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		out := make(List, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, FromGo(rv.Index(i).Interface()))
		}
		return out
	case reflect.Map:
		out := make(Map, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			key, err := cast.ToStringE(it.Key().Interface())
			if err != nil {
				continue
			}
			out[key] = FromGo(it.Value().Interface())
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}
		}
		return FromGo(rv.Elem().Interface())
	case reflect.Struct:
		return structValue(rv)
	}

	// Fallback: let cast find a string form
	if s, err := cast.ToStringE(v); err == nil {
		return String(s)
	}
	return String(fmt.Sprintf("%v", v))
}

func floatValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return String(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return Float(f)
}

// structValue exposes exported fields, honoring a `json` tag name.
func structValue(rv reflect.Value) Map {
	rt := rv.Type()
	out := make(Map, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out[name] = FromGo(rv.Field(i).Interface())
	}
	return out
}

// ToGo converts a Value back to plain Go data: nil, bool, string,
// decimal.Decimal, []any or map[string]any.
func ToGo(v Value) any {
	switch t := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(t)
	case Number:
		return t.d
	case String:
		return string(t)
	case List:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToGo(item)
		}
		return out
	case Map:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = ToGo(item)
		}
		return out
	}
	return nil
}

// Merge returns a new Map with the entries of overlay laid over base.
// Nested maps are merged recursively; other values are replaced.
func Merge(base, overlay Map) Map {
	out := make(Map, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if bm, ok := out[k].(Map); ok {
			if om, ok := v.(Map); ok {
				out[k] = Merge(bm, om)
				continue
			}
		}
		out[k] = v
	}
	return out
}
