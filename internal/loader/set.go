package loader

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/leapstack-labs/stache/internal/template"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ParseSet turns key.path=value assignments into a context.
//
// Values are coerced: true/false become booleans, null becomes null,
// decimal literals become numbers, and text starting with [ or { is decoded
// as JSON. Anything else, or a value wrapped in single or double quotes,
// is a string.
func ParseSet(assignments []string) (template.Map, error) {
	vars := template.Map{}
	for _, a := range assignments {
		key, raw, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q: expected key=value", a)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid assignment %q: empty key", a)
		}

		value, err := ParseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid assignment %q: %w", a, err)
		}
		if err := SetPath(vars, key, value); err != nil {
			return nil, err
		}
	}
	return vars, nil
}

// ParseValue coerces a command-line value. See ParseSet.
func ParseValue(raw string) (template.Value, error) {
	if n := len(raw); n >= 2 {
		if (raw[0] == '"' && raw[n-1] == '"') || (raw[0] == '\'' && raw[n-1] == '\'') {
			return template.String(raw[1 : n-1]), nil
		}
	}

	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "true", "false":
		return template.Bool(cast.ToBool(strings.ToLower(trimmed))), nil
	case "null":
		return template.Null{}, nil
	}

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("invalid JSON value: %w", err)
		}
		return template.FromGo(v), nil
	}

	if looksNumeric(trimmed) {
		if d, err := decimal.NewFromString(trimmed); err == nil {
			return template.NewNumber(d), nil
		}
	}
	return template.String(raw), nil
}

// looksNumeric accepts plain decimal literals only; "1e5" stays a string.
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	dot := false
	digits := 0
	for _, r := range s {
		switch {
		case template.IsDigit(r):
			digits++
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

// SetPath assigns value at a dotted path inside vars, creating intermediate
// maps as needed.
func SetPath(vars template.Map, path string, value template.Value) error {
	segments := strings.Split(path, ".")
	current := vars
	for i, seg := range segments {
		if seg == "" {
			return fmt.Errorf("invalid key %q: empty segment", path)
		}
		if i == len(segments)-1 {
			current[seg] = value
			return nil
		}

		next, ok := current[seg]
		if !ok {
			m := template.Map{}
			current[seg] = m
			current = m
			continue
		}
		m, ok := next.(template.Map)
		if !ok {
			return fmt.Errorf("invalid key %q: %q is a %s, not a map", path, strings.Join(segments[:i+1], "."), next.Kind())
		}
		current = m
	}
	return nil
}
