package template

import (
	"strconv"
	"strings"
)

// loopMeta describes the current iteration of a list or map section.
type loopMeta struct {
	index int
	count int
	key   string
	byKey bool
}

// scopeEntry is one level of the scope stack.
type scopeEntry struct {
	value Value
	loop  *loopMeta
}

// scope is the LIFO stack of values unqualified paths resolve against.
// The outermost entry is the render context.
type scope struct {
	stack []scopeEntry
}

func newScope(ctx Map) *scope {
	if ctx == nil {
		ctx = Map{}
	}
	return &scope{stack: []scopeEntry{{value: ctx}}}
}

func (s *scope) push(v Value, loop *loopMeta) {
	s.stack = append(s.stack, scopeEntry{value: orNull(v), loop: loop})
}

func (s *scope) pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

// lookup resolves a dotted path. The first segment is searched from the
// innermost scope outwards; the rest are walked inside the value found.
// Any miss, or an empty segment, yields ok=false.
func (s *scope) lookup(path string) (Value, bool) {
	if path == "." || path == "this" {
		return s.stack[len(s.stack)-1].value, true
	}
	if strings.HasPrefix(path, "@") {
		return s.loopVar(path)
	}

	segments := strings.Split(path, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, false
		}
	}

	var (
		current Value
		found   bool
	)
	if segments[0] == "this" {
		current, found = s.stack[len(s.stack)-1].value, true
	} else {
		for i := len(s.stack) - 1; i >= 0; i-- {
			if m, ok := s.stack[i].value.(Map); ok {
				if v, ok := m[segments[0]]; ok {
					current, found = orNull(v), true
					break
				}
			}
		}
	}
	if !found {
		return nil, false
	}

	for _, seg := range segments[1:] {
		next, ok := child(current, seg)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// child looks up one path segment inside v: a map key or a list index.
func child(v Value, seg string) (Value, bool) {
	switch t := v.(type) {
	case Map:
		next, ok := t[seg]
		return orNull(next), ok
	case List:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(t) {
			return nil, false
		}
		return orNull(t[i]), true
	}
	return nil, false
}

// orNull maps a nil Value stored in a Map or List to Null.
func orNull(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}

// loopVar resolves @index, @first, @last and @key from the innermost loop.
func (s *scope) loopVar(name string) (Value, bool) {
	for i := len(s.stack) - 1; i >= 0; i-- {
		loop := s.stack[i].loop
		if loop == nil {
			continue
		}
		switch name {
		case "@index":
			return Int(int64(loop.index)), true
		case "@first":
			return Bool(loop.index == 0), true
		case "@last":
			return Bool(loop.index == loop.count-1), true
		case "@key":
			if loop.byKey {
				return String(loop.key), true
			}
			return nil, false
		default:
			return nil, false
		}
	}
	return nil, false
}
