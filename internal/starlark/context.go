package starlark

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/leapstack-labs/stache/internal/template"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Evaluator runs Starlark vars files and expressions.
// Each call uses a fresh thread, so an Evaluator is safe for concurrent use.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates an evaluator. A nil logger discards print output.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{logger: logger}
}

// ExecFile reads and executes a vars file. See Exec.
func (e *Evaluator) ExecFile(path string, base template.Map) (template.Map, error) {
	src, err := os.ReadFile(path) //nolint:gosec // G304: path is a user-supplied vars file
	if err != nil {
		return nil, &EvalError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	return e.Exec(path, src, base)
}

// Exec executes src and returns its exported globals as variables.
// Names starting with "_" are private to the file, and functions are skipped.
// base is visible to the script as the read-only "vars" dict.
func (e *Evaluator) Exec(filename string, src []byte, base template.Map) (template.Map, error) {
	predeclared, err := Predeclared(base)
	if err != nil {
		return nil, &EvalError{File: filename, Message: err.Error()}
	}

	thread := e.newThread(filename)
	globals, err := starlark.ExecFile(thread, filename, src, predeclared) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	if err != nil {
		return nil, newEvalError(filename, "", err)
	}

	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make(template.Map, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, "_") {
			continue
		}
		value := globals[name]
		if _, ok := value.(starlark.Callable); ok {
			e.logger.Debug("skipping callable global", "file", filename, "name", name)
			continue
		}
		tv, err := ToValue(value)
		if err != nil {
			return nil, &EvalError{File: filename, Message: fmt.Sprintf("global %q: %v", name, err)}
		}
		vars[name] = tv
	}

	e.logger.Debug("starlark vars loaded", "file", filename, "count", len(vars))
	return vars, nil
}

// Eval evaluates a single expression with vars as the "vars" global and
// returns the result as a template value.
func (e *Evaluator) Eval(expr string, vars template.Map) (template.Value, error) {
	predeclared, err := Predeclared(vars)
	if err != nil {
		return nil, &EvalError{File: "<expr>", Expr: expr, Message: err.Error()}
	}

	thread := e.newThread("<expr>")
	result, err := starlark.Eval(thread, "<expr>", expr, predeclared) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	if err != nil {
		return nil, newEvalError("<expr>", expr, err)
	}

	tv, err := ToValue(result)
	if err != nil {
		return nil, &EvalError{File: "<expr>", Expr: expr, Message: err.Error()}
	}
	return tv, nil
}

// newThread creates a thread whose print() goes to the debug log.
func (e *Evaluator) newThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Debug("starlark print", "file", name, "msg", msg)
		},
	}
}

// EvalError represents an error while executing a vars file or expression.
type EvalError struct {
	File    string
	Line    int
	Expr    string
	Message string
}

func newEvalError(file, expr string, err error) *EvalError {
	ee := &EvalError{File: file, Expr: expr, Message: err.Error()}

	var synErr syntax.Error
	var runErr *starlark.EvalError
	switch {
	case errors.As(err, &synErr):
		ee.Line = int(synErr.Pos.Line)
		ee.Message = synErr.Msg
	case errors.As(err, &runErr):
		// innermost frame with a source position; builtins have none
		for i := len(runErr.CallStack) - 1; i >= 0; i-- {
			if line := runErr.CallStack[i].Pos.Line; line > 0 {
				ee.Line = int(line)
				break
			}
		}
		ee.Message = runErr.Msg
	}
	return ee
}

func (e *EvalError) Error() string {
	switch {
	case e.Expr != "":
		return fmt.Sprintf("error evaluating %q: %s", e.Expr, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
}
