package starlark

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/stache/internal/template"
	"go.starlark.net/lib/json"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// envBuiltin implements env(name, default=None): the value of an
// environment variable, or default when it is unset.
func envBuiltin(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name string
		def  starlark.Value = starlark.None
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &def); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv(name); ok {
		return starlark.String(v), nil
	}
	return def, nil
}

// VarsToStarlark converts the variables loaded so far into a frozen dict.
// It is exposed as the "vars" global so later files can build on earlier ones.
func VarsToStarlark(vars template.Map) (starlark.Value, error) {
	if vars == nil {
		vars = template.Map{}
	}
	v, err := FromValue(vars)
	if err != nil {
		return nil, fmt.Errorf("converting vars: %w", err)
	}
	v.Freeze()
	return v, nil
}

// Predeclared returns the globals available to a vars file:
// env, json, struct and vars.
func Predeclared(vars template.Map) (starlark.StringDict, error) {
	varsVal, err := VarsToStarlark(vars)
	if err != nil {
		return nil, err
	}
	return starlark.StringDict{
		"env":    starlark.NewBuiltin("env", envBuiltin),
		"json":   json.Module,
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"vars":   varsVal,
	}, nil
}
