package recipe

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/marcelocantos/imgpipe/internal/catalog"
	"github.com/marcelocantos/imgpipe/internal/pipeline"
	"github.com/marcelocantos/imgpipe/internal/session"
)

// Exec runs a Starlark recipe against b and returns the steps it appended,
// in order, excluding any it later removed. src may be nil, in which case
// filename is read. out receives the script's print output; nil drops it.
//
// Scripts see these builtins:
//
//	options(category)            -> list of option names
//	select(category, option)
//	set(category, name, value)   sets a parameter of the selected option
//	intensity(category, value)
//	apply(category)              -> id of the new step
//	remove(id)                   -> whether the step existed
//	steps()                      -> list of dicts describing the pipeline
func Exec(filename string, src any, b *pipeline.Builder, out func(string)) ([]pipeline.Step, error) {
	r := &runner{b: b}
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			if out != nil {
				out(msg)
			}
		},
	}

	predeclared := starlark.StringDict{
		"options":   starlark.NewBuiltin("options", r.options),
		"select":    starlark.NewBuiltin("select", r.selectOption),
		"set":       starlark.NewBuiltin("set", r.set),
		"intensity": starlark.NewBuiltin("intensity", r.intensity),
		"apply":     starlark.NewBuiltin("apply", r.apply),
		"remove":    starlark.NewBuiltin("remove", r.remove),
		"steps":     starlark.NewBuiltin("steps", r.steps),
	}

	if _, err := starlark.ExecFileOptions(fileOptions, thread, filename, src, predeclared); err != nil {
		return r.applied(), fmt.Errorf("%s: %w", filename, err)
	}
	return r.applied(), nil
}

// Recipes are flat scripts, so loops and reassignment are allowed at top level.
var fileOptions = &syntax.FileOptions{
	TopLevelControl: true,
	GlobalReassign:  true,
}

type runner struct {
	b   *pipeline.Builder
	ids []uint64
}

// applied returns the steps this script appended that are still present.
func (r *runner) applied() []pipeline.Step {
	var out []pipeline.Step
	for _, id := range r.ids {
		if s, ok := r.b.Pipeline().Step(id); ok {
			out = append(out, s)
		}
	}
	return out
}

func category(name string) (catalog.Category, error) {
	return catalog.ParseCategory(name)
}

func toValue(v starlark.Value) (session.Value, error) {
	switch x := v.(type) {
	case starlark.Int:
		if n, ok := x.Int64(); ok {
			return session.Number(int(n)), nil
		}
		if x.Sign() > 0 {
			return session.Number(math.MaxInt), nil
		}
		return session.Number(math.MinInt), nil
	case starlark.Float:
		n, err := session.IntFromFloat(float64(x))
		if err != nil {
			return session.Value{}, err
		}
		return session.Number(n), nil
	case starlark.String:
		return session.Text(string(x)), nil
	}
	return session.Value{}, fmt.Errorf("want int, float or string, got %s", v.Type())
}

func (r *runner) options(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "category", &name); err != nil {
		return nil, err
	}
	cat, err := category(name)
	if err != nil {
		return nil, err
	}
	opts, err := r.b.State().Catalog().Options(cat)
	if err != nil {
		return nil, err
	}
	names := make([]starlark.Value, len(opts))
	for i, o := range opts {
		names[i] = starlark.String(o.Name)
	}
	return starlark.NewList(names), nil
}

func (r *runner) selectOption(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, option string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "category", &name, "option", &option); err != nil {
		return nil, err
	}
	cat, err := category(name)
	if err != nil {
		return nil, err
	}
	if err := r.b.State().Select(cat, option); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (r *runner) set(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, param string
	var raw starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "category", &name, "name", &param, "value", &raw); err != nil {
		return nil, err
	}
	cat, err := category(name)
	if err != nil {
		return nil, err
	}
	v, err := toValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", fn.Name(), param, err)
	}
	if err := r.b.State().SetSelectedParam(cat, param, v); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (r *runner) intensity(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var raw starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "category", &name, "value", &raw); err != nil {
		return nil, err
	}
	cat, err := category(name)
	if err != nil {
		return nil, err
	}
	v, err := toValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	r.b.State().SetIntensity(cat, v)
	return starlark.None, nil
}

func (r *runner) apply(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "category", &name); err != nil {
		return nil, err
	}
	cat, err := category(name)
	if err != nil {
		return nil, err
	}
	step, err := r.b.Apply(cat)
	if err != nil {
		return nil, err
	}
	r.ids = append(r.ids, step.ID)
	return starlark.MakeUint64(step.ID), nil
}

func (r *runner) remove(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id int
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "id", &id); err != nil {
		return nil, err
	}
	if id < 0 {
		return starlark.False, nil
	}
	return starlark.Bool(r.b.Pipeline().Remove(uint64(id))), nil
}

func (r *runner) steps(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs); err != nil {
		return nil, err
	}
	steps := r.b.Pipeline().Steps()
	out := make([]starlark.Value, len(steps))
	for i, s := range steps {
		d := starlark.NewDict(5)
		d.SetKey(starlark.String("id"), starlark.MakeUint64(s.ID))
		d.SetKey(starlark.String("command"), starlark.String(s.Command))
		d.SetKey(starlark.String("label"), starlark.String(s.Label))
		d.SetKey(starlark.String("intensity"), starlark.MakeInt(s.Intensity))
		params := starlark.NewDict(len(s.ParamList()))
		for _, p := range s.ParamList() {
			if p.Value.IsNumber() {
				n, _ := p.Value.Int()
				params.SetKey(starlark.String(p.Name), starlark.MakeInt(n))
			} else {
				params.SetKey(starlark.String(p.Name), starlark.String(p.Value.String()))
			}
		}
		d.SetKey(starlark.String("params"), params)
		out[i] = d
	}
	return starlark.NewList(out), nil
}
