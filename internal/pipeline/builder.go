package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/marcelocantos/imgpipe/internal/catalog"
	"github.com/marcelocantos/imgpipe/internal/session"
)

const (
	// DefaultParamValue is used for a numeric parameter that has never been
	// set. It is deliberately not clamped to the parameter's range.
	DefaultParamValue = 2

	MaxIntensity = 100
)

var (
	ErrInvalidSelection = errors.New("invalid selection")
	ErrInvalidParameter = errors.New("invalid parameter")
)

var globalLogger = logrus.New()

// SetGlobalLogger replaces the logger used by builders created afterwards.
func SetGlobalLogger(l *logrus.Logger) {
	if l != nil {
		globalLogger = l
	}
}

// override resolves an enumerated parameter that the generic numeric loop
// skips, falling back to a fixed value when the user never chose one.
type override struct {
	cat      catalog.Category
	options  []string
	param    string
	fallback string
}

var overrides = []override{
	{catalog.EdgeDetector, []string{"Sobel", "Laplacian"}, catalog.ParamDepth, "CV_8U"},
	{catalog.Binarization, []string{"AdaptiveThresholding"}, catalog.ParamAdaptiveType, "ADAPTIVE_THRESH_MEAN_C"},
}

// Builder turns the current session state of a category into a pipeline
// step and appends it.
type Builder struct {
	state  *session.State
	pipe   *Pipeline
	lastID uint64
	logger *logrus.Logger
}

// NewBuilder creates a builder that reads from state and appends to pipe.
func NewBuilder(state *session.State, pipe *Pipeline) *Builder {
	return &Builder{state: state, pipe: pipe, logger: globalLogger}
}

// Pipeline returns the pipeline the builder appends to.
func (b *Builder) Pipeline() *Pipeline {
	return b.pipe
}

// State returns the session the builder reads from.
func (b *Builder) State() *session.State {
	return b.state
}

// Apply builds a step from the option currently selected for c, appends it
// to the pipeline and resets the category's intensity. On error nothing is
// appended and the state is unchanged.
func (b *Builder) Apply(c catalog.Category) (Step, error) {
	cat := b.state.Catalog()

	option, ok := b.state.Selected(c)
	if !ok {
		return Step{}, fmt.Errorf("%w: no option selected for %s", ErrInvalidSelection, c)
	}
	command, err := cat.CommandCode(option)
	if err != nil {
		return Step{}, fmt.Errorf("%w: %s: %w", ErrInvalidSelection, c, err)
	}
	specs, err := cat.Specs(c, option)
	if err != nil {
		return Step{}, fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}

	var params []Param
	set := func(name string, v session.Value) {
		for i := range params {
			if params[i].Name == name {
				params[i].Value = v
				return
			}
		}
		params = append(params, Param{Name: name, Value: v})
	}

	for _, spec := range specs {
		if spec.Kind != catalog.Numeric {
			continue
		}
		raw, ok := b.state.Param(c, option, spec.Name)
		if !ok {
			set(spec.Name, session.Number(DefaultParamValue))
			continue
		}
		n, err := raw.Int()
		if err != nil {
			return Step{}, fmt.Errorf("%w: %s %s: %w", ErrInvalidParameter, option, spec.Name, err)
		}
		set(spec.Name, session.Number(spec.Clamp(n)))
	}

	for _, o := range overrides {
		if o.cat != c || !slices.Contains(o.options, option) {
			continue
		}
		v, ok := b.state.Param(c, option, o.param)
		if !ok {
			v = session.Text(o.fallback)
		} else if spec, found := specFor(specs, o.param); found && !spec.Allows(v.String()) {
			return Step{}, fmt.Errorf("%w: %s %s: %q not one of %v", ErrInvalidParameter, option, o.param, v, spec.Values)
		}
		set(o.param, v)
	}

	intensity := 0
	if raw, ok := b.state.Intensity(c); ok {
		n, err := raw.Int()
		if err != nil {
			return Step{}, fmt.Errorf("%w: %s intensity: %w", ErrInvalidParameter, c, err)
		}
		intensity = min(max(n, 0), MaxIntensity)
	}

	b.lastID++
	step := Step{
		ID:        b.lastID,
		Command:   command,
		Label:     option + " - " + c.String(),
		Category:  c,
		Option:    option,
		Intensity: intensity,
		params:    params,
	}
	b.pipe.Append(step)
	b.state.ResetIntensity(c)

	b.logger.WithFields(logrus.Fields{
		"id":        step.ID,
		"command":   step.Command,
		"intensity": step.Intensity,
	}).Debugf("Applied %q", step.Label)

	return step, nil
}

func specFor(specs []catalog.ParamSpec, name string) (catalog.ParamSpec, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return catalog.ParamSpec{}, false
}
