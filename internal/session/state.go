package session

import (
	"fmt"

	"github.com/marcelocantos/imgpipe/internal/catalog"
)

type paramKey struct {
	cat    catalog.Category
	option string
	name   string
}

// State is the mutable selection and parameter store of one editing
// session. Parameter values are keyed by category, option and name, so two
// options exposing a parameter with the same name never share a slot.
//
// State does no validation of values; that happens when a step is built.
// It is not safe for concurrent use.
type State struct {
	cat       *catalog.Catalog
	selected  map[catalog.Category]string
	params    map[paramKey]Value
	intensity map[catalog.Category]Value
}

// New creates a State with every category set to its default option, as
// far as the catalog has it. No parameter slots are seeded.
func New(cat *catalog.Catalog) *State {
	s := &State{
		cat:       cat,
		selected:  make(map[catalog.Category]string),
		params:    make(map[paramKey]Value),
		intensity: make(map[catalog.Category]Value),
	}
	for c, option := range catalog.DefaultSelection {
		if _, err := cat.Option(c, option); err == nil {
			s.selected[c] = option
		}
	}
	return s
}

// Catalog returns the catalog the state validates selections against.
func (s *State) Catalog() *catalog.Catalog {
	return s.cat
}

// Select makes option the current choice for c. Each numeric parameter of
// the option gets a slot initialized to 0 unless one already exists.
func (s *State) Select(c catalog.Category, option string) error {
	o, err := s.cat.Option(c, option)
	if err != nil {
		return err
	}
	s.selected[c] = o.Name
	for _, spec := range o.Params {
		if spec.Kind != catalog.Numeric {
			continue
		}
		k := paramKey{c, o.Name, spec.Name}
		if _, ok := s.params[k]; !ok {
			s.params[k] = Number(0)
		}
	}
	return nil
}

// Selected returns the current option of c.
func (s *State) Selected(c catalog.Category) (string, bool) {
	option, ok := s.selected[c]
	return option, ok
}

// SetParam overwrites the raw value of a named parameter.
func (s *State) SetParam(c catalog.Category, option, name string, v Value) {
	s.params[paramKey{c, option, name}] = v
}

// SetSelectedParam sets a parameter of whichever option is currently
// selected for c.
func (s *State) SetSelectedParam(c catalog.Category, name string, v Value) error {
	option, ok := s.selected[c]
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownCategory, c)
	}
	s.SetParam(c, option, name, v)
	return nil
}

// Param returns the raw value of a named parameter.
func (s *State) Param(c catalog.Category, option, name string) (Value, bool) {
	v, ok := s.params[paramKey{c, option, name}]
	return v, ok
}

// SetIntensity overwrites the generic intensity of c.
func (s *State) SetIntensity(c catalog.Category, v Value) {
	s.intensity[c] = v
}

// Intensity returns the raw intensity of c.
func (s *State) Intensity(c catalog.Category) (Value, bool) {
	v, ok := s.intensity[c]
	return v, ok
}

// ResetIntensity sets the intensity of c back to 0. Parameter values are
// left alone.
func (s *State) ResetIntensity(c catalog.Category) {
	s.intensity[c] = Number(0)
}
