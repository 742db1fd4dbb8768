// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package recipe replays scripted or declared pipelines through a
// pipeline.Builder, so recipe steps are clamped, defaulted and validated
// exactly like interactive ones.
package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/imgpipe/internal/catalog"
	"github.com/marcelocantos/imgpipe/internal/pipeline"
	"github.com/marcelocantos/imgpipe/internal/session"
)

// Recipe is the YAML form of a pipeline.
type Recipe struct {
	Steps []Entry `yaml:"steps"`
}

// Entry describes one apply action.
type Entry struct {
	Category  string                   `yaml:"category"`
	Option    string                   `yaml:"option,omitempty"` // empty keeps the current selection
	Intensity *session.Value           `yaml:"intensity,omitempty"`
	Params    map[string]session.Value `yaml:"params,omitempty"`
}

// Parse decodes a YAML recipe.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	return &r, nil
}

// Replay applies every entry in order and returns the steps it appended.
// It stops at the first failing entry; steps appended before it remain.
//
// An entry's option is selected only when it differs from the current
// selection, matching a user who leaves the picker alone.
func (r *Recipe) Replay(b *pipeline.Builder) ([]pipeline.Step, error) {
	state := b.State()
	var out []pipeline.Step
	for i, e := range r.Steps {
		cat, err := catalog.ParseCategory(e.Category)
		if err != nil {
			return out, fmt.Errorf("step %d: %w", i+1, err)
		}
		if cur, _ := state.Selected(cat); e.Option != "" && e.Option != cur {
			if err := state.Select(cat, e.Option); err != nil {
				return out, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		for _, name := range sortedKeys(e.Params) {
			if err := state.SetSelectedParam(cat, name, e.Params[name]); err != nil {
				return out, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		if e.Intensity != nil {
			state.SetIntensity(cat, *e.Intensity)
		}
		step, err := b.Apply(cat)
		if err != nil {
			return out, fmt.Errorf("step %d: %w", i+1, err)
		}
		out = append(out, step)
	}
	return out, nil
}

// FromSteps converts built steps back into a recipe that replays to the
// same commands, intensities and parameters.
func FromSteps(steps []pipeline.Step) *Recipe {
	r := &Recipe{Steps: make([]Entry, 0, len(steps))}
	for _, s := range steps {
		e := Entry{Category: s.Category.String(), Option: s.Option}
		in := session.Number(s.Intensity)
		e.Intensity = &in
		if params := s.Params(); len(params) > 0 {
			e.Params = params
		}
		r.Steps = append(r.Steps, e)
	}
	return r
}

// Marshal encodes the recipe as YAML.
func (r *Recipe) Marshal() ([]byte, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode recipe: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode recipe: %w", err)
	}
	return []byte(b.String()), nil
}

// Save writes steps to path as a YAML recipe.
func Save(path string, steps []pipeline.Step) error {
	data, err := FromSteps(steps).Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write recipe: %w", err)
	}
	return nil
}

// IsStarlark reports whether path names a Starlark recipe.
func IsStarlark(path string) bool {
	switch filepath.Ext(path) {
	case ".star", ".starlark", ".sky":
		return true
	}
	return false
}

// Run loads the recipe at path, Starlark or YAML by extension, and replays
// it through b.
func Run(path string, b *pipeline.Builder) ([]pipeline.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	if IsStarlark(path) {
		return Exec(path, data, b, nil)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r.Replay(b)
}

func sortedKeys(m map[string]session.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
