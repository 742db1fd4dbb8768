// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownOption   = errors.New("unknown option")
)

// Category is one of the five top-level processing groups.
type Category int

const (
	ColorConversion Category = iota
	Filter
	EdgeDetector
	Binarization
	Morphology
)

var categoryNames = [...]string{
	ColorConversion: "Color Conversion",
	Filter:          "Filter",
	EdgeDetector:    "Edge Detector",
	Binarization:    "Binarization",
	Morphology:      "Morphology",
}

func (c Category) String() string {
	if c.valid() {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", int(c))
}

func (c Category) valid() bool {
	return c >= ColorConversion && c <= Morphology
}

// ParseCategory converts a display name to a Category. Matching ignores case
// and treats spaces, hyphens and underscores alike, so "edge-detector" and
// "Edge Detector" are the same category.
func ParseCategory(s string) (Category, error) {
	key := normalize(s)
	for i, name := range categoryNames {
		if normalize(name) == key {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", " ", "_", " ").Replace(s)
}

// Kind discriminates the two ParamSpec variants.
type Kind int

const (
	Numeric    Kind = iota // bounded integer range
	Enumerated             // fixed set of string values
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Enumerated:
		return "enumerated"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParamSpec describes one named input of an Option. Min and Max are
// meaningful only for Numeric specs, Values only for Enumerated ones.
type ParamSpec struct {
	Name   string
	Kind   Kind
	Min    int
	Max    int
	Values []string
}

// NumericSpec returns a Numeric spec bounded by [min, max].
func NumericSpec(name string, min, max int) ParamSpec {
	return ParamSpec{Name: name, Kind: Numeric, Min: min, Max: max}
}

// EnumSpec returns an Enumerated spec. The first value is the conventional default.
func EnumSpec(name string, values ...string) ParamSpec {
	return ParamSpec{Name: name, Kind: Enumerated, Values: values}
}

// Clamp bounds v to [Min, Max].
func (s ParamSpec) Clamp(v int) int {
	return min(max(v, s.Min), s.Max)
}

// Allows reports whether v is one of the spec's enumerated values.
func (s ParamSpec) Allows(v string) bool {
	return slices.Contains(s.Values, v)
}

func (s ParamSpec) String() string {
	if s.Kind == Enumerated {
		return fmt.Sprintf("%s {%s}", s.Name, strings.Join(s.Values, "|"))
	}
	return fmt.Sprintf("%s [%d..%d]", s.Name, s.Min, s.Max)
}

func (s ParamSpec) clone() ParamSpec {
	s.Values = slices.Clone(s.Values)
	return s
}

// Option is a named technique within a Category.
type Option struct {
	Name   string
	Params []ParamSpec
}

// Spec returns the named parameter spec of the option.
func (o Option) Spec(name string) (ParamSpec, bool) {
	for _, s := range o.Params {
		if s.Name == name {
			return s, true
		}
	}
	return ParamSpec{}, false
}

func (o Option) clone() Option {
	params := make([]ParamSpec, len(o.Params))
	for i, s := range o.Params {
		params[i] = s.clone()
	}
	o.Params = params
	return o
}

// Catalog is the immutable registry of categories, options, parameter specs
// and command codes. Every accessor hands out copies.
type Catalog struct {
	options  map[Category][]Option
	commands map[string]string
}

// New builds a catalog from options per category and a command-code table
// keyed by option name. The inputs are copied.
func New(options map[Category][]Option, commands map[string]string) *Catalog {
	c := &Catalog{
		options:  make(map[Category][]Option, len(options)),
		commands: maps.Clone(commands),
	}
	for cat, opts := range options {
		cloned := make([]Option, len(opts))
		for i, o := range opts {
			cloned[i] = o.clone()
		}
		c.options[cat] = cloned
	}
	return c
}

// Categories returns every category in display order.
func (c *Catalog) Categories() []Category {
	cats := make([]Category, 0, len(categoryNames))
	for i := range categoryNames {
		if _, ok := c.options[Category(i)]; ok {
			cats = append(cats, Category(i))
		}
	}
	return cats
}

// Options returns the ordered options of a category.
func (c *Catalog) Options(cat Category) ([]Option, error) {
	opts, ok := c.options[cat]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, cat)
	}
	out := make([]Option, len(opts))
	for i, o := range opts {
		out[i] = o.clone()
	}
	return out, nil
}

// Option looks up one option of a category by name.
func (c *Catalog) Option(cat Category, name string) (Option, error) {
	opts, ok := c.options[cat]
	if !ok {
		return Option{}, fmt.Errorf("%w: %s", ErrUnknownCategory, cat)
	}
	for _, o := range opts {
		if o.Name == name {
			return o.clone(), nil
		}
	}
	return Option{}, fmt.Errorf("%w: %q in %s", ErrUnknownOption, name, cat)
}

// Specs returns the ordered parameter specs of an option.
func (c *Catalog) Specs(cat Category, option string) ([]ParamSpec, error) {
	o, err := c.Option(cat, option)
	if err != nil {
		return nil, err
	}
	return o.Params, nil
}

// CommandCode returns the engine command for an option name. The table is
// independent of category.
func (c *Catalog) CommandCode(option string) (string, error) {
	code, ok := c.commands[option]
	if !ok {
		return "", fmt.Errorf("%w: %q has no command code", ErrUnknownOption, option)
	}
	return code, nil
}
