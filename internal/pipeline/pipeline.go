package pipeline

import (
	"fmt"
	"strings"

	"github.com/marcelocantos/imgpipe/internal/catalog"
	"github.com/marcelocantos/imgpipe/internal/session"
)

// Param is one resolved extra parameter of a step.
type Param struct {
	Name  string
	Value session.Value
}

// Step is one validated, ready-to-send application of an option. Steps are
// immutable once built; accessors return copies.
type Step struct {
	ID        uint64
	Command   string           // engine command code
	Label     string           // "Option - Category"
	Category  catalog.Category // category the step was applied from
	Option    string
	Intensity int // 0..100

	params []Param
}

// Params returns the extra parameters keyed by name.
func (s Step) Params() map[string]session.Value {
	m := make(map[string]session.Value, len(s.params))
	for _, p := range s.params {
		m[p.Name] = p.Value
	}
	return m
}

// ParamList returns the extra parameters in resolution order.
func (s Step) ParamList() []Param {
	return append([]Param(nil), s.params...)
}

// Param returns one extra parameter.
func (s Step) Param(name string) (session.Value, bool) {
	for _, p := range s.params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return session.Value{}, false
}

// String renders the step the way the applied-filter list shows it:
// the label followed by "name: value" pairs.
func (s Step) String() string {
	var b strings.Builder
	b.WriteString(s.Label)
	for _, p := range s.params {
		fmt.Fprintf(&b, "  %s: %s", p.Name, p.Value)
	}
	return b.String()
}

// Pipeline is the ordered list of applied steps. Order is append order and
// is also the order in which the engine executes the steps.
//
// Pipeline is not safe for concurrent use; callers serialize mutations.
type Pipeline struct {
	steps []Step
}

// New creates an empty pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// Append adds a step at the end.
func (p *Pipeline) Append(s Step) {
	p.steps = append(p.steps, s)
}

// Remove deletes the step with the given id. Removing an absent id is a
// no-op and reports false.
func (p *Pipeline) Remove(id uint64) bool {
	for i, s := range p.steps {
		if s.ID == id {
			p.steps = append(p.steps[:i:i], p.steps[i+1:]...)
			return true
		}
	}
	return false
}

// Step returns the step with the given id.
func (p *Pipeline) Step(id uint64) (Step, bool) {
	for _, s := range p.steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Steps returns a snapshot of the steps in order. Later mutations of the
// pipeline do not affect the returned slice.
func (p *Pipeline) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// Len returns the number of steps.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Clear removes every step.
func (p *Pipeline) Clear() {
	p.steps = nil
}

// Commands returns the command code of each step in order.
func Commands(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Command
	}
	return out
}
