package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotNumber reports a value that has no integer reading.
var ErrNotNumber = errors.New("not a number")

// IntFromFloat truncates f toward zero, saturating at the bounds of int.
// NaN has no integer reading.
func IntFromFloat(f float64) (int, error) {
	switch {
	case math.IsNaN(f):
		return 0, ErrNotNumber
	case f >= float64(math.MaxInt):
		return math.MaxInt, nil
	case f <= float64(math.MinInt):
		return math.MinInt, nil
	}
	return int(f), nil
}

// Value is a raw parameter value: either a number or a string. Numbers
// entered as text ("12") stay text until something asks for Int.
type Value struct {
	num   int
	str   string
	isNum bool
}

// Number returns a numeric Value.
func Number(n int) Value { return Value{num: n, isNum: true} }

// Text returns a string Value.
func Text(s string) Value { return Value{str: s} }

// ParseValue turns user input into a Value, preferring a number when the
// input is an integer literal.
func ParseValue(s string) Value {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return Number(n)
	}
	return Text(s)
}

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool { return v.isNum }

// Int returns v as an integer. Text is parsed; fractional text truncates
// toward zero and out-of-range text saturates.
func (v Value) Int() (int, error) {
	if v.isNum {
		return v.num, nil
	}
	s := strings.TrimSpace(v.str)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%q: %w", v.str, ErrNotNumber)
	}
	n, err := IntFromFloat(f)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", v.str, err)
	}
	return n, nil
}

func (v Value) String() string {
	if v.isNum {
		return strconv.Itoa(v.num)
	}
	return v.str
}

// MarshalJSON encodes numbers as JSON numbers and text as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isNum {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.str)
}

// UnmarshalJSON accepts a JSON number or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Text(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("value must be a number or string: %s", data)
	}
	n, err := IntFromFloat(f)
	if err != nil {
		return err
	}
	*v = Number(n)
	return nil
}

// MarshalYAML keeps numbers unquoted in recipe files.
func (v Value) MarshalYAML() (any, error) {
	if v.isNum {
		return v.num, nil
	}
	return v.str, nil
}

// UnmarshalYAML accepts a scalar; integer scalars become numbers.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: value must be a scalar", node.Line)
	}
	if node.ShortTag() == "!!int" {
		var n int
		if err := node.Decode(&n); err != nil {
			return err
		}
		*v = Number(n)
		return nil
	}
	*v = Text(node.Value)
	return nil
}
