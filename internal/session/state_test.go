package session

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/imgpipe/internal/catalog"
)

func TestNewSelectsDefaults(t *testing.T) {
	s := New(catalog.Default())
	want := map[catalog.Category]string{
		catalog.ColorConversion: "RGB",
		catalog.Filter:          "Blur",
		catalog.EdgeDetector:    "Laplacian",
		catalog.Binarization:    "Otsu",
		catalog.Morphology:      "Erosion",
	}
	for c, option := range want {
		got, ok := s.Selected(c)
		if !ok || got != option {
			t.Errorf("Selected(%s) = %q, %v; want %q", c, got, ok, option)
		}
	}
	if _, ok := s.Param(catalog.Filter, "Blur", "Kernel"); ok {
		t.Error("defaults must not seed parameter slots")
	}
}

func TestSelectSeedsNumericParams(t *testing.T) {
	s := New(catalog.Default())
	if err := s.Select(catalog.Binarization, "AdaptiveThresholding"); err != nil {
		t.Fatal(err)
	}
	v, ok := s.Param(catalog.Binarization, "AdaptiveThresholding", "Max")
	if !ok || v != Number(0) {
		t.Errorf("Max = %v, %v; want 0, true", v, ok)
	}
	if _, ok := s.Param(catalog.Binarization, "AdaptiveThresholding", catalog.ParamAdaptiveType); ok {
		t.Error("enumerated parameter should not be seeded")
	}
}

func TestSelectKeepsExistingValues(t *testing.T) {
	s := New(catalog.Default())
	s.SetParam(catalog.Morphology, "Dilation", "px", Number(7))
	if err := s.Select(catalog.Morphology, "Dilation"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Param(catalog.Morphology, "Dilation", "px"); v != Number(7) {
		t.Errorf("px = %v, want 7", v)
	}
}

func TestSelectUnknown(t *testing.T) {
	s := New(catalog.Default())
	if err := s.Select(catalog.Filter, "Sobel"); !errors.Is(err, catalog.ErrUnknownOption) {
		t.Errorf("want ErrUnknownOption, got %v", err)
	}
	if got, _ := s.Selected(catalog.Filter); got != "Blur" {
		t.Errorf("failed select changed selection to %q", got)
	}
	if err := s.Select(catalog.Category(12), "Blur"); !errors.Is(err, catalog.ErrUnknownCategory) {
		t.Errorf("want ErrUnknownCategory, got %v", err)
	}
}

func TestParamsDoNotAlias(t *testing.T) {
	s := New(catalog.Default())
	s.SetParam(catalog.Binarization, "Otsu", "Max", Number(10))
	s.SetParam(catalog.Binarization, "AdaptiveThresholding", "Max", Number(200))

	if v, _ := s.Param(catalog.Binarization, "Otsu", "Max"); v != Number(10) {
		t.Errorf("Otsu Max = %v, want 10", v)
	}
	if v, _ := s.Param(catalog.Binarization, "AdaptiveThresholding", "Max"); v != Number(200) {
		t.Errorf("AdaptiveThresholding Max = %v, want 200", v)
	}
}

func TestSetSelectedParam(t *testing.T) {
	s := New(catalog.Default())
	if err := s.Select(catalog.Filter, "Canny"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSelectedParam(catalog.Filter, "Threshold1", Number(90)); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Param(catalog.Filter, "Canny", "Threshold1"); v != Number(90) {
		t.Errorf("Threshold1 = %v, want 90", v)
	}
}

func TestIntensityIsSeparateFromParams(t *testing.T) {
	s := New(catalog.Default())
	s.SetIntensity(catalog.Filter, Number(40))
	s.SetParam(catalog.Filter, "Blur", "Filter", Number(99))

	if v, _ := s.Intensity(catalog.Filter); v != Number(40) {
		t.Errorf("intensity = %v, want 40", v)
	}
	s.ResetIntensity(catalog.Filter)
	if v, ok := s.Intensity(catalog.Filter); !ok || v != Number(0) {
		t.Errorf("after reset intensity = %v, %v", v, ok)
	}
	if v, _ := s.Param(catalog.Filter, "Blur", "Filter"); v != Number(99) {
		t.Errorf("reset touched parameters: %v", v)
	}
}

func TestValueInt(t *testing.T) {
	tests := []struct {
		in      Value
		want    int
		wantErr bool
	}{
		{Number(5), 5, false},
		{Text("300"), 300, false},
		{Text(" 12 "), 12, false},
		{Text("12.9"), 12, false},
		{Text("-3"), -3, false},
		{Text("CV_8U"), 0, true},
		{Text(""), 0, true},
		{Text("1e20"), math.MaxInt, false},
		{Text("-1e20"), math.MinInt, false},
		{Text("Inf"), math.MaxInt, false},
		{Text("-Inf"), math.MinInt, false},
		{Text("1e400"), math.MaxInt, false},
		{Text("99999999999999999999"), math.MaxInt, false},
		{Text("NaN"), 0, true},
	}
	for _, tt := range tests {
		got, err := tt.in.Int()
		if tt.wantErr {
			if !errors.Is(err, ErrNotNumber) {
				t.Errorf("%v: got %v, want ErrNotNumber", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%v.Int() = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestIntFromFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{2.9, 2},
		{-2.9, -2},
		{1e20, math.MaxInt},
		{-1e20, math.MinInt},
		{math.Inf(1), math.MaxInt},
		{math.Inf(-1), math.MinInt},
	}
	for _, tt := range tests {
		if got, err := IntFromFloat(tt.in); err != nil || got != tt.want {
			t.Errorf("IntFromFloat(%v) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
	if _, err := IntFromFloat(math.NaN()); !errors.Is(err, ErrNotNumber) {
		t.Errorf("IntFromFloat(NaN) error = %v", err)
	}
}

func TestValueJSONSaturates(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte("1e20"), &v); err != nil {
		t.Fatal(err)
	}
	if v != Number(math.MaxInt) {
		t.Errorf("got %#v, want MaxInt", v)
	}
}

func TestParseValue(t *testing.T) {
	if v := ParseValue("42"); !v.IsNumber() || v != Number(42) {
		t.Errorf("ParseValue(42) = %#v", v)
	}
	if v := ParseValue("CV_16S"); v.IsNumber() || v.String() != "CV_16S" {
		t.Errorf("ParseValue(CV_16S) = %#v", v)
	}
}

func TestValueJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Value{"Kernel": Number(3), "ddepth": Text("CV_8U")})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"Kernel":3,"ddepth":"CV_8U"}` {
		t.Errorf("got %s", data)
	}

	var back map[string]Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back["Kernel"] != Number(3) || back["ddepth"] != Text("CV_8U") {
		t.Errorf("round trip: %#v", back)
	}

	var quoted Value
	if err := json.Unmarshal([]byte(`"12"`), &quoted); err != nil {
		t.Fatal(err)
	}
	if quoted.IsNumber() {
		t.Error("quoted number should stay text")
	}
}

func TestValueYAML(t *testing.T) {
	var got map[string]Value
	if err := yaml.Unmarshal([]byte("px: 4\nddepth: CV_32F\nquoted: \"9\"\n"), &got); err != nil {
		t.Fatal(err)
	}
	if got["px"] != Number(4) {
		t.Errorf("px = %#v", got["px"])
	}
	if got["ddepth"] != Text("CV_32F") {
		t.Errorf("ddepth = %#v", got["ddepth"])
	}
	if got["quoted"] != Text("9") {
		t.Errorf("quoted = %#v", got["quoted"])
	}
}
