package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcelocantos/imgpipe/internal/catalog"
	"github.com/marcelocantos/imgpipe/internal/engine"
	"github.com/marcelocantos/imgpipe/internal/session"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Endpoint != engine.DefaultEndpoint {
		t.Errorf("endpoint = %q", cfg.Engine.Endpoint)
	}
	if cfg.Engine.TimeoutDuration() != 0 {
		t.Errorf("default timeout = %v, want none", cfg.Engine.TimeoutDuration())
	}
	if !cfg.Audit.Enabled {
		t.Error("audit disabled by default")
	}
	if cfg.LogLevel() != logrus.InfoLevel {
		t.Errorf("level = %v", cfg.LogLevel())
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
engine:
  endpoint: http://engine:8080/process_image
  timeout: 30s
  concurrency: 2
log:
  level: debug
audit:
  path: ~/audit/imgpipe.jsonl
defaults:
  edge detector: Sobel
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Endpoint != "http://engine:8080/process_image" {
		t.Errorf("endpoint = %q", cfg.Engine.Endpoint)
	}
	if cfg.Engine.TimeoutDuration() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Engine.TimeoutDuration())
	}
	if cfg.Engine.Workers() != 2 {
		t.Errorf("workers = %d", cfg.Engine.Workers())
	}
	if cfg.LogLevel() != logrus.DebugLevel {
		t.Errorf("level = %v", cfg.LogLevel())
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "audit", "imgpipe.jsonl"); cfg.Audit.Path != want {
		t.Errorf("audit path = %q, want %q", cfg.Audit.Path, want)
	}
	// Unset keys keep their defaults.
	if !cfg.Audit.Enabled {
		t.Error("audit.enabled lost its default")
	}

	client := cfg.NewClient(nil)
	if client.Endpoint != cfg.Engine.Endpoint || client.Timeout != 30*time.Second {
		t.Errorf("client = %+v", client)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "engine: [unterminated")
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTimeoutDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5s", 5 * time.Second},
		{"bogus", 0},
		{"-1s", 0},
	}
	for _, tt := range tests {
		e := EngineConfig{Timeout: tt.in}
		if got := e.TimeoutDuration(); got != tt.want {
			t.Errorf("TimeoutDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogLevelFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "chatty"
	if cfg.LogLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info", cfg.LogLevel())
	}
	cfg.Log.Level = " warn "
	if cfg.NewLogger().GetLevel() != logrus.WarnLevel {
		t.Errorf("logger level = %v, want warn", cfg.NewLogger().GetLevel())
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults = map[string]string{"edge-detector": "Prewitt", "Binarization": "SimpleThresholding"}

	s := session.New(catalog.Default())
	if err := cfg.ApplyDefaults(s); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Selected(catalog.EdgeDetector); got != "Prewitt" {
		t.Errorf("edge detector = %q", got)
	}
	if got, _ := s.Selected(catalog.Binarization); got != "SimpleThresholding" {
		t.Errorf("binarization = %q", got)
	}
	if got, _ := s.Selected(catalog.Filter); got != "Blur" {
		t.Errorf("untouched filter default = %q", got)
	}
}

func TestApplyDefaultsIsRepeatable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults = map[string]string{"morphology": "Closing", "filter": "Canny", "color conversion": "HSV"}
	for range 20 {
		s := session.New(catalog.Default())
		if err := cfg.ApplyDefaults(s); err != nil {
			t.Fatal(err)
		}
		for cat, want := range map[catalog.Category]string{
			catalog.Morphology:      "Closing",
			catalog.Filter:          "Canny",
			catalog.ColorConversion: "HSV",
		} {
			if got, _ := s.Selected(cat); got != want {
				t.Fatalf("%s = %q, want %q", cat, got, want)
			}
		}
	}
}

func TestApplyDefaultsErrors(t *testing.T) {
	tests := []struct {
		name     string
		defaults map[string]string
		want     error
	}{
		{"unknown category", map[string]string{"Sharpening": "Unsharp"}, catalog.ErrUnknownCategory},
		{"unknown option", map[string]string{"Filter": "Median"}, catalog.ErrUnknownOption},
		{"same category twice", map[string]string{"edge detector": "Sobel", "Edge-Detector": "Prewitt"}, ErrDuplicateDefault},
		{"bad entry after good one", map[string]string{"Binarization": "SimpleThresholding", "Morphology": "Dilate"}, catalog.ErrUnknownOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Defaults = tt.defaults
			s := session.New(catalog.Default())
			err := cfg.ApplyDefaults(s)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if got, _ := s.Selected(catalog.Binarization); got != "Otsu" {
				t.Errorf("failed defaults changed binarization to %q", got)
			}
			if got, _ := s.Selected(catalog.EdgeDetector); got != "Laplacian" {
				t.Errorf("failed defaults changed edge detector to %q", got)
			}
		})
	}
}
