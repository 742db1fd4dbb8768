package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/marcelocantos/imgpipe/internal/catalog"
	"github.com/marcelocantos/imgpipe/internal/engine"
	"github.com/marcelocantos/imgpipe/internal/pipeline"
	"github.com/marcelocantos/imgpipe/internal/workspace"
)

func newServer(t *testing.T, endpoint string) *Server {
	t.Helper()
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	pipeline.SetGlobalLogger(quiet)
	ws := workspace.New(catalog.Default(), &engine.Client{Endpoint: endpoint, Logger: quiet})
	ws.SetLogger(quiet)
	return New(ws, "test")
}

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var texts []string
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			texts = append(texts, tc.Text)
		}
	}
	return strings.Join(texts, "\n"), res.IsError
}

func TestEditTools(t *testing.T) {
	s := newServer(t, "http://unused")

	if out, isErr := call(t, s.selectOption, map[string]any{"category": "filter", "option": "Canny"}); isErr {
		t.Fatalf("select_option: %s", out)
	}
	if out, isErr := call(t, s.setParam, map[string]any{"category": "Filter", "name": "Threshold1", "value": "300"}); isErr {
		t.Fatalf("set_param: %s", out)
	}
	if out, isErr := call(t, s.setParam, map[string]any{"category": "Filter", "name": "Threshold2", "value": 17.0}); isErr {
		t.Fatalf("set_param: %s", out)
	}
	if out, isErr := call(t, s.setIntensity, map[string]any{"category": "Filter", "value": 120.0}); isErr {
		t.Fatalf("set_intensity: %s", out)
	}

	out, isErr := call(t, s.apply, map[string]any{"category": "Filter"})
	if isErr {
		t.Fatalf("apply: %s", out)
	}
	for _, want := range []string{"#1", "Canny - Filter", "Threshold1: 255", "Threshold2: 17", "CANNY", "intensity 100"} {
		if !strings.Contains(out, want) {
			t.Errorf("apply output %q lacks %q", out, want)
		}
	}

	out, _ = call(t, s.listSteps, nil)
	if !strings.Contains(out, "#1 Canny - Filter") {
		t.Errorf("list_steps = %q", out)
	}

	out, _ = call(t, s.graph, nil)
	if !strings.Contains(out, "CANNY") || !strings.Contains(out, "digraph") {
		t.Errorf("graph = %q", out)
	}

	if out, _ := call(t, s.removeStep, map[string]any{"id": 1.0}); out != "removed #1" {
		t.Errorf("remove_step = %q", out)
	}
	if out, _ := call(t, s.removeStep, map[string]any{"id": 1.0}); out != "no step #1" {
		t.Errorf("second remove_step = %q", out)
	}
	if out, _ := call(t, s.listSteps, nil); out != "(empty pipeline)" {
		t.Errorf("list_steps = %q", out)
	}
}

func TestRemoveStepRejectsNonIntegerIDs(t *testing.T) {
	s := newServer(t, "http://unused")
	if out, isErr := call(t, s.apply, map[string]any{"category": "Filter"}); isErr {
		t.Fatalf("apply: %s", out)
	}
	for _, id := range []float64{1.5, 0.9, -1, 1e20, math.Inf(1), math.NaN()} {
		out, isErr := call(t, s.removeStep, map[string]any{"id": id})
		if !isErr || !strings.Contains(out, "non-negative integer") {
			t.Errorf("remove_step(%v) = %q, error %v", id, out, isErr)
		}
	}
	if out, _ := call(t, s.listSteps, nil); !strings.Contains(out, "#1 Blur - Filter") {
		t.Errorf("step #1 should survive rejected removals, list_steps = %q", out)
	}
}

func TestNumericArgumentsSaturate(t *testing.T) {
	s := newServer(t, "http://unused")
	if out, isErr := call(t, s.setParam, map[string]any{"category": "Filter", "name": "Kernel", "value": 1e20}); isErr {
		t.Fatalf("set_param: %s", out)
	}
	if out, isErr := call(t, s.setIntensity, map[string]any{"category": "Filter", "value": -1e20}); isErr {
		t.Fatalf("set_intensity: %s", out)
	}
	out, isErr := call(t, s.apply, map[string]any{"category": "Filter"})
	if isErr {
		t.Fatalf("apply: %s", out)
	}
	for _, want := range []string{"Kernel: 255", "intensity 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("apply output %q lacks %q", out, want)
		}
	}

	out, isErr = call(t, s.setParam, map[string]any{"category": "Filter", "name": "Kernel", "value": math.NaN()})
	if !isErr || !strings.Contains(out, "not a number") {
		t.Errorf("set_param(NaN) = %q, error %v", out, isErr)
	}
}

func TestToolErrors(t *testing.T) {
	s := newServer(t, "http://unused")
	tests := []struct {
		name string
		h    server.ToolHandlerFunc
		args map[string]any
		want string
	}{
		{"unknown category", s.apply, map[string]any{"category": "Sharpening"}, "unknown category"},
		{"missing category", s.apply, map[string]any{}, "category"},
		{"unknown option", s.selectOption, map[string]any{"category": "Filter", "option": "Median"}, "unknown option"},
		{"bad parameter", s.setParam, map[string]any{"category": "Morphology", "name": "px", "value": true}, "number or string"},
		{"list unknown category", s.listMethods, map[string]any{"category": "Sharpening"}, "unknown category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := call(t, tt.h, tt.args)
			if !isErr {
				t.Fatalf("expected tool error, got %q", out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("error %q does not mention %q", out, tt.want)
			}
		})
	}
}

func TestApplyRejectsInvalidParameter(t *testing.T) {
	s := newServer(t, "http://unused")
	call(t, s.setParam, map[string]any{"category": "Morphology", "name": "px", "value": "wide"})
	out, isErr := call(t, s.apply, map[string]any{"category": "Morphology"})
	if !isErr || !strings.Contains(out, "invalid parameter") {
		t.Errorf("apply = %q (error %v)", out, isErr)
	}
	if out, _ := call(t, s.listSteps, nil); out != "(empty pipeline)" {
		t.Errorf("failed apply left %q", out)
	}
}

func TestListMethods(t *testing.T) {
	s := newServer(t, "http://unused")
	out, _ := call(t, s.listMethods, map[string]any{"category": "Morphology"})
	if strings.Count(out, "\n") != 4 || !strings.Contains(out, "MORPH_DILATE") {
		t.Errorf("list_methods = %q", out)
	}
	out, _ = call(t, s.listMethods, nil)
	if strings.Count(out, "\n") != 18 {
		t.Errorf("full list has %d lines", strings.Count(out, "\n"))
	}
}

func TestSubmit(t *testing.T) {
	var got engine.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(engine.Response{
			ProcessedImage: base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nresult")),
		})
	}))
	defer srv.Close()

	s := newServer(t, srv.URL)
	call(t, s.apply, map[string]any{"category": "Binarization"})

	dir := t.TempDir()
	in := filepath.Join(dir, "in.jpg")
	out := filepath.Join(dir, "out.png")
	if err := os.WriteFile(in, []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}

	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]any{"image": in, "out": out}
	res, err := s.submit(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("submit failed: %+v", res.Content)
	}
	var sawImage bool
	for _, c := range res.Content {
		if img, ok := mcp.AsImageContent(c); ok {
			sawImage = img.MIMEType == "image/png"
		}
	}
	if !sawImage {
		t.Error("result has no png image content")
	}
	if len(got.Filters) != 1 || got.Filters[0].Command != "OTSU" {
		t.Errorf("engine saw %+v", got.Filters)
	}
	if data, _ := os.ReadFile(out); !strings.HasSuffix(string(data), "result") {
		t.Errorf("output file = %q", data)
	}
}

func TestSubmitMissingImage(t *testing.T) {
	s := newServer(t, "http://unused")
	out, isErr := call(t, s.submit, map[string]any{"image": filepath.Join(t.TempDir(), "none.png")})
	if !isErr || !strings.HasPrefix(out, "io-error") {
		t.Errorf("submit = %q (error %v)", out, isErr)
	}
}

func TestRecipeTools(t *testing.T) {
	s := newServer(t, "http://unused")
	call(t, s.selectOption, map[string]any{"category": "Edge Detector", "option": "Sobel"})
	call(t, s.setParam, map[string]any{"category": "Edge Detector", "name": "ddepth", "value": "CV_32F"})
	call(t, s.apply, map[string]any{"category": "Edge Detector"})

	path := filepath.Join(t.TempDir(), "saved.yaml")
	if out, isErr := call(t, s.saveRecipe, map[string]any{"path": path}); isErr {
		t.Fatalf("save_recipe: %s", out)
	}
	call(t, s.clearPipeline, nil)

	out, isErr := call(t, s.loadRecipe, map[string]any{"path": path})
	if isErr {
		t.Fatalf("load_recipe: %s", out)
	}
	if !strings.Contains(out, "added 1 steps") || !strings.Contains(out, "ddepth: CV_32F") {
		t.Errorf("load_recipe = %q", out)
	}

	out, isErr = call(t, s.loadRecipe, map[string]any{"path": filepath.Join(t.TempDir(), "none.star")})
	if !isErr || !strings.Contains(out, "read recipe") {
		t.Errorf("missing recipe = %q", out)
	}
}

func TestToolsRegistered(t *testing.T) {
	s := newServer(t, "http://unused")
	resp := s.MCP().HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"list_methods", "select_option", "set_param", "set_intensity", "apply",
		"remove_step", "list_steps", "clear_pipeline", "submit", "load_recipe", "save_recipe", "graph"} {
		if !strings.Contains(string(data), `"name":"`+name+`"`) {
			t.Errorf("tool %s not listed", name)
		}
	}
}
