// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes a workspace as MCP tools, so an agent can
// assemble and submit pipelines over stdio.
package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marcelocantos/imgpipe/internal/catalog"
	"github.com/marcelocantos/imgpipe/internal/drawer"
	"github.com/marcelocantos/imgpipe/internal/pipeline"
	"github.com/marcelocantos/imgpipe/internal/recipe"
	"github.com/marcelocantos/imgpipe/internal/session"
	"github.com/marcelocantos/imgpipe/internal/workspace"
)

// Server wraps one workspace. All tools share it, so edits from one call are
// visible to the next.
type Server struct {
	ws  *workspace.Workspace
	mcp *server.MCPServer
}

// New registers every tool against ws.
func New(ws *workspace.Workspace, version string) *Server {
	s := &Server{
		ws:  ws,
		mcp: server.NewMCPServer("imgpipe", version, server.WithToolCapabilities(false)),
	}

	category := mcp.WithString("category",
		mcp.Required(),
		mcp.Description("Category name: "+strings.Join(categoryNames(ws.Catalog()), ", ")),
	)

	s.mcp.AddTool(mcp.NewTool("list_methods",
		mcp.WithDescription("List categories, options, command codes and parameter ranges."),
		mcp.WithString("category", mcp.Description("Only list this category")),
	), s.listMethods)

	s.mcp.AddTool(mcp.NewTool("select_option",
		mcp.WithDescription("Choose the option of a category. Numeric parameters of a newly chosen option start at 0."),
		category,
		mcp.WithString("option", mcp.Required(), mcp.Description("Option name, e.g. Sobel")),
	), s.selectOption)

	s.mcp.AddTool(mcp.NewTool("set_param",
		mcp.WithDescription("Set a parameter of the option currently selected for a category. Values are validated when the step is applied."),
		category,
		mcp.WithString("name", mcp.Required(), mcp.Description("Parameter name, e.g. Kernel or ddepth")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Integer or enumerated value")),
	), s.setParam)

	s.mcp.AddTool(mcp.NewTool("set_intensity",
		mcp.WithDescription("Set the intensity (0-100) used by the next apply of a category."),
		category,
		mcp.WithNumber("value", mcp.Required()),
	), s.setIntensity)

	s.mcp.AddTool(mcp.NewTool("apply",
		mcp.WithDescription("Append a step built from the category's current option and parameters."),
		category,
	), s.apply)

	s.mcp.AddTool(mcp.NewTool("remove_step",
		mcp.WithDescription("Remove a step by id."),
		mcp.WithNumber("id", mcp.Required()),
	), s.removeStep)

	s.mcp.AddTool(mcp.NewTool("list_steps",
		mcp.WithDescription("Show the pipeline in execution order."),
	), s.listSteps)

	s.mcp.AddTool(mcp.NewTool("clear_pipeline",
		mcp.WithDescription("Remove every step."),
	), s.clearPipeline)

	s.mcp.AddTool(mcp.NewTool("submit",
		mcp.WithDescription("Send an image file and the pipeline to the processing engine."),
		mcp.WithString("image", mcp.Required(), mcp.Description("Path of the source image")),
		mcp.WithString("out", mcp.Description("Where to write the processed image")),
	), s.submit)

	s.mcp.AddTool(mcp.NewTool("load_recipe",
		mcp.WithDescription("Replay a YAML or Starlark recipe onto the pipeline."),
		mcp.WithString("path", mcp.Required()),
	), s.loadRecipe)

	s.mcp.AddTool(mcp.NewTool("save_recipe",
		mcp.WithDescription("Write the pipeline as a YAML recipe."),
		mcp.WithString("path", mcp.Required()),
	), s.saveRecipe)

	s.mcp.AddTool(mcp.NewTool("graph",
		mcp.WithDescription("Render the pipeline as a Graphviz DOT graph."),
	), s.graph)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves MCP over stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func categoryNames(c *catalog.Catalog) []string {
	var names []string
	for _, cat := range c.Categories() {
		names = append(names, cat.String())
	}
	return names
}

func requireCategory(req mcp.CallToolRequest) (catalog.Category, error) {
	name, err := req.RequireString("category")
	if err != nil {
		return 0, err
	}
	return catalog.ParseCategory(name)
}

// argValue accepts either a JSON number or a string.
func argValue(req mcp.CallToolRequest, key string) (session.Value, error) {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return session.Value{}, fmt.Errorf("required argument %q not found", key)
	}
	switch v := raw.(type) {
	case float64:
		n, err := session.IntFromFloat(v)
		if err != nil {
			return session.Value{}, fmt.Errorf("argument %q: %w", key, err)
		}
		return session.Number(n), nil
	case string:
		return session.ParseValue(v), nil
	}
	return session.Value{}, fmt.Errorf("argument %q must be a number or string", key)
}

func (s *Server) listMethods(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var cats []catalog.Category
	if name := req.GetString("category", ""); name != "" {
		cat, err := catalog.ParseCategory(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cats = append(cats, cat)
	}
	var b strings.Builder
	if err := catalog.Describe(&b, s.ws.Catalog(), cats...); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) selectOption(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := requireCategory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	option, err := req.RequireString("option")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ws.Select(cat, option); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s selected", cat, option)), nil
}

func (s *Server) setParam(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := requireCategory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := argValue(req, "value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ws.SetParam(cat, name, v); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s = %s", cat, name, v)), nil
}

func (s *Server) setIntensity(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := requireCategory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := argValue(req, "value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.ws.SetIntensity(cat, v)
	return mcp.NewToolResultText(fmt.Sprintf("%s intensity = %s", cat, v)), nil
}

func (s *Server) apply(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := requireCategory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	step, err := s.ws.Apply(cat)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("#%d %s (%s, intensity %d)", step.ID, step, step.Command, step.Intensity)), nil
}

func (s *Server) removeStep(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireFloat("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if id != math.Trunc(id) || id < 0 || id >= math.MaxUint64 {
		return mcp.NewToolResultError(fmt.Sprintf("id must be a non-negative integer, got %v", id)), nil
	}
	if !s.ws.Remove(uint64(id)) {
		return mcp.NewToolResultText(fmt.Sprintf("no step #%d", uint64(id))), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed #%d", uint64(id))), nil
}

func (s *Server) listSteps(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatSteps(s.ws.Steps())), nil
}

func (s *Server) clearPipeline(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.ws.Clear()
	return mcp.NewToolResultText("pipeline cleared"), nil
}

func (s *Server) submit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("image")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.ws.SubmitFile(ctx, path)
	if res.Err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", res.Outcome(), res.Err)), nil
	}

	summary := fmt.Sprintf("processed %d bytes", len(res.Image.Data))
	if out := req.GetString("out", ""); out != "" {
		if err := res.Image.WriteFile(out); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("write %s: %v", out, err)), nil
		}
		summary += ", written to " + out
	}
	return mcp.NewToolResultImage(summary, base64.StdEncoding.EncodeToString(res.Image.Data), res.Image.ContentType()), nil
}

func (s *Server) loadRecipe(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var added []pipeline.Step
	err = s.ws.Edit(func(b *pipeline.Builder) error {
		var err error
		added, err = recipe.Run(path, b)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v (%d steps added before the failure)", err, len(added))), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added %d steps\n%s", len(added), formatSteps(s.ws.Steps()))), nil
}

func (s *Server) saveRecipe(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	steps := s.ws.Steps()
	if err := recipe.Save(path, steps); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved %d steps to %s", len(steps), path)), nil
}

func (s *Server) graph(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	if err := drawer.DOT(&b, s.ws.Steps()); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func formatSteps(steps []pipeline.Step) string {
	if len(steps) == 0 {
		return "(empty pipeline)"
	}
	var b strings.Builder
	for _, st := range steps {
		fmt.Fprintf(&b, "#%d %s  [%s, intensity %d]\n", st.ID, st, st.Command, st.Intensity)
	}
	return b.String()
}
