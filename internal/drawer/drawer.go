// Package drawer renders a pipeline as a Graphviz DOT graph: the source
// image, each step in execution order, then the engine output.
package drawer

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"gopkg.in/go-playground/colors.v1"

	"github.com/marcelocantos/imgpipe/internal/catalog"
	"github.com/marcelocantos/imgpipe/internal/pipeline"
)

const (
	SourceVertex = "image"
	OutputVertex = "processed"
)

var palette = map[catalog.Category][3]uint8{
	catalog.ColorConversion: {0xf4, 0xa2, 0x61},
	catalog.Filter:          {0x8e, 0xca, 0xe6},
	catalog.EdgeDetector:    {0xe7, 0x6f, 0x51},
	catalog.Binarization:    {0xb8, 0xb8, 0xb8},
	catalog.Morphology:      {0x90, 0xbe, 0x6d},
}

// CategoryColor returns the fill color used for steps of c.
func CategoryColor(c catalog.Category) (string, error) {
	rgb, ok := palette[c]
	if !ok {
		rgb = [3]uint8{0xff, 0xff, 0xff}
	}
	col, err := colors.RGB(rgb[0], rgb[1], rgb[2])
	if err != nil {
		return "", fmt.Errorf("category colour: %w", err)
	}
	return col.ToHEX().String(), nil
}

// VertexName returns the vertex hash of a step.
func VertexName(s pipeline.Step) string {
	return "step-" + strconv.FormatUint(s.ID, 10)
}

// Graph builds the directed chain source -> steps... -> output.
func Graph(steps []pipeline.Step) (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed())

	if err := g.AddVertex(SourceVertex, graph.VertexAttribute("shape", "folder")); err != nil {
		return nil, fmt.Errorf("add source vertex: %w", err)
	}

	prev := SourceVertex
	for i, s := range steps {
		fill, err := CategoryColor(s.Category)
		if err != nil {
			return nil, err
		}
		name := VertexName(s)
		err = g.AddVertex(name,
			graph.VertexAttribute("label", fmt.Sprintf("%d. %s\\n%s", i+1, s.Label, s.Command)),
			graph.VertexAttribute("shape", "box"),
			graph.VertexAttribute("style", "filled"),
			graph.VertexAttribute("fillcolor", fill),
		)
		if err != nil {
			return nil, fmt.Errorf("add vertex %s: %w", name, err)
		}
		if err := g.AddEdge(prev, name, graph.EdgeAttribute("label", "intensity "+strconv.Itoa(s.Intensity))); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", prev, name, err)
		}
		prev = name
	}

	if err := g.AddVertex(OutputVertex, graph.VertexAttribute("shape", "doubleoctagon")); err != nil {
		return nil, fmt.Errorf("add output vertex: %w", err)
	}
	if err := g.AddEdge(prev, OutputVertex); err != nil {
		return nil, fmt.Errorf("add edge %s -> %s: %w", prev, OutputVertex, err)
	}
	return g, nil
}

// DOT writes the pipeline graph of steps to w.
func DOT(w io.Writer, steps []pipeline.Step) error {
	g, err := Graph(steps)
	if err != nil {
		return err
	}
	if err := draw.DOT(g, w, draw.GraphAttribute("rankdir", "LR")); err != nil {
		return fmt.Errorf("render dot: %w", err)
	}
	return nil
}
