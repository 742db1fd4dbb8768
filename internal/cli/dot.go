package cli

import (
	"fmt"
	"io"

	"github.com/marcelocantos/imgpipe/internal/drawer"
	"github.com/marcelocantos/imgpipe/internal/pipeline"
	"github.com/marcelocantos/imgpipe/internal/recipe"
	"github.com/marcelocantos/imgpipe/internal/workspace"
)

// RunDot builds the pipeline of recipePath in ws and prints it as DOT.
func RunDot(ws *workspace.Workspace, recipePath string, w, errw io.Writer) int {
	err := ws.Edit(func(b *pipeline.Builder) error {
		_, err := recipe.Run(recipePath, b)
		return err
	})
	if err != nil {
		fmt.Fprintf(errw, "imgpipe dot: %v\n", err)
		return 1
	}
	if err := drawer.DOT(w, ws.Steps()); err != nil {
		fmt.Fprintf(errw, "imgpipe dot: %v\n", err)
		return 1
	}
	return 0
}
