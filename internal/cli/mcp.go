package cli

import (
	"fmt"
	"io"

	"github.com/marcelocantos/imgpipe/internal/mcpserver"
	"github.com/marcelocantos/imgpipe/internal/workspace"
)

// RunMCP serves the workspace over MCP on stdio until the client
// disconnects.
func RunMCP(ws *workspace.Workspace, version string, errw io.Writer) int {
	if err := mcpserver.New(ws, version).ServeStdio(); err != nil {
		fmt.Fprintf(errw, "imgpipe mcp: %v\n", err)
		return 1
	}
	return 0
}
