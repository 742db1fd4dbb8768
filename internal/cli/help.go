package cli

import (
	_ "embed"
	"fmt"
	"io"

	"github.com/marcelocantos/imgpipe/internal/catalog"
)

//go:embed recipes.md
var recipeGuide string

// RunHelp shows general usage, the recipe guide, or the options of one
// category.
func RunHelp(cat *catalog.Catalog, w io.Writer, args []string) int {
	if len(args) == 0 {
		printGeneralHelp(w)
		return 0
	}

	if args[0] == "recipes" {
		fmt.Fprint(w, recipeGuide)
		return 0
	}

	c, err := catalog.ParseCategory(args[0])
	if err != nil {
		fmt.Fprintf(w, "imgpipe help: %v\n", err)
		return 1
	}
	if cat == nil {
		cat = catalog.Default()
	}
	fmt.Fprintf(w, "%s (default %s)\n", c, catalog.DefaultSelection[c])
	if err := catalog.Describe(w, cat, c); err != nil {
		fmt.Fprintf(w, "imgpipe help: %v\n", err)
		return 1
	}
	return 0
}

func printGeneralHelp(w io.Writer) {
	fmt.Fprintln(w, "imgpipe: assemble image-transform pipelines and send them to a processing engine")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  imgpipe --list [--category <name>]            list options and parameter ranges")
	fmt.Fprintln(w, "  imgpipe --run <recipe> --image <path>...      build a pipeline and process images")
	fmt.Fprintln(w, "          [--out <path>] [--save <recipe.yaml>]")
	fmt.Fprintln(w, "  imgpipe --dot <recipe>                        print the pipeline as a DOT graph")
	fmt.Fprintln(w, "  imgpipe --mcp                                 serve MCP tools on stdio")
	fmt.Fprintln(w, "  imgpipe --audit <verify|tail [n]>             audit log operations")
	fmt.Fprintln(w, "  imgpipe --help [recipes|<category>]           show help")
	fmt.Fprintln(w, "  imgpipe --version                             show version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "categories:")
	for _, c := range catalog.Default().Categories() {
		fmt.Fprintf(w, "  %s\n", c)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "config: %s\n", "~/.config/imgpipe/config.yaml")
}
