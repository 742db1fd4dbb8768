package cli

import (
	"fmt"
	"io"

	"github.com/marcelocantos/imgpipe/internal/catalog"
)

// RunList lists categories, options, command codes and parameter ranges.
func RunList(cat *catalog.Catalog, w io.Writer, categoryFilter string) int {
	var cats []catalog.Category
	if categoryFilter != "" {
		c, err := catalog.ParseCategory(categoryFilter)
		if err != nil {
			fmt.Fprintf(w, "imgpipe list: %v\n", err)
			return 1
		}
		cats = append(cats, c)
	}
	if err := catalog.Describe(w, cat, cats...); err != nil {
		fmt.Fprintf(w, "imgpipe list: %v\n", err)
		return 1
	}
	return 0
}
