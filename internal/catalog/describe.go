package catalog

import (
	"fmt"
	"io"
	"strings"
)

// Describe writes one line per option: category, option, command code and
// parameter specs. With no cats, every category is listed.
func Describe(w io.Writer, c *Catalog, cats ...Category) error {
	if len(cats) == 0 {
		cats = c.Categories()
	}
	for _, cat := range cats {
		opts, err := c.Options(cat)
		if err != nil {
			return err
		}
		for _, o := range opts {
			code, err := c.CommandCode(o.Name)
			if err != nil {
				code = "-"
			}
			specs := make([]string, len(o.Params))
			for i, s := range o.Params {
				specs[i] = s.String()
			}
			fmt.Fprintf(w, "%-17s %-21s %-19s %s\n", cat, o.Name, code, strings.Join(specs, "  "))
		}
	}
	return nil
}
