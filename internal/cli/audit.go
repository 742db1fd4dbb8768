package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/marcelocantos/imgpipe/internal/audit"
)

const defaultTail = 20

// RunAudit handles the imgpipe audit subcommand.
func RunAudit(w io.Writer, logPath string, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(w, "usage: imgpipe --audit <verify|tail [n]>")
		return 1
	}

	switch args[0] {
	case "verify":
		if err := audit.Verify(logPath); err != nil {
			fmt.Fprintf(w, "audit verification FAILED: %v\n", err)
			return 1
		}
		fmt.Fprintln(w, "audit log integrity verified")
		return 0

	case "show", "tail":
		n := defaultTail
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v <= 0 {
				fmt.Fprintf(w, "imgpipe audit: invalid count %q\n", args[1])
				return 1
			}
			n = v
		}
		entries, err := audit.Tail(logPath, n)
		if err != nil {
			fmt.Fprintf(w, "imgpipe audit: %v\n", err)
			return 1
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "no audit entries")
			return 0
		}
		for _, e := range entries {
			data, _ := json.MarshalIndent(e, "", "  ")
			fmt.Fprintf(w, "%s\n", data)
		}
		return 0

	default:
		fmt.Fprintf(w, "imgpipe audit: unknown subcommand %q\n", args[0])
		return 1
	}
}
