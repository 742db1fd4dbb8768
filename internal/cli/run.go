package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/marcelocantos/imgpipe/internal/engine"
	"github.com/marcelocantos/imgpipe/internal/pipeline"
	"github.com/marcelocantos/imgpipe/internal/recipe"
	"github.com/marcelocantos/imgpipe/internal/workspace"
)

// RunOptions configures RunRecipe.
type RunOptions struct {
	Recipe string
	Images []string
	// Out is a file when there is one image and a directory otherwise.
	// Empty writes each result next to its source.
	Out     string
	Save    string // also write the built pipeline as a YAML recipe
	Workers int
}

// ParseRunArgs parses the arguments following --run.
func ParseRunArgs(args []string) (RunOptions, error) {
	var opts RunOptions
	for i := 0; i < len(args); i++ {
		flag := args[i]
		switch flag {
		case "--image", "--out", "--save":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s needs a value", flag)
			}
			i++
			switch flag {
			case "--image":
				opts.Images = append(opts.Images, args[i])
			case "--out":
				opts.Out = args[i]
			case "--save":
				opts.Save = args[i]
			}
		default:
			if strings.HasPrefix(flag, "--") {
				return opts, fmt.Errorf("unknown flag %s", flag)
			}
			if opts.Recipe != "" {
				return opts, fmt.Errorf("unexpected argument %q", flag)
			}
			opts.Recipe = flag
		}
	}
	if opts.Recipe == "" {
		return opts, errors.New("missing recipe")
	}
	if len(opts.Images) == 0 && opts.Save == "" {
		return opts, errors.New("need at least one --image or --save")
	}
	return opts, nil
}

// RunRecipe builds the pipeline of opts.Recipe in ws and submits every image
// concurrently, at most opts.Workers at a time. Results are reported in
// input order. It returns 1 if the recipe or any submission failed.
func RunRecipe(ctx context.Context, ws *workspace.Workspace, opts RunOptions, w, errw io.Writer) int {
	err := ws.Edit(func(b *pipeline.Builder) error {
		_, err := recipe.Run(opts.Recipe, b)
		return err
	})
	if err != nil {
		fmt.Fprintf(errw, "imgpipe run: %v\n", err)
		return 1
	}

	steps := ws.Steps()
	if opts.Save != "" {
		if err := recipe.Save(opts.Save, steps); err != nil {
			fmt.Fprintf(errw, "imgpipe run: %v\n", err)
			return 1
		}
	}
	if len(opts.Images) == 0 {
		return 0
	}
	if opts.Out != "" && len(opts.Images) > 1 {
		if err := os.MkdirAll(opts.Out, 0755); err != nil {
			fmt.Fprintf(errw, "imgpipe run: %v\n", err)
			return 1
		}
	}

	targets := outputTargets(opts.Images, opts.Out)
	results := make([]engine.Result, len(opts.Images))
	outputs := make([]string, len(opts.Images))

	var g errgroup.Group
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, img := range opts.Images {
		g.Go(func() error {
			res := ws.SubmitFile(ctx, img)
			if res.Err == nil {
				outputs[i] = targets[i].path(res.Image.ContentType())
				if err := res.Image.WriteFile(outputs[i]); err != nil {
					res.Err = err
				}
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	code := 0
	for i, img := range opts.Images {
		res := results[i]
		if res.Err != nil {
			fmt.Fprintf(errw, "%s: %s: %v\n", img, res.Outcome(), res.Err)
			code = 1
			continue
		}
		fmt.Fprintf(w, "%s -> %s (%d steps, %d bytes)\n", img, outputs[i], len(steps), len(res.Image.Data))
	}
	return code
}

// target is where one processed image goes. The extension is added once
// the engine's response reveals the image type.
type target struct {
	dir, name, tail string
	exact           string // set when the caller named the output file
}

func (t target) path(contentType string) string {
	if t.exact != "" {
		return t.exact
	}
	return filepath.Join(t.dir, t.name+t.tail+extensionFor(contentType))
}

func (t target) key() string {
	return filepath.Join(t.dir, t.name+t.tail)
}

// outputTarget picks where the processed form of src goes.
func outputTarget(src, out string, many bool) target {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	switch {
	case out == "":
		return target{dir: filepath.Dir(src), name: base, tail: ".processed"}
	case many:
		return target{dir: out, name: base}
	default:
		return target{exact: out}
	}
}

// outputTargets assigns every image its own output. Images whose targets
// coincide get the name of their parent directory appended, or their
// 1-based position when that still collides.
func outputTargets(images []string, out string) []target {
	targets := make([]target, len(images))
	count := map[string]int{}
	for i, src := range images {
		targets[i] = outputTarget(src, out, len(images) > 1)
		count[targets[i].key()]++
	}
	taken := map[string]bool{}
	for _, t := range targets {
		if count[t.key()] == 1 {
			taken[t.key()] = true
		}
	}
	for i, src := range images {
		t := targets[i]
		if t.exact != "" || count[t.key()] == 1 {
			continue
		}
		base := t.name
		if parent := filepath.Base(filepath.Dir(src)); parent != "." && parent != string(filepath.Separator) {
			t.name = base + "-" + parent
		}
		for n := i + 1; t.name == base || taken[t.key()]; n++ {
			t.name = base + "-" + strconv.Itoa(n)
		}
		taken[t.key()] = true
		targets[i] = t
	}
	return targets
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ".bin"
	}
}
