package engine

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/marcelocantos/imgpipe/internal/pipeline"
)

// Outcome classifies a finished submission.
type Outcome int

const (
	Success Outcome = iota
	RemoteFailure
	IOFailure
	OtherFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "ok"
	case RemoteFailure:
		return "remote-error"
	case IOFailure:
		return "io-error"
	default:
		return "error"
	}
}

// Result is what a Task settles with: an image on success, otherwise an
// error that is usually an *IOError or *RemoteError.
type Result struct {
	Image *ProcessedImage
	Err   error
}

// Outcome classifies r.
func (r Result) Outcome() Outcome {
	var ioErr *IOError
	var remoteErr *RemoteError
	switch {
	case r.Err == nil:
		return Success
	case errors.As(r.Err, &ioErr):
		return IOFailure
	case errors.As(r.Err, &remoteErr):
		return RemoteFailure
	default:
		return OtherFailure
	}
}

// Task is an in-flight submission. It has no cancellation of its own; pass
// a cancellable context to Go if you need one.
type Task struct {
	done chan struct{}
	res  Result
}

// Done is closed once the result is available.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the submission settles.
func (t *Task) Wait() Result {
	<-t.done
	return t.res
}

func (c *Client) start(fn func() (*ProcessedImage, error)) *Task {
	t := &Task{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		img, err := fn()
		t.res = Result{Image: img, Err: err}
	}()
	return t
}

// Go submits asynchronously. steps is copied before Go returns, so the
// caller may keep editing its pipeline while the request is in flight.
func (c *Client) Go(ctx context.Context, image io.Reader, steps []pipeline.Step) *Task {
	steps = slices.Clone(steps)
	return c.start(func() (*ProcessedImage, error) {
		return c.Submit(ctx, image, steps)
	})
}

// GoFile is Go for an image on disk.
func (c *Client) GoFile(ctx context.Context, path string, steps []pipeline.Step) *Task {
	steps = slices.Clone(steps)
	return c.start(func() (*ProcessedImage, error) {
		return c.SubmitFile(ctx, path, steps)
	})
}

// Display holds the most recently processed image. Failed submissions
// leave it unchanged; when several succeed, the last to arrive wins.
type Display struct {
	mu      sync.Mutex
	current *ProcessedImage
	updates int
}

// Show records r if it succeeded and reports whether the display changed.
func (d *Display) Show(r Result) bool {
	if r.Err != nil || r.Image == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = r.Image
	d.updates++
	return true
}

// Current returns the displayed image, or nil if nothing succeeded yet.
func (d *Display) Current() *ProcessedImage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Updates counts successful Show calls.
func (d *Display) Updates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updates
}
