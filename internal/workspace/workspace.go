// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package workspace serializes one editing session for concurrent callers.
package workspace

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/marcelocantos/imgpipe/internal/audit"
	"github.com/marcelocantos/imgpipe/internal/catalog"
	"github.com/marcelocantos/imgpipe/internal/engine"
	"github.com/marcelocantos/imgpipe/internal/pipeline"
	"github.com/marcelocantos/imgpipe/internal/session"
)

// Workspace owns a session, its pipeline and the engine client. Every
// mutation holds the lock; submissions hold it only long enough to take a
// snapshot of the steps.
type Workspace struct {
	mu      sync.Mutex
	id      string
	state   *session.State
	builder *pipeline.Builder

	client  *engine.Client
	display engine.Display
	audit   *audit.Logger // nil disables auditing
	logger  *logrus.Logger
}

// New creates a workspace over a fresh session of cat.
func New(cat *catalog.Catalog, client *engine.Client) *Workspace {
	state := session.New(cat)
	return &Workspace{
		id:      uuid.NewString(),
		state:   state,
		builder: pipeline.NewBuilder(state, pipeline.New()),
		client:  client,
		logger:  logrus.StandardLogger(),
	}
}

// SetAudit makes every submission append an entry to a.
func (w *Workspace) SetAudit(a *audit.Logger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.audit = a
}

// SetLogger replaces the workspace logger.
func (w *Workspace) SetLogger(l *logrus.Logger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if l != nil {
		w.logger = l
	}
}

// ID returns the session id recorded in audit entries.
func (w *Workspace) ID() string {
	return w.id
}

// Catalog returns the catalog the session validates against.
func (w *Workspace) Catalog() *catalog.Catalog {
	return w.state.Catalog()
}

// Display holds the last successfully processed image.
func (w *Workspace) Display() *engine.Display {
	return &w.display
}

// Edit runs fn with exclusive access to the builder, and through it the
// session and pipeline.
func (w *Workspace) Edit(fn func(b *pipeline.Builder) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn(w.builder)
}

// Select chooses option for c.
func (w *Workspace) Select(c catalog.Category, option string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Select(c, option)
}

// Selected returns the current option of c.
func (w *Workspace) Selected(c catalog.Category) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Selected(c)
}

// SetParam sets a parameter of the option currently selected for c.
func (w *Workspace) SetParam(c catalog.Category, name string, v session.Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.SetSelectedParam(c, name, v)
}

// SetIntensity sets the pending intensity of c.
func (w *Workspace) SetIntensity(c catalog.Category, v session.Value) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.SetIntensity(c, v)
}

// Apply appends a step built from the current selection of c.
func (w *Workspace) Apply(c catalog.Category) (pipeline.Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.builder.Apply(c)
}

// Remove deletes a step by id and reports whether it existed.
func (w *Workspace) Remove(id uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.builder.Pipeline().Remove(id)
}

// Clear empties the pipeline.
func (w *Workspace) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.builder.Pipeline().Clear()
}

// Steps returns a snapshot of the pipeline.
func (w *Workspace) Steps() []pipeline.Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.builder.Pipeline().Steps()
}

// SubmitFile submits the image at path with the current pipeline.
func (w *Workspace) SubmitFile(ctx context.Context, path string) engine.Result {
	steps, client := w.snapshot()
	start := time.Now()
	img, err := client.SubmitFile(ctx, path, steps)
	return w.settle(path, steps, engine.Result{Image: img, Err: err}, time.Since(start))
}

// Submit submits image with the current pipeline. name only labels the
// audit entry.
func (w *Workspace) Submit(ctx context.Context, name string, image io.Reader) engine.Result {
	steps, client := w.snapshot()
	start := time.Now()
	img, err := client.Submit(ctx, image, steps)
	return w.settle(name, steps, engine.Result{Image: img, Err: err}, time.Since(start))
}

func (w *Workspace) snapshot() ([]pipeline.Step, *engine.Client) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.builder.Pipeline().Steps(), w.client
}

// settle updates the display and records the submission.
func (w *Workspace) settle(image string, steps []pipeline.Step, res engine.Result, d time.Duration) engine.Result {
	w.display.Show(res)

	w.mu.Lock()
	a, log := w.audit, w.logger
	w.mu.Unlock()
	if a == nil {
		return res
	}

	rec := audit.Record{
		Session:  w.id,
		Image:    image,
		Commands: pipeline.Commands(steps),
		Endpoint: w.client.URL(),
		Outcome:  res.Outcome().String(),
		Duration: d,
	}
	if res.Image != nil {
		rec.Bytes = len(res.Image.Data)
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
		var remoteErr *engine.RemoteError
		if errors.As(res.Err, &remoteErr) {
			rec.Status = remoteErr.StatusCode
		}
	}
	if err := a.Log(rec); err != nil {
		log.WithError(err).Warn("Audit write failed")
	}
	return res
}
