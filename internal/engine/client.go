// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcelocantos/imgpipe/internal/pipeline"
)

// DefaultEndpoint is where the reference engine listens.
const DefaultEndpoint = "http://localhost:5000/process_image"

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 512

// ProcessedImage is the decoded image returned by the engine.
type ProcessedImage struct {
	Data []byte
}

// ContentType sniffs the image format.
func (p *ProcessedImage) ContentType() string {
	return http.DetectContentType(p.Data)
}

// WriteFile stores the image at path.
func (p *ProcessedImage) WriteFile(path string) error {
	return os.WriteFile(path, p.Data, 0644)
}

// Client posts pipelines to the processing engine. The zero value posts to
// DefaultEndpoint with http.DefaultClient and no timeout of its own.
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
	Timeout    time.Duration // 0 leaves timing to the transport
	Logger     *logrus.Logger
}

// URL returns the endpoint requests are posted to.
func (c *Client) URL() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *Client) logger() *logrus.Logger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

// SubmitFile reads the image at path and submits it with steps.
func (c *Client) SubmitFile(ctx context.Context, path string, steps []pipeline.Step) (*ProcessedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	img, err := c.Submit(ctx, f, steps)
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		ioErr.Path = path
	}
	return img, err
}

// Submit encodes image, posts it with steps in order and decodes the
// processed image from the response. It makes exactly one request and never
// retries. Errors are *IOError or *RemoteError.
func (c *Client) Submit(ctx context.Context, image io.Reader, steps []pipeline.Step) (*ProcessedImage, error) {
	encoded, err := EncodeImage(image)
	if err != nil {
		return nil, &IOError{Err: err}
	}

	body, err := json.Marshal(NewRequest(encoded, steps))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	log := c.logger().WithFields(logrus.Fields{
		"endpoint": c.URL(),
		"filters":  len(steps),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, &RemoteError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		log.WithError(err).Error("Engine request failed")
		return nil, &RemoteError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rerr := &RemoteError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
		log.WithField("status", resp.StatusCode).Error(rerr.Error())
		return nil, rerr
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.WithError(err).Error("Undecodable engine response")
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}
	if out.Error != "" {
		log.WithField("reason", out.Error).Error("Engine rejected request")
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: out.Error}
	}
	if out.ProcessedImage == "" {
		log.Error("Engine response has no image")
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: "response has no processed_image"}
	}

	data, err := base64.StdEncoding.DecodeString(StripDataURI(out.ProcessedImage))
	if err != nil {
		log.WithError(err).Error("Engine image is not base64")
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: "processed_image is not base64", Err: err}
	}

	log.WithFields(logrus.Fields{
		"bytes":    len(data),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Image processed")
	return &ProcessedImage{Data: data}, nil
}

// errorMessage prefers the engine's JSON error field and falls back to the
// raw body text.
func errorMessage(data []byte) string {
	var r Response
	if json.Unmarshal(data, &r) == nil && r.Error != "" {
		return r.Error
	}
	return strings.TrimSpace(string(data))
}
