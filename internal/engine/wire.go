package engine

import (
	"encoding/base64"
	"io"
	"strings"

	"github.com/marcelocantos/imgpipe/internal/pipeline"
	"github.com/marcelocantos/imgpipe/internal/session"
)

// Filter is one entry of the request's filters array.
type Filter struct {
	Command              string                   `json:"command"`
	Intensity            int                      `json:"intensity"`
	AdditionalParameters map[string]session.Value `json:"additionalParameters"`
}

// Request is the JSON body posted to the engine.
type Request struct {
	Image   string   `json:"image"` // base64, no data-URI prefix
	Filters []Filter `json:"filters"`
}

// Response is the JSON body the engine answers with. The engine reports
// some failures with a 200 status and an Error field.
type Response struct {
	ProcessedImage string `json:"processed_image"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
}

// NewRequest builds the request body. Filters follow the order of steps.
func NewRequest(image string, steps []pipeline.Step) Request {
	filters := make([]Filter, len(steps))
	for i, s := range steps {
		filters[i] = Filter{
			Command:              s.Command,
			Intensity:            s.Intensity,
			AdditionalParameters: s.Params(),
		}
	}
	return Request{Image: image, Filters: filters}
}

// EncodeImage reads r fully and returns its base64 encoding without any
// data-URI prefix.
func EncodeImage(r io.Reader) (string, error) {
	var b strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &b)
	if _, err := io.Copy(enc, r); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// StripDataURI removes a "data:<mime>;base64," prefix if present.
func StripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if _, rest, ok := strings.Cut(s, ","); ok {
		return rest
	}
	return s
}
