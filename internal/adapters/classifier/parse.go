package classifier

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/okian/repute/internal/domain/model"
	"github.com/okian/repute/pkg/json"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// stripFences returns the body of the first markdown code fence, or the
// trimmed input when there is none.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fencePattern.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}

type extractionWire struct {
	Promise string         `json:"promise"`
	Type    string         `json:"type"`
	Metrics map[string]any `json:"metrics"`
}

// ParseExtraction decodes an extraction reply.
func ParseExtraction(raw string) (Extraction, error) {
	var w extractionWire
	if err := json.Unmarshal([]byte(stripFences(raw)), &w); err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	text := strings.TrimSpace(w.Promise)
	if text == "" {
		return Extraction{}, fmt.Errorf("%w: empty promise", ErrUnparseable)
	}
	out := Extraction{Promise: text, Type: model.ParsePromiseType(strings.ToLower(w.Type))}
	if len(w.Metrics) > 0 {
		out.Metrics = make(map[string]string, len(w.Metrics))
		for k, v := range w.Metrics {
			out.Metrics[k] = fmt.Sprint(v)
		}
	}
	return out, nil
}

type verdictWire struct {
	Delivered  *bool    `json:"delivered"`
	Partial    bool     `json:"partial"`
	Evidence   string   `json:"evidence"`
	Sources    []string `json:"sources"`
	Confidence *float64 `json:"confidence"`
}

// ParseVerdict decodes a verification reply. A reply without an explicit
// delivered field is unparseable.
func ParseVerdict(raw string) (Verdict, error) {
	var w verdictWire
	if err := json.Unmarshal([]byte(stripFences(raw)), &w); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if w.Delivered == nil {
		return Verdict{}, fmt.Errorf("%w: missing delivered", ErrUnparseable)
	}
	conf := 0.5
	if w.Confidence != nil {
		conf = NormalizeConfidence(*w.Confidence)
	}
	return Verdict{
		Delivered:  *w.Delivered,
		Partial:    w.Partial,
		Evidence:   strings.TrimSpace(w.Evidence),
		Sources:    w.Sources,
		Confidence: conf,
	}, nil
}

// NormalizeConfidence maps a confidence given either as a fraction or as a
// percentage onto [0,1].
func NormalizeConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	if c > 1 {
		c /= 100
	}
	return math.Max(0, math.Min(1, c))
}
