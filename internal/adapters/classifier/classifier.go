// Package classifier is the client side of the text-classification service
// used to extract promises from announcements and to verify them later.
package classifier

import (
	"context"
	"time"

	"github.com/okian/repute/internal/domain/model"
)

// Operation labels used in logs and metrics.
const (
	OpExtract = "extract"
	OpVerify  = "verify"
)

// ExtractionRequest describes an announcement to extract a promise from.
type ExtractionRequest struct {
	EventID     int64
	OfficialID  int64
	Title       string
	Summary     string
	PublishedAt time.Time
}

// Extraction is the structured promise found in an announcement.
type Extraction struct {
	Promise string            `json:"promise"`
	Type    model.PromiseType `json:"type"`
	Metrics map[string]string `json:"metrics,omitempty"`
}

// VerificationRequest asks whether a promise was kept.
type VerificationRequest struct {
	PromiseID   int64
	OfficialID  int64
	Text        string
	Type        model.PromiseType
	AnnouncedAt time.Time
	TargetDate  time.Time
}

// Verdict is the service's delivery judgement. Confidence is in [0,1].
type Verdict struct {
	Delivered  bool
	Partial    bool
	Evidence   string
	Sources    []string
	Confidence float64
}

// Status maps the verdict to a terminal promise status.
func (v Verdict) Status() model.PromiseStatus {
	switch {
	case v.Partial:
		return model.StatusPartial
	case v.Delivered:
		return model.StatusDelivered
	default:
		return model.StatusFailed
	}
}

// Classifier is the text-classification service contract. Implementations
// return ErrUnparseable for malformed replies and ErrUnavailable when the
// service is refusing calls.
type Classifier interface {
	ExtractPromise(ctx context.Context, req ExtractionRequest) (Extraction, error)
	VerifyPromise(ctx context.Context, req VerificationRequest) (Verdict, error)
}
