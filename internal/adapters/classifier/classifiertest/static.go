// Package classifiertest provides a deterministic classifier for tests.
package classifiertest

import (
	"context"
	"sync"

	"github.com/okian/repute/internal/adapters/classifier"
)

// Static answers from fixed tables and records every call.
type Static struct {
	mu sync.Mutex

	// Extractions by event id; missing ids fall back to ExtractErr or the headline.
	Extractions map[int64]classifier.Extraction
	ExtractErr  error

	// Verdicts by promise id; missing ids use DefaultVerdict.
	Verdicts       map[int64]classifier.Verdict
	VerifyErrs     map[int64]error
	DefaultVerdict classifier.Verdict

	ExtractCalls []int64
	VerifyCalls  []int64
}

var _ classifier.Classifier = (*Static)(nil)

// New creates an empty Static classifier.
func New() *Static {
	return &Static{
		Extractions: make(map[int64]classifier.Extraction),
		Verdicts:    make(map[int64]classifier.Verdict),
		VerifyErrs:  make(map[int64]error),
	}
}

// ExtractPromise implements classifier.Classifier.
func (s *Static) ExtractPromise(_ context.Context, req classifier.ExtractionRequest) (classifier.Extraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExtractCalls = append(s.ExtractCalls, req.EventID)
	if e, ok := s.Extractions[req.EventID]; ok {
		return e, nil
	}
	if s.ExtractErr != nil {
		return classifier.Extraction{}, s.ExtractErr
	}
	return classifier.Extraction{Promise: req.Title, Type: "other"}, nil
}

// VerifyPromise implements classifier.Classifier.
func (s *Static) VerifyPromise(_ context.Context, req classifier.VerificationRequest) (classifier.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.VerifyCalls = append(s.VerifyCalls, req.PromiseID)
	if err, ok := s.VerifyErrs[req.PromiseID]; ok {
		return classifier.Verdict{}, err
	}
	if v, ok := s.Verdicts[req.PromiseID]; ok {
		return v, nil
	}
	return s.DefaultVerdict, nil
}

// Verified returns the number of verification calls made.
func (s *Static) Verified() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.VerifyCalls)
}
