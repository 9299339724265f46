package service

import "errors"

var (
	// ErrJobRunning is returned when a job is triggered while it is still running.
	ErrJobRunning = errors.New("job already running")
	// ErrNoClassifier is returned by jobs that need the classification service
	// when none is configured.
	ErrNoClassifier = errors.New("classifier not configured")
	// ErrUnknownJob is returned for job names that do not exist.
	ErrUnknownJob = errors.New("unknown job")
)
