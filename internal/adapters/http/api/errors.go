package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrServe         = errors.New("http serve failed")
	ErrBadRequest    = errors.New("bad request")
	ErrStoreDegraded = errors.New("store unreachable")
)
