package classifier

import "errors"

// Sentinel kinds for classifier errors.
var (
	ErrUnparseable   = errors.New("classifier response unparseable")
	ErrUnavailable   = errors.New("classifier unavailable")
	ErrMissingAPIKey = errors.New("classifier api key not set")
	ErrEmptyResponse = errors.New("classifier returned no choices")
)
