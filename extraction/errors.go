package extraction

import "errors"

var (
	// ErrStreamerRequired is returned when an Extractor is built without a model client.
	ErrStreamerRequired = errors.New("extraction: text streamer is required")

	// ErrNoJSONArray means the response contained no [ ... ] span.
	ErrNoJSONArray = errors.New("no JSON array in model response")

	// ErrMalformedJSON means the array span could not be decoded.
	ErrMalformedJSON = errors.New("malformed JSON in model response")
)
