package progress

import "errors"

var (
	// ErrUnknownKind is returned when encoding or decoding an event with an unrecognized type.
	ErrUnknownKind = errors.New("unknown progress event type")

	// ErrStreamEnded is returned by a Scanner when the stream closed before a terminal event.
	ErrStreamEnded = errors.New("progress stream ended without a terminal event")
)
