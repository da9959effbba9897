package ai

import "context"

// DeltaFunc receives one streamed fragment of model output.
// Returning an error aborts the stream.
type DeltaFunc func(delta string) error

// TextStreamer sends a prompt to a text-generation model and streams the reply.
// Implementations must be thread-safe for concurrent use.
type TextStreamer interface {
	// StreamText sends prompt to the model and calls onDelta for each text
	// fragment in the order received. It returns once the stream has ended.
	// Returns an error if the request fails or onDelta returns an error.
	StreamText(ctx context.Context, prompt string, onDelta DeltaFunc) error
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// TextStreamer returns the text-generation service.
	// The returned TextStreamer is safe for concurrent use.
	TextStreamer() TextStreamer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
