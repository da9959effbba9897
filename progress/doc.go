// Package progress defines the events an import run reports and the
// Server-Sent Events framing used to carry them to a client.
//
// A run emits zero or more non-terminal events (progress,
// processing_complete, saving_progress) followed by exactly one terminal
// event (success or error). Producers write to a Sink; the HTTP layer wraps
// a Stream around a Writer so each event becomes one flushed frame:
//
//	data: {"type":"progress","currentChunk":1,"totalChunks":3,...}
//
// Clients decode frames back into events with a Scanner.
package progress
