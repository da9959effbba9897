// Package extraction turns free-form text into credential records using a
// streaming text-generation model.
//
// The Extractor builds a fixed instructional prompt around a chunk, buffers
// the streamed reply and parses it once. Parsing is deliberately forgiving:
// code fences and prose around the JSON are ignored, keys with a missing
// opening quote are repaired, and anything that still fails to decode yields
// zero records instead of an error. Only transport failures surface as errors,
// optionally retried with exponential backoff.
//
//	extractor, err := extraction.New(provider.TextStreamer(),
//	    extraction.WithMaxAttempts(3),
//	    extraction.WithChunkTimeout(2*time.Minute),
//	)
//	records, err := extractor.Extract(ctx, chunk, 0, 1)
package extraction
