// Package mock provides test double implementations of AI service interfaces.
//
// MockStreamer replays scripted responses as a sequence of deltas, so tests
// can exercise streaming consumers without a model server.
//
//	streamer := mock.NewMockStreamer(`[{"name":"Gmail","password":"pw"}]`)
//	streamer.WithStreamFunc(func(ctx context.Context, prompt string, onDelta ai.DeltaFunc) error {
//	    return errors.New("connection refused")
//	})
//	count := streamer.CallCount()
package mock
