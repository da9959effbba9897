package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Emit(Progress(0, 1, 0, "starting"))
	r.Emit(Error("boom"))

	assert.Equal(t, []Kind{KindProgress, KindError}, r.Kinds())
	assert.Len(t, r.Events(), 2)
}

func TestStream_DeliversInOrderAndCloses(t *testing.T) {
	s := NewStream(0)

	go func() {
		s.Emit(Progress(0, 2, 0, "starting"))
		s.Emit(Progress(1, 2, 1, "chunk 1"))
		s.Emit(Success("done", 1, nil, nil))
		// Ignored after terminal
		s.Emit(Error("late"))
	}()

	var kinds []Kind
	for e := range s.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []Kind{KindProgress, KindProgress, KindSuccess}, kinds)
}

func TestStream_DetachUnblocksProducer(t *testing.T) {
	s := NewStream(0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.Emit(SavingProgress(i+1, 100))
		}
		s.Emit(Success("done", 100, nil, nil))
	}()

	first := <-s.Events()
	assert.Equal(t, KindSavingProgress, first.Kind)
	s.Detach()
	s.Detach()

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		require.Fail(t, "producer blocked after detach")
	}

	// Channel is closed after the terminal event even when detached
	for range s.Events() {
	}
}
