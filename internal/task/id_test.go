package task

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDGenerator_Format(t *testing.T) {
	g := NewIDGeneratorFor("web1.example.com", 4242)

	assert.Equal(t, "web1.example.com.4242-0", g.Next())
	assert.Equal(t, "web1.example.com.4242-1", g.Next())
	assert.Equal(t, uint64(2), g.Issued())
}

func TestIDGenerator_DefaultHost(t *testing.T) {
	g := NewIDGenerator()
	assert.NotEmpty(t, g.Next())
}

func TestIDGenerator_ConcurrentDistinct(t *testing.T) {
	g := NewIDGeneratorFor("host", 1)

	const workers, perWorker = 8, 250
	ids := make(chan string, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- g.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, workers*perWorker)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, uint64(workers*perWorker), g.Issued())
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusDeferred, ParseStatus("DEFERRED"))
	assert.Equal(t, StatusDeferred, ParseStatus(" deferred "))
	assert.Equal(t, StatusAccepted, ParseStatus("QUEUED"))
	assert.Equal(t, StatusAccepted, ParseStatus(""))
}

func TestState_IsTerminal(t *testing.T) {
	for _, s := range []State{StateDeferredDone, StateFinished, StateErrored, StateInterrupted, StateSubmitted} {
		assert.True(t, s.IsTerminal(), s)
	}
	for _, s := range []State{StateIssuing, StateAwaitingStatus, StateStreaming} {
		assert.False(t, s.IsTerminal(), s)
	}
}
