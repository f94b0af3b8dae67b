package connmgr

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/dep2p/connmgr/pkg/types"
)

// Successive next_retry values must differ from the base timeout by at
// most the configured jitter bound and always land in the future at
// scheduling time.
func TestScheduleJitteredRetry_WithinBounds(t *testing.T) {
	mockClock := clock.NewMock()
	mgr := New(DefaultConfig(), nil, mockClock)

	// timeout must exceed the jitter bound for next_retry to stay in the
	// future, matching real-world retry intervals (seconds, not ms).
	timeout := 5 * time.Second
	st := newConnState(types.PeerAddr{Host: 1, Port: 1}, types.PeerAddr{}, timeout, "", nil, mockClock.Now())

	for i := 0; i < 100; i++ {
		mgr.mu.Lock()
		st.mu.Lock()
		mgr.scheduleJitteredRetry(st)
		delta := st.nextRetry.Sub(mockClock.Now()) - timeout
		st.mu.Unlock()
		mgr.mu.Unlock()

		if delta < 0 {
			delta = -delta
		}
		assert.LessOrEqual(t, delta, mgr.cfg.JitterBound)
		assert.True(t, st.nextRetry.After(mockClock.Now()) || st.nextRetry.Equal(mockClock.Now()))

		// pop back off the heap so the next iteration starts clean.
		mgr.queue = mgr.queue[:0]
		st.heapIndex = -1
	}
}
