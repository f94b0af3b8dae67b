package connmgr

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/connmgr/internal/comm"
	"github.com/dep2p/connmgr/internal/comm/commtest"
	"github.com/dep2p/connmgr/pkg/types"
)

// Concurrent Add/Remove/WaitForConnection against 1k distinct addresses,
// with the mock comm racing connection-established events in from its own
// goroutines, must complete within a bounded time budget (no deadlock), and
// Remove must stay idempotent afterwards.
func TestManager_ConcurrentStress(t *testing.T) {
	const numAddrs = 1000

	mock := commtest.New()
	mock.ConnectFunc = func(addr types.PeerAddr, handler comm.Handler) (comm.Status, error) {
		go handler.Handle(types.Event{Addr: addr, Type: types.EventConnectionEstablished})
		return comm.StatusOK, nil
	}

	mgr := New(DefaultConfig(), mock, clock.New())
	mgr.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, mgr.Shutdown(ctx))
	}()

	addrs := make([]types.PeerAddr, numAddrs)
	for i := range addrs {
		addrs[i] = types.PeerAddr{Host: uint32(i + 1), Port: 1}
	}

	var wg sync.WaitGroup
	for _, addr := range addrs {
		wg.Add(1)
		go func(addr types.PeerAddr) {
			defer wg.Done()
			mgr.Add(addr, 50*time.Millisecond, "", nil)
			mgr.WaitForConnection(addr, 200*time.Millisecond)
			_ = mgr.Remove(addr)
		}(addr)
	}

	// A second wave of readers overlapping the first wave's Add/Remove,
	// exercising WaitForConnection against addresses that may already be
	// gone by the time it runs.
	for _, addr := range addrs {
		wg.Add(1)
		go func(addr types.PeerAddr) {
			defer wg.Done()
			mgr.WaitForConnection(addr, 100*time.Millisecond)
		}(addr)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent add/remove/wait did not complete within budget: suspect deadlock")
	}

	for _, addr := range addrs {
		assert.NoError(t, mgr.Remove(addr), "remove should stay idempotent for addr %s", addr.String())
	}
}
