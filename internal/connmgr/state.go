package connmgr

import (
	"sync"
	"time"

	"github.com/dep2p/connmgr/internal/comm"
	"github.com/dep2p/connmgr/pkg/types"
)

// connState is the per-peer connection-state record described by the data
// model: target address, optional local bind, service label, retry
// interval, connected flag, next-retry deadline, user handler, and the
// lock/condition-variable pair guarding connected/nextRetry and waking
// wait_for_connection callers.
//
// connState is shared by the address-keyed map, the retry heap, and
// in-flight event delivery; it is never copied after construction.
type connState struct {
	addr        types.PeerAddr
	local       types.PeerAddr // Port == 0 means "no explicit local bind"
	serviceName string
	timeout     time.Duration
	handler     comm.Handler

	mu        sync.Mutex
	cond      *sync.Cond
	connected bool
	nextRetry time.Time

	// heapIndex tracks this record's position in the owning Manager's
	// retry heap, or -1 when the record is not currently queued.
	heapIndex int
}

func newConnState(addr, local types.PeerAddr, timeout time.Duration, serviceName string, handler comm.Handler, now time.Time) *connState {
	st := &connState{
		addr:        addr,
		local:       local,
		serviceName: serviceName,
		timeout:     timeout,
		handler:     handler,
		nextRetry:   now,
		heapIndex:   -1,
	}
	st.cond = sync.NewCond(&st.mu)
	return st
}
