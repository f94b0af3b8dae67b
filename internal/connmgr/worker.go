package connmgr

import (
	"container/heap"
	"math/rand"
	"time"

	"github.com/dep2p/connmgr/internal/comm"
)

// sendConnectRequest issues a fresh connect attempt for st. Callers must
// hold mu; sendConnectRequest itself acquires st's record lock, honouring
// the map-then-record lock hierarchy.
func (m *Manager) sendConnectRequest(st *connState) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var status comm.Status
	var err error
	if st.local.IsUnset() {
		status, err = m.comm.Connect(st.addr, m.dispatch)
	} else {
		status, err = m.comm.ConnectLocal(st.addr, st.local, m.dispatch)
	}

	switch {
	case err != nil:
		m.logConnectFailure(st, err)
		m.scheduleJitteredRetry(st)
	case status == comm.StatusAlreadyConnected:
		st.connected = true
		st.cond.Broadcast()
	default:
		// StatusOK: the attempt is in flight; its outcome arrives later
		// through the dispatch adapter.
	}
}

// scheduleJitteredRetry computes next_retry = now + timeout ± jitter and
// pushes st onto the retry heap. Callers must hold mu and st.mu.
func (m *Manager) scheduleJitteredRetry(st *connState) {
	next := m.clock.Now().Add(st.timeout)
	if bound := m.cfg.JitterBound; bound > 0 {
		jitter := time.Duration(rand.Int63n(int64(bound)))
		if rand.Intn(2) == 0 {
			next = next.Add(jitter)
		} else {
			next = next.Add(-jitter)
		}
	}
	m.pushRetry(st, next)
}

// logConnectFailure emits the informational log line for a failed connect
// attempt, varying its text by whether a service label was given.
func (m *Manager) logConnectFailure(st *connState, err error) {
	if m.cfg.QuietMode {
		return
	}
	if st.serviceName != "" {
		logger.Info("connection attempt to service failed", "service", st.serviceName, "addr", st.addr.String(), "error", err)
	} else {
		logger.Info("connection attempt failed", "addr", st.addr.String(), "error", err)
	}
}

// retryLoop is the single retry-worker goroutine. It holds mu for its
// entire lifetime except while blocked in retryCond.Wait, which releases
// and reacquires mu around the wait; this deliberately serialises
// Add/Remove/handleEvent behind the worker's sleep rather than dropping
// the lock around a manual timer.
func (m *Manager) retryLoop() {
	defer m.wg.Done()

	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		if m.closed {
			return
		}

		if len(m.queue) == 0 {
			m.retryCond.Wait()
			continue
		}

		st := m.queue[0]
		now := m.clock.Now()

		st.mu.Lock()
		poisoned := st.connected
		due := !st.nextRetry.After(now)
		st.mu.Unlock()

		if poisoned {
			heap.Pop(&m.queue)
			continue
		}

		if due {
			heap.Pop(&m.queue)
			m.sendConnectRequest(st)
			continue
		}

		wait := st.nextRetry.Sub(now)
		timer := m.clock.AfterFunc(wait, func() {
			m.mu.Lock()
			m.retryCond.Broadcast()
			m.mu.Unlock()
		})
		m.retryCond.Wait()
		timer.Stop()
	}
}
