// Package connmgr maintains a set of persistent outbound connections to
// named peers, reconnecting on failure with bounded, jittered backoff, and
// exposing a wait_for_connection rendezvous for callers.
//
// The public surface is Manager: Add/AddLocal register a peer and issue
// its first connect attempt; Remove deregisters it; WaitForConnection and
// WaitForConnectionDeadline block until the peer is reachable or a
// deadline passes; Start/Shutdown own the retry worker's lifecycle.
package connmgr

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/connmgr/internal/comm"
	"github.com/dep2p/connmgr/pkg/log"
	"github.com/dep2p/connmgr/pkg/types"
)

var logger = log.Logger("connmgr")

// Manager is the connection manager. The zero value is not usable; build
// one with New.
//
// Lock hierarchy (strict): mu (the map lock) may be acquired while already
// holding a connState's mu (the record lock) is FORBIDDEN. Every code path
// here acquires mu first and, only while still holding it, may additionally
// acquire a record's mu. WaitForConnection is the one caller-facing
// exception: it looks addr up under mu, then releases mu before taking the
// record lock, since it never needs both at once.
type Manager struct {
	cfg   Config
	comm  comm.Comm
	clock clock.Clock

	mu    sync.Mutex
	conns map[types.PeerAddr]*connState
	queue retryQueue
	// retryCond is paired with mu and wakes the retry worker whenever the
	// queue gains a new due entry or the manager is asked to shut down.
	retryCond *sync.Cond
	closed    bool

	// dispatch is the single comm.Handler passed to every Connect /
	// ConnectLocal call; every Event it receives already carries the
	// affected address, so one instance suffices for the whole manager.
	dispatch *dispatchHandler

	wg sync.WaitGroup
}

// New builds a Manager backed by cm. clk defaults to the real wall clock
// when nil; tests pass a clock.Mock for determinism. An invalid cfg (per
// Config.Validate) falls back to DefaultConfig rather than panicking, since
// New is also an fx constructor and must not fail the graph over a bad
// default-timeout value.
func New(cfg Config, cm comm.Comm, clk clock.Clock) *Manager {
	if err := cfg.Validate(); err != nil {
		logger.Warn("invalid config, falling back to defaults", "error", err)
		cfg = DefaultConfig()
	}
	if clk == nil {
		clk = clock.New()
	}
	m := &Manager{
		cfg:   cfg,
		comm:  cm,
		clock: clk,
		conns: make(map[types.PeerAddr]*connState),
	}
	m.retryCond = sync.NewCond(&m.mu)
	m.dispatch = &dispatchHandler{m: m}
	return m
}

// Start launches the retry worker. It must be called at most once and
// paired with a later Shutdown.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.retryLoop()
}

// Shutdown signals the retry worker to stop and waits for it to exit, or
// for ctx to be cancelled first. If ctx carries no deadline of its own,
// Shutdown bounds the wait with cfg.ShutdownGracePeriod instead.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.retryCond.Broadcast()
	grace := m.cfg.ShutdownGracePeriod
	m.mu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && grace > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, grace)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Add registers addr for persistent connection with the given retry
// interval, optional service label (used only in log text) and optional
// event handler. If addr is already registered, Add is a silent no-op.
func (m *Manager) Add(addr types.PeerAddr, timeout time.Duration, serviceName string, handler comm.Handler) {
	m.addLocked(addr, types.PeerAddr{}, timeout, serviceName, handler)
}

// AddLocal is Add with an explicit local bind address.
func (m *Manager) AddLocal(addr, local types.PeerAddr, timeout time.Duration, serviceName string, handler comm.Handler) {
	m.addLocked(addr, local, timeout, serviceName, handler)
}

func (m *Manager) addLocked(addr, local types.PeerAddr, timeout time.Duration, serviceName string, handler comm.Handler) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		logger.Warn("Add called after Shutdown, ignoring", "addr", addr.String(), "error", ErrClosed)
		return
	}
	if _, exists := m.conns[addr]; exists {
		m.mu.Unlock()
		return
	}
	st := newConnState(addr, local, timeout, serviceName, handler, m.clock.Now())
	m.conns[addr] = st
	m.sendConnectRequest(st)
	m.mu.Unlock()
}

// Remove deregisters addr. After Shutdown it returns ErrClosed. If addr is
// unknown, Remove is a no-op returning nil. Otherwise it poisons any pending retry (by reusing connected=true)
// and erases the map entry in one held critical section, so the retry
// worker can never observe the record still mapped-and-due after Remove
// has decided to erase it; it then closes the connection if one existed.
func (m *Manager) Remove(addr types.PeerAddr) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	st, ok := m.conns[addr]
	if !ok {
		m.mu.Unlock()
		return nil
	}

	st.mu.Lock()
	shouldClose := st.connected
	if !shouldClose {
		st.connected = true
	}
	delete(m.conns, addr)
	st.mu.Unlock()
	m.mu.Unlock()

	if shouldClose {
		return m.comm.CloseSocket(addr)
	}
	return nil
}

// WaitForConnection blocks until addr is connected or maxWait elapses,
// returning whether it is connected. An unregistered addr returns false
// immediately without registering it.
func (m *Manager) WaitForConnection(addr types.PeerAddr, maxWait time.Duration) bool {
	return m.WaitForConnectionDeadline(addr, m.clock.Now().Add(maxWait))
}

// WaitForConnectionDeadline is WaitForConnection against an absolute
// deadline, letting a caller reuse one deadline across several addresses.
func (m *Manager) WaitForConnectionDeadline(addr types.PeerAddr, deadline time.Time) bool {
	m.mu.Lock()
	st, ok := m.conns[addr]
	m.mu.Unlock()
	if !ok {
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	for !st.connected {
		remaining := deadline.Sub(m.clock.Now())
		if remaining <= 0 {
			return false
		}
		timer := m.clock.AfterFunc(remaining, func() {
			st.mu.Lock()
			st.cond.Broadcast()
			st.mu.Unlock()
		})
		st.cond.Wait()
		timer.Stop()
	}
	return true
}

// handleEvent is the dispatch adapter: it updates the affected record's
// state, schedules a retry on disconnect/error, and forwards the event
// verbatim to the user handler while still holding the record lock, so a
// single peer's events are observed by its handler in delivery order.
func (m *Manager) handleEvent(ev types.Event) {
	m.mu.Lock()
	st, ok := m.conns[ev.Addr]
	if !ok {
		m.mu.Unlock()
		logger.Warn("event for unknown peer", "addr", ev.Addr.String(), "type", ev.Type.String())
		return
	}

	st.mu.Lock()
	switch ev.Type {
	case types.EventConnectionEstablished:
		st.connected = true
		st.cond.Broadcast()
	case types.EventDisconnect, types.EventError:
		if !m.cfg.QuietMode {
			logger.Info("connection event", "addr", ev.Addr.String(), "type", ev.Type.String(), "text", ev.Text, "service", st.serviceName)
		}
		st.connected = false
		m.pushRetry(st, m.clock.Now().Add(st.timeout))
	}
	m.mu.Unlock()

	// Forward while still holding the record lock: a single peer's
	// events are delivered to its handler in strict delivery order.
	if st.handler != nil {
		st.handler.Handle(ev)
	}
	st.mu.Unlock()
}

// pushRetry inserts or repositions st in the retry heap at next and wakes
// the retry worker. Callers must hold mu.
func (m *Manager) pushRetry(st *connState, next time.Time) {
	st.nextRetry = next
	if st.heapIndex < 0 {
		heap.Push(&m.queue, st)
	} else {
		heap.Fix(&m.queue, st.heapIndex)
	}
	m.retryCond.Signal()
}

// dispatchHandler adapts Manager.handleEvent to comm.Handler; a single
// instance is shared across every Connect/ConnectLocal call the manager
// makes, since every Event it receives already carries the affected Addr.
type dispatchHandler struct{ m *Manager }

func (h *dispatchHandler) Handle(ev types.Event) { h.m.handleEvent(ev) }
