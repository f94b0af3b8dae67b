// Package commtest provides a test double for comm.Comm: a Func-field
// override per method plus a call log for assertions.
package commtest

import (
	"sync"

	"github.com/dep2p/connmgr/internal/comm"
	"github.com/dep2p/connmgr/pkg/types"
)

// A ConnectFunc that wants to deliver an event must do so on its own
// goroutine (go handler.Handle(...)): the caller of Connect/ConnectLocal
// may still be holding locks that the handler needs, exactly as a real
// asynchronous comm.Comm would never call back into the handler from
// inside Connect itself.

// ConnectCall records a single Connect/ConnectLocal invocation.
type ConnectCall struct {
	Addr  types.PeerAddr
	Local types.PeerAddr // zero value if Connect (not ConnectLocal) was used
}

// Mock is a hand-rolled comm.Comm whose behaviour per call is supplied by
// the ConnectFunc/CloseFunc overrides; every call is also recorded for
// assertions.
type Mock struct {
	mu sync.Mutex

	// ConnectFunc, if set, is invoked for every Connect/ConnectLocal call.
	// If nil, Connect defaults to returning (StatusOK, nil) with no event
	// delivered — callers that want an event must set this.
	ConnectFunc func(addr types.PeerAddr, handler comm.Handler) (comm.Status, error)

	// CloseFunc, if set, is invoked for every CloseSocket call.
	CloseFunc func(addr types.PeerAddr) error

	ConnectCalls []ConnectCall
	CloseCalls   []types.PeerAddr
}

var _ comm.Comm = (*Mock)(nil)

// New creates an empty Mock.
func New() *Mock {
	return &Mock{}
}

func (m *Mock) Connect(addr types.PeerAddr, handler comm.Handler) (comm.Status, error) {
	m.mu.Lock()
	m.ConnectCalls = append(m.ConnectCalls, ConnectCall{Addr: addr})
	fn := m.ConnectFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(addr, handler)
	}
	return comm.StatusOK, nil
}

func (m *Mock) ConnectLocal(addr, local types.PeerAddr, handler comm.Handler) (comm.Status, error) {
	m.mu.Lock()
	m.ConnectCalls = append(m.ConnectCalls, ConnectCall{Addr: addr, Local: local})
	fn := m.ConnectFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(addr, handler)
	}
	return comm.StatusOK, nil
}

func (m *Mock) CloseSocket(addr types.PeerAddr) error {
	m.mu.Lock()
	m.CloseCalls = append(m.CloseCalls, addr)
	fn := m.CloseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(addr)
	}
	return nil
}

// NumConnectCalls returns the number of Connect/ConnectLocal calls made so
// far, safe for concurrent use alongside the mock itself.
func (m *Mock) NumConnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ConnectCalls)
}
