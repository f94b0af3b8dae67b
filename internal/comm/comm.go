// Package comm defines the asynchronous communication-layer contract that
// the connection manager consumes: a connect/close primitive and an
// event-delivery callback surface. connmgr depends only on the interfaces
// here; internal/comm/tcp provides one concrete, real implementation and
// internal/comm/commtest provides a test double.
package comm

import (
	"errors"

	"github.com/dep2p/connmgr/pkg/types"
)

// Status is the outcome of a Connect/ConnectLocal call.
type Status int

const (
	// StatusOK means the connect attempt was accepted and is in flight;
	// the outcome will surface later as an Event.
	StatusOK Status = iota
	// StatusAlreadyConnected means a live connection for this address
	// already exists; treated as an immediate success by the caller.
	StatusAlreadyConnected
)

// ErrConnectFailed classifies a dial failure reported asynchronously
// through an EventError's Text field. Implementations wrap it with
// fmt.Errorf("%w: %v", ErrConnectFailed, cause) before rendering Text, so
// logs and any code that reconstructs the error from Text can still
// distinguish a failed dial from other error events.
var ErrConnectFailed = errors.New("comm: connect failed")

// Handler receives every lifecycle event for the addresses it was
// registered against. Implementations must not block for long: the
// dispatching layer invokes Handle while holding the per-connection lock
// (see connmgr's concurrency model).
type Handler interface {
	Handle(ev types.Event)
}

// Comm is the borrowed capability the connection manager depends on. It
// never owns or closes Comm; Comm's lifetime spans the manager's.
type Comm interface {
	// Connect initiates an asynchronous connect to addr. It returns
	// immediately; the eventual outcome (success or failure) is delivered
	// to handler as an Event, except StatusAlreadyConnected, which is
	// final and synchronous.
	Connect(addr types.PeerAddr, handler Handler) (Status, error)

	// ConnectLocal is Connect with an explicit local bind address. A zero
	// local port means "let the OS choose", identical to Connect.
	ConnectLocal(addr, local types.PeerAddr, handler Handler) (Status, error)

	// CloseSocket tears down the established connection for addr, if there
	// is one. It is synchronous and idempotent. A connect attempt already
	// in flight is not part of this contract and may still complete.
	CloseSocket(addr types.PeerAddr) error
}
