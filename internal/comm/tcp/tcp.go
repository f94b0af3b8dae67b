// Package tcp implements comm.Comm over real TCP sockets.
//
// The standard library's net.Dialer.DialContext is synchronous; Connect and
// ConnectLocal wrap it in a goroutine so the contract's asynchronous shape
// holds regardless of the transport underneath, delivering the outcome
// through a Handler instead of returning it to the caller.
package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dep2p/connmgr/internal/comm"
	"github.com/dep2p/connmgr/pkg/log"
	"github.com/dep2p/connmgr/pkg/types"
	"github.com/google/uuid"
)

var logger = log.Logger("comm/tcp")

// Config tunes the dialer.
type Config struct {
	DialTimeout time.Duration
	KeepAlive   time.Duration
	NoDelay     bool
}

// DefaultConfig returns sane TCP dial defaults.
func DefaultConfig() Config {
	return Config{
		DialTimeout: 10 * time.Second,
		KeepAlive:   30 * time.Second,
		NoDelay:     true,
	}
}

// Comm is a real, socket-backed comm.Comm.
type Comm struct {
	config Config

	mu    sync.Mutex
	conns map[types.PeerAddr]net.Conn
}

var _ comm.Comm = (*Comm)(nil)

// New creates a TCP-backed Comm.
func New(config Config) *Comm {
	return &Comm{
		config: config,
		conns:  make(map[types.PeerAddr]net.Conn),
	}
}

// Connect implements comm.Comm.
func (c *Comm) Connect(addr types.PeerAddr, handler comm.Handler) (comm.Status, error) {
	return c.connect(addr, types.PeerAddr{}, handler)
}

// ConnectLocal implements comm.Comm.
func (c *Comm) ConnectLocal(addr, local types.PeerAddr, handler comm.Handler) (comm.Status, error) {
	return c.connect(addr, local, handler)
}

func (c *Comm) connect(addr, local types.PeerAddr, handler comm.Handler) (comm.Status, error) {
	c.mu.Lock()
	if _, ok := c.conns[addr]; ok {
		c.mu.Unlock()
		return comm.StatusAlreadyConnected, nil
	}
	c.mu.Unlock()

	attemptID := uuid.New().String()

	dialer := &net.Dialer{Timeout: c.config.DialTimeout, KeepAlive: c.config.KeepAlive}
	if !local.IsUnset() {
		dialer.LocalAddr = local.NetTCPAddr()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.DialTimeout)
		defer cancel()

		conn, err := dialer.DialContext(ctx, "tcp", addr.String())
		if err != nil {
			wrapped := fmt.Errorf("%w: %v", comm.ErrConnectFailed, err)
			logger.Debug("dial failed", "attempt", attemptID, "addr", addr.String(), "error", wrapped)
			handler.Handle(types.Event{Addr: addr, Type: types.EventError, Text: wrapped.Error()})
			return
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok && c.config.NoDelay {
			_ = tcpConn.SetNoDelay(true)
		}

		c.mu.Lock()
		c.conns[addr] = conn
		c.mu.Unlock()

		go c.watch(addr, conn, handler)

		handler.Handle(types.Event{Addr: addr, Type: types.EventConnectionEstablished})
	}()

	return comm.StatusOK, nil
}

// watch blocks reading conn until the read fails, then reports a
// disconnect if addr is still mapped. CloseSocket removes addr from conns
// before closing, so a local close is not reported; peer-initiated drops
// and other read errors are.
func (c *Comm) watch(addr types.PeerAddr, conn net.Conn, handler comm.Handler) {
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			c.mu.Lock()
			_, stillOpen := c.conns[addr]
			delete(c.conns, addr)
			c.mu.Unlock()
			if stillOpen {
				handler.Handle(types.Event{Addr: addr, Type: types.EventDisconnect, Text: err.Error()})
			}
			return
		}
	}
}

// CloseSocket implements comm.Comm. It closes the established connection
// for addr, if any; a dial still in flight for addr is not cancelled.
func (c *Comm) CloseSocket(addr types.PeerAddr) error {
	c.mu.Lock()
	conn, ok := c.conns[addr]
	if ok {
		delete(c.conns, addr)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}
	return conn.Close()
}
