// Package ipc implements the controller-payload transport: a Connection
// abstraction over a full-duplex byte stream, backed by a pair of Windows
// named pipes, plus the naming scheme both sides use to find each other.
package ipc

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/maroider/asbestos-go/wire"
)

// ErrDisconnected is returned by every Connection operation once the
// connection has transitioned to the Disconnected state. A Connection
// never returns to Connected once disconnected.
var ErrDisconnected = errors.New("ipc: connection is disconnected")

// Connection pairs a reader and writer over a duplex transport with a
// Connected/Disconnected state.
type Connection struct {
	mu   sync.Mutex
	rx   io.ReadCloser
	tx   io.WriteCloser
	dead bool
}

// New wraps an already-established pair of pipe ends into a Connected
// Connection.
func New(rx io.ReadCloser, tx io.WriteCloser) *Connection {
	return &Connection{rx: rx, tx: tx}
}

// Connected reports whether the connection has not yet observed an
// unexpected end-of-stream.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.dead
}

// ReadMessage reads one message, transitioning to Disconnected on
// unexpected EOF.
func (c *Connection) ReadMessage() (wire.Message, error) {
	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		return wire.Message{}, ErrDisconnected
	}
	rx := c.rx
	c.mu.Unlock()

	msg, err := wire.ReadFrame(rx)
	if err != nil {
		if errors.Is(err, wire.ErrConnectionLost) {
			c.markDisconnected()
			return wire.Message{}, ErrDisconnected
		}
		return wire.Message{}, err
	}
	return msg, nil
}

// deadliner is satisfied by net.Conn (both winio's pipe connections and
// the standard library's). Kept as a local, unexported interface so
// Connection itself stays agnostic of net, matching how it's already
// constructed from plain io.ReadCloser/io.WriteCloser.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// TryReadMessage reads one message, returning ok=false (not an error) if
// none arrives within timeout. The controller's supervisor loop uses this
// to poll many connections without dedicating a goroutine to each. If the
// underlying transport doesn't support read deadlines, it falls back to a
// plain blocking ReadMessage.
func (c *Connection) TryReadMessage(timeout time.Duration) (msg wire.Message, ok bool, err error) {
	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		return wire.Message{}, false, ErrDisconnected
	}
	rx := c.rx
	c.mu.Unlock()

	if d, isDeadliner := rx.(deadliner); isDeadliner {
		_ = d.SetReadDeadline(time.Now().Add(timeout))
		defer d.SetReadDeadline(time.Time{})
	}

	msg, err = c.ReadMessage()
	if err != nil {
		if ne, isNetErr := err.(interface{ Timeout() bool }); isNetErr && ne.Timeout() {
			return wire.Message{}, false, nil
		}
		return wire.Message{}, false, err
	}
	return msg, true, nil
}

// WriteMessage writes one message, transitioning to Disconnected if the
// underlying transport reports the peer is gone.
func (c *Connection) WriteMessage(msg wire.Message) error {
	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		return ErrDisconnected
	}
	tx := c.tx
	c.mu.Unlock()

	if err := wire.WriteFrame(tx, msg); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			c.markDisconnected()
			return ErrDisconnected
		}
		return err
	}
	return nil
}

// Close releases both pipe ends and marks the connection Disconnected.
func (c *Connection) Close() error {
	c.markDisconnected()
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	if c.rx != nil {
		if err := c.rx.Close(); err != nil {
			firstErr = err
		}
	}
	if c.tx != nil {
		if err := c.tx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Connection) markDisconnected() {
	c.mu.Lock()
	c.dead = true
	c.mu.Unlock()
}
