//go:build windows

package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// listenerConfig leaves SecurityDescriptor nil so go-winio applies its
// default ACL, which restricts the pipe to the creating user's logon
// session.
func listenerConfig() *winio.PipeConfig {
	return &winio.PipeConfig{
		InputBufferSize:  64 * 1024,
		OutputBufferSize: 64 * 1024,
	}
}

// Listen creates a named-pipe server at PipeName(pid, end), ready to accept
// exactly one payload connection.
func Listen(pid uint32, end End) (net.Listener, error) {
	l, err := winio.ListenPipe(PipeName(pid, end), listenerConfig())
	if err != nil {
		return nil, fmt.Errorf("ipc: listening on %s pipe for pid %d: %w", end, pid, err)
	}
	return l, nil
}

// Accept blocks until a client connects to l or deadline elapses.
func Accept(l net.Listener, deadline time.Duration) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := l.Accept()
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		return r.conn, r.err
	case <-time.After(deadline):
		// Unblock the pending Accept so its goroutine doesn't outlive the
		// abandoned target; the listener is single-use and its owner is
		// about to drop it anyway.
		l.Close()
		if r := <-ch; r.conn != nil {
			r.conn.Close()
		}
		return nil, ErrPipeAcceptTimeout
	}
}

// DialPipe connects to a named pipe server as a client, used by the
// payload to reach back to the controller. The caller bounds the attempt
// with a context deadline.
func DialPipe(ctx context.Context, pid uint32, end End) (net.Conn, error) {
	conn, err := winio.DialPipeContext(ctx, PipeName(pid, end))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("ipc: dialing %s pipe for pid %d: %w", end, pid, ErrDialTimeout)
		}
		return nil, fmt.Errorf("ipc: dialing %s pipe for pid %d: %w", end, pid, err)
	}
	return conn, nil
}
