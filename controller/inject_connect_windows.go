//go:build windows

package controller

import (
	"fmt"
	"time"

	"github.com/maroider/asbestos-go/ipc"
	"github.com/maroider/asbestos-go/wire"
)

// pipeAcceptDeadline bounds how long the controller waits for an
// injected payload to dial back before giving up on the target.
const pipeAcceptDeadline = 3000 * time.Millisecond

// ProcessInjector performs the platform mechanics of getting a payload
// module loaded into a running process: everything inject-and-connect
// needs that isn't pipe plumbing. Concrete implementation: inject_windows.go.
type ProcessInjector interface {
	Inject(pid uint32) error
}

// WindowsInjector is the controller's Injector (controller.Injector),
// combining ProcessInjector with the pipe-server half of inject-and-connect.
type WindowsInjector struct {
	Process ProcessInjector
}

// InjectAndConnect creates two listening pipe servers, spawns the
// injection, accepts both ends with a deadline, wraps them into a
// Connection, and sends StartupInfo. Any failure aborts this target
// without touching others; the caller is expected to log and continue.
func (w *WindowsInjector) InjectAndConnect(pid uint32, si wire.StartupInfo) (*ipc.Connection, error) {
	rxListener, err := ipc.Listen(pid, ipc.Rx)
	if err != nil {
		return nil, fmt.Errorf("controller: listening for pid %d: %w", pid, err)
	}
	defer rxListener.Close()

	txListener, err := ipc.Listen(pid, ipc.Tx)
	if err != nil {
		return nil, fmt.Errorf("controller: listening for pid %d: %w", pid, err)
	}
	defer txListener.Close()

	injectErr := make(chan error, 1)
	go func() {
		injectErr <- w.Process.Inject(pid)
	}()

	rxConn, err := ipc.Accept(rxListener, pipeAcceptDeadline)
	if err != nil {
		<-injectErr
		return nil, fmt.Errorf("controller: accepting rx pipe for pid %d: %w", pid, err)
	}
	txConn, err := ipc.Accept(txListener, pipeAcceptDeadline)
	if err != nil {
		rxConn.Close()
		<-injectErr
		return nil, fmt.Errorf("controller: accepting tx pipe for pid %d: %w", pid, err)
	}

	if err := <-injectErr; err != nil {
		rxConn.Close()
		txConn.Close()
		return nil, fmt.Errorf("controller: injecting into pid %d: %w", pid, err)
	}

	conn := ipc.New(rxConn, txConn)
	if err := conn.WriteMessage(wire.NewStartupInfo(si)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("controller: sending startup info to pid %d: %w", pid, err)
	}

	return conn, nil
}
