package controller

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"github.com/maroider/asbestos-go/ipc"
	"github.com/maroider/asbestos-go/wire"
)

// discardWriteCloser satisfies io.WriteCloser without persisting
// anything, standing in for the controller's outbound pipe in tests that
// only care about what the controller reads.
type discardWriteCloser struct{}

func (discardWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (discardWriteCloser) Close() error                { return nil }

// connectionWithQueuedMessages builds an ipc.Connection whose ReadMessage
// calls return msgs in order, then io.EOF (surfaced as ErrDisconnected).
func connectionWithQueuedMessages(t *testing.T, msgs ...wire.Message) *ipc.Connection {
	t.Helper()
	var buf bytes.Buffer
	for _, m := range msgs {
		if err := wire.WriteFrame(&buf, m); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	return ipc.New(io.NopCloser(&buf), discardWriteCloser{})
}

type fakeInjector struct {
	conn   *ipc.Connection
	err    error
	gotPID uint32
}

func (f *fakeInjector) InjectAndConnect(pid uint32, si wire.StartupInfo) (*ipc.Connection, error) {
	f.gotPID = pid
	return f.conn, f.err
}

func newTestLogger() (*logrus.Logger, *logrustest.Hook) {
	return logrustest.NewNullLogger()
}

func TestSupervisorRelaysLogMessage(t *testing.T) {
	conn := connectionWithQueuedMessages(t, wire.NewLogMessage(wire.LogMessage{
		Level:   wire.LevelInfo,
		Message: "hello",
	}))
	log, hook := newTestLogger()
	sup := NewSupervisor(log, &fakeInjector{}, wire.StartupInfo{})
	sup.Add(1, conn)

	sup.runIteration()

	found := false
	for _, e := range hook.AllEntries() {
		if e.Message == "hello" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a relayed log entry, got: %+v", hook.AllEntries())
	}
}

func TestSupervisorDetachRemovesPid(t *testing.T) {
	conn := connectionWithQueuedMessages(t, wire.NewProcessDetach())
	log, _ := newTestLogger()
	sup := NewSupervisor(log, &fakeInjector{}, wire.StartupInfo{})
	sup.Add(7, conn)

	sup.runIteration()

	if sup.Len() != 0 {
		t.Fatalf("expected pid 7 to be removed, got %d supervised", sup.Len())
	}
}

func TestSupervisorSpawnedChildTriggersInjection(t *testing.T) {
	conn := connectionWithQueuedMessages(t, wire.NewProcessSpawned(42))
	childConn := connectionWithQueuedMessages(t)
	log, _ := newTestLogger()
	injector := &fakeInjector{conn: childConn}
	sup := NewSupervisor(log, injector, wire.StartupInfo{})
	sup.Add(1, conn)

	sup.runIteration()

	if injector.gotPID != 42 {
		t.Fatalf("expected injector called with pid 42, got %d", injector.gotPID)
	}
	if _, ok := sup.conns[42]; !ok {
		t.Fatalf("expected pid 42 to be added to the supervised set")
	}
}

func TestSupervisorInjectionFailureDoesNotAddPid(t *testing.T) {
	conn := connectionWithQueuedMessages(t, wire.NewProcessSpawned(99))
	log, _ := newTestLogger()
	injector := &fakeInjector{err: io.ErrClosedPipe}
	sup := NewSupervisor(log, injector, wire.StartupInfo{})
	sup.Add(1, conn)

	sup.runIteration()

	if _, ok := sup.conns[99]; ok {
		t.Fatalf("expected pid 99 not to be added after a failed injection")
	}
}
