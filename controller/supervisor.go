package controller

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maroider/asbestos-go/ipc"
	"github.com/maroider/asbestos-go/wire"
)

// pollInterval bounds how long a single TryReadMessage call blocks a
// supervised connection before moving on to the next one.
const pollInterval = 10 * time.Millisecond

// idleSleep is how long runIteration sleeps when an iteration leaves the
// supervised map empty; Run then returns, since it stops once no pid is
// left to supervise.
const idleSleep = 100 * time.Millisecond

// Injector performs the inject-and-connect sequence against a newly
// reported child pid, used by the supervisor when it observes
// ProcessSpawned.
type Injector interface {
	InjectAndConnect(pid uint32, si wire.StartupInfo) (*ipc.Connection, error)
}

// Supervisor tracks the controller's pid -> Connection map and drives
// the per-iteration poll/dispatch loop. It has no notion of "the root
// target" versus "a child": every supervised pid, original or injected,
// is treated identically.
type Supervisor struct {
	log      *logrus.Logger
	injector Injector
	startup  wire.StartupInfo

	conns       map[uint32]*ipc.Connection
	interrupted atomic.Bool
}

// NewSupervisor builds a Supervisor that dispatches newly reported
// children to injector, sending each one the same StartupInfo template
// (mappings and hook flags) used for the original target, so the hook
// options propagate down the spawn chain unchanged. A child's copy always
// has MainThreadSuspended set, since the process-creation detour starts
// every child suspended and its payload must resume it.
func NewSupervisor(log *logrus.Logger, injector Injector, startup wire.StartupInfo) *Supervisor {
	return &Supervisor{
		log:      log,
		injector: injector,
		startup:  startup,
		conns:    make(map[uint32]*ipc.Connection),
	}
}

// Interrupt requests that Run stop after its current iteration. Safe to
// call from a different goroutine than Run, e.g. the OS signal-handling
// goroutine in cmd/controller/main.go; the flag is observed once per
// iteration.
func (s *Supervisor) Interrupt() {
	s.interrupted.Store(true)
}

// Add brings pid under supervision, typically the initial injected or
// wrapped target before Run starts.
func (s *Supervisor) Add(pid uint32, conn *ipc.Connection) {
	s.conns[pid] = conn
}

// Len reports how many pids are currently supervised.
func (s *Supervisor) Len() int {
	return len(s.conns)
}

// Run drives the supervisor loop until the supervised set becomes empty
// or Interrupt is called.
func (s *Supervisor) Run() {
	for {
		s.runIteration()
		if s.interrupted.Load() {
			return
		}
		if len(s.conns) == 0 {
			return
		}
	}
}

type insertion struct {
	pid  uint32
	conn *ipc.Connection
}

// runIteration polls every supervised connection once, collecting
// removals (morgue) and insertions (nursery) without mutating the map
// mid-iteration, then applies them. Discovered children are folded in at
// iteration end, never supervised recursively inline.
func (s *Supervisor) runIteration() {
	var morgue []uint32
	var nursery []insertion

	for pid, conn := range s.conns {
		msg, ok, err := conn.TryReadMessage(pollInterval)
		if err != nil {
			if errors.Is(err, ipc.ErrDisconnected) {
				morgue = append(morgue, pid)
			} else {
				s.log.WithField("pid", pid).Errorf("reading from supervised connection: %v", err)
			}
			continue
		}
		if !ok {
			continue
		}

		switch msg.Tag {
		case wire.TagLogMessage:
			s.relayLog(pid, msg.LogMessage)

		case wire.TagInitialized:
			s.log.WithField("pid", pid).Info("payload initialized")

		case wire.TagInitializationFailed:
			s.log.WithField("pid", pid).Errorf("payload failed to initialize: %s", msg.InitializationFailed)

		case wire.TagProcessDetach:
			s.log.WithField("pid", pid).Info("payload detached")
			morgue = append(morgue, pid)

		case wire.TagProcessSpawned:
			child := msg.ProcessSpawned.PID
			childStartup := s.startup
			childStartup.MainThreadSuspended = true
			childConn, err := s.injector.InjectAndConnect(child, childStartup)
			if err != nil {
				s.log.WithField("pid", child).Errorf("injecting into spawned child: %v", err)
				continue
			}
			nursery = append(nursery, insertion{pid: child, conn: childConn})

		case wire.TagStartupInfo:
			// Never sent payload -> controller; ignored.
		}
	}

	for _, pid := range morgue {
		if conn, found := s.conns[pid]; found {
			conn.Close()
		}
		delete(s.conns, pid)
	}
	for _, ins := range nursery {
		s.conns[ins.pid] = ins.conn
	}

	if len(s.conns) == 0 {
		time.Sleep(idleSleep)
	}
}

// relayLog re-emits a payload's LogMessage through the controller's own
// logger, labelled with pid and source location so payload and controller
// entries render identically in one stream.
func (s *Supervisor) relayLog(pid uint32, lm wire.LogMessage) {
	entry := s.log.WithFields(logrus.Fields{
		"pid":    pid,
		"module": lm.ModulePath,
		"file":   lm.File,
		"line":   lm.Line,
	})
	switch lm.Level {
	case wire.LevelError:
		entry.Error(lm.Message)
	case wire.LevelWarn:
		entry.Warn(lm.Message)
	case wire.LevelInfo:
		entry.Info(lm.Message)
	case wire.LevelDebug:
		entry.Debug(lm.Message)
	default:
		entry.Trace(lm.Message)
	}
}
