// Package wire defines the controller-payload message protocol and its
// length-framed binary encoding.
package wire

import "github.com/maroider/asbestos-go/vfs"

// Tag identifies which Message variant a frame carries. Tags are dense
// discriminants assigned in source order; reordering them is a wire
// format break and requires bumping ipc.Version.
type Tag byte

const (
	TagStartupInfo Tag = iota
	TagLogMessage
	TagInitialized
	TagInitializationFailed
	TagProcessSpawned
	TagProcessDetach
)

// Level is a LogMessage severity, matching the payload's logrus levels.
type Level byte

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// StartupInfo is sent once by the controller to each payload (including
// recursively to children), configuring its detours and mapping table.
type StartupInfo struct {
	MainThreadSuspended  bool
	DontHookSubprocesses bool
	ShowConsole          bool
	Mappings             vfs.Mappings
}

// LogMessage carries one structured log record from payload to controller.
type LogMessage struct {
	Level      Level
	ModulePath string
	File       string
	Line       uint32
	Message    string
}

// ProcessSpawned reports that the process-creation detour observed a new
// child process identifier.
type ProcessSpawned struct {
	PID uint32
}

// Message is the tagged variant carried over the wire: StartupInfo |
// LogMessage | Initialized | InitializationFailed | ProcessSpawned |
// ProcessDetach. Exactly one of the typed fields is meaningful, selected
// by Tag.
type Message struct {
	Tag Tag

	StartupInfo          StartupInfo
	LogMessage           LogMessage
	InitializationFailed string
	ProcessSpawned       ProcessSpawned
}

func NewStartupInfo(si StartupInfo) Message {
	return Message{Tag: TagStartupInfo, StartupInfo: si}
}

func NewLogMessage(lm LogMessage) Message {
	return Message{Tag: TagLogMessage, LogMessage: lm}
}

func NewInitialized() Message {
	return Message{Tag: TagInitialized}
}

func NewInitializationFailed(reason string) Message {
	return Message{Tag: TagInitializationFailed, InitializationFailed: reason}
}

func NewProcessSpawned(pid uint32) Message {
	return Message{Tag: TagProcessSpawned, ProcessSpawned: ProcessSpawned{PID: pid}}
}

func NewProcessDetach() Message {
	return Message{Tag: TagProcessDetach}
}
