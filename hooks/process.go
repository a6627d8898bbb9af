package hooks

import (
	"github.com/sirupsen/logrus"

	"github.com/maroider/asbestos-go/vfs"
)

// CreateSuspended is CREATE_SUSPENDED, ORed into a process-creation
// flags argument unconditionally so the controller has a window to inject
// the payload before any child code runs.
const CreateSuspended uint32 = 0x00000004

// ProcessCreationTrampoline is the narrow interface the process-creation
// wrapper needs from the underlying trampoline, kept abstract so it can
// be exercised with a recording stub in tests.
type ProcessCreationTrampoline interface {
	// Call invokes the original CreateProcess-family entry point and
	// reports success plus the created process's PID.
	Call(path string, flags uint32) (ok bool, pid uint32, err error)
}

// DecideProcessCreation implements the process-creation wrapper body:
// resolve the executable path, force CREATE_SUSPENDED, invoke the
// trampoline, and report the outcome. The caller (process_windows.go) is
// responsible for translating the outcome into a wire.Message and
// emitting it over the connection.
func DecideProcessCreation(path string, flags uint32, mappings vfs.Mappings, tramp ProcessCreationTrampoline, log *logrus.Entry) ProcessCreationOutcome {
	resolvedPath, changed := DecidePath(path, mappings, log)
	newFlags := flags | CreateSuspended

	ok, pid, err := tramp.Call(resolvedPath, newFlags)
	if err != nil {
		log.Errorf("creating process %q (resolved from %q, changed=%v): %v", resolvedPath, path, changed, err)
		return ProcessCreationOutcome{Failed: true, Err: err}
	}
	if !ok {
		return ProcessCreationOutcome{Failed: true}
	}
	return ProcessCreationOutcome{PID: pid}
}

// ProcessCreationOutcome is the pure-logic result of DecideProcessCreation,
// translated to a wire.Message by the caller.
type ProcessCreationOutcome struct {
	Failed bool
	Err    error
	PID    uint32
}
