//go:build windows

package hooks

import (
	"fmt"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/maroider/asbestos-go/detour"
	"github.com/maroider/asbestos-go/vfs"
)

var (
	createProcessADetour *detour.Detour
	createProcessWDetour *detour.Detour
	processState         fileHookState
)

// InstallProcessHooks installs the CreateProcessA/CreateProcessW detour
// pair. CreateProcessAsUser and the WithLogon/WithToken variants are not
// hooked.
func InstallProcessHooks(mappings func() vfs.Mappings, log *logrus.Entry) ([]*detour.Detour, error) {
	processState = fileHookState{mappings: mappings, log: log.WithField("component", "hooks.process")}

	var installed []*detour.Detour

	specs := []struct {
		target  detour.Target
		wrapper uintptr
		slot    **detour.Detour
	}{
		{detour.Target{Module: "kernel32.dll", Symbol: "CreateProcessA"}, windows.NewCallback(createProcessAWrapper), &createProcessADetour},
		{detour.Target{Module: "kernel32.dll", Symbol: "CreateProcessW"}, windows.NewCallback(createProcessWWrapper), &createProcessWDetour},
	}

	for _, s := range specs {
		d, err := detour.InstallOn(detour.WindowsPatcher{}, s.target, detour.WrapperFunc(s.wrapper))
		if err != nil {
			return installed, err
		}
		*s.slot = d
		installed = append(installed, d)
	}

	return installed, nil
}

// processInformation mirrors PROCESS_INFORMATION, used only to read back
// dwProcessId after a successful call.
type processInformation struct {
	Process   windows.Handle
	Thread    windows.Handle
	ProcessID uint32
	ThreadID  uint32
}

// createProcessWWrapper intercepts CreateProcessW. The executable path may
// arrive via lpApplicationName, lpCommandLine, or both (Windows resolves
// lpCommandLine's first token when lpApplicationName is null); only the
// lpApplicationName case is rewritten, matching what a trampoline can
// safely splice back in without re-tokenizing a caller-owned command
// line buffer.
func createProcessWWrapper(
	lpApplicationName, lpCommandLine, lpProcessAttributes, lpThreadAttributes,
	bInheritHandles, dwCreationFlags, lpEnvironment, lpCurrentDirectory,
	lpStartupInfo, lpProcessInformation uintptr,
) uintptr {
	defer recoverHook()

	var path string
	if lpApplicationName != 0 {
		path = utf16PtrToString((*uint16)(unsafe.Pointer(lpApplicationName)))
	} else if lpCommandLine != 0 {
		path = utf16PtrToString((*uint16)(unsafe.Pointer(lpCommandLine)))
	}

	tramp := &createProcessWTrampoline{
		lpApplicationName:    lpApplicationName,
		lpCommandLine:        lpCommandLine,
		lpProcessAttributes:  lpProcessAttributes,
		lpThreadAttributes:   lpThreadAttributes,
		bInheritHandles:      bInheritHandles,
		lpEnvironment:        lpEnvironment,
		lpCurrentDirectory:   lpCurrentDirectory,
		lpStartupInfo:        lpStartupInfo,
		lpProcessInformation: lpProcessInformation,
	}

	outcome := DecideProcessCreation(path, uint32(dwCreationFlags), processState.mappings(), tramp, processState.log)

	if outcome.Failed {
		return 0
	}

	ReportProcessSpawned(outcome.PID)

	return 1
}

// createProcessAWrapper intercepts CreateProcessA. The narrow executable
// path is decoded for logging and resolution, but never re-encoded into
// the caller's buffers; the child is still forced suspended and reported,
// same as the wide path.
func createProcessAWrapper(
	lpApplicationName, lpCommandLine, lpProcessAttributes, lpThreadAttributes,
	bInheritHandles, dwCreationFlags, lpEnvironment, lpCurrentDirectory,
	lpStartupInfo, lpProcessInformation uintptr,
) uintptr {
	defer recoverHook()

	var path string
	if lpApplicationName != 0 {
		path = windows.BytePtrToString((*byte)(unsafe.Pointer(lpApplicationName)))
	} else if lpCommandLine != 0 {
		path = windows.BytePtrToString((*byte)(unsafe.Pointer(lpCommandLine)))
	}
	if path != "" {
		processState.log.Debugf("CreateProcessA(%q): narrow path, not rewritten", path)
	}

	tramp := &createProcessATrampoline{
		lpApplicationName:    lpApplicationName,
		lpCommandLine:        lpCommandLine,
		lpProcessAttributes:  lpProcessAttributes,
		lpThreadAttributes:   lpThreadAttributes,
		bInheritHandles:      bInheritHandles,
		lpEnvironment:        lpEnvironment,
		lpCurrentDirectory:   lpCurrentDirectory,
		lpStartupInfo:        lpStartupInfo,
		lpProcessInformation: lpProcessInformation,
	}

	outcome := DecideProcessCreation(path, uint32(dwCreationFlags), processState.mappings(), tramp, processState.log)

	if outcome.Failed {
		return 0
	}

	ReportProcessSpawned(outcome.PID)

	return 1
}

// createProcessATrampoline re-invokes the original CreateProcessA with
// forced flags. The resolved path is discarded: narrow entry points are
// observed but not rewritten, so the trampoline always receives the
// caller's original buffers.
type createProcessATrampoline struct {
	lpApplicationName, lpCommandLine        uintptr
	lpProcessAttributes, lpThreadAttributes uintptr
	bInheritHandles                         uintptr
	lpEnvironment, lpCurrentDirectory       uintptr
	lpStartupInfo, lpProcessInformation     uintptr
}

func (t *createProcessATrampoline) Call(path string, flags uint32) (ok bool, pid uint32, err error) {
	ret, _, callErr := trampolineCaller{addr: createProcessADetour.Trampoline().Addr()}.Call(
		t.lpApplicationName, t.lpCommandLine, t.lpProcessAttributes, t.lpThreadAttributes,
		t.bInheritHandles, uintptr(flags), t.lpEnvironment, t.lpCurrentDirectory,
		t.lpStartupInfo, t.lpProcessInformation,
	)
	if ret == 0 {
		return false, 0, callErr
	}

	var gotPID uint32
	if t.lpProcessInformation != 0 {
		gotPID = (*processInformation)(unsafe.Pointer(t.lpProcessInformation)).ProcessID
	}
	return true, gotPID, nil
}

// createProcessWTrampoline adapts the fixed CreateProcessW argument list to
// hooks.ProcessCreationTrampoline, re-invoking the original export with a
// possibly-rewritten path and forced flags while leaving every other
// argument exactly as the caller supplied it.
type createProcessWTrampoline struct {
	lpApplicationName, lpCommandLine        uintptr
	lpProcessAttributes, lpThreadAttributes uintptr
	bInheritHandles                         uintptr
	lpEnvironment, lpCurrentDirectory       uintptr
	lpStartupInfo, lpProcessInformation     uintptr
}

func (t *createProcessWTrampoline) Call(path string, flags uint32) (ok bool, pid uint32, err error) {
	appName := t.lpApplicationName
	if appName != 0 {
		buf, uerr := windows.UTF16PtrFromString(path)
		if uerr != nil {
			return false, 0, fmt.Errorf("encoding rewritten application name: %w", uerr)
		}
		appName = uintptr(unsafe.Pointer(buf))
	}

	ret, _, callErr := trampolineCaller{addr: createProcessWDetour.Trampoline().Addr()}.Call(
		appName, t.lpCommandLine, t.lpProcessAttributes, t.lpThreadAttributes,
		t.bInheritHandles, uintptr(flags), t.lpEnvironment, t.lpCurrentDirectory,
		t.lpStartupInfo, t.lpProcessInformation,
	)
	if ret == 0 {
		return false, 0, callErr
	}

	var gotPID uint32
	if t.lpProcessInformation != 0 {
		gotPID = (*processInformation)(unsafe.Pointer(t.lpProcessInformation)).ProcessID
	}
	return true, gotPID, nil
}

// ReportProcessSpawned is set by payloadrt at init time so a successful
// process-creation hook can report the spawned child as a
// wire.ProcessSpawned message without hooks importing payloadrt directly
// (see SetPanicHook for the same import-cycle-avoiding pattern).
var ReportProcessSpawned = func(pid uint32) {}
