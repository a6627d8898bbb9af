//go:build windows

package hooks

import (
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/maroider/asbestos-go/detour"
	"github.com/maroider/asbestos-go/vfs"
)

// fileHookState carries what each file-API wrapper needs to read the
// process-wide mapping table and log without a direct dependency on
// payloadrt (that package is the one that depends on hooks, not the
// other way around).
type fileHookState struct {
	mappings func() vfs.Mappings
	log      *logrus.Entry
}

var (
	openFileDetour     *detour.Detour
	createFileADetour  *detour.Detour
	createFileWDetour  *detour.Detour
	ntCreateFileDetour *detour.Detour
	ntQueryAttrDetour  *detour.Detour
	fileState          fileHookState
)

// InstallFileHooks installs every file-API detour: kernel32's OpenFile,
// CreateFileA, CreateFileW, and ntdll's NtCreateFile,
// NtQueryAttributesFile.
func InstallFileHooks(mappings func() vfs.Mappings, log *logrus.Entry) ([]*detour.Detour, error) {
	fileState = fileHookState{mappings: mappings, log: log.WithField("component", "hooks.file")}

	var installed []*detour.Detour

	specs := []struct {
		target  detour.Target
		wrapper uintptr
		slot    **detour.Detour
	}{
		{detour.Target{Module: "kernel32.dll", Symbol: "OpenFile"}, windows.NewCallback(openFileWrapper), &openFileDetour},
		{detour.Target{Module: "kernel32.dll", Symbol: "CreateFileA"}, windows.NewCallback(createFileAWrapper), &createFileADetour},
		{detour.Target{Module: "kernel32.dll", Symbol: "CreateFileW"}, windows.NewCallback(createFileWWrapper), &createFileWDetour},
		{detour.Target{Module: "ntdll.dll", Symbol: "NtCreateFile"}, windows.NewCallback(ntCreateFileWrapper), &ntCreateFileDetour},
		{detour.Target{Module: "ntdll.dll", Symbol: "NtQueryAttributesFile"}, windows.NewCallback(ntQueryAttributesFileWrapper), &ntQueryAttrDetour},
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

// openFileWrapper intercepts OpenFile(LPCSTR lpFileName, LPOFSTRUCT
// lpReOpenBuff, UINT uStyle). Narrow (8-bit) path arguments are decoded
// for logging only and never rewritten.
func openFileWrapper(lpFileName, lpReOpenBuff, uStyle uintptr) uintptr {
	defer recoverHook()
	if lpFileName != 0 {
		path := windows.BytePtrToString((*byte)(unsafe.Pointer(lpFileName)))
		fileState.log.Debugf("OpenFile(%q): narrow path, not rewritten", path)
	}
	ret, _, _ := openFileTrampoline().Call(lpFileName, lpReOpenBuff, uStyle)
	return ret
}

// createFileAWrapper intercepts CreateFileA; narrow path, not rewritten
// (same policy as OpenFile).
func createFileAWrapper(lpFileName, access, share, sa, disposition, flags, template uintptr) uintptr {
	defer recoverHook()
	if lpFileName != 0 {
		path := windows.BytePtrToString((*byte)(unsafe.Pointer(lpFileName)))
		fileState.log.Debugf("CreateFileA(%q): narrow path, not rewritten", path)
	}
	ret, _, _ := createFileATrampoline().Call(lpFileName, access, share, sa, disposition, flags, template)
	return ret
}

// createFileWWrapper intercepts CreateFileW: the one entry point in this
// category whose path argument is actually rewritten.
func createFileWWrapper(lpFileName, access, share, sa, disposition, flags, template uintptr) uintptr {
	defer recoverHook()
	if lpFileName == 0 {
		ret, _, _ := createFileWTrampoline().Call(lpFileName, access, share, sa, disposition, flags, template)
		return ret
	}

	path := utf16PtrToString((*uint16)(unsafe.Pointer(lpFileName)))
	rewritten, changed := DecidePath(path, fileState.mappings(), fileState.log)
	if !changed {
		ret, _, _ := createFileWTrampoline().Call(lpFileName, access, share, sa, disposition, flags, template)
		return ret
	}

	fileState.log.Infof("CreateFileW: redirecting %q -> %q", path, rewritten)
	buf, err := windows.UTF16PtrFromString(rewritten)
	if err != nil {
		fileState.log.Errorf("encoding rewritten path %q: %v", rewritten, err)
		ret, _, _ := createFileWTrampoline().Call(lpFileName, access, share, sa, disposition, flags, template)
		return ret
	}
	ret, _, _ := createFileWTrampoline().Call(uintptr(unsafe.Pointer(buf)), access, share, sa, disposition, flags, template)
	return ret
}

func utf16PtrToString(p *uint16) string {
	if p == nil {
		return ""
	}
	n := 0
	for ptr := unsafe.Pointer(p); *(*uint16)(ptr) != 0; n++ {
		ptr = unsafe.Add(ptr, 2)
	}
	slice := unsafe.Slice(p, n)
	return windows.UTF16ToString(slice)
}

func openFileTrampoline() trampolineCaller {
	return trampolineCaller{addr: openFileDetour.Trampoline().Addr()}
}

func createFileATrampoline() trampolineCaller {
	return trampolineCaller{addr: createFileADetour.Trampoline().Addr()}
}

func createFileWTrampoline() trampolineCaller {
	return trampolineCaller{addr: createFileWDetour.Trampoline().Addr()}
}

// trampolineCaller adapts a raw trampoline address to syscall.Syscall9-style
// invocation with the "system" (stdcall on 386, regular on amd64) calling
// convention.
type trampolineCaller struct {
	addr uintptr
}

func (t trampolineCaller) Call(args ...uintptr) (r1, r2 uintptr, lastErr error) {
	return callTrampoline(t.addr, args)
}

func recoverHook() {
	if r := recover(); r != nil {
		panicHook(r)
	}
}

// panicHook is set by payloadrt at init time (see installer_windows.go's
// importer) so hooks need not import payloadrt directly. It defaults to a
// no-op so unit tests that call wrapper logic directly don't require the
// real runtime wiring.
var panicHook = func(r interface{}) {}

// SetPanicHook lets the payload runtime install its recover-and-hang
// handler without hooks importing payloadrt.
func SetPanicHook(fn func(interface{})) {
	panicHook = fn
}
