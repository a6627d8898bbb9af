//go:build windows

package payloadrt

import (
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/maroider/asbestos-go/detour"
	"github.com/maroider/asbestos-go/hooks"
	"github.com/maroider/asbestos-go/ipc"
	"github.com/maroider/asbestos-go/wire"
)

func init() {
	forceConsole = allocConsole
	hooks.SetPanicHook(Recovered)
	hooks.ReportProcessSpawned = func(pid uint32) {
		WithConn(func(conn *ipc.Connection) {
			if conn == nil {
				return
			}
			conn.WriteMessage(wire.NewProcessSpawned(pid))
		})
	}
}

// AllocConsole has no wrapper in x/sys/windows.
var procAllocConsole = windows.NewLazySystemDLL("kernel32.dll").NewProc("AllocConsole")

// THREAD_SUSPEND_RESUME access right, absent from x/sys/windows.
const threadSuspendResume = 0x0002

var consoleOnce struct {
	mu    sync.Mutex
	owned bool
}

// allocConsole allocates a visible console for this process,
// idempotently: repeated show-console requests (e.g. from a spawned
// child's own StartupInfo) must not double-allocate.
func allocConsole() {
	consoleOnce.mu.Lock()
	defer consoleOnce.mu.Unlock()
	if consoleOnce.owned {
		return
	}
	if ret, _, _ := procAllocConsole.Call(); ret != 0 {
		consoleOnce.owned = true
	}
}

// WindowsInstaller is the real Installer (payloadrt.Installer) used on
// Windows, wiring together the detour framework and concrete hooks.
type WindowsInstaller struct {
	fileDetours    []*detour.Detour
	processDetours []*detour.Detour
}

func NewWindowsInstaller() *WindowsInstaller {
	return &WindowsInstaller{}
}

func (w *WindowsInstaller) ShowConsole() {
	allocConsole()
}

func (w *WindowsInstaller) InstallFileHooks() error {
	installed, err := hooks.InstallFileHooks(Mappings, logrus.NewEntry(Logger()))
	if err != nil {
		return err
	}
	w.fileDetours = installed
	return nil
}

func (w *WindowsInstaller) InstallProcessHook() error {
	installed, err := hooks.InstallProcessHooks(Mappings, logrus.NewEntry(Logger()))
	if err != nil {
		return err
	}
	w.processDetours = installed
	return nil
}

// ResumeOtherThreads iterates every thread in the current process via a
// CreateToolhelp32Snapshot walk and resumes every one but the thread
// running the attach callback.
func (w *WindowsInstaller) ResumeOtherThreads() {
	pid := windows.GetCurrentProcessId()
	current := windows.GetCurrentThreadId()

	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ThreadEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Thread32First(snapshot, &entry); err != nil {
		return
	}
	for {
		if entry.OwnerProcessID == pid && entry.ThreadID != current {
			if h, err := windows.OpenThread(threadSuspendResume, false, entry.ThreadID); err == nil {
				windows.ResumeThread(h)
				windows.CloseHandle(h)
			}
		}
		if err := windows.Thread32Next(snapshot, &entry); err != nil {
			break
		}
	}
}
