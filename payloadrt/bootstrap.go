package payloadrt

import (
	"fmt"
	"io"

	"github.com/maroider/asbestos-go/ipc"
	"github.com/maroider/asbestos-go/wire"
)

// Installer performs the platform-specific half of bootstrap: installing
// detours and manipulating the host process's threads/console. Concrete
// implementations live behind a Windows build tag (installer_windows.go);
// this package's Bootstrap sequencing is kept platform-independent and
// testable with a fake Installer.
type Installer interface {
	// InstallFileHooks installs the OpenFile/CreateFileA/CreateFileW and
	// NtCreateFile/NtQueryAttributesFile detours.
	InstallFileHooks() error
	// InstallProcessHook installs the process-creation detour; only
	// called when StartupInfo.DontHookSubprocesses is false.
	InstallProcessHook() error
	// ShowConsole allocates a visible console for the process, a no-op
	// if one is already owned.
	ShowConsole()
	// ResumeOtherThreads resumes every thread in the current process
	// other than the one running the attach callback.
	ResumeOtherThreads()
}

// Bootstrap implements the module-attach sequence: wrap the two pipe
// ends (already dialed by the caller, since dialing is platform-specific),
// read one StartupInfo message, configure console visibility, install
// detours, publish the mapping table and connection, resume the suspended
// main thread if requested, and emit Initialized.
//
// On any failure before publishing the connection, Bootstrap emits
// InitializationFailed over the not-yet-published connection and returns
// the error.
func Bootstrap(rx io.ReadCloser, tx io.WriteCloser, installer Installer) error {
	conn := ipc.New(rx, tx)

	msg, err := conn.ReadMessage()
	if err != nil {
		return fail(conn, fmt.Errorf("reading startup info: %w", err))
	}

	var si wire.StartupInfo
	if msg.Tag == wire.TagStartupInfo {
		si = msg.StartupInfo
	}
	// Any other message yields the default startup config; si's zero
	// value is exactly that default.

	if si.ShowConsole {
		installer.ShowConsole()
	}

	if err := installer.InstallFileHooks(); err != nil {
		return fail(conn, fmt.Errorf("installing file detours: %w", err))
	}

	if !si.DontHookSubprocesses {
		if err := installer.InstallProcessHook(); err != nil {
			return fail(conn, fmt.Errorf("installing process-creation detour: %w", err))
		}
	}

	SetMappings(si.Mappings)
	SetConn(conn)

	if si.MainThreadSuspended {
		installer.ResumeOtherThreads()
	}

	return conn.WriteMessage(wire.NewInitialized())
}

func fail(conn *ipc.Connection, cause error) error {
	conn.WriteMessage(wire.NewInitializationFailed(cause.Error()))
	conn.Close()
	return cause
}
