package payloadrt

// forceConsole is set by the platform-specific installer wiring
// (installer_windows.go) to the real console-allocation primitive. Kept as
// a package variable rather than a parameter so InstallPanicHook can be
// called at the very top of module-attach, before an Installer exists.
var forceConsole = func() {}

// InstallPanicHook installs a process-wide recover-and-hang handler: on
// the first panic anywhere in the payload, it forces a visible console
// (so diagnostic output survives in a headless target) and then blocks
// forever rather than unwinding further, deliberately preserving process
// state for a debugger to attach to. It must be installed before anything
// else during module-attach.
//
// Go's runtime does not offer a global panic hook; the shape this takes
// in a Go payload is a deferred recover wrapped around every detour
// wrapper's body (see hooks/*_windows.go) that calls Recovered instead of
// re-panicking.
func InstallPanicHook() {
	// Nothing to register up front: Recovered is called directly by
	// each detour wrapper's deferred recover. This function exists so a
	// future global mechanism (e.g. a SetUnhandledExceptionFilter hook)
	// has an obvious place to live in the attach sequence.
}

// Recovered is invoked from a detour wrapper's deferred recover when r is
// non-nil. It never returns.
func Recovered(r interface{}) {
	forceConsole()
	select {}
}
