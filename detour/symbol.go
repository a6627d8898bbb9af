package detour

// WrapperFunc is a wrapper's entry point, expressed as the address of a
// native (non-Go-calling-convention) function. In practice each concrete
// hook in the `hooks` package obtains this address via
// golang.org/x/sys/windows.NewCallback, which generates the small stdcall
// trampoline the Windows loader needs to call back into a Go function
// pointer. Kept as a distinct type (rather than a bare uintptr) so call
// sites read as "address of an installable wrapper", not "some address".
type WrapperFunc uintptr

// InstallOn installs a detour for target, redirecting it to wrapper and
// returning the Detour handle used to reach the original via its
// Trampoline.
func InstallOn(p patcher, target Target, wrapper WrapperFunc) (*Detour, error) {
	return Install(p, target, uintptr(wrapper))
}
