// Package detour implements the generic API-interception framework:
// locate a symbol, install a trampoline-based hot patch that redirects it
// to a wrapper, and hand back a callable that reaches the original
// implementation.
package detour

import "fmt"

// ErrSymbolNotFound is returned when a Target's symbol cannot be
// resolved in its module. It is fatal to payload initialization.
type ErrSymbolNotFound struct {
	Module string
	Symbol string
}

func (e *ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("detour: symbol %q not found in module %q", e.Symbol, e.Module)
}

// Target names an exported entry point to intercept.
type Target struct {
	Module string
	Symbol string
}

// Trampoline is the opaque callable a Detour retains to invoke the
// original implementation, bypassing the installed wrapper. Its signature
// is necessarily untyped at this layer; concrete hook packages (see
// `hooks`) wrap it behind a typed function pointer matching the
// intercepted entry point's native calling convention.
type Trampoline interface {
	// Addr returns the address a wrapper must call through, never the
	// original symbol address, which now redirects to the wrapper itself.
	Addr() uintptr
}

// patcher is the platform-specific mechanism that resolves a symbol and
// installs a redirect at its prologue. It is implemented by
// patch_windows.go; every exported step here is platform-independent
// bookkeeping around that single primitive.
type patcher interface {
	resolve(target Target) (uintptr, error)
	install(originalAddr, wrapperAddr uintptr) (trampolineAddr uintptr, enable func() error, err error)
}

// Detour is an installed hook: the original function's prologue has been
// patched to jump into the wrapper, and Trampoline reaches the preserved
// original.
type Detour struct {
	target     Target
	trampoline trampolineAddr
	enabled    bool
}

type trampolineAddr uintptr

func (t trampolineAddr) Addr() uintptr { return uintptr(t) }

// Install resolves target in its module, patches its prologue to
// redirect to wrapperAddr, and enables the detour, treating all three
// steps as a single transaction: if any step fails, the detour is
// considered not installed and Install returns a non-nil error.
func Install(p patcher, target Target, wrapperAddr uintptr) (*Detour, error) {
	originalAddr, err := p.resolve(target)
	if err != nil {
		return nil, err
	}

	trampAddr, enable, err := p.install(originalAddr, wrapperAddr)
	if err != nil {
		return nil, fmt.Errorf("detour: installing hook on %s!%s: %w", target.Module, target.Symbol, err)
	}

	if err := enable(); err != nil {
		return nil, fmt.Errorf("detour: enabling hook on %s!%s: %w", target.Module, target.Symbol, err)
	}

	return &Detour{
		target:     target,
		trampoline: trampolineAddr(trampAddr),
		enabled:    true,
	}, nil
}

// Trampoline returns the callable that reaches the original
// implementation.
func (d *Detour) Trampoline() Trampoline {
	return d.trampoline
}

// Target returns the module/symbol this Detour was installed on.
func (d *Detour) Target() Target {
	return d.target
}
