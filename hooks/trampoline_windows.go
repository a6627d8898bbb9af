//go:build windows

package hooks

import "golang.org/x/sys/windows"

// callTrampoline invokes the native code at addr using the Windows
// calling convention, padding args to whichever fixed-arity
// golang.org/x/sys/windows.SyscallN variant covers them. Every detour
// trampoline is a short, argument-preserving jump back into the original
// function's prologue followed by the rest of that function, so calling
// it is exactly like calling the original export: same arguments, same
// convention.
func callTrampoline(addr uintptr, args []uintptr) (r1, r2 uintptr, lastErr error) {
	switch {
	case len(args) <= 6:
		var a [6]uintptr
		copy(a[:], args)
		return windows.Syscall6(addr, uintptr(len(args)), a[0], a[1], a[2], a[3], a[4], a[5])
	case len(args) <= 9:
		var a [9]uintptr
		copy(a[:], args)
		return windows.Syscall9(addr, uintptr(len(args)), a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7], a[8])
	default:
		var a [12]uintptr
		copy(a[:], args)
		return windows.Syscall12(addr, uintptr(len(args)), a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7], a[8], a[9], a[10], a[11])
	}
}
