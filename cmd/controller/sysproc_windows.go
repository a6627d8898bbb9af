//go:build windows

package main

import "syscall"

// suspendedSysProcAttr returns the SysProcAttr that launches a child with
// CREATE_SUSPENDED set, matching the flag the process-creation detour ORs
// in for every intercepted CreateProcessW call (hooks.CreateSuspended).
func suspendedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: 0x00000004}
}
