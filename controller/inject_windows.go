//go:build windows

package controller

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// DLLInjector is the concrete ProcessInjector: classic
// OpenProcess/VirtualAllocEx/WriteProcessMemory/CreateRemoteThread DLL
// injection, targeting kernel32!LoadLibraryW.
type DLLInjector struct {
	// PayloadPath is the absolute path to the payload DLL built for
	// -buildmode=c-shared (cmd/payload).
	PayloadPath string
}

const (
	processAllVA = windows.PROCESS_CREATE_THREAD | windows.PROCESS_QUERY_INFORMATION |
		windows.PROCESS_VM_OPERATION | windows.PROCESS_VM_WRITE | windows.PROCESS_VM_READ
)

// CreateRemoteThread has no wrapper in x/sys/windows.
var procCreateRemoteThread = windows.NewLazySystemDLL("kernel32.dll").NewProc("CreateRemoteThread")

func (d *DLLInjector) Inject(pid uint32) error {
	proc, err := windows.OpenProcess(processAllVA, false, pid)
	if err != nil {
		return fmt.Errorf("controller: OpenProcess(%d): %w", pid, err)
	}
	defer windows.CloseHandle(proc)

	pathBuf, err := windows.UTF16FromString(d.PayloadPath)
	if err != nil {
		return fmt.Errorf("controller: encoding payload path: %w", err)
	}
	size := uintptr(len(pathBuf) * 2)

	remoteMem, err := windows.VirtualAllocEx(proc, 0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return fmt.Errorf("controller: VirtualAllocEx(%d): %w", pid, err)
	}
	defer windows.VirtualFreeEx(proc, remoteMem, 0, windows.MEM_RELEASE)

	var written uintptr
	if err := windows.WriteProcessMemory(proc, remoteMem, (*byte)(unsafe.Pointer(&pathBuf[0])), size, &written); err != nil {
		return fmt.Errorf("controller: WriteProcessMemory(%d): %w", pid, err)
	}

	kernel32, err := windows.LoadLibrary("kernel32.dll")
	if err != nil {
		return fmt.Errorf("controller: LoadLibrary(kernel32.dll): %w", err)
	}
	defer windows.FreeLibrary(kernel32)

	loadLibraryW, err := windows.GetProcAddress(kernel32, "LoadLibraryW")
	if err != nil {
		return fmt.Errorf("controller: GetProcAddress(LoadLibraryW): %w", err)
	}

	threadRaw, _, callErr := procCreateRemoteThread.Call(uintptr(proc), 0, 0, loadLibraryW, remoteMem, 0, 0)
	if threadRaw == 0 {
		return fmt.Errorf("controller: CreateRemoteThread(%d): %w", pid, callErr)
	}
	thread := windows.Handle(threadRaw)
	defer windows.CloseHandle(thread)

	if _, err := windows.WaitForSingleObject(thread, windows.INFINITE); err != nil {
		return fmt.Errorf("controller: waiting for remote LoadLibraryW thread in pid %d: %w", pid, err)
	}

	return nil
}
