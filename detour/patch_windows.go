//go:build windows

package detour

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// FlushInstructionCache has no wrapper in x/sys/windows.
var procFlushInstructionCache = windows.NewLazySystemDLL("kernel32.dll").NewProc("FlushInstructionCache")

// patchSize is the number of prologue bytes an absolute-jump patch
// overwrites: a 14-byte "mov rax, imm64; jmp rax" sequence on amd64. Every
// intercepted entry point in this codebase (kernel32/KernelBase/ntdll
// exports, see hooks package) is known to have at least this many bytes of
// prologue before any branch target lands inside it, which is the
// precondition this fixed-size patch relies on instead of a full
// instruction-length decoder.
const patchSize = 14

// WindowsPatcher is the platform-specific patcher backing Install: it
// resolves symbols via LoadLibrary/GetProcAddress and installs detours by
// overwriting a function's prologue with an absolute jump to the wrapper,
// preserving the original bytes (plus a jump back) in an executable
// trampoline page.
type WindowsPatcher struct{}

var _ patcher = WindowsPatcher{}

func (WindowsPatcher) resolve(target Target) (uintptr, error) {
	mod, err := windows.LoadLibrary(target.Module)
	if err != nil {
		return 0, &ErrSymbolNotFound{Module: target.Module, Symbol: target.Symbol}
	}
	addr, err := windows.GetProcAddress(mod, target.Symbol)
	if err != nil {
		return 0, &ErrSymbolNotFound{Module: target.Module, Symbol: target.Symbol}
	}
	return addr, nil
}

func (WindowsPatcher) install(originalAddr, wrapperAddr uintptr) (uintptr, func() error, error) {
	original := unsafe.Slice((*byte)(unsafe.Pointer(originalAddr)), patchSize)

	trampolineAddr, err := allocateExecutablePage()
	if err != nil {
		return 0, nil, fmt.Errorf("allocating trampoline page: %w", err)
	}
	tramp := unsafe.Slice((*byte)(unsafe.Pointer(trampolineAddr)), patchSize+len(jmpAbsolute(0)))
	copy(tramp, original)
	copy(tramp[patchSize:], jmpAbsolute(originalAddr+patchSize))

	patch := jmpAbsolute(wrapperAddr)

	enable := func() error {
		var oldProtect uint32
		if err := windows.VirtualProtect(originalAddr, patchSize, windows.PAGE_EXECUTE_READWRITE, &oldProtect); err != nil {
			return fmt.Errorf("VirtualProtect (unlock): %w", err)
		}
		copy(original, patch)
		var ignored uint32
		_ = windows.VirtualProtect(originalAddr, patchSize, oldProtect, &ignored)
		procFlushInstructionCache.Call(uintptr(windows.CurrentProcess()), originalAddr, patchSize)
		return nil
	}

	return trampolineAddr, enable, nil
}

// jmpAbsolute encodes "mov rax, imm64; jmp rax", a 12-byte instruction
// sequence padded to 14 bytes with two NOPs so the patch and the prologue
// backup it replaces are the same fixed size.
func jmpAbsolute(target uintptr) []byte {
	buf := make([]byte, patchSize)
	buf[0] = 0x48 // REX.W
	buf[1] = 0xB8 // MOV RAX, imm64
	for i := 0; i < 8; i++ {
		buf[2+i] = byte(target >> (8 * i))
	}
	buf[10] = 0xFF // JMP RAX
	buf[11] = 0xE0
	buf[12] = 0x90 // NOP
	buf[13] = 0x90 // NOP
	return buf
}

func allocateExecutablePage() (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, 4096, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return 0, err
	}
	return addr, nil
}
