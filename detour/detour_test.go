package detour

import (
	"errors"
	"testing"
)

type stubPatcher struct {
	resolveErr error
	installErr error
	enableErr  error
	resolved   uintptr
	trampoline uintptr
}

func (s *stubPatcher) resolve(target Target) (uintptr, error) {
	if s.resolveErr != nil {
		return 0, s.resolveErr
	}
	return s.resolved, nil
}

func (s *stubPatcher) install(originalAddr, wrapperAddr uintptr) (uintptr, func() error, error) {
	if s.installErr != nil {
		return 0, nil, s.installErr
	}
	return s.trampoline, func() error { return s.enableErr }, nil
}

func TestInstallFailsWhenSymbolNotFound(t *testing.T) {
	p := &stubPatcher{resolveErr: &ErrSymbolNotFound{Module: "kernel32", Symbol: "OpenFile"}}
	d, err := Install(p, Target{Module: "kernel32", Symbol: "OpenFile"}, 0x1000)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if d != nil {
		t.Fatal("expected nil Detour on failure")
	}
	var notFound *ErrSymbolNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestInstallFailsWhenPatchFails(t *testing.T) {
	p := &stubPatcher{resolved: 0x2000, installErr: errors.New("virtualprotect failed")}
	d, err := Install(p, Target{Module: "kernel32", Symbol: "CreateFileW"}, 0x1000)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if d != nil {
		t.Fatal("expected nil Detour when the install step fails")
	}
}

func TestInstallFailsWhenEnableFails(t *testing.T) {
	p := &stubPatcher{resolved: 0x2000, trampoline: 0x3000, enableErr: errors.New("enable failed")}
	d, err := Install(p, Target{Module: "kernel32", Symbol: "CreateFileW"}, 0x1000)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if d != nil {
		t.Fatal("expected nil Detour when enable fails")
	}
}

func TestInstallSucceedsReturnsWorkingTrampoline(t *testing.T) {
	p := &stubPatcher{resolved: 0x2000, trampoline: 0x3000}
	d, err := Install(p, Target{Module: "kernel32", Symbol: "CreateFileW"}, 0x1000)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if d.Trampoline().Addr() != 0x3000 {
		t.Errorf("Trampoline().Addr() = %#x, want 0x3000", d.Trampoline().Addr())
	}
	if d.Target().Symbol != "CreateFileW" {
		t.Errorf("Target().Symbol = %q, want CreateFileW", d.Target().Symbol)
	}
}
