package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/maroider/asbestos-go/vfs"
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteFrame(&buf, msg); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	return got
}

func TestRoundTripInitialized(t *testing.T) {
	got := roundTrip(t, NewInitialized())
	if got.Tag != TagInitialized {
		t.Errorf("got tag %v, want TagInitialized", got.Tag)
	}
}

func TestRoundTripProcessDetach(t *testing.T) {
	got := roundTrip(t, NewProcessDetach())
	if got.Tag != TagProcessDetach {
		t.Errorf("got tag %v, want TagProcessDetach", got.Tag)
	}
}

func TestRoundTripInitializationFailed(t *testing.T) {
	want := "could not resolve symbol OpenFile in kernel32"
	got := roundTrip(t, NewInitializationFailed(want))
	if got.Tag != TagInitializationFailed {
		t.Fatalf("got tag %v, want TagInitializationFailed", got.Tag)
	}
	if got.InitializationFailed != want {
		t.Errorf("got %q, want %q", got.InitializationFailed, want)
	}
}

func TestRoundTripProcessSpawned(t *testing.T) {
	got := roundTrip(t, NewProcessSpawned(4242))
	if got.Tag != TagProcessSpawned {
		t.Fatalf("got tag %v, want TagProcessSpawned", got.Tag)
	}
	if got.ProcessSpawned.PID != 4242 {
		t.Errorf("got pid %d, want 4242", got.ProcessSpawned.PID)
	}
}

func TestRoundTripLogMessage(t *testing.T) {
	want := LogMessage{
		Level:      LevelWarn,
		ModulePath: "asbestos_payload::hooks::file",
		File:       "hooks/file.go",
		Line:       88,
		Message:    "relative path component encountered",
	}
	got := roundTrip(t, NewLogMessage(want))
	if got.Tag != TagLogMessage {
		t.Fatalf("got tag %v, want TagLogMessage", got.Tag)
	}
	if got.LogMessage != want {
		t.Errorf("got %+v, want %+v", got.LogMessage, want)
	}
}

func TestRoundTripStartupInfo(t *testing.T) {
	want := StartupInfo{
		MainThreadSuspended:  true,
		DontHookSubprocesses: false,
		ShowConsole:          true,
		Mappings: vfs.Mappings{
			{Kind: vfs.Redirect, FromType: vfs.Folder, From: `C:\mods\ml`, ToType: vfs.Folder, To: `C:\game`},
			{Kind: vfs.Mount, FromType: vfs.File, From: `C:\a.ini`, ToType: vfs.Folder, To: `C:\overrides`},
		},
	}
	got := roundTrip(t, NewStartupInfo(want))
	if got.Tag != TagStartupInfo {
		t.Fatalf("got tag %v, want TagStartupInfo", got.Tag)
	}
	if got.StartupInfo.MainThreadSuspended != want.MainThreadSuspended ||
		got.StartupInfo.DontHookSubprocesses != want.DontHookSubprocesses ||
		got.StartupInfo.ShowConsole != want.ShowConsole {
		t.Errorf("got flags %+v, want %+v", got.StartupInfo, want)
	}
	if len(got.StartupInfo.Mappings) != len(want.Mappings) {
		t.Fatalf("got %d mappings, want %d", len(got.StartupInfo.Mappings), len(want.Mappings))
	}
	for i := range want.Mappings {
		if got.StartupInfo.Mappings[i] != want.Mappings[i] {
			t.Errorf("mapping %d: got %+v, want %+v", i, got.StartupInfo.Mappings[i], want.Mappings[i])
		}
	}
}

func TestReadFrameTruncatedYieldsConnectionLost(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, NewInitialized()); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:2])
	_, err := ReadFrame(truncated)
	if !errors.Is(err, ErrConnectionLost) {
		t.Errorf("got %v, want ErrConnectionLost", err)
	}
}

func TestReadFrameEmptyStreamYieldsConnectionLost(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if !errors.Is(err, ErrConnectionLost) {
		t.Errorf("got %v, want ErrConnectionLost", err)
	}
}
