package hooks

import (
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"github.com/maroider/asbestos-go/vfs"
)

func testLogger() *logrus.Entry {
	logger, _ := logrustest.NewNullLogger()
	return logrus.NewEntry(logger)
}

func redirectFolder(from, to string) vfs.Mapping {
	return vfs.Mapping{Kind: vfs.Redirect, From: from, FromType: vfs.Folder, To: to, ToType: vfs.Folder}
}

func TestDecidePathNullPassesThrough(t *testing.T) {
	got, changed := DecidePath("", vfs.Mappings{redirectFolder(`C:\a`, `C:\b`)}, testLogger())
	if changed {
		t.Error("expected changed=false for empty path")
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestDecidePathRewritesOnMatch(t *testing.T) {
	mappings := vfs.Mappings{redirectFolder(`C:\mods\ml`, `C:\game`)}
	got, changed := DecidePath(`C:\mods\ml\data.bin`, mappings, testLogger())
	if !changed {
		t.Fatal("expected changed=true")
	}
	if want := `C:\game\data.bin`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecidePathNoMatchUnchanged(t *testing.T) {
	mappings := vfs.Mappings{redirectFolder(`C:\mods\ml`, `C:\game`)}
	got, changed := DecidePath(`C:\other\path`, mappings, testLogger())
	if changed {
		t.Error("expected changed=false")
	}
	if got != `C:\other\path` {
		t.Errorf("got %q, want unchanged", got)
	}
}

func TestDecidePathInvalidMappingPassesThrough(t *testing.T) {
	bad := vfs.Mapping{Kind: vfs.Mount, FromType: vfs.Folder, From: `C:\a`, ToType: vfs.File, To: `C:\b`}
	got, changed := DecidePath(`C:\a\x`, vfs.Mappings{bad}, testLogger())
	if changed {
		t.Error("expected changed=false when resolution fails")
	}
	if got != `C:\a\x` {
		t.Errorf("got %q, want input unchanged", got)
	}
}

func TestDecidePathWarnsOnRelativeComponent(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	entry := logrus.NewEntry(logger)
	DecidePath(`C:\mods\..\x`, nil, entry)
	found := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning log entry for a relative path component")
	}
}

func TestDecideObjectNameUsesNullTerminatedAsAuthoritative(t *testing.T) {
	mappings := vfs.Mappings{redirectFolder(`C:\mods\ml`, `C:\game`)}
	// The length-trusting view is truncated/garbage; the null-terminated
	// view is the real path and must be what gets resolved.
	got, changed := DecideObjectName(`C:\mods\m`, `C:\mods\ml\data.bin`, mappings, testLogger())
	if !changed {
		t.Fatal("expected changed=true")
	}
	if want := `C:\game\data.bin`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
