package controller

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maroider/asbestos-go/vfs"
)

func writeMappingsFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mappings.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadMappingsFileDecodesAllFields(t *testing.T) {
	path := writeMappingsFile(t, `[
		{"kind":"redirect","from":"C:/mods/ml","fromType":"folder","to":"C:/game","toType":"folder"},
		{"kind":"mount","from":"C:/mods/tc","fromType":"folder","to":"C:/game/plugins","toType":"folder"}
	]`)

	mappings, err := LoadMappingsFile(path)
	if err != nil {
		t.Fatalf("LoadMappingsFile: %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("got %d mappings, want 2", len(mappings))
	}
	if mappings[0].Kind != vfs.Redirect || mappings[1].Kind != vfs.Mount {
		t.Fatalf("kinds decoded wrong: %+v", mappings)
	}
}

func TestLoadMappingsFileRejectsUnknownKind(t *testing.T) {
	path := writeMappingsFile(t, `[{"kind":"copy","from":"a","fromType":"file","to":"b","toType":"file"}]`)
	if _, err := LoadMappingsFile(path); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
}

func TestLoadMappingsFileRejectsInvalidCombination(t *testing.T) {
	path := writeMappingsFile(t, `[{"kind":"redirect","from":"a","fromType":"folder","to":"b","toType":"file"}]`)
	if _, err := LoadMappingsFile(path); err == nil {
		t.Fatal("expected Validate to reject Redirect Folder->File")
	}
}

func TestLoadMappingsFileMissingFile(t *testing.T) {
	if _, err := LoadMappingsFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
