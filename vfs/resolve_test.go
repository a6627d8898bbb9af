package vfs

import "testing"

func redirectFolder(from, to string) Mapping {
	return Mapping{Kind: Redirect, From: from, FromType: Folder, To: to, ToType: Folder}
}

func mountFolder(from, to string) Mapping {
	return Mapping{Kind: Mount, From: from, FromType: Folder, To: to, ToType: Folder}
}

func redirectFile(from, to string) Mapping {
	return Mapping{Kind: Redirect, From: from, FromType: File, To: to, ToType: File}
}

func redirectFileToFolder(from, to string) Mapping {
	return Mapping{Kind: Redirect, From: from, FromType: File, To: to, ToType: Folder}
}

func TestResolveScenarios(t *testing.T) {
	tests := []struct {
		name     string
		mappings Mappings
		input    string
		want     string
	}{
		{
			name:     "1_redirect_folder_exact",
			mappings: Mappings{redirectFolder(`C:\mods\ml`, `C:\game`)},
			input:    `C:\mods\ml`,
			want:     `C:\game`,
		},
		{
			name:     "2_redirect_folder_descendant",
			mappings: Mappings{redirectFolder(`C:\mods\ml`, `C:\game`)},
			input:    `C:\mods\ml\config`,
			want:     `C:\game\config`,
		},
		{
			name:     "3_mount_folder_descendant",
			mappings: Mappings{mountFolder(`C:\mods\tc`, `C:\game\plugins`)},
			input:    `C:\game\plugins\tc\config\x`,
			want:     `C:\mods\tc\config\x`,
		},
		{
			name:     "4_redirect_file_to_file",
			mappings: Mappings{redirectFile(`C:\a.ini`, `D:\b.ini`)},
			input:    `C:\a.ini`,
			want:     `D:\b.ini`,
		},
		{
			name:     "5_redirect_file_to_folder",
			mappings: Mappings{redirectFileToFolder(`C:\a.ini`, `D:\cfg`)},
			input:    `C:\a.ini`,
			want:     `D:\cfg\a.ini`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.input, tt.mappings)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Scenario 6: NT-prefix is restored on the result.
func TestResolveNTPrefixPreserved(t *testing.T) {
	mappings := Mappings{redirectFolder(`C:\mods\ml`, `C:\game`)}
	got, err := Resolve(`\??\C:\mods\ml\x`, mappings)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	want := `\??\C:\game\x`
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveExtendedPrefixPreserved(t *testing.T) {
	mappings := Mappings{redirectFolder(`C:\mods\ml`, `C:\game`)}
	got, err := Resolve(`\\?\C:\mods\ml\x`, mappings)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	want := `\\?\C:\game\x`
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

// Property 1: identity on empty mapping table.
func TestResolveIdentityOnEmpty(t *testing.T) {
	inputs := []string{`C:\foo\bar`, `\??\C:\x`, `\\?\C:\y\z`}
	for _, p := range inputs {
		got, err := Resolve(p, nil)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", p, err)
		}
		if got != p {
			t.Errorf("Resolve(%q, nil) = %q, want unchanged", p, got)
		}
	}
}

// Property 2: a file-to-file redirect identity rule changes nothing.
func TestResolveIdentityRedirect(t *testing.T) {
	mappings := Mappings{redirectFile(`C:\a.ini`, `C:\a.ini`)}
	inputs := []string{`C:\a.ini`, `C:\b.ini`, `C:\other\path`}
	for _, p := range inputs {
		got, err := Resolve(p, mappings)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", p, err)
		}
		if got != p {
			t.Errorf("Resolve(%q) = %q, want unchanged", p, got)
		}
	}
}

// Property 4: determinism. Same inputs, same outputs, repeatedly.
func TestResolveDeterministic(t *testing.T) {
	mappings := Mappings{
		mountFolder(`C:\mods\tc`, `C:\game\plugins`),
		redirectFolder(`C:\mods\ml`, `C:\game`),
	}
	input := `C:\game\plugins\tc\x`
	first, err := Resolve(input, mappings)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := Resolve(input, mappings)
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		if got != first {
			t.Errorf("Resolve not deterministic: got %q, first was %q", got, first)
		}
	}
}

// Property 5: invalid mapping combinations fail the whole resolution.
func TestResolveInvalidMapping(t *testing.T) {
	bad := Mapping{Kind: Mount, From: `C:\a`, FromType: Folder, To: `C:\b`, ToType: File}
	_, err := Resolve(`C:\a\x`, Mappings{bad})
	if err == nil {
		t.Fatal("expected error for invalid mapping combination")
	}
}

// Rule chaining: a mount followed by a redirect observes the mount's output.
func TestResolveChaining(t *testing.T) {
	mappings := Mappings{
		mountFolder(`C:\mods\tc`, `C:\game\plugins`),
		redirectFile(`C:\mods\tc\config\x`, `C:\overrides\x`),
	}
	got, err := Resolve(`C:\game\plugins\tc\config\x`, mappings)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if want := `C:\overrides\x`; got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

// Component-wise prefix semantics: "A\B" is not an ancestor of "A\BC".
func TestResolvePrefixIsComponentWise(t *testing.T) {
	mappings := Mappings{redirectFolder(`C:\mods\ml`, `C:\game`)}
	got, err := Resolve(`C:\mods\mlextra\x`, mappings)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if want := `C:\mods\mlextra\x`; got != want {
		t.Errorf("Resolve = %q, want unchanged %q", got, want)
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	mappings := Mappings{redirectFolder(`C:\Mods\ML`, `C:\game`)}
	got, err := Resolve(`c:\mods\ml\config`, mappings)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if want := `C:\game\config`; got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}
