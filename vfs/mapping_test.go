package vfs

import "testing"

func TestValidateAcceptsAllWellFormedCombinations(t *testing.T) {
	good := Mappings{
		{Kind: Redirect, FromType: File, From: `C:\a`, ToType: File, To: `C:\b`},
		{Kind: Redirect, FromType: File, From: `C:\a`, ToType: Folder, To: `C:\b`},
		{Kind: Redirect, FromType: Folder, From: `C:\a`, ToType: Folder, To: `C:\b`},
		{Kind: Mount, FromType: File, From: `C:\a`, ToType: Folder, To: `C:\b`},
		{Kind: Mount, FromType: Folder, From: `C:\a`, ToType: Folder, To: `C:\b`},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsDisallowedCombinations(t *testing.T) {
	bad := []Mapping{
		{Kind: Mount, FromType: Folder, From: `C:\a`, ToType: File, To: `C:\b`},
		{Kind: Mount, FromType: File, From: `C:\a`, ToType: File, To: `C:\b`},
		{Kind: Redirect, FromType: Folder, From: `C:\a`, ToType: File, To: `C:\b`},
	}
	for _, m := range bad {
		if err := (Mappings{m}).Validate(); err == nil {
			t.Errorf("Validate() accepted disallowed combination %+v", m)
		}
	}
}
