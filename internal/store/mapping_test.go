package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestMappingStore_StartsEmpty(t *testing.T) {
	s := NewMappingStore(zerolog.Nop())
	m := s.Mapping()
	if m == nil {
		t.Fatal("Mapping() returned nil")
	}
	if len(m) != 0 {
		t.Errorf("expected empty mapping, got %d entries", len(m))
	}
}

func TestMappingStore_LoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "division_mapping.csv")
	content := "Business Area,Division\n1000,Retail\n2000,Wholesale\n,Ignored\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewMappingStore(zerolog.Nop())
	if err := s.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	m := s.Mapping()
	if len(m) != 2 {
		t.Fatalf("entries = %d, want 2", len(m))
	}
	if m["1000"] != "Retail" || m["2000"] != "Wholesale" {
		t.Errorf("unexpected mapping: %v", m)
	}
}

func TestMappingStore_LoadCSVSemicolonAndAlias(t *testing.T) {
	path := filepath.Join(t.TempDir(), "division_mapping.csv")
	content := "RBUSA;Division\n1000;Retail\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewMappingStore(zerolog.Nop())
	if err := s.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if s.Mapping()["1000"] != "Retail" {
		t.Errorf("unexpected mapping: %v", s.Mapping())
	}
}

func TestMappingStore_MissingFileKeepsPrevious(t *testing.T) {
	s := NewMappingStore(zerolog.Nop())
	if err := s.LoadFile(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(s.Mapping()) != 0 {
		t.Errorf("mapping should remain empty after failed load")
	}
}

func TestMappingStore_BadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "division_mapping.csv")
	if err := os.WriteFile(path, []byte("foo,bar\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewMappingStore(zerolog.Nop())
	if err := s.LoadFile(path); err == nil {
		t.Fatal("expected error for unrecognized header")
	}
}

func TestMappingStore_UnsupportedExtension(t *testing.T) {
	s := NewMappingStore(zerolog.Nop())
	if err := s.LoadFile("mapping.txt"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
