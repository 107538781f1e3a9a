package exclude_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mpsync/core/exclude"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	list, err := exclude.Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Load() = %v, want empty", list)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	target := t.TempDir()
	want := []string{"mods/config.txt", "saves/world"}
	if err := exclude.Save(target, want); err != nil {
		t.Fatalf("Save(): %v", err)
	}
	got, err := exclude.Load(target)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadInvalidJSONIsError(t *testing.T) {
	target := t.TempDir()
	if err := os.WriteFile(filepath.Join(target, exclude.FileName), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := exclude.Load(target); err == nil {
		t.Error("Load() = nil error, want error for invalid JSON")
	}
}

func TestAddIsIdempotent(t *testing.T) {
	target := t.TempDir()
	if err := exclude.Add(target, "mods/a.jar"); err != nil {
		t.Fatal(err)
	}
	if err := exclude.Add(target, "mods/a.jar"); err != nil {
		t.Fatal(err)
	}
	got, err := exclude.Load(target)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"mods/a.jar"}, got); diff != "" {
		t.Errorf("Add() mismatch (-want +got):\n%s", diff)
	}
}

func TestRemove(t *testing.T) {
	target := t.TempDir()
	if err := exclude.Save(target, []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if err := exclude.Remove(target, "b"); err != nil {
		t.Fatal(err)
	}
	got, err := exclude.Load(target)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "c"}, got); diff != "" {
		t.Errorf("Remove() mismatch (-want +got):\n%s", diff)
	}
}
