package packager_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mpsync/core/archivefile"
	"github.com/mpsync/core/manifest"
	"github.com/mpsync/core/packager"
	"github.com/mpsync/core/syncevent"
)

func TestExportOneFile(t *testing.T) {
	srcDir := t.TempDir()
	filePath := filepath.Join(srcDir, "a.txt")
	if err := os.WriteFile(filePath, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "pkg.zip")

	err := packager.Export(
		[]packager.Selection{{AbsolutePath: filePath, Kind: packager.KindFile, Selected: true}},
		packager.Settings{PackageName: "demo", Version: "1", DownloadPrefix: "https://h/p/"},
		outPath,
		syncevent.Discard,
	)
	if err != nil {
		t.Fatalf("Export(): %v", err)
	}

	data, err := archivefile.ReadEntry(outPath, "a.txt")
	if err != nil {
		t.Fatalf("ReadEntry(a.txt): %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("a.txt contents = %q, want %q", data, "hello")
	}

	manifestData, err := archivefile.ReadManifest(outPath)
	if err != nil {
		t.Fatalf("ReadManifest(): %v", err)
	}
	m, err := manifest.Parse(manifestData)
	if err != nil {
		t.Fatalf("Parse(): %v", err)
	}
	if len(m.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(m.Entries))
	}
	e := m.Entries[0]
	const wantHash = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if e.Hash != wantHash {
		t.Errorf("hash = %q, want %q", e.Hash, wantHash)
	}
	if e.Size != 5 {
		t.Errorf("size = %d, want 5", e.Size)
	}
	if e.DownloadURL != "https://h/p/a.txt" {
		t.Errorf("downloadUrl = %q, want %q", e.DownloadURL, "https://h/p/a.txt")
	}
}

func TestExportEmptySelectionFails(t *testing.T) {
	err := packager.Export(
		[]packager.Selection{{AbsolutePath: "/nope", Kind: packager.KindFile, Selected: false}},
		packager.Settings{PackageName: "demo"},
		filepath.Join(t.TempDir(), "out.zip"),
		syncevent.Discard,
	)
	if _, ok := err.(packager.EmptySelectionError); !ok {
		t.Errorf("Export() error = %v, want EmptySelectionError", err)
	}
}

func TestExportCompressedFolder(t *testing.T) {
	srcRoot := t.TempDir()
	folder := filepath.Join(srcRoot, "mods")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "a.jar"), []byte("AAA"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "b.jar"), []byte("BBB"), 0o644); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(t.TempDir(), "pkg.zip")
	err := packager.Export(
		[]packager.Selection{{
			AbsolutePath:    folder,
			Kind:            packager.KindFolder,
			Selected:        true,
			CompressFolder:  true,
			IsUpdatePackage: true,
		}},
		packager.Settings{PackageName: "demo", DownloadPrefix: "https://h/p/"},
		outPath,
		syncevent.Discard,
	)
	if err != nil {
		t.Fatalf("Export(): %v", err)
	}

	manifestData, err := archivefile.ReadManifest(outPath)
	if err != nil {
		t.Fatalf("ReadManifest(): %v", err)
	}
	m, err := manifest.Parse(manifestData)
	if err != nil {
		t.Fatalf("Parse(): %v", err)
	}
	if len(m.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(m.Entries))
	}
	e := m.Entries[0]
	if e.FileType != manifest.FileTypeUpdatePackage {
		t.Errorf("fileType = %q, want update_package", e.FileType)
	}
	if !e.AutoExtract {
		t.Error("autoExtract = false, want true")
	}
	if e.RelativePath != "mods.zip" {
		t.Errorf("relativePath = %q, want mods.zip", e.RelativePath)
	}

	inner, err := archivefile.ReadEntry(outPath, "mods.zip")
	if err != nil {
		t.Fatalf("ReadEntry(mods.zip): %v", err)
	}
	if len(inner) == 0 {
		t.Error("inner archive is empty")
	}
}
