package apply_test

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mpsync/core/apply"
	"github.com/mpsync/core/archivefile"
	"github.com/mpsync/core/contenthash"
	"github.com/mpsync/core/exclude"
	"github.com/mpsync/core/manifest"
	"github.com/mpsync/core/syncevent"
	"github.com/mpsync/core/syncstatus"
	"github.com/mpsync/core/testing/testcollector"
)

// fakeGetter serves byte payloads from an in-memory map, keyed by URL.
type fakeGetter struct {
	payloads map[string][]byte
}

func (f *fakeGetter) Get(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	data, ok := f.payloads[url]
	if !ok {
		return nil, 0, errors.New("fakeGetter: no payload for " + url)
	}
	return io.NopCloser(bytesReader(data)), int64(len(data)), nil
}

func bytesReader(data []byte) io.Reader {
	return &sliceReader{data: data}
}

type sliceReader struct {
	data []byte
	pos  int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func TestApplyDownloadsNewAndPrunesStale(t *testing.T) {
	target := t.TempDir()
	if err := os.MkdirAll(filepath.Join(target, "mods"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "mods", "stale.jar"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	newHash, _ := contenthash.Reader(bytesReader([]byte("new-contents")))
	m := &manifest.Manifest{
		Entries: []manifest.Entry{
			{Name: "a.jar", DownloadURL: "https://h/a.jar", RelativePath: "mods/a.jar", Hash: newHash, Size: 12, FileType: manifest.FileTypeFile},
		},
	}
	getter := &fakeGetter{payloads: map[string][]byte{"https://h/a.jar": []byte("new-contents")}}

	result, err := apply.Apply(context.Background(), m, target, getter, apply.Options{}, syncevent.Discard, nil)
	if err != nil {
		t.Fatalf("Apply(): %v", err)
	}
	if result.Outcome() != syncstatus.OutcomeSucceeded {
		t.Errorf("Outcome() = %v, want Succeeded: %+v", result.Outcome(), result)
	}

	got, err := os.ReadFile(filepath.Join(target, "mods", "a.jar"))
	if err != nil {
		t.Fatalf("read installed file: %v", err)
	}
	if string(got) != "new-contents" {
		t.Errorf("installed contents = %q, want %q", got, "new-contents")
	}

	// stale.jar isn't in the manifest and isn't excluded: pruned.
	if _, err := os.Stat(filepath.Join(target, "mods", "stale.jar")); !os.IsNotExist(err) {
		t.Errorf("stale.jar still exists after prune")
	}
}

func TestApplyPreservesExcludedDuringPrune(t *testing.T) {
	target := t.TempDir()
	if err := os.MkdirAll(filepath.Join(target, "mods"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "mods", "keep.txt"), []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := exclude.Add(target, "mods/keep.txt"); err != nil {
		t.Fatal(err)
	}

	m := &manifest.Manifest{Entries: []manifest.Entry{
		{Name: "a.jar", DownloadURL: "https://h/a.jar", RelativePath: "mods/a.jar", Hash: contenthash.Disabled, FileType: manifest.FileTypeFile},
	}}
	getter := &fakeGetter{payloads: map[string][]byte{"https://h/a.jar": []byte("x")}}

	excludedSet, err := exclude.Load(target)
	if err != nil {
		t.Fatal(err)
	}
	opts := apply.Options{Excluded: exclude.Set(excludedSet)}

	if _, err := apply.Apply(context.Background(), m, target, getter, opts, syncevent.Discard, nil); err != nil {
		t.Fatalf("Apply(): %v", err)
	}

	if _, err := os.Stat(filepath.Join(target, "mods", "keep.txt")); err != nil {
		t.Errorf("excluded file was removed: %v", err)
	}
}

func TestApplyRecordsDownloadFailure(t *testing.T) {
	target := t.TempDir()
	m := &manifest.Manifest{Entries: []manifest.Entry{
		{Name: "missing.jar", DownloadURL: "https://h/missing.jar", RelativePath: "mods/missing.jar", Hash: "DISABLED", FileType: manifest.FileTypeFile},
	}}
	getter := &fakeGetter{payloads: map[string][]byte{}}

	collector := testcollector.New()
	result, err := apply.Apply(context.Background(), m, target, getter, apply.Options{RetryAttempts: 1}, syncevent.Discard, collector)
	if err != nil {
		t.Fatalf("Apply(): %v", err)
	}
	if result.Outcome() != syncstatus.OutcomeFailed {
		t.Errorf("Outcome() = %v, want Failed", result.Outcome())
	}
	if collector.DownloadErr("mods/missing.jar") == nil {
		t.Error("expected recorded download error")
	}
}

func TestApplyAutoExtractsArchive(t *testing.T) {
	target := t.TempDir()

	archiveBytes := buildZipBytes(t, map[string]string{
		"textures/a.png": "aaa",
		"textures/b.png": "bbb",
	})

	m := &manifest.Manifest{Entries: []manifest.Entry{
		{Name: "mods.zip", DownloadURL: "https://h/mods.zip", RelativePath: "mods.zip", Hash: "DISABLED", FileType: manifest.FileTypeUpdatePackage, AutoExtract: true},
	}}
	getter := &fakeGetter{payloads: map[string][]byte{"https://h/mods.zip": archiveBytes}}

	if _, err := apply.Apply(context.Background(), m, target, getter, apply.Options{}, syncevent.Discard, nil); err != nil {
		t.Fatalf("Apply(): %v", err)
	}

	if _, err := os.Stat(filepath.Join(target, "mods.zip")); !os.IsNotExist(err) {
		t.Error("downloaded archive was not deleted after extraction")
	}
	data, err := os.ReadFile(filepath.Join(target, "mods", "textures", "a.png"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "aaa" {
		t.Errorf("extracted contents = %q, want %q", data, "aaa")
	}
}

func TestApplyAutoExtractPreservesExcludedDuringReExtract(t *testing.T) {
	target := t.TempDir()
	if err := os.MkdirAll(filepath.Join(target, "mods"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Pre-existing state from a previous install: an excluded file that must
	// survive re-extraction, and a stale sibling that must not.
	if err := os.WriteFile(filepath.Join(target, "mods", "keep.txt"), []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "mods", "stale.jar"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := exclude.Add(target, "mods/keep.txt"); err != nil {
		t.Fatal(err)
	}
	excludedSet, err := exclude.Load(target)
	if err != nil {
		t.Fatal(err)
	}

	archiveBytes := buildZipBytes(t, map[string]string{
		"textures/a.png": "aaa",
	})
	m := &manifest.Manifest{Entries: []manifest.Entry{
		{Name: "mods.zip", DownloadURL: "https://h/mods.zip", RelativePath: "mods.zip", Hash: "DISABLED", FileType: manifest.FileTypeUpdatePackage, AutoExtract: true},
	}}
	getter := &fakeGetter{payloads: map[string][]byte{"https://h/mods.zip": archiveBytes}}
	opts := apply.Options{Excluded: exclude.Set(excludedSet)}

	if _, err := apply.Apply(context.Background(), m, target, getter, opts, syncevent.Discard, nil); err != nil {
		t.Fatalf("Apply(): %v", err)
	}

	if _, err := os.Stat(filepath.Join(target, "mods", "keep.txt")); err != nil {
		t.Errorf("excluded file was removed during re-extraction: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "mods", "stale.jar")); !os.IsNotExist(err) {
		t.Errorf("stale sibling survived re-extraction")
	}
	data, err := os.ReadFile(filepath.Join(target, "mods", "textures", "a.png"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "aaa" {
		t.Errorf("extracted contents = %q, want %q", data, "aaa")
	}
}

func buildZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.zip")
	w, err := archivefile.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for name, contents := range files {
		if err := w.AddBytes(name, zip.Deflate, []byte(contents)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
