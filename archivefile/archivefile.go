// Package archivefile handles the one archive format the engine speaks:
// ZIP. It writes payload archives during export (§4.4), reads a single
// named entry back out of one (used by the local-package installer), and
// extracts a whole archive to a directory (used by the applier's
// auto-extract step).
package archivefile

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ManifestEntryName is the fixed name of the manifest entry every outer
// package archive carries, per §4.4.
const ManifestEntryName = "manifest.json"

// Writer builds a ZIP archive one entry at a time.
type Writer struct {
	f  *os.File
	zw *zip.Writer
}

// Create opens path for writing and returns a Writer positioned at the
// start of a new, empty archive.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("archivefile: create %q: %w", path, err)
	}
	return &Writer{f: f, zw: zip.NewWriter(f)}, nil
}

// AddFile copies the contents of srcPath into the archive under name,
// using deflate compression.
func (w *Writer) AddFile(name, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("archivefile: open %q: %w", srcPath, err)
	}
	defer src.Close()
	return w.AddReader(name, zip.Deflate, src)
}

// AddBytes writes data into the archive under name using the given
// compression method (zip.Store or zip.Deflate).
func (w *Writer) AddBytes(name string, method uint16, data []byte) error {
	fw, err := w.zw.CreateHeader(&zip.FileHeader{Name: toArchiveName(name), Method: method})
	if err != nil {
		return fmt.Errorf("archivefile: create entry %q: %w", name, err)
	}
	_, err = fw.Write(data)
	if err != nil {
		return fmt.Errorf("archivefile: write entry %q: %w", name, err)
	}
	return nil
}

// AddReader streams r into the archive under name using method.
func (w *Writer) AddReader(name string, method uint16, r io.Reader) error {
	fw, err := w.zw.CreateHeader(&zip.FileHeader{Name: toArchiveName(name), Method: method})
	if err != nil {
		return fmt.Errorf("archivefile: create entry %q: %w", name, err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("archivefile: write entry %q: %w", name, err)
	}
	return nil
}

// AddManifest writes data as the archive's manifest.json entry, stored
// (not compressed) since manifests are small and already text.
func (w *Writer) AddManifest(data []byte) error {
	return w.AddBytes(ManifestEntryName, zip.Store, data)
}

// Close finalizes the archive and closes the underlying file. Callers must
// call Close on every path, including error returns, to avoid leaking the
// file descriptor.
func (w *Writer) Close() error {
	zerr := w.zw.Close()
	ferr := w.f.Close()
	if zerr != nil {
		return fmt.Errorf("archivefile: close: %w", zerr)
	}
	if ferr != nil {
		return fmt.Errorf("archivefile: close: %w", ferr)
	}
	return nil
}

// ReadEntry returns the decompressed contents of the first entry in the
// archive at path whose name exactly matches name.
func ReadEntry(path, name string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("archivefile: open %q: %w", path, err)
	}
	defer zr.Close()

	want := toArchiveName(name)
	for _, f := range zr.File {
		if f.Name != want {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("archivefile: open entry %q: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("archivefile: read entry %q: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("archivefile: entry %q not found in %q", name, path)
}

// ReadManifest returns the archive's manifest.json entry.
func ReadManifest(path string) ([]byte, error) {
	return ReadEntry(path, ManifestEntryName)
}

// Extract unpacks every entry of the archive at archivePath into destDir,
// creating destDir and any intermediate directories as needed. Entry names
// are treated as POSIX paths relative to destDir; an entry that would
// escape destDir (via ".." components or an absolute path) is rejected.
func Extract(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("archivefile: open %q: %w", archivePath, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("archivefile: mkdir %q: %w", destDir, err)
	}

	for _, f := range zr.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("archivefile: mkdir %q: %w", target, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("archivefile: mkdir %q: %w", filepath.Dir(target), err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("archivefile: open entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("archivefile: create %q: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("archivefile: extract %q: %w", f.Name, err)
	}
	return nil
}

// safeJoin joins destDir with a POSIX-style archive entry name, rejecting
// any name that would resolve outside destDir.
func safeJoin(destDir, name string) (string, error) {
	name = toArchiveName(name)
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("archivefile: entry %q is absolute", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fmt.Errorf("archivefile: entry %q escapes destination", name)
		}
	}
	return filepath.Join(destDir, filepath.FromSlash(name)), nil
}

// toArchiveName normalizes name to the forward-slash form the ZIP format
// requires for entry names.
func toArchiveName(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}
