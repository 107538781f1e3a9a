// Package packager implements the export side of the engine (§4.5): it
// turns a user's file/folder selection into a single outer ZIP archive
// plus the manifest describing every payload inside it.
package packager

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mpsync/core/archivefile"
	"github.com/mpsync/core/contenthash"
	"github.com/mpsync/core/manifest"
	"github.com/mpsync/core/modsyncfs"
	"github.com/mpsync/core/syncevent"
)

// Kind is the type of item a Selection names.
type Kind int

// Selection kinds.
const (
	KindFile Kind = iota
	KindFolder
)

// Selection is one row of the user's export selection.
type Selection struct {
	// AbsolutePath is the item's location on disk.
	AbsolutePath string
	// Kind is KindFile or KindFolder.
	Kind Kind
	// Selected must be true for the item to be exported.
	Selected bool
	// CompressFolder, for a folder selection, wraps the folder as a single
	// inner archive instead of emitting one entry per contained file.
	CompressFolder bool
	// IsUpdatePackage marks a compressed folder as an "update_package"
	// rather than a plain "zip".
	IsUpdatePackage bool
	// Exclusions are paths, relative to AbsolutePath, to skip when walking
	// a folder selection.
	Exclusions []string
}

// Settings carries the export-wide metadata (§4.5 ExportSettings).
type Settings struct {
	PackageName      string
	DownloadPrefix   string
	Version          string
	Description      string
	DisableHashCheck bool
	DisableSizeCheck bool
}

// EmptySelectionError is returned by Export when no item in selections has
// Selected=true.
type EmptySelectionError struct{}

func (EmptySelectionError) Error() string { return "packager: no items selected for export" }

// ExportError wraps any I/O or archive failure encountered while building
// the outer archive. Partial output at outputPath is not cleaned up on
// failure; the caller is expected to discard it.
type ExportError struct {
	Err error
}

func (e *ExportError) Error() string { return fmt.Sprintf("packager: export failed: %v", e.Err) }
func (e *ExportError) Unwrap() error { return e.Err }

// Export runs the algorithm in §4.5: filter to selected items, compute
// relative paths off the first selected item's parent directory, write
// every file (or folder contents, or a compressed inner archive) into
// outputPath, and finish with a manifest.json entry describing every
// payload. Progress is reported through sink (which may be
// syncevent.Discard).
func Export(selections []Selection, settings Settings, outputPath string, sink syncevent.Sink) (err error) {
	selected := make([]Selection, 0, len(selections))
	for _, s := range selections {
		if s.Selected {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		return EmptySelectionError{}
	}

	basePath := filepath.Dir(selected[0].AbsolutePath)

	w, err := archivefile.Create(outputPath)
	if err != nil {
		return &ExportError{Err: err}
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = &ExportError{Err: cerr}
		}
	}()

	entries := make([]manifest.Entry, 0, len(selected))
	total := len(selected)
	for i, s := range selected {
		syncevent.EmitExportProgress(sink, total, i+1, filepath.Base(s.AbsolutePath))

		switch {
		case s.Kind == KindFile:
			e, err := exportFile(w, basePath, s.AbsolutePath, settings)
			if err != nil {
				return &ExportError{Err: err}
			}
			entries = append(entries, e)

		case s.Kind == KindFolder && !s.CompressFolder:
			folderEntries, err := exportFolderFlat(w, basePath, s, settings)
			if err != nil {
				return &ExportError{Err: err}
			}
			entries = append(entries, folderEntries...)

		case s.Kind == KindFolder && s.CompressFolder:
			e, err := exportFolderCompressed(w, basePath, s, settings)
			if err != nil {
				return &ExportError{Err: err}
			}
			entries = append(entries, e)
		}
	}

	m := manifest.Manifest{
		PackageName:      settings.PackageName,
		Version:          settings.Version,
		Description:      settings.Description,
		DisableHashCheck: settings.DisableHashCheck,
		DisableSizeCheck: settings.DisableSizeCheck,
		CreatedAt:        time.Now(),
		Entries:          entries,
	}
	data, err := m.MarshalJSON()
	if err != nil {
		return &ExportError{Err: err}
	}
	if err := w.AddManifest(prettyPrint(data)); err != nil {
		return &ExportError{Err: err}
	}
	return nil
}

func exportFile(w *archivefile.Writer, basePath, absPath string, settings Settings) (manifest.Entry, error) {
	rel, err := relativeTo(basePath, absPath)
	if err != nil {
		return manifest.Entry{}, err
	}
	if err := w.AddFile(rel, absPath); err != nil {
		return manifest.Entry{}, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return manifest.Entry{}, err
	}
	hash := contenthash.Disabled
	if !settings.DisableHashCheck {
		hash, err = contenthash.File(absPath)
		if err != nil {
			return manifest.Entry{}, err
		}
	}
	return manifest.Entry{
		Name:         filepath.Base(absPath),
		DownloadURL:  settings.DownloadPrefix + rel,
		RelativePath: rel,
		Hash:         hash,
		Size:         uint64(info.Size()),
		FileType:     manifest.FileTypeFile,
	}, nil
}

func exportFolderFlat(w *archivefile.Writer, basePath string, s Selection, settings Settings) ([]manifest.Entry, error) {
	excluded := absoluteExclusions(s.AbsolutePath, s.Exclusions)
	var entries []manifest.Entry
	err := filepath.WalkDir(s.AbsolutePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, skip := excluded[path]; skip {
			return nil
		}
		e, err := exportFile(w, basePath, path, settings)
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

func exportFolderCompressed(w *archivefile.Writer, basePath string, s Selection, settings Settings) (manifest.Entry, error) {
	excluded := absoluteExclusions(s.AbsolutePath, s.Exclusions)

	tmpFile, err := os.CreateTemp("", "mpsync-inner-*.zip")
	if err != nil {
		return manifest.Entry{}, err
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	inner, err := archivefile.Create(tmpPath)
	if err != nil {
		return manifest.Entry{}, err
	}
	err = filepath.WalkDir(s.AbsolutePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, skip := excluded[path]; skip {
			return nil
		}
		rel, err := relativeTo(s.AbsolutePath, path)
		if err != nil {
			return err
		}
		return inner.AddFile(rel, path)
	})
	if err != nil {
		inner.Close()
		return manifest.Entry{}, err
	}
	if err := inner.Close(); err != nil {
		return manifest.Entry{}, err
	}

	folderName := filepath.Base(s.AbsolutePath)
	archiveName := folderName + ".zip"
	if err := w.AddFile(archiveName, tmpPath); err != nil {
		return manifest.Entry{}, err
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return manifest.Entry{}, err
	}
	hash := contenthash.Disabled
	if !settings.DisableHashCheck {
		hash, err = contenthash.File(tmpPath)
		if err != nil {
			return manifest.Entry{}, err
		}
	}

	fileType := manifest.FileTypeZip
	if s.IsUpdatePackage {
		fileType = manifest.FileTypeUpdatePackage
	}

	return manifest.Entry{
		Name:         archiveName,
		DownloadURL:  settings.DownloadPrefix + archiveName,
		RelativePath: archiveName,
		Hash:         hash,
		Size:         uint64(info.Size()),
		FileType:     fileType,
		AutoExtract:  true,
	}, nil
}

func absoluteExclusions(root string, exclusions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exclusions))
	for _, e := range exclusions {
		set[filepath.Join(root, filepath.FromSlash(e))] = struct{}{}
	}
	return set
}

func relativeTo(basePath, absPath string) (string, error) {
	rel, err := filepath.Rel(basePath, absPath)
	if err != nil {
		return "", fmt.Errorf("packager: relative path of %q under %q: %w", absPath, basePath, err)
	}
	return filepath.ToSlash(rel), nil
}

// prettyPrint re-indents compact JSON for the manifest.json entry, which
// §4.4 requires to be pretty-printed.
func prettyPrint(compact []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return compact
	}
	return buf.Bytes()
}

// ListSelectable returns the names of a directory's immediate children in
// the order the desktop client presents them for selection: directories
// first, then files, each group sorted lexicographically.
func ListSelectable(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("packager: list %q: %w", dir, err)
	}
	var dirs, files []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)
	return append(dirs, files...), nil
}

// DefaultExportPath returns the suggested default output location for an
// export: the user's Desktop folder, or the working directory when the home
// directory can't be resolved.
func DefaultExportPath() (string, error) {
	return modsyncfs.DefaultExportPath()
}
