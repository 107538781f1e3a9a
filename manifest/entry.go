package manifest

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// FileType is the install semantics of a manifest Entry.
type FileType string

// Entry file types, per the manifest wire format.
const (
	// FileTypeFile is a plain file installed at RelativePath.
	FileTypeFile FileType = "file"
	// FileTypeZip is an archive that is (normally) auto-extracted and removed.
	FileTypeZip FileType = "zip"
	// FileTypeUpdatePackage is a publisher hint that the archive is an
	// updater payload; it behaves identically to an auto-extract zip.
	FileTypeUpdatePackage FileType = "update_package"
)

// IsArchive reports whether t is one of the archive file types that the
// applier always force-refetches and (when AutoExtract) extracts.
func (t FileType) IsArchive() bool {
	return t == FileTypeZip || t == FileTypeUpdatePackage
}

// Entry describes one payload in the manifest: its install location, its
// download source, and how the applier should verify or extract it.
type Entry struct {
	// Name is the leaf file name, for display.
	Name string
	// DownloadURL is the absolute URL the applier fetches the payload from.
	DownloadURL string
	// RelativePath is the POSIX-style path, relative to the target
	// directory, this entry installs to. For file entries it's also the
	// archive entry name inside the outer package archive.
	RelativePath string
	// Hash is the lowercase hex SHA-256 of the payload, or contenthash.Disabled.
	Hash string
	// Size is the payload length in bytes.
	Size uint64
	// FileType is one of FileTypeFile, FileTypeZip, FileTypeUpdatePackage.
	FileType FileType
	// AutoExtract, when true and FileType is an archive type, tells the
	// applier to extract the downloaded archive into <target>/<stem(Name)>
	// and delete the archive afterward.
	AutoExtract bool
}

// ExtractDirName returns the directory name (relative to the target) that
// an auto-extracted archive entry unpacks into: the entry name without its
// extension.
func (e Entry) ExtractDirName() string {
	ext := path.Ext(e.Name)
	return strings.TrimSuffix(e.Name, ext)
}

// ShouldAutoExtract reports whether the applier should extract this entry
// after download rather than verify its hash in place.
func (e Entry) ShouldAutoExtract() bool {
	return e.FileType.IsArchive() && e.AutoExtract
}

// entryWire is the on-wire shape of an Entry, accepting every legacy alias
// listed in the manifest schema (§4.3): url/download_url for downloadUrl,
// relative_path for relativePath, type for fileType, auto_extract for
// autoExtract. Unknown fields are ignored by encoding/json by default.
type entryWire struct {
	Name         string   `json:"name"`
	DownloadURL  string   `json:"downloadUrl"`
	URLAlias     string   `json:"url"`
	URLAlias2    string   `json:"download_url"`
	RelativePath string   `json:"relativePath"`
	RelPathAlias string   `json:"relative_path"`
	Hash         string   `json:"hash"`
	Size         uint64   `json:"size"`
	FileType     FileType `json:"fileType"`
	TypeAlias    FileType `json:"type"`
	AutoExtract  *bool    `json:"autoExtract"`
	AutoExAlias  *bool    `json:"auto_extract"`
}

// UnmarshalJSON implements the legacy field-name aliasing required by §4.3.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w entryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("manifest: decode entry: %w", err)
	}
	e.Name = w.Name
	e.DownloadURL = firstNonEmpty(w.DownloadURL, w.URLAlias, w.URLAlias2)
	e.RelativePath = normalizeRelativePath(firstNonEmpty(w.RelativePath, w.RelPathAlias))
	e.Hash = w.Hash
	e.Size = w.Size
	e.FileType = w.FileType
	if e.FileType == "" {
		e.FileType = w.TypeAlias
	}
	if w.AutoExtract != nil {
		e.AutoExtract = *w.AutoExtract
	} else if w.AutoExAlias != nil {
		e.AutoExtract = *w.AutoExAlias
	}
	return nil
}

// MarshalJSON always writes the canonical field names (never the legacy
// aliases), with autoExtract omitted when false to match the wire example
// in §6 for entries that don't set it.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := struct {
		Name         string   `json:"name"`
		DownloadURL  string   `json:"downloadUrl"`
		RelativePath string   `json:"relativePath"`
		Hash         string   `json:"hash"`
		Size         uint64   `json:"size"`
		FileType     FileType `json:"fileType"`
		AutoExtract  *bool    `json:"autoExtract,omitempty"`
	}{
		Name:         e.Name,
		DownloadURL:  e.DownloadURL,
		RelativePath: e.RelativePath,
		Hash:         e.Hash,
		Size:         e.Size,
		FileType:     e.FileType,
	}
	if e.AutoExtract {
		v := true
		out.AutoExtract = &v
	}
	return json.Marshal(out)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// normalizeRelativePath converts backslashes to forward slashes and strips
// any leading separator, per the relativePath invariant in §3.
func normalizeRelativePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.TrimLeft(p, "/")
}
