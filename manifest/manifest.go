// Package manifest is the on-wire and on-disk data model for a modpack
// package: the declarative description of every payload a sync applies to a
// target directory, along with its content hash, size, and install
// semantics (§3, §4.3).
package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mpsync/core/contenthash"
)

// Manifest is a single, immutable-for-the-duration-of-one-sync document
// describing a package's contents.
type Manifest struct {
	PackageName       string
	Version           string
	Description       string
	DisableHashCheck  bool
	DisableSizeCheck  bool
	CreatedAt         time.Time
	Entries           []Entry
}

type manifestWire struct {
	PackageName      string          `json:"packageName"`
	PackageNameAlias string          `json:"package_name,omitempty"`
	Version          string          `json:"version"`
	Description      string          `json:"description,omitempty"`
	DisableHashCheck bool            `json:"disableHashCheck,omitempty"`
	DisableSizeCheck bool            `json:"disableSizeCheck,omitempty"`
	CreatedAt        string          `json:"createdAt"`
	Entries          []Entry         `json:"files"`
}

// UnmarshalJSON decodes a manifest, accepting the legacy package_name alias
// for packageName (§4.3) and tolerating a missing or malformed createdAt
// rather than failing the whole decode.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var w manifestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return &ParseError{Err: err}
	}
	m.PackageName = firstNonEmpty(w.PackageName, w.PackageNameAlias)
	m.Version = w.Version
	m.Description = w.Description
	m.DisableHashCheck = w.DisableHashCheck
	m.DisableSizeCheck = w.DisableSizeCheck
	m.Entries = w.Entries
	if w.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, w.CreatedAt); err == nil {
			m.CreatedAt = t
		}
	}
	return nil
}

// MarshalJSON writes a manifest using only canonical field names, matching
// the wire example in §6.
func (m Manifest) MarshalJSON() ([]byte, error) {
	out := manifestWire{
		PackageName:      m.PackageName,
		Version:          m.Version,
		Description:      m.Description,
		DisableHashCheck: m.DisableHashCheck,
		DisableSizeCheck: m.DisableSizeCheck,
		CreatedAt:        m.CreatedAt.UTC().Format(time.RFC3339),
		Entries:          m.Entries,
	}
	return json.Marshal(out)
}

// ParseError wraps a manifest decode failure (§7 ManifestError).
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("manifest: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes a manifest from its JSON representation and validates the
// result (Validate).
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the per-entry and cross-entry invariants from §3: no
// empty/absolute/".."-containing relative paths, a 64-hex-or-DISABLED hash,
// and uniqueness of relativePath across the manifest.
func (m *Manifest) Validate() error {
	seen := make(map[string]struct{}, len(m.Entries))
	for i, e := range m.Entries {
		if e.RelativePath == "" {
			return &ParseError{Err: fmt.Errorf("entry %d (%s): empty relativePath", i, e.Name)}
		}
		if strings.HasPrefix(e.RelativePath, "/") {
			return &ParseError{Err: fmt.Errorf("entry %d (%s): relativePath %q must not be absolute", i, e.Name, e.RelativePath)}
		}
		for _, part := range strings.Split(e.RelativePath, "/") {
			if part == ".." {
				return &ParseError{Err: fmt.Errorf("entry %d (%s): relativePath %q contains \"..\"", i, e.Name, e.RelativePath)}
			}
		}
		if !contenthash.Valid(e.Hash) {
			return &ParseError{Err: fmt.Errorf("entry %d (%s): invalid hash %q", i, e.Name, e.Hash)}
		}
		if _, dup := seen[e.RelativePath]; dup {
			return &ParseError{Err: fmt.Errorf("duplicate relativePath %q", e.RelativePath)}
		}
		seen[e.RelativePath] = struct{}{}
	}
	return nil
}

// TopLevelDirs returns the set of first path components across every entry's
// relativePath — the scope of scanning and pruning (§4.2, §4.6, §4.7). For
// an entry at the target root (e.g. "mods.zip") that component is the entry's
// own file name, so it is included too.
func (m *Manifest) TopLevelDirs() []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, e := range m.Entries {
		first, _, _ := strings.Cut(e.RelativePath, "/")
		if first == "" {
			continue
		}
		if _, ok := seen[first]; !ok {
			seen[first] = struct{}{}
			dirs = append(dirs, first)
		}
	}
	return dirs
}
