// Package diff classifies a manifest's entries against a target
// directory's current contents (§4.6). It is the pure decision layer
// between the local scanner and the applier: given a manifest, a local
// index, and the user's exclusions, it produces the set of actions a sync
// needs to take.
package diff

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mpsync/core/contenthash"
	"github.com/mpsync/core/localindex"
	"github.com/mpsync/core/manifest"
)

// Status is the classification of one manifest entry or local file.
type Status string

// Classification statuses, per §4.6's decision table.
const (
	Unchanged   Status = "unchanged"
	New         Status = "new"
	Modified    Status = "modified"
	Extra       Status = "extra"
	Excluded    Status = "excluded"
	ForceUpdate Status = "force_update"
)

// Result is one row of a diff: either a manifest entry (Path is its
// relativePath, Entry non-nil) or a local-only file (Path is its
// target-relative POSIX path, Entry nil).
type Result struct {
	Path   string
	Status Status
	Entry  *manifest.Entry
}

// Options carries the differ's override flags (§4.6).
type Options struct {
	// Excluded is the set of target-relative POSIX paths the user has
	// protected from being treated as New/Modified/Extra.
	Excluded map[string]struct{}
	// OverrideDisableHashCheck, when true, disables hash verification
	// regardless of the manifest's own disableHashCheck.
	OverrideDisableHashCheck bool
	// OverrideDisableSizeCheck, when true, disables size-based fallback
	// verification regardless of the manifest's own disableSizeCheck.
	OverrideDisableSizeCheck bool
	// ScanConcurrency bounds the local scanner's parallel hashing workers.
	// Zero means runtime.NumCPU().
	ScanConcurrency int
}

// Diff scans target's manifest-relevant top-level directories and
// classifies every manifest entry plus every local extra, per the table in
// §4.6.
func Diff(ctx context.Context, m *manifest.Manifest, target string, opts Options) ([]Result, error) {
	dirs := m.TopLevelDirs()
	idx, err := localindex.Scan(ctx, target, dirs, opts.ScanConcurrency)
	if err != nil {
		return nil, err
	}
	return Classify(m, idx, target, opts), nil
}

// Classify applies the decision table in §4.6 to a manifest given an
// already-built local index keyed by target-relative POSIX path. target is
// used only for the size-check fallback (disableHash=true,
// disableSize=false), which needs a stat the index alone can't provide.
// This separation from Diff makes the decision logic directly testable
// against a hand-built index.
func Classify(m *manifest.Manifest, idx localindex.Index, target string, opts Options) []Result {
	disableHash := opts.OverrideDisableHashCheck || m.DisableHashCheck
	disableSize := opts.OverrideDisableSizeCheck || m.DisableSizeCheck

	manifestPaths := make(map[string]struct{}, len(m.Entries))
	results := make([]Result, 0, len(m.Entries))

	for i := range m.Entries {
		e := &m.Entries[i]
		manifestPaths[e.RelativePath] = struct{}{}
		results = append(results, Result{
			Path:   e.RelativePath,
			Status: classifyEntry(e, idx, target, opts, disableHash, disableSize),
			Entry:  e,
		})
	}

	for path := range idx {
		if _, inManifest := manifestPaths[path]; inManifest {
			continue
		}
		if isExcluded(path, opts.Excluded) {
			continue
		}
		results = append(results, Result{Path: path, Status: Extra})
	}

	return results
}

func classifyEntry(e *manifest.Entry, idx localindex.Index, target string, opts Options, disableHash, disableSize bool) Status {
	if isExcluded(e.RelativePath, opts.Excluded) {
		return Excluded
	}
	if e.FileType.IsArchive() {
		return ForceUpdate
	}

	localHash, exists := idx[e.RelativePath]
	if !exists {
		return New
	}

	if !disableHash {
		if contenthash.Equal(localHash, e.Hash) {
			return Unchanged
		}
		return Modified
	}

	if disableSize {
		return Unchanged
	}

	info, err := os.Stat(filepath.Join(target, filepath.FromSlash(e.RelativePath)))
	if err != nil {
		return Modified
	}
	if uint64(info.Size()) == e.Size {
		return Unchanged
	}
	return Modified
}

func isExcluded(path string, excluded map[string]struct{}) bool {
	if excluded == nil {
		return false
	}
	_, ok := excluded[path]
	return ok
}
