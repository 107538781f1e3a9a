// Package exclude persists the user's list of paths a sync must never
// touch (§4.9). The list lives at a fixed, well-known location inside the
// target directory so it survives across syncs without any other
// configuration.
package exclude

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the exclusion list's file name, relative to a target
// directory. The applier and differ both implicitly treat this path as
// excluded from deletion, regardless of whether it appears in the loaded
// list.
const FileName = ".sync_exclude.json"

// Path returns the exclusion file's path for target.
func Path(target string) string {
	return filepath.Join(target, FileName)
}

// Load reads the exclusion list for target. A missing file is not an
// error: it is equivalent to an empty list, matching a target that has
// never had an exclusion configured.
func Load(target string) ([]string, error) {
	data, err := os.ReadFile(Path(target))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("exclude: read %q: %w", Path(target), err)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("exclude: parse %q: %w", Path(target), err)
	}
	return list, nil
}

// Save writes list as the exclusion list for target, pretty-printed.
func Save(target string, list []string) error {
	if list == nil {
		list = []string{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("exclude: encode: %w", err)
	}
	if err := os.WriteFile(Path(target), data, 0o644); err != nil {
		return fmt.Errorf("exclude: write %q: %w", Path(target), err)
	}
	return nil
}

// Set builds a lookup set from a loaded exclusion list, for use with
// diff.Options.Excluded and the applier's prune step.
func Set(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, p := range list {
		set[p] = struct{}{}
	}
	return set
}

// Add appends path to target's exclusion list if not already present, and
// persists the result.
func Add(target, path string) error {
	list, err := Load(target)
	if err != nil {
		return err
	}
	for _, p := range list {
		if p == path {
			return nil
		}
	}
	return Save(target, append(list, path))
}

// Remove drops path from target's exclusion list, if present, and
// persists the result.
func Remove(target, path string) error {
	list, err := Load(target)
	if err != nil {
		return err
	}
	out := list[:0]
	for _, p := range list {
		if p != path {
			out = append(out, p)
		}
	}
	return Save(target, out)
}
