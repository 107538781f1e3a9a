// Package modsyncfs resolves the symbolic target names a host app passes
// around (a saved profile name, "desktop", a bare absolute path) into real
// directories on disk, and prepares those directories for a sync. It is
// the engine's filesystem collaborator (§6).
package modsyncfs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mpsync/core/fs/pathutil"
)

// PathResolver turns a host-supplied target name into an absolute
// directory path. Hosts that only ever pass already-resolved absolute
// paths can use Default, which treats any input as a literal path.
type PathResolver interface {
	ResolveTarget(name string) (string, error)
}

// Default resolves "desktop" to the user's Desktop folder and treats any
// other input as a literal path (made absolute if it wasn't already). It
// mirrors the default-save-location behavior of the original desktop
// client, which offers the user's Desktop as the suggested export
// destination.
type Default struct{}

// ResolveTarget implements PathResolver.
func (Default) ResolveTarget(name string) (string, error) {
	if name == "" || name == "desktop" {
		return DefaultExportPath()
	}
	if pathutil.IsAbsolute(name) {
		return filepath.Clean(name), nil
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", fmt.Errorf("modsyncfs: resolve %q: %w", name, err)
	}
	return abs, nil
}

// DefaultExportPath returns the suggested default location for a packager
// export: the current user's Desktop folder, falling back to the working
// directory when the home directory can't be resolved (e.g. no $HOME set).
// Mirrors the original desktop client's save-dialog default, which falls
// back the same way when it can't find a Desktop folder.
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return "", fmt.Errorf("modsyncfs: resolve home directory: %w", err)
		}
		return wd, nil
	}
	return filepath.Join(home, "Desktop"), nil
}

// EnsureDir creates dir, and any missing parents, if it doesn't already
// exist. It is a thin wrapper used throughout the applier and packager so
// every directory-creation call site shares one error-wrapping style.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("modsyncfs: create directory %q: %w", dir, err)
	}
	return nil
}

// JoinRelative joins target with a manifest-style POSIX relative path,
// converting it to the host's native separator.
func JoinRelative(target, relativePath string) string {
	return filepath.Join(target, pathutil.FromVirtualPath(relativePath))
}
