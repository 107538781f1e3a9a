// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pathutil provides the cross-platform path conversions the engine
// needs to keep manifest relativePaths POSIX-formatted on the wire while
// operating on OS-native paths on disk.
package pathutil

import (
	"path/filepath"
	"runtime"
	"strings"
)

// ToVirtualPath converts a path to the manifest's wire format (forward
// slashes), regardless of host OS. Used when recording a scanned or
// exported file's path into a relativePath.
func ToVirtualPath(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// FromVirtualPath converts a manifest relativePath back to the current
// OS's native separator.
func FromVirtualPath(path string) string {
	if runtime.GOOS == "windows" {
		return filepath.FromSlash(path)
	}
	return path
}

// IsAbsolute reports whether path is absolute, handling both Unix and
// Windows forms.
func IsAbsolute(path string) bool {
	return filepath.IsAbs(path)
}
