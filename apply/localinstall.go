package apply

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mpsync/core/archivefile"
	"github.com/mpsync/core/manifest"
	"github.com/mpsync/core/modsyncfs"
	"github.com/mpsync/core/stats"
	"github.com/mpsync/core/syncevent"
	"github.com/mpsync/core/syncstatus"
)

// ApplyLocalPackage installs a manifest's entries from an on-disk archive
// rather than over the network (§4.8). Unlike Apply, it only installs
// entries whose target path doesn't already exist — no hash comparison is
// performed, and an entry whose path already exists locally is left
// untouched even if its content differs. This mirrors the original
// client's offline-install behavior (§9 Design Notes: "install only if
// missing" is preserved as observed, not corrected).
//
// After installing, Phase 4 prune runs exactly as it does for Apply.
func ApplyLocalPackage(archivePath, target string, opts Options, sink syncevent.Sink, collector stats.Collector) (*syncstatus.BatchResult, error) {
	if collector == nil {
		collector = stats.NoopCollector{}
	}

	data, err := archivefile.ReadManifest(archivePath)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, err
	}

	var toInstall []*manifest.Entry
	for i := range m.Entries {
		e := &m.Entries[i]
		installPath := modsyncfs.JoinRelative(target, installTargetPath(e))
		if _, err := os.Stat(installPath); err == nil {
			continue
		}
		toInstall = append(toInstall, e)
	}

	result := &syncstatus.BatchResult{Attempted: len(toInstall)}
	total := len(toInstall)
	for i, e := range toInstall {
		if err := installFromArchive(archivePath, target, e); err != nil {
			syncevent.EmitDownloadError(sink, err.Error())
			result.Failed = append(result.Failed, syncstatus.EntryFailure{RelativePath: e.RelativePath, Err: err})
			collector.AfterDownload(stats.DownloadStat{RelativePath: e.RelativePath, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, e.RelativePath)
		collector.AfterDownload(stats.DownloadStat{RelativePath: e.RelativePath, Bytes: e.Size})
		syncevent.EmitDownloadSuccess(sink, e.Name)
		syncevent.EmitOverallProgress(sink, float64(i+1)/float64(total)*100)
	}
	if total == 0 {
		syncevent.EmitOverallProgress(sink, 100)
	}

	if err := prune(m, target, opts.Excluded, collector); err != nil {
		return result, err
	}
	return result, nil
}

// installTargetPath is the path (relative to target) whose existence
// governs "install only if missing": for archive entries this is the
// extraction directory, for plain files it's the file itself.
func installTargetPath(e *manifest.Entry) string {
	if e.ShouldAutoExtract() {
		return e.ExtractDirName()
	}
	return e.RelativePath
}

func installFromArchive(archivePath, target string, e *manifest.Entry) error {
	data, err := archivefile.ReadEntry(archivePath, e.RelativePath)
	if err != nil {
		return err
	}

	if e.ShouldAutoExtract() {
		tmp, err := os.CreateTemp("", "mpsync-install-*.zip")
		if err != nil {
			return fmt.Errorf("apply: create temp archive: %w", err)
		}
		tmpPath := tmp.Name()
		defer os.Remove(tmpPath)
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("apply: write temp archive: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return err
		}
		extractDir := modsyncfs.JoinRelative(target, e.ExtractDirName())
		if err := modsyncfs.EnsureDir(extractDir); err != nil {
			return err
		}
		return archivefile.Extract(tmpPath, extractDir)
	}

	dest := modsyncfs.JoinRelative(target, e.RelativePath)
	if err := modsyncfs.EnsureDir(filepath.Dir(dest)); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}
