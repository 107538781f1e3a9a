// Package apply implements the applier (§4.7): it turns a diff into a work
// plan, fetches remote payloads concurrently with retries, verifies or
// extracts each one, and prunes files the manifest no longer describes.
package apply

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mpsync/core/archivefile"
	"github.com/mpsync/core/contenthash"
	"github.com/mpsync/core/diff"
	"github.com/mpsync/core/exclude"
	"github.com/mpsync/core/httpfetch"
	"github.com/mpsync/core/manifest"
	"github.com/mpsync/core/modsyncfs"
	"github.com/mpsync/core/stats"
	"github.com/mpsync/core/syncevent"
	"github.com/mpsync/core/syncstatus"
)

// chunkSize bounds how much of a response body is read per write, so
// DownloadProgress events are emitted incrementally rather than once per
// file.
const chunkSize = 64 * 1024

// defaultRetryAttempts is the number of download attempts per entry before
// it's reported as failed (§4.7 Phase 2).
const defaultRetryAttempts = 3

// Options configures one Apply run.
type Options struct {
	Excluded                 map[string]struct{}
	OverrideDisableHashCheck bool
	OverrideDisableSizeCheck bool
	// Concurrency bounds the number of simultaneous entry tasks. Zero
	// means runtime.NumCPU().
	Concurrency int
	// RetryAttempts bounds download attempts per entry. Zero means 3.
	RetryAttempts int
	// ScanConcurrency bounds the local scanner's parallel hashing workers
	// during the Phase 1 diff. Zero means runtime.NumCPU().
	ScanConcurrency int
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return max(runtime.NumCPU(), 1)
}

func (o Options) retryAttempts() int {
	if o.RetryAttempts > 0 {
		return o.RetryAttempts
	}
	return defaultRetryAttempts
}

// HashMismatchError is returned when a downloaded non-archive entry's
// content hash doesn't match the manifest.
type HashMismatchError struct {
	RelativePath     string
	Expected, Actual string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("apply: %s: hash mismatch: expected %s, got %s", e.RelativePath, e.Expected, e.Actual)
}

// DownloadFailedError is returned when every retry attempt for an entry
// fails.
type DownloadFailedError struct {
	RelativePath string
	Attempts     int
	Err          error
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("apply: %s: failed after %d attempts: %v", e.RelativePath, e.Attempts, e.Err)
}
func (e *DownloadFailedError) Unwrap() error { return e.Err }

// Apply reconciles target with m: it diffs, downloads everything New,
// Modified, or force-updated, verifies or extracts each payload, and
// prunes files the manifest no longer describes (§4.7).
func Apply(ctx context.Context, m *manifest.Manifest, target string, getter httpfetch.Getter, opts Options, sink syncevent.Sink, collector stats.Collector) (*syncstatus.BatchResult, error) {
	if collector == nil {
		collector = stats.NoopCollector{}
	}

	diffStart := time.Now()
	results, err := diff.Diff(ctx, m, target, diff.Options{
		Excluded:                 opts.Excluded,
		OverrideDisableHashCheck: opts.OverrideDisableHashCheck,
		OverrideDisableSizeCheck: opts.OverrideDisableSizeCheck,
		ScanConcurrency:          opts.ScanConcurrency,
	})
	if err != nil {
		return nil, err
	}
	collector.AfterDiff(stats.CountsFromResults(results), time.Since(diffStart))

	var toDownload []*manifest.Entry
	for i := range results {
		r := &results[i]
		if r.Entry == nil {
			continue
		}
		if r.Status == diff.New || r.Status == diff.Modified || r.Status == diff.ForceUpdate {
			toDownload = append(toDownload, r.Entry)
		}
	}

	result := &syncstatus.BatchResult{Attempted: len(toDownload)}
	if len(toDownload) == 0 {
		syncevent.EmitOverallProgress(sink, 100)
		if err := prune(m, target, opts.Excluded, collector); err != nil {
			return result, err
		}
		return result, nil
	}

	excludedAbs := make(map[string]struct{}, len(opts.Excluded))
	for p := range opts.Excluded {
		excludedAbs[modsyncfs.JoinRelative(target, p)] = struct{}{}
	}

	var completed atomic.Int64
	var mu sync.Mutex
	total := int64(len(toDownload))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency())

	for _, entry := range toDownload {
		entry := entry
		g.Go(func() error {
			start := time.Now()
			bytesWritten, err := fetchAndInstall(gctx, target, entry, getter, opts, sink, excludedAbs)
			collector.AfterDownload(stats.DownloadStat{
				RelativePath: entry.RelativePath,
				Bytes:        bytesWritten,
				Runtime:      time.Since(start),
				Attempts:     opts.retryAttempts(),
				Err:          err,
			})
			if err != nil {
				syncevent.EmitDownloadError(sink, err.Error())
				mu.Lock()
				result.Failed = append(result.Failed, syncstatus.EntryFailure{RelativePath: entry.RelativePath, Err: err})
				mu.Unlock()
				return nil
			}

			n := completed.Add(1)
			mu.Lock()
			result.Succeeded = append(result.Succeeded, entry.RelativePath)
			mu.Unlock()
			syncevent.EmitDownloadSuccess(sink, entry.Name)
			syncevent.EmitOverallProgress(sink, float64(n)/float64(total)*100)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	if err := prune(m, target, opts.Excluded, collector); err != nil {
		return result, err
	}
	return result, nil
}

// fetchAndInstall runs Phase 2 (download with retry) then Phase 3
// (verify/extract) for one entry, returning the number of bytes written.
func fetchAndInstall(ctx context.Context, target string, entry *manifest.Entry, getter httpfetch.Getter, opts Options, sink syncevent.Sink, excludedAbs map[string]struct{}) (uint64, error) {
	dest := modsyncfs.JoinRelative(target, entry.RelativePath)
	if err := modsyncfs.EnsureDir(filepath.Dir(dest)); err != nil {
		return 0, err
	}

	var lastErr error
	attempts := opts.retryAttempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		written, err := downloadOnce(ctx, entry, dest, getter, sink)
		if err == nil {
			if err := verifyOrExtract(target, entry, dest, excludedAbs); err != nil {
				return written, err
			}
			return written, nil
		}
		lastErr = err
	}
	return 0, &DownloadFailedError{RelativePath: entry.RelativePath, Attempts: attempts, Err: lastErr}
}

func downloadOnce(ctx context.Context, entry *manifest.Entry, dest string, getter httpfetch.Getter, sink syncevent.Sink) (uint64, error) {
	body, size, err := getter.Get(ctx, entry.DownloadURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	total := entry.Size
	if size >= 0 {
		total = uint64(size)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("apply: create %q: %w", dest, err)
	}
	defer out.Close()

	var downloaded uint64
	buf := make([]byte, chunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return downloaded, fmt.Errorf("apply: write %q: %w", dest, werr)
			}
			downloaded += uint64(n)
			progress := 0.0
			if total > 0 {
				progress = float64(downloaded) / float64(total) * 100
			}
			syncevent.EmitDownloadProgress(sink, entry.Name, total, downloaded, progress)
		}
		if readErr == io.EOF {
			return downloaded, nil
		}
		if readErr != nil {
			return downloaded, fmt.Errorf("apply: read %q: %w", entry.DownloadURL, readErr)
		}
	}
}

// verifyOrExtract runs Phase 3 for one entry: auto-extract archives
// (pruning the extraction directory with exclusion awareness first), or
// hash-verify plain files.
func verifyOrExtract(target string, entry *manifest.Entry, downloadedPath string, excludedAbs map[string]struct{}) error {
	if entry.ShouldAutoExtract() {
		extractDir := modsyncfs.JoinRelative(target, entry.ExtractDirName())
		if err := pruneExtractDir(extractDir, excludedAbs); err != nil {
			return err
		}
		if err := modsyncfs.EnsureDir(extractDir); err != nil {
			return err
		}
		if err := archivefile.Extract(downloadedPath, extractDir); err != nil {
			return err
		}
		return os.Remove(downloadedPath)
	}

	if entry.Hash == contenthash.Disabled {
		return nil
	}
	actual, err := contenthash.File(downloadedPath)
	if err != nil {
		return err
	}
	if actual != entry.Hash {
		return &HashMismatchError{RelativePath: entry.RelativePath, Expected: entry.Hash, Actual: actual}
	}
	return nil
}

// pruneExtractDir removes everything under extractDir except paths in
// excludedAbs and their ancestors, leaving extractDir itself in place.
// Called before re-extracting an archive so stale content from a previous
// install doesn't linger alongside the new contents.
func pruneExtractDir(extractDir string, excludedAbs map[string]struct{}) error {
	if _, err := os.Stat(extractDir); err != nil {
		return nil
	}
	keep := ancestorsOf(excludedAbs, extractDir)
	return removeUnlisted(extractDir, excludedAbs, keep, extractDir)
}

func ancestorsOf(paths map[string]struct{}, stopAt string) map[string]struct{} {
	ancestors := make(map[string]struct{})
	for p := range paths {
		dir := filepath.Dir(p)
		for dir != stopAt && dir != "." && dir != string(filepath.Separator) {
			ancestors[dir] = struct{}{}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return ancestors
}

// removeUnlisted walks root contents-first, removing any path that is
// neither in excluded, nor in ancestors (directories holding an excluded
// path), nor equal to preserve, leaving preserve itself untouched.
func removeUnlisted(root string, excluded, ancestors map[string]struct{}, preserve string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("apply: read %q: %w", root, err)
	}
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if e.IsDir() {
			if err := removeUnlisted(path, excluded, ancestors, preserve); err != nil {
				return err
			}
			if _, isExcluded := excluded[path]; isExcluded {
				continue
			}
			if _, isAncestor := ancestors[path]; isAncestor {
				continue
			}
			if path == preserve {
				continue
			}
			// Only removes if now empty; a directory that still holds a
			// preserved descendant is left alone.
			_ = os.Remove(path)
			continue
		}
		if _, isExcluded := excluded[path]; isExcluded {
			continue
		}
		if path == preserve {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("apply: remove %q: %w", path, err)
		}
	}
	return nil
}

// prune runs Phase 4: for every manifest top-level dir, remove any path
// that is neither a manifest-described install path nor excluded.
// .sync_exclude.json is always implicitly preserved.
func prune(m *manifest.Manifest, target string, excluded map[string]struct{}, collector stats.Collector) error {
	start := time.Now()
	keep := make(map[string]struct{}, len(m.Entries))
	for _, e := range m.Entries {
		keep[modsyncfs.JoinRelative(target, e.RelativePath)] = struct{}{}
		if e.ShouldAutoExtract() {
			keep[modsyncfs.JoinRelative(target, e.ExtractDirName())] = struct{}{}
		}
	}
	excludeAbs := make(map[string]struct{}, len(excluded)+1)
	for p := range excluded {
		excludeAbs[modsyncfs.JoinRelative(target, p)] = struct{}{}
	}
	excludeAbs[exclude.Path(target)] = struct{}{}

	stat := stats.PruneStat{}
	for _, dir := range m.TopLevelDirs() {
		root := modsyncfs.JoinRelative(target, dir)
		// A root-level entry's first component is the file itself; only
		// directories have anything beneath them to prune.
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			continue
		}
		if err := pruneTree(root, keep, excludeAbs, &stat); err != nil {
			stat.Err = err
			collector.AfterPrune(stat)
			return err
		}
	}
	stat.Runtime = time.Since(start)
	collector.AfterPrune(stat)
	return nil
}

func pruneTree(root string, keep, excluded map[string]struct{}, stat *stats.PruneStat) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("apply: read %q: %w", root, err)
	}
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if e.IsDir() {
			if err := pruneTree(path, keep, excluded, stat); err != nil {
				return err
			}
			if _, ok := keep[path]; ok {
				continue
			}
			if _, ok := excluded[path]; ok {
				continue
			}
			if os.Remove(path) == nil {
				stat.DirsRemoved++
			}
			continue
		}
		if _, ok := keep[path]; ok {
			continue
		}
		if _, ok := excluded[path]; ok {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("apply: remove %q: %w", path, err)
		}
		stat.FilesRemoved++
	}
	return nil
}
