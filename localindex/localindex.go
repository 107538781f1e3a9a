// Package localindex builds a content-hash index of a target directory's
// existing files, scoped to the top-level directories a manifest cares
// about (§4.2). The index is the baseline the differ compares a manifest
// against.
package localindex

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mpsync/core/contenthash"
	"github.com/mpsync/core/fs/pathutil"
)

// Index maps a file's path, relative to the target directory and in POSIX
// form, to its content hash.
type Index map[string]string

// Scan walks each of dirs (paths relative to target) recursively and in
// parallel, hashing every regular file it finds. The returned Index is keyed
// by target-relative POSIX path, e.g. "mods/fancymenu.jar". concurrency
// bounds the number of simultaneous hashing workers; zero or negative means
// runtime.NumCPU().
//
// A root that doesn't exist contributes nothing to the index rather than
// failing the scan: a manifest's top-level directory may simply not exist
// yet on a fresh target, and that is not an error.
func Scan(ctx context.Context, target string, dirs []string, concurrency int) (Index, error) {
	type found struct {
		relPath string
		hash    string
	}

	if concurrency <= 0 {
		concurrency = max(runtime.NumCPU(), 1)
	}

	results := make(chan found)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	done := make(chan struct{})
	idx := make(Index)
	go func() {
		for f := range results {
			idx[f.relPath] = f.hash
		}
		close(done)
	}()

	for _, dir := range dirs {
		root := filepath.Join(target, filepath.FromSlash(dir))
		if _, err := os.Stat(root); err != nil {
			continue
		}
		g.Go(func() error {
			return walkDir(ctx, target, root, func(relPath, hash string) {
				select {
				case results <- found{relPath: relPath, hash: hash}:
				case <-ctx.Done():
				}
			})
		})
	}

	err := g.Wait()
	close(results)
	<-done
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// walkDir hashes every regular file under root, reporting each one via emit
// as target-relative POSIX path plus hash.
func walkDir(ctx context.Context, target, root string, emit func(relPath, hash string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		hash, err := contenthash.File(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(target, path)
		if err != nil {
			return err
		}
		emit(pathutil.ToVirtualPath(rel), hash)
		return nil
	})
}
