package main

import (
	"fmt"
	"os"

	"github.com/mpsync/core/exclude"
	"github.com/mpsync/core/packager"
)

func selectionKind(path string) (packager.Kind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %q: %w", path, err)
	}
	if info.IsDir() {
		return packager.KindFolder, nil
	}
	return packager.KindFile, nil
}

func loadExcludedSet(target string) (map[string]struct{}, error) {
	list, err := exclude.Load(target)
	if err != nil {
		return nil, err
	}
	return exclude.Set(list), nil
}
