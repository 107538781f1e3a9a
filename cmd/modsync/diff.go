package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mpsync/core/config"
	"github.com/mpsync/core/diff"
	"github.com/mpsync/core/manifest"
	"github.com/mpsync/core/modsynclog"
)

func runDiff(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "path to manifest.json")
	target := fs.String("target", "", "target directory")
	configPath := fs.String("config", "", "path to a TOML config file")
	disableHash := fs.Bool("disable-hash-check", false, "disable hash verification")
	disableSize := fs.Bool("disable-size-check", false, "disable size-fallback verification")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *manifestPath == "" || *target == "" {
		return fmt.Errorf("diff: -manifest and -target are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("diff: load config: %w", err)
	}

	m, err := loadManifest(*manifestPath)
	if err != nil {
		return err
	}
	excluded, err := loadExcludedSet(*target)
	if err != nil {
		return err
	}

	results, err := diff.Diff(context.Background(), m, *target, diff.Options{
		Excluded:                 excluded,
		OverrideDisableHashCheck: *disableHash,
		OverrideDisableSizeCheck: *disableSize,
		ScanConcurrency:          cfg.Concurrency.Hash,
	})
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Printf("%-12s %s\n", r.Status, r.Path)
	}
	modsynclog.Infof("%d entries classified", len(results))
	return nil
}

func loadManifest(path string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %q: %w", path, err)
	}
	return manifest.Parse(data)
}
