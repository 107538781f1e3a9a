package main

import (
	"flag"
	"fmt"

	"github.com/mpsync/core/modsynclog"
	"github.com/mpsync/core/packager"
	"github.com/mpsync/core/syncevent"
)

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "output archive path")
	name := fs.String("name", "", "package name")
	version := fs.String("version", "1.0.0", "package version")
	description := fs.String("description", "", "package description")
	prefix := fs.String("prefix", "", "download URL prefix prepended to every entry's relative path")
	compress := fs.Bool("compress", false, "wrap each selected folder as a single inner archive instead of one entry per file")
	updatePackage := fs.Bool("update-package", false, "mark compressed folders as update_package instead of zip")
	disableHash := fs.Bool("disable-hash-check", false, "omit content hashes from the manifest")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *verbose {
		modsynclog.SetLogger(&modsynclog.DefaultLogger{Verbose: true})
	}

	paths := fs.Args()
	if *out == "" || *name == "" || len(paths) == 0 {
		return fmt.Errorf("export: -out, -name, and at least one path are required")
	}

	selections := make([]packager.Selection, 0, len(paths))
	for _, p := range paths {
		kind, err := selectionKind(p)
		if err != nil {
			return err
		}
		selections = append(selections, packager.Selection{
			AbsolutePath:    p,
			Kind:            kind,
			Selected:        true,
			CompressFolder:  *compress && kind == packager.KindFolder,
			IsUpdatePackage: *updatePackage,
		})
	}

	settings := packager.Settings{
		PackageName:      *name,
		Version:          *version,
		Description:      *description,
		DownloadPrefix:   *prefix,
		DisableHashCheck: *disableHash,
	}

	sink := syncevent.Func(func(e syncevent.Event) {
		if e.Kind == syncevent.KindExportProgress && e.Export != nil {
			modsynclog.Infof("[%d/%d] %s", e.Export.Current, e.Export.Total, e.Export.Name)
		}
	})

	modsynclog.Infof("Exporting %d item(s) to %s", len(selections), *out)
	if err := packager.Export(selections, settings, *out, sink); err != nil {
		return err
	}
	modsynclog.Infof("Export complete: %s", *out)
	return nil
}
