package main

import (
	"flag"
	"fmt"

	"github.com/mpsync/core/apply"
	"github.com/mpsync/core/modsynclog"
	"github.com/mpsync/core/syncevent"
)

func runInstallLocal(args []string) error {
	fs := flag.NewFlagSet("install-local", flag.ExitOnError)
	archivePath := fs.String("archive", "", "path to a previously exported package archive")
	target := fs.String("target", "", "target directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archivePath == "" || *target == "" {
		return fmt.Errorf("install-local: -archive and -target are required")
	}

	excluded, err := loadExcludedSet(*target)
	if err != nil {
		return err
	}

	sink := syncevent.Func(func(e syncevent.Event) {
		switch e.Kind {
		case syncevent.KindDownloadSuccess:
			modsynclog.Infof("installed %s", e.SuccessName)
		case syncevent.KindDownloadError:
			modsynclog.Errorf("install failed: %s", e.ErrorMessage)
		}
	})

	// ApplyLocalPackage never hash- or size-verifies (it installs only when
	// the target path is missing), so there's no disable-hash/size-check
	// flag to offer here — unlike sync and diff, which do verify.
	result, err := apply.ApplyLocalPackage(*archivePath, *target, apply.Options{
		Excluded: excluded,
	}, sink, nil)
	if err != nil {
		return err
	}

	modsynclog.Infof("install-local: %s", result.String())
	if combined := result.CombinedErr(); combined != nil {
		modsynclog.Errorf("install-local: %v", combined)
		return fmt.Errorf("install-local: %d of %d entries failed", len(result.Failed), result.Attempted)
	}
	return nil
}
