// Command modsync is the engine's standalone CLI: it drives export, diff,
// sync, offline install, and exclusion-list maintenance directly against
// the local filesystem, without the desktop shell around it.
package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "export":
		err = runExport(rest)
	case "diff":
		err = runDiff(rest)
	case "sync":
		err = runSync(rest)
	case "install-local":
		err = runInstallLocal(rest)
	case "exclude":
		err = runExclude(rest)
	case "-h", "-help", "--help", "help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "modsync: unknown command %q\n\n", cmd)
		printUsage()
		return 2
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "modsync: %v\n", err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Fprint(os.Stderr, `modsync - modpack sync engine CLI

Usage:
  modsync export -out <archive.zip> -name <package> -prefix <url-prefix> <path>...
  modsync diff -manifest <manifest.json> -target <dir>
  modsync sync -manifest <manifest.json> -target <dir>
  modsync install-local -archive <package.zip> -target <dir>
  modsync exclude add|remove|list -target <dir> [path]

Flags available to a command can be listed with: modsync <command> -h
`)
}
