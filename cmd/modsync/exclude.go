package main

import (
	"flag"
	"fmt"

	"github.com/mpsync/core/exclude"
)

func runExclude(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("exclude: expected a subcommand: add, remove, list")
	}
	sub, rest := args[0], args[1:]

	fs := flag.NewFlagSet("exclude "+sub, flag.ExitOnError)
	target := fs.String("target", "", "target directory")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if *target == "" {
		return fmt.Errorf("exclude %s: -target is required", sub)
	}

	switch sub {
	case "list":
		list, err := exclude.Load(*target)
		if err != nil {
			return err
		}
		for _, p := range list {
			fmt.Println(p)
		}
		return nil
	case "add":
		path := fs.Arg(0)
		if path == "" {
			return fmt.Errorf("exclude add: a relative path is required")
		}
		return exclude.Add(*target, path)
	case "remove":
		path := fs.Arg(0)
		if path == "" {
			return fmt.Errorf("exclude remove: a relative path is required")
		}
		return exclude.Remove(*target, path)
	default:
		return fmt.Errorf("exclude: unknown subcommand %q", sub)
	}
}
