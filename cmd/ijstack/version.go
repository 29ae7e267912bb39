package main

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/urfave/cli/v3"
)

// Set via -ldflags.
var (
	version   = ""
	commit    = ""
	buildTime = ""
)

func resolveVersion() (v, rev, built string) {
	v, rev, built = version, commit, buildTime
	if bi, ok := debug.ReadBuildInfo(); ok {
		if v == "" && bi.Main.Version != "" {
			v = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if rev == "" {
					rev = s.Value
				}
			case "vcs.time":
				if built == "" {
					built = s.Value
				}
			}
		}
	}
	if v == "" {
		v = "(devel)"
	}
	return v, rev, built
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(context.Context, *cli.Command) error {
			v, rev, built := resolveVersion()
			fmt.Printf("version:    %s\n", v)
			if rev != "" {
				fmt.Printf("commit:     %s\n", rev)
			}
			if built != "" {
				fmt.Printf("build time: %s\n", built)
			}
			return nil
		},
	}
}
