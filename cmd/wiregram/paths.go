package main

import (
	"flag"
	"fmt"

	"github.com/wiregram/wiregram"
)

const pathsUsage = `wiregram paths - Show schema search paths

Usage:
  wiregram paths [options]

Shows the directories searched when SCHEMA is a document name: -p paths,
then configured schema_paths, then system-discovered paths
(~/.wiregram/schemas, paths.conf files, $WIREGRAM_PATH).

Options:
  -h, --help   Show help

Examples:
  wiregram paths
  wiregram paths -p ./schemas
`

func (c *cli) cmdPaths(args []string) int {
	fs := flag.NewFlagSet("paths", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(c.stderr, pathsUsage) }

	help := fs.Bool("h", false, "show help")
	fs.BoolVar(help, "help", false, "show help")

	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *help || c.helpFlag {
		_, _ = fmt.Fprint(c.stdout, pathsUsage)
		return exitOK
	}

	var paths []string
	paths = append(paths, c.paths...)
	paths = append(paths, c.cfg.SchemaPaths...)
	paths = append(paths, wiregram.SystemPaths(c.logger)...)

	if len(paths) == 0 {
		_, _ = fmt.Fprintln(c.stderr, "no search paths found")
		return exitOK
	}
	for _, p := range paths {
		_, _ = fmt.Fprintln(c.stdout, p)
	}
	return exitOK
}
