package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/wiregram/wiregram"
	"github.com/wiregram/wiregram/cmd/internal/cliutil"
)

const parseUsage = `wiregram parse - Parse one record and print its value tree

Usage:
  wiregram parse [options] SCHEMA [INPUT]

INPUT defaults to stdin ("-"). zstd and gzip compressed input is detected
and decompressed.

Options:
  -e, --entry NAME   Parse NAME instead of the schema entry point
  --annotate         Print the byte range of every value
  --hex              INPUT is hex text
  -h, --help         Show help

Examples:
  wiregram parse ethernet.yaml frame.bin
  wiregram parse --annotate --hex -e ipv4 schemas/ packet.hex
  echo "02 aa bb" | wiregram parse --hex packet.yaml
`

func (c *cli) cmdParse(args []string) int {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(c.stderr, parseUsage) }

	entry := fs.String("e", "", "entry point")
	fs.StringVar(entry, "entry", "", "entry point")
	annotate := fs.Bool("annotate", c.cfg.Annotate, "print byte ranges")
	hexIn := fs.Bool("hex", false, "input is hex text")
	help := fs.Bool("h", false, "show help")
	fs.BoolVar(help, "help", false, "show help")

	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *help || c.helpFlag {
		_, _ = fmt.Fprint(c.stdout, parseUsage)
		return exitOK
	}

	schemaArg, input, ok := c.schemaAndInput(fs.Args(), parseUsage)
	if !ok {
		return exitError
	}

	schema, err := c.loadSchema(context.Background(), schemaArg)
	if err != nil {
		c.printError("failed to load schema: %v", err)
		return exitError
	}
	data, err := cliutil.ReadInput(input, *hexIn)
	if err != nil {
		c.printError("%v", err)
		return exitError
	}

	pc := wiregram.NewContext(schema, c.parseOptions(*entry, *annotate)...)
	pc.Feed(data)
	v, err := pc.Parse()
	if err != nil {
		if v != nil {
			_ = cliutil.WriteJSON(c.stdout, wiregram.JSON(v))
		}
		c.printParseError(err)
		return exitError
	}

	if err := cliutil.WriteJSON(c.stdout, wiregram.JSON(v)); err != nil {
		c.printError("%v", err)
		return exitError
	}
	if n := pc.Buffered(); n > 0 {
		_, _ = fmt.Fprintf(c.stderr, "warning: %d trailing bytes after offset %d\n", n, pc.Offset())
	}
	return exitOK
}

// schemaAndInput splits positional arguments into SCHEMA and INPUT,
// defaulting INPUT to stdin.
func (c *cli) schemaAndInput(args []string, usage string) (string, string, bool) {
	switch len(args) {
	case 1:
		return args[0], "-", true
	case 2:
		return args[0], args[1], true
	}
	if len(args) == 0 {
		c.printError("no schema specified")
	} else {
		c.printError("too many arguments")
	}
	_, _ = fmt.Fprint(c.stderr, usage)
	return "", "", false
}

func (c *cli) parseOptions(entry string, annotate bool) []wiregram.ParseOption {
	opts := []wiregram.ParseOption{
		wiregram.WithAnnotate(annotate),
		wiregram.WithParseLogger(c.logger),
	}
	if entry != "" {
		opts = append(opts, wiregram.WithParseEntry(entry))
	}
	return opts
}

// printParseError reports err with the hex context of a parse failure.
func (c *cli) printParseError(err error) {
	c.printError("%v", err)
	var pe *wiregram.Error
	if errors.As(err, &pe) && pe.Context != "" {
		_, _ = fmt.Fprint(c.stderr, pe.Context)
	}
}
