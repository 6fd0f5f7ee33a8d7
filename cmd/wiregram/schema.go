package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/wiregram/wiregram"
	"github.com/wiregram/wiregram/cmd/internal/cliutil"
	"github.com/wiregram/wiregram/grammar"
)

const schemaUsage = `wiregram schema - Print the resolved schema

Usage:
  wiregram schema [options] SCHEMA

Prints every definition after merging and resolving, as YAML that loads
back into the same schema.

Options:
  --json             Print JSON instead of YAML
  -o, --output FILE  Write to FILE instead of stdout
  -h, --help         Show help

Examples:
  wiregram schema schemas/
  wiregram schema --json -o schema.json ethernet
`

const checkUsage = `wiregram check - Check a schema for problems

Usage:
  wiregram check [options] SCHEMA

Reports undefined references, reference cycles, illegal size policies,
malformed repeats and bit widths. Exits 2 when any error is found.

Options:
  -h, --help   Show help

Examples:
  wiregram check schemas/
  wiregram check -p ./schemas ethernet
`

func (c *cli) cmdSchema(args []string) int {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(c.stderr, schemaUsage) }

	asJSON := fs.Bool("json", false, "print JSON")
	output := fs.String("o", "", "output file")
	fs.StringVar(output, "output", "", "output file")
	help := fs.Bool("h", false, "show help")
	fs.BoolVar(help, "help", false, "show help")

	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *help || c.helpFlag {
		_, _ = fmt.Fprint(c.stdout, schemaUsage)
		return exitOK
	}
	if fs.NArg() != 1 {
		c.printError("expected one SCHEMA argument")
		_, _ = fmt.Fprint(c.stderr, schemaUsage)
		return exitError
	}

	schema, err := c.loadSchema(context.Background(), fs.Arg(0))
	if err != nil {
		c.printError("failed to load schema: %v", err)
		return exitError
	}

	w := c.stdout
	if *output != "" {
		out, closeOut, err := cliutil.GetOutput(*output)
		if err != nil {
			c.printError("%v", err)
			return exitError
		}
		defer closeOut()
		w = out
	}

	if *asJSON {
		err = cliutil.WriteJSON(w, schema.Serialize())
	} else {
		var data []byte
		if data, err = grammar.EncodeYAML(schema); err == nil {
			_, err = w.Write(data)
		}
	}
	if err != nil {
		c.printError("%v", err)
		return exitError
	}
	return exitOK
}

func (c *cli) cmdCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(c.stderr, checkUsage) }

	help := fs.Bool("h", false, "show help")
	fs.BoolVar(help, "help", false, "show help")

	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *help || c.helpFlag {
		_, _ = fmt.Fprint(c.stdout, checkUsage)
		return exitOK
	}
	if fs.NArg() != 1 {
		c.printError("expected one SCHEMA argument")
		_, _ = fmt.Fprint(c.stderr, checkUsage)
		return exitError
	}

	schema, err := c.loadSchema(context.Background(), fs.Arg(0))
	if err != nil {
		c.printError("failed to load schema: %v", err)
		return exitError
	}

	diags := schema.Check()
	hasErrors := false
	for _, d := range diags {
		if d.Severity == wiregram.SeverityError {
			hasErrors = true
		}
		c.printDiagnostic(d)
	}
	_, _ = fmt.Fprintf(c.stdout, "%d definitions, %d diagnostics\n", schema.Len(), len(diags))
	if hasErrors {
		return exitSchema
	}
	return exitOK
}

func (c *cli) printDiagnostic(d wiregram.Diagnostic) {
	prefix := "  " + d.Severity.String() + ": "
	if d.Code != "" {
		prefix += "[" + d.Code + "] "
	}
	if d.Path != "" {
		_, _ = fmt.Fprintf(c.stdout, "%s%s: %s\n", prefix, d.Path, d.Message)
	} else {
		_, _ = fmt.Fprintf(c.stdout, "%s%s\n", prefix, d.Message)
	}
}
