package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/wiregram/wiregram"
	"github.com/wiregram/wiregram/cmd/internal/cliutil"
	"github.com/wiregram/wiregram/engine"
)

const streamUsage = `wiregram stream - Parse a stream of records fed in chunks

Usage:
  wiregram stream [options] SCHEMA [INPUT]

The input is read in chunks and fed to one parse context. Each complete
record is printed as a JSON line {"offset": N, "value": ...}. Reassembled
categories are printed as a final {"categories": [...]} line.

Options:
  -c, --chunk N      Read size in bytes (default from config, 4096)
  -e, --entry NAME   Parse NAME instead of the schema entry point
  --annotate         Print the byte range of every value
  --hex              INPUT is hex text
  -h, --help         Show help

Examples:
  wiregram stream chat.yaml session.bin
  wiregram stream -c 1 --hex chat.yaml session.hex
`

type streamRecord struct {
	Offset int64 `json:"offset"`
	Value  any   `json:"value"`
}

func (c *cli) cmdStream(args []string) int {
	fs := flag.NewFlagSet("stream", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(c.stderr, streamUsage) }

	chunk := fs.Int("c", c.cfg.ChunkSize, "read size in bytes")
	fs.IntVar(chunk, "chunk", c.cfg.ChunkSize, "read size in bytes")
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
		_, _ = fmt.Fprint(c.stdout, streamUsage)
		return exitOK
	}
	if *chunk <= 0 {
		c.printError("chunk size must be positive, got %d", *chunk)
		return exitError
	}

	schemaArg, input, ok := c.schemaAndInput(fs.Args(), streamUsage)
	if !ok {
		return exitError
	}
	schema, err := c.loadSchema(context.Background(), schemaArg)
	if err != nil {
		c.printError("failed to load schema: %v", err)
		return exitError
	}

	var r io.ReadCloser
	if *hexIn {
		data, err := cliutil.ReadInput(input, true)
		if err != nil {
			c.printError("%v", err)
			return exitError
		}
		r = io.NopCloser(bytes.NewReader(data))
	} else if r, err = cliutil.OpenInput(input); err != nil {
		c.printError("%v", err)
		return exitError
	}
	defer func() { _ = r.Close() }()

	pc := wiregram.NewContext(schema, c.parseOptions(*entry, *annotate)...)
	records, err := c.feed(pc, r, *chunk)

	code := exitOK
	if err != nil {
		c.printParseError(err)
		code = exitError
	} else if n := pc.Buffered(); n > 0 {
		c.printError("%d bytes left unparsed at offset %d", n, pc.Offset())
		if f := pc.Failure(); f != nil {
			c.printParseError(f)
		}
		code = exitError
	}

	if cats := pc.Categories(); len(cats) > 0 {
		_ = cliutil.WriteJSON(c.stdout, map[string]any{"categories": cats})
	}
	c.logger.Info("stream finished",
		slog.Int("records", records),
		slog.Int64("offset", pc.Offset()))
	return code
}

// feed reads r in chunks, parsing every complete record after each one.
func (c *cli) feed(pc *engine.Context, r io.Reader, chunk int) (int, error) {
	buf := make([]byte, chunk)
	records := 0
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			pc.Feed(buf[:n])
			got, err := c.drain(pc)
			records += got
			if err != nil {
				return records, err
			}
		}
		if errors.Is(rerr, io.EOF) {
			return records, nil
		}
		if rerr != nil {
			return records, rerr
		}
	}
}

// drain parses records until the buffer is empty or holds only part of
// one.
func (c *cli) drain(pc *engine.Context) (int, error) {
	records := 0
	for pc.Buffered() > 0 {
		start := pc.Offset()
		v, err := pc.Parse()
		if errors.Is(err, wiregram.ErrIncomplete) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		if pc.Offset() == start {
			return records, fmt.Errorf("entry consumed no bytes at offset %d", start)
		}
		records++
		if err := cliutil.WriteJSON(c.stdout, streamRecord{Offset: start, Value: wiregram.JSON(v)}); err != nil {
			return records, err
		}
	}
	return records, nil
}
