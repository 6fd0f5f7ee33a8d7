// Command wiregram parses binary data with declarative grammars.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"github.com/wiregram/wiregram"
	"github.com/wiregram/wiregram/cmd/internal/cliutil"
	"github.com/wiregram/wiregram/internal/config"
)

// Exit codes.
const (
	exitOK     = 0 // success
	exitError  = 1 // user error or parse failure
	exitSchema = 2 // check found error-severity diagnostics
)

const usage = `wiregram - declarative binary grammar parser

Usage:
  wiregram <command> [options] [arguments]

Commands:
  parse    Parse one record and print its value tree
  stream   Parse a stream of records fed in chunks
  schema   Print the resolved schema
  check    Check a schema for problems
  serve    Serve the HTTP API
  paths    Show schema search paths
  version  Show version

SCHEMA is a schema file, a directory of schema files, or the name of a
document found on the search paths.

Common options:
  -p, --path PATH    Add schema search path (repeatable)
  --config FILE      Read configuration from FILE (default $WIREGRAM_CONFIG)
  -v, --verbose      Enable debug logging
  -vv                Enable trace logging (implies -v)
  -h, --help         Show help

Examples:
  wiregram parse ethernet.yaml capture.bin
  wiregram parse --hex -e ipv4 schemas/ packet.hex
  wiregram stream -c 512 chat.yaml session.bin.zst
  wiregram check schemas/
  wiregram serve --listen :8080 schemas/
`

type cli struct {
	verbose    int
	paths      []string
	configPath string
	helpFlag   bool

	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	c := cli{stdout: stdout, stderr: stderr}
	var cmdArgs []string
	var cmd string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help":
			c.helpFlag = true
		case arg == "-v" || arg == "--verbose":
			if c.verbose < 1 {
				c.verbose = 1
			}
		case arg == "-vv":
			c.verbose = 2
		case arg == "-p" || arg == "--path":
			if i+1 < len(args) {
				i++
				c.paths = append(c.paths, args[i])
			}
		case strings.HasPrefix(arg, "--path="):
			c.paths = append(c.paths, arg[len("--path="):])
		case arg == "--config":
			if i+1 < len(args) {
				i++
				c.configPath = args[i]
			}
		case strings.HasPrefix(arg, "--config="):
			c.configPath = arg[len("--config="):]
		case len(arg) > 0 && arg[0] == '-':
			cmdArgs = append(cmdArgs, arg)
		default:
			if cmd == "" {
				cmd = arg
			} else {
				cmdArgs = append(cmdArgs, arg)
			}
		}
	}

	if c.helpFlag && cmd == "" {
		_, _ = fmt.Fprint(c.stdout, usage)
		return exitOK
	}
	if cmd == "" {
		_, _ = fmt.Fprint(c.stderr, usage)
		return exitError
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		c.printError("%v", err)
		return exitError
	}
	c.cfg = cfg
	c.logger = c.setupLogger()

	switch cmd {
	case "parse":
		return c.cmdParse(cmdArgs)
	case "stream":
		return c.cmdStream(cmdArgs)
	case "schema":
		return c.cmdSchema(cmdArgs)
	case "check":
		return c.cmdCheck(cmdArgs)
	case "serve":
		return c.cmdServe(cmdArgs)
	case "paths":
		return c.cmdPaths(cmdArgs)
	case "version":
		_, _ = fmt.Fprintf(c.stdout, "wiregram %s\n", version())
		return exitOK
	case "help":
		_, _ = fmt.Fprint(c.stdout, usage)
		return exitOK
	default:
		_, _ = fmt.Fprintf(c.stderr, "unknown command: %s\n\n", cmd)
		_, _ = fmt.Fprint(c.stderr, usage)
		return exitError
	}
}

// setupLogger logs to stderr at the configured level, lowered by -v/-vv.
func (c *cli) setupLogger() *slog.Logger {
	level := c.cfg.LogLevel
	switch {
	case c.verbose >= 2:
		level = wiregram.LevelTrace
	case c.verbose == 1:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// sources returns the -p paths followed by the configured schema paths.
func (c *cli) sources() []wiregram.Source {
	var sources []wiregram.Source
	for _, p := range append(append([]string(nil), c.paths...), c.cfg.SchemaPaths...) {
		if src, err := wiregram.DirTree(p); err == nil {
			sources = append(sources, src)
		} else {
			_, _ = fmt.Fprintf(c.stderr, "warning: cannot access path %s: %v\n", p, err)
		}
	}
	return sources
}

func version() string {
	v := "(devel)"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		v = info.Main.Version
	}
	return v
}

func (c *cli) printError(format string, args ...any) {
	cliutil.PrintError(c.stderr, format, args...)
}
