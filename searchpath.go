package wiregram

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/wiregram/wiregram/internal/types"
)

// PathEnv names the environment variable holding extra schema directories.
const PathEnv = "WIREGRAM_PATH"

// WithSystemPaths enables discovery of schema directories from the
// defaults, the paths.conf files and WIREGRAM_PATH. Discovered paths are
// searched after any explicit source, serving as fallback. When source is
// nil and WithSystemPaths is set, system paths alone are sufficient.
func WithSystemPaths() LoadOption {
	return func(c *loadConfig) { c.systemPaths = true }
}

type pathOp int

const (
	pathReplace pathOp = iota
	pathAppend
	pathPrepend
)

// discoverSystemSources returns Sources for all discovered schema directories.
func discoverSystemSources(logger types.Logger) []Source {
	var sources []Source
	for _, d := range SystemPaths(logger.L) {
		if src, err := DirTree(d); err == nil {
			sources = append(sources, src)
		}
	}
	return sources
}

// SystemPaths returns the schema directories found by WithSystemPaths,
// deduplicated and filtered to directories that exist.
func SystemPaths(logger *slog.Logger) []string {
	l := types.Logger{L: logger}
	paths := defaultPaths()
	for _, cf := range configFiles() {
		paths = applyConfigFile(cf, paths, l)
	}
	if v := os.Getenv(PathEnv); v != "" {
		paths = applyEnv(v, paths)
	}
	return filterExistingDirs(dedup(paths))
}

func defaultPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".wiregram", "schemas"))
	}
	return append(paths,
		"/usr/local/share/wiregram/schemas",
		"/usr/share/wiregram/schemas",
	)
}

func configFiles() []string {
	files := []string{"/etc/wiregram/paths.conf"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".wiregram", "paths.conf"))
	}
	return files
}

// parseConfigLine parses a single paths.conf line.
// Supports both "schemadirs +/path" (prefix on value) and "+schemadirs /path"
// (prefix on directive).
func parseConfigLine(line string) (pathOp, []string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return 0, nil, false
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, nil, false
	}

	directive, value := fields[0], fields[1]
	switch directive {
	case "schemadirs":
		if rest, ok := strings.CutPrefix(value, "+"); ok {
			return pathAppend, splitPaths(rest), true
		}
		if rest, ok := strings.CutPrefix(value, "-"); ok {
			return pathPrepend, splitPaths(rest), true
		}
		return pathReplace, splitPaths(value), true
	case "+schemadirs":
		return pathAppend, splitPaths(value), true
	case "-schemadirs":
		return pathPrepend, splitPaths(value), true
	default:
		return 0, nil, false
	}
}

// applyEnv interprets leading/trailing colon semantics:
// leading colon = append, trailing colon = prepend, neither = replace.
func applyEnv(value string, current []string) []string {
	if rest, ok := strings.CutPrefix(value, ":"); ok {
		return applyOp(pathAppend, splitPaths(rest), current)
	}
	if rest, ok := strings.CutSuffix(value, ":"); ok {
		return applyOp(pathPrepend, splitPaths(rest), current)
	}
	return splitPaths(value)
}

func applyOp(op pathOp, dirs, current []string) []string {
	switch op {
	case pathAppend:
		return append(current, dirs...)
	case pathPrepend:
		return append(dirs, current...)
	default:
		return dirs
	}
}

func applyConfigFile(path string, current []string, logger types.Logger) []string {
	f, err := os.Open(path)
	if err != nil {
		return current
	}
	defer f.Close() //nolint:errcheck // best-effort config file read

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		op, dirs, ok := parseConfigLine(scanner.Text())
		if !ok {
			continue
		}
		current = applyOp(op, dirs, current)
	}
	if err := scanner.Err(); err != nil {
		logger.Log(slog.LevelDebug, "error reading config file", slog.String("path", path), slog.Any("error", err))
	}
	return current
}

func splitPaths(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, p := range filepath.SplitList(s) {
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func dedup(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	var result []string
	for _, p := range paths {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			result = append(result, p)
		}
	}
	return result
}

func filterExistingDirs(paths []string) []string {
	var result []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err == nil && info.IsDir() {
			result = append(result, p)
		}
	}
	return result
}
