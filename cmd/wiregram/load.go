package main

import (
	"context"
	"os"

	"github.com/wiregram/wiregram"
)

// loadSchema resolves a SCHEMA argument: a file is loaded on its own, a
// directory is loaded as a tree, and anything else names a document on
// the -p, configured and system search paths.
func (c *cli) loadSchema(ctx context.Context, arg string) (*wiregram.Schema, error) {
	opts := []wiregram.LoadOption{wiregram.WithLogger(c.logger)}
	if c.cfg.Entry != "" {
		opts = append(opts, wiregram.WithEntry(c.cfg.Entry))
	}

	if info, err := os.Stat(arg); err == nil {
		if !info.IsDir() {
			return wiregram.LoadFile(arg, opts...)
		}
		src, err := wiregram.DirTree(arg)
		if err != nil {
			return nil, err
		}
		return wiregram.LoadSchema(ctx, src, opts...)
	}

	var src wiregram.Source
	if sources := c.sources(); len(sources) > 0 {
		src = wiregram.Multi(sources...)
	}
	opts = append(opts, wiregram.WithSystemPaths())
	return wiregram.LoadSchemaByName(ctx, arg, src, opts...)
}
