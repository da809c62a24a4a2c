package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aussiebroadwan/medmigrate/internal/migrate"
	"go.mongodb.org/mongo-driver/bson"
)

type commands struct {
	loader *migrate.Loader
	opts   options
	stdout io.Writer
}

func (c *commands) importCSV(ctx context.Context) error {
	f, err := os.Open(c.opts.csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if c.opts.drop {
		if err := c.loader.Drop(ctx); err != nil {
			return fmt.Errorf("drop collection: %w", err)
		}
	}

	report, err := c.loader.Import(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%d documents imported (run %s, %s)\n", report.Inserted, report.RunID, report.Duration.Round(time.Millisecond))
	return nil
}

// createOutput opens an export target, creating its directory.
var createOutput = func(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func (c *commands) export(ctx context.Context) (err error) {
	var w io.Writer = c.stdout
	if c.opts.outPath != "-" {
		var f io.WriteCloser
		f, err = createOutput(c.opts.outPath)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	n, err := c.loader.Export(ctx, w)
	if err != nil {
		return err
	}
	if c.opts.outPath != "-" {
		fmt.Fprintf(c.stdout, "%d documents exported to %s\n", n, c.opts.outPath)
	}
	return nil
}

func (c *commands) verify(ctx context.Context) error {
	f, err := os.Open(c.opts.csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	source, err := migrate.ReadTable(f)
	if err != nil {
		return err
	}
	stored, err := c.loader.Snapshot(ctx)
	if err != nil {
		return err
	}

	if err := migrate.CheckIntegrity(source, stored); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	fmt.Fprintf(c.stdout, "integrity ok: %d rows, %d columns\n", source.Len(), len(source.Columns))
	return nil
}

func (c *commands) find(ctx context.Context) error {
	docs, err := c.loader.Find(ctx, c.opts.filter)
	if err != nil {
		return err
	}
	for _, d := range docs {
		out, err := bson.MarshalExtJSON(d, false, false)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, string(out))
	}
	return nil
}

func (c *commands) update(ctx context.Context) error {
	if c.opts.set == "" {
		return errors.New("update requires --set")
	}

	update := c.loader.UpdateOne
	if c.opts.many {
		update = c.loader.UpdateMany
	}
	res, err := update(ctx, c.opts.filter, c.opts.set)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "matched %d, modified %d\n", res.Matched, res.Modified)
	return nil
}

func (c *commands) delete(ctx context.Context) error {
	if c.opts.filter == "" {
		return errors.New("delete requires --filter")
	}

	del := c.loader.DeleteOne
	if c.opts.many {
		del = c.loader.DeleteMany
	}
	n, err := del(ctx, c.opts.filter)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "deleted %d\n", n)
	return nil
}
