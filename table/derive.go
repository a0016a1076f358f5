package table

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minChunk is the smallest number of rows handed to one worker.
const minChunk = 4096

// Derive returns a new table with column f appended, computed per row by fn.
//
// fn must be free of shared mutable state: rows are split into chunks that are
// evaluated concurrently, in no particular order. The result preserves row
// order. The first error returned by fn, or cancellation of ctx, aborts the
// whole derivation.
func (t *Table) Derive(ctx context.Context, f Field, fn func(Row) (any, error)) (*Table, error) {
	if _, exists := t.schema.Index(f.Name); exists {
		return nil, fmt.Errorf("derive %q: column already exists", f.Name)
	}
	schema, err := t.schema.With(f)
	if err != nil {
		return nil, fmt.Errorf("derive %q: %w", f.Name, err)
	}

	out := make([]Row, len(t.rows))
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(t.rows) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(t.rows); start += chunk {
		end := min(start+chunk, len(t.rows))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				src := t.rows[i]
				v, err := fn(src)
				if err != nil {
					return fmt.Errorf("derive %q row %d: %w", f.Name, i, err)
				}
				cv, err := Convert(v, f.Type)
				if err != nil {
					return fmt.Errorf("derive %q row %d: %w", f.Name, i, err)
				}
				row := make(Row, len(src)+1)
				copy(row, src)
				row[len(src)] = cv
				out[i] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return wrap(schema, out), nil
}
