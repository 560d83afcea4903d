// Package ingest hashes parsed records into line hashes in parallel.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"github.com/bimmerbailey/laxa/internal/config"
	"github.com/bimmerbailey/laxa/internal/fuzzy"
	"github.com/bimmerbailey/laxa/internal/linehash"
	"golang.org/x/sync/errgroup"
)

// Result pairs a record with its line hash. Hash is nil when Err is set.
type Result struct {
	Record config.Record
	Hash   *linehash.LineHash
	Err    error
}

// Skipped reports whether the record's content could not be hashed because
// it is too short or too uniform.
func (r Result) Skipped() bool {
	return errors.Is(r.Err, fuzzy.ErrDigestConstruction)
}

// Hasher turns records into line hashes with a fixed primitive.
type Hasher struct {
	primitive fuzzy.Primitive
	workers   int
	logger    *slog.Logger
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithWorkers bounds the number of records hashed at once. Values below one
// use the number of CPUs.
func WithWorkers(n int) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithLogger sets the logger used for per-record diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hasher) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Hasher for p.
func New(p fuzzy.Primitive, opts ...Option) *Hasher {
	h := &Hasher{
		primitive: p,
		workers:   runtime.NumCPU(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Workers returns the configured parallelism.
func (h *Hasher) Workers() int {
	return h.workers
}

// HashRecord hashes one record. Failures are reported on the result.
func (h *Hasher) HashRecord(rec config.Record) Result {
	lh, err := linehash.FromFragments(h.primitive, rec.Contents)
	if err != nil {
		h.logger.Debug("record not hashed",
			"source", rec.Source,
			"line", rec.Line,
			"key", rec.Key,
			"error", err)
		return Result{Record: rec, Err: err}
	}
	return Result{Record: rec, Hash: lh}
}

// Hash hashes every record and returns the results in input order. Per-record
// failures do not stop the batch; the returned error is only set when ctx is
// done before all records were hashed.
func (h *Hasher) Hash(ctx context.Context, records []config.Record) ([]Result, error) {
	results := make([]Result, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)

	for i := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = h.HashRecord(records[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	skipped := 0
	for _, r := range results {
		if r.Err != nil {
			skipped++
		}
	}
	h.logger.Info("hashed records", "total", len(records), "skipped", skipped, "workers", h.workers)

	return results, nil
}
