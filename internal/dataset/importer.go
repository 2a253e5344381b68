package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"imdb-titles/internal/shared"
	"imdb-titles/internal/title"
	"imdb-titles/pkg/retry"
)

// DefaultBatchSize is the number of records written per repository Put.
const DefaultBatchSize = 1000

// Stats summarizes one import run.
type Stats struct {
	Rows     int
	Imported int
	Skipped  int
	Batches  int
	Duration time.Duration
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("rows", s.Rows),
		slog.Int("imported", s.Imported),
		slog.Int("skipped", s.Skipped),
		slog.Int("batches", s.Batches),
		slog.Duration("duration", s.Duration),
	)
}

// ImporterOption configures Importer.
type ImporterOption func(*Importer)

// WithBatchSize sets how many records go into one Put.
func WithBatchSize(n int) ImporterOption {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithRetry sets the retry policy for batches failing with a dependency error.
func WithRetry(cfg retry.Config) ImporterOption {
	return func(im *Importer) { im.retry = cfg }
}

// WithLogger sets the importer logger.
func WithLogger(l *slog.Logger) ImporterOption {
	return func(im *Importer) {
		if l != nil {
			im.log = l
		}
	}
}

// Importer streams dataset rows into a repository in batches.
type Importer struct {
	repo      title.Repository
	batchSize int
	retry     retry.Config
	log       *slog.Logger
}

// NewImporter returns an Importer writing to repo.
func NewImporter(repo title.Repository, opts ...ImporterOption) *Importer {
	im := &Importer{
		repo:      repo,
		batchSize: DefaultBatchSize,
		retry:     retry.DefaultConfig(),
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(im)
	}
	im.log = im.log.With(slog.String("component", "importer"))
	return im
}

// Import reads a title.basics dump from r. Malformed lines and rows without
// tconst are skipped and counted; a failed batch aborts the run with the
// stats gathered so far.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Stats, error) {
	start := time.Now()
	var st Stats

	rd, err := NewReader(r)
	if err != nil {
		return st, err
	}
	defer rd.Close()

	batch := make([]title.Record, 0, im.batchSize)
	for {
		row, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !errors.Is(err, ErrMalformedLine) {
				st.Duration = time.Since(start)
				return st, err
			}
			st.Rows++
			st.Skipped++
			im.log.DebugContext(ctx, "skipping line", slog.Any("error", err))
			continue
		}
		st.Rows++

		rec, err := title.ParseRow(row)
		if err == nil && rec.ID() == "" {
			err = title.ErrMissingID
		}
		if err != nil {
			st.Skipped++
			im.log.DebugContext(ctx, "skipping line", slog.Int("line", rd.Line()), slog.Any("error", err))
			continue
		}

		batch = append(batch, rec)
		if len(batch) == im.batchSize {
			if err := im.flush(ctx, batch, &st); err != nil {
				st.Duration = time.Since(start)
				return st, err
			}
			batch = batch[:0]
		}
	}

	if err := im.flush(ctx, batch, &st); err != nil {
		st.Duration = time.Since(start)
		return st, err
	}

	st.Duration = time.Since(start)
	im.log.InfoContext(ctx, "import finished", slog.Any("stats", st))
	return st, nil
}

// ImportRecords writes already built records, e.g. fixtures, in batches.
func (im *Importer) ImportRecords(ctx context.Context, records []title.Record) (Stats, error) {
	start := time.Now()
	st := Stats{Rows: len(records)}

	for i := 0; i < len(records); i += im.batchSize {
		end := min(i+im.batchSize, len(records))
		if err := im.flush(ctx, records[i:end], &st); err != nil {
			st.Duration = time.Since(start)
			return st, err
		}
	}

	st.Duration = time.Since(start)
	return st, nil
}

func (im *Importer) flush(ctx context.Context, batch []title.Record, st *Stats) error {
	if len(batch) == 0 {
		return nil
	}

	cfg := im.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		im.log.WarnContext(ctx, "batch write failed, retrying",
			slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.Any("error", err))
	}

	err := retry.DoWithRetryable(ctx, cfg, func(ctx context.Context) error {
		return im.repo.Put(ctx, batch...)
	}, shared.IsDependencyFailure)
	if err != nil {
		return fmt.Errorf("write batch %d: %w", st.Batches+1, err)
	}

	st.Batches++
	st.Imported += len(batch)
	return nil
}
