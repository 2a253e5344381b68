package scheduler

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"imdb-titles/internal/dataset"
	"imdb-titles/internal/platform/pg"
)

// SourceImporter loads a dataset source into the store.
type SourceImporter interface {
	ImportSource(ctx context.Context, o *dataset.Opener, source string) (dataset.Stats, error)
}

var _ SourceImporter = (*dataset.Importer)(nil)

// RefreshDataset re-imports source on every run.
func RefreshDataset(im SourceImporter, o *dataset.Opener, source string) JobFunc {
	return func(ctx context.Context) error {
		_, err := im.ImportSource(ctx, o, source)
		return err
	}
}

// LogPoolStats logs Postgres pool usage and warns when pg.IsHealthy fails:
// no open connections or more than 90% acquired.
func LogPoolStats(pool *pgxpool.Pool, log *slog.Logger) JobFunc {
	return func(ctx context.Context) error {
		stats := pg.GetPoolStats(pool)
		if !pg.IsHealthy(stats) {
			log.WarnContext(ctx, "postgres pool unhealthy", slog.Any("pool", stats))
			return nil
		}
		log.DebugContext(ctx, "postgres pool", slog.Any("pool", stats))
		return nil
	}
}
