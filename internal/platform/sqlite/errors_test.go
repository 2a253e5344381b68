package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imdb-titles/internal/shared"
)

func TestIsBusy(t *testing.T) {
	assert.True(t, IsBusy(errors.New("database is locked")))
	assert.True(t, IsBusy(fmt.Errorf("commit: %w", errors.New("database table is locked"))))
	assert.False(t, IsBusy(errors.New("no such table: probe")))
	assert.False(t, IsBusy(nil))
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	tdb := NewTestDBInMemory(t)
	tdb.Exec(t, "CREATE TABLE probe (id TEXT PRIMARY KEY, value TEXT NOT NULL)")
	tdb.Exec(t, "INSERT INTO probe (id, value) VALUES ('a', 'x')")

	_, dupErr := tdb.DB.ExecContext(ctx, "INSERT INTO probe (id, value) VALUES ('a', 'y')")
	require.Error(t, dupErr)
	_, nullErr := tdb.DB.ExecContext(ctx, "INSERT INTO probe (id, value) VALUES ('b', NULL)")
	require.Error(t, nullErr)
	_, syntaxErr := tdb.DB.ExecContext(ctx, "INSERT INTO nowhere VALUES (1)")
	require.Error(t, syntaxErr)

	tests := []struct {
		name string
		err  error
		kind shared.Kind
	}{
		{"no rows", sql.ErrNoRows, shared.KindNotFound},
		{"primary key", dupErr, shared.KindConflict},
		{"not null", nullErr, shared.KindValidation},
		{"missing table", syntaxErr, shared.KindInternal},
		{"busy", errors.New("database is locked"), shared.KindDependencyFailure},
		{"deadline", context.DeadlineExceeded, shared.KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.kind, shared.KindOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, Classify(nil))
}
