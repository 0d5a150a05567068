//go:build integration

package content

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("learning"),
		postgres.WithUsername("learning"),
		postgres.WithPassword("learning"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = ctr.Terminate(stopCtx)
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg, err := ParseURL(url)
	require.NoError(t, err)
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "../../db/migrations"))

	store, err := NewPostgresStore(pool)
	require.NoError(t, err)
	return store
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	yamlStore, err := ParseYAML([]byte(fixture))
	require.NoError(t, err)
	require.NoError(t, store.Seed(ctx, yamlStore.Document()))
	require.NoError(t, store.Ping(ctx))

	m, err := store.GetModule(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, "Second", m.Title)
	assert.Equal(t, []Section{{Order: 1, Text: "earlier"}, {Order: 2, Text: "later"}}, m.Sections)

	exam, err := store.GetAssessment(ctx, Ref{Kind: KindExam, ID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, "everything", exam.Description)
	assert.Equal(t, []string{"m1", "m2"}, exam.ModuleIDs)

	_, err = store.GetAssessment(ctx, Ref{Kind: KindQuiz, ID: "e1"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetModule(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	modules, err := store.ListModules(ctx)
	require.NoError(t, err)
	assert.Len(t, modules, 2)
}

func TestPostgresStoreUpsertReplacesSections(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertModule(ctx, Module{ID: "m", Title: "v1", Sections: []Section{{Order: 1, Text: "a"}, {Order: 2, Text: "b"}}}))
	require.NoError(t, store.UpsertModule(ctx, Module{ID: "m", Title: "v2", Sections: []Section{{Order: 1, Text: "c"}}}))

	m, err := store.GetModule(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, "v2", m.Title)
	assert.Equal(t, []Section{{Order: 1, Text: "c"}}, m.Sections)
}

func TestPostgresStoreKeepsKindsApart(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertModule(ctx, Module{ID: "m1", Title: "One"}))
	require.NoError(t, store.UpsertModule(ctx, Module{ID: "m2", Title: "Two"}))
	require.NoError(t, store.UpsertAssessment(ctx, Definition{ID: "intro", Kind: KindQuiz, Title: "Warmup", ModuleIDs: []string{"m1"}}))
	require.NoError(t, store.UpsertAssessment(ctx, Definition{ID: "intro", Kind: KindExam, Title: "Midterm", ModuleIDs: []string{"m2", "m1"}}))

	quiz, err := store.GetAssessment(ctx, Ref{Kind: KindQuiz, ID: "intro"})
	require.NoError(t, err)
	assert.Equal(t, "Warmup", quiz.Title)
	assert.Equal(t, []string{"m1"}, quiz.ModuleIDs)

	exam, err := store.GetAssessment(ctx, Ref{Kind: KindExam, ID: "intro"})
	require.NoError(t, err)
	assert.Equal(t, "Midterm", exam.Title)
	assert.Equal(t, []string{"m2", "m1"}, exam.ModuleIDs)

	// Re-linking the quiz leaves the exam's links alone.
	require.NoError(t, store.UpsertAssessment(ctx, Definition{ID: "intro", Kind: KindQuiz, Title: "Warmup", ModuleIDs: []string{"m2"}}))
	exam, err = store.GetAssessment(ctx, Ref{Kind: KindExam, ID: "intro"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m1"}, exam.ModuleIDs)
}
