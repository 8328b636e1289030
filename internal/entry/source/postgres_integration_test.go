//go:build integration

package source

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	db, err := postgres.New(config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "docsearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "docsearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresImportThenLoad(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	table := "doc_entries_it"
	in := []entry.Entry{
		{Location: "#b", Page: "p", Title: "B", Text: "bee", Category: entry.CategoryFunction},
		{Location: "#a", Page: "p", Title: "A", Text: "ay", Category: entry.CategoryType},
	}
	require.NoError(t, Import(ctx, db, table, in))
	require.NoError(t, Import(ctx, db, table, in), "import replaces")

	out, err := (&Postgres{DB: db.DB, Table: table}).Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "#a", out[0].Location)
	assert.Equal(t, entry.CategoryType, out[0].Category)
}
