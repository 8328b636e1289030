package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const testEntries = "../../internal/entry/testdata/search_index.js"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flagConfig = ""
	flagQueryEntries, flagQueryLimit, flagQueryCategories, flagQueryJSON = "", 0, nil, false
	flagInspectEntries, flagInspectTop, flagInspectJSON = "", 0, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQueryCommandJSON(t *testing.T) {
	out, err := run(t, "query", "--entries", testEntries, "--json", "polygon")
	require.NoError(t, err)

	var res executor.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotEmpty(t, res.Results)
	assert.Equal(t, "#Geometry.Polygon", res.Results[0].Location)
}

func TestQueryCommandTable(t *testing.T) {
	out, err := run(t, "query", "--entries", testEntries, "-n", "1", "create-info")
	require.NoError(t, err)
	assert.Contains(t, out, "SCORE")
	assert.Contains(t, out, "Home#Geometry.")

	out, err = run(t, "query", "--entries", testEntries, "zzzzunknown")
	require.NoError(t, err)
	assert.Contains(t, out, `No results for "zzzzunknown"`)
}

func TestQueryCommandRejectsUnknownCategory(t *testing.T) {
	_, err := run(t, "query", "--entries", testEntries, "--category", "widget", "point")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestInspectCommand(t *testing.T) {
	out, err := run(t, "inspect", "--entries", testEntries, "--top", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "entries supplied  8")
	assert.Contains(t, out, "entries dropped   2")
	assert.Contains(t, out, "missing location")
	assert.Contains(t, out, "Top terms:")
}

func TestInspectCommandJSON(t *testing.T) {
	out, err := run(t, "inspect", "--entries", testEntries, "--json")
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 6, report.Summary.Indexed)
	assert.Len(t, report.Dropped, 2)
}

func TestDriveLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cache_hit":true,"results":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	stats := driveLoad(ctx, srv.URL, "k", 2, []string{"a b", "c"})

	require.Positive(t, stats.total.Load())
	assert.Equal(t, stats.total.Load(), stats.success.Load())
	assert.Equal(t, stats.total.Load(), stats.cacheHits.Load())

	var out strings.Builder
	require.NoError(t, stats.report(&out, time.Second))
	assert.Contains(t, out.String(), "  200  ")
}

func TestPercentile(t *testing.T) {
	lat := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(lat, 50))
	assert.Equal(t, time.Duration(10), percentile(lat, 99))
	assert.Equal(t, time.Duration(1), percentile(lat, 0))
	assert.Zero(t, percentile(nil, 50))
}
