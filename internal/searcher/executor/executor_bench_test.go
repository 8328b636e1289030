package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

func benchEngine(b *testing.B, n int) *indexer.Engine {
	b.Helper()
	entries := make([]entry.Entry, n)
	for i := range entries {
		entries[i] = entry.Entry{
			Location: fmt.Sprintf("#Geometry.shape_%d", i),
			Page:     "api.html",
			Title:    fmt.Sprintf("Geometry.shape_%d", i),
			Text:     fmt.Sprintf("Build the create-info record for shape %d before it is registered with the renderer.", i),
			Category: entry.CategoryFunction,
		}
	}
	eng := indexer.NewEngine(index.NewBuilder(), metrics.NewNop())
	if _, err := eng.Rebuild(context.Background(), entries); err != nil {
		b.Fatal(err)
	}
	return eng
}

func BenchmarkExecute(b *testing.B) {
	ex := New(benchEngine(b, 10000), Options{})
	for _, q := range []string{"renderer", "create-info record", "shape_42", "renderer nosuchterm"} {
		b.Run(q, func(b *testing.B) {
			req := Request{Query: q}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ex.Execute(context.Background(), req); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkExecuteParallel(b *testing.B) {
	ex := New(benchEngine(b, 10000), Options{})
	req := Request{Query: "create info", Limit: 20}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := ex.Execute(context.Background(), req); err != nil {
				b.Fatal(err)
			}
		}
	})
}
