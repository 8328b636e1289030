package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
)

func syntheticEntries(n int) []entry.Entry {
	cats := entry.Categories()
	out := make([]entry.Entry, n)
	for i := range out {
		out[i] = entry.Entry{
			Location: fmt.Sprintf("#Pkg.func_%d", i),
			Page:     fmt.Sprintf("api/page%d.html", i%50),
			Title:    fmt.Sprintf("Pkg.func_%d", i),
			Text: fmt.Sprintf("func_%d(x::Int) computes the create-info record number %d "+
				"for a shape, see also Pkg.func_%d and the geometry section.", i, i, (i+1)%n),
			Category: cats[i%len(cats)],
		}
	}
	return out
}

func BenchmarkBuild(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		entries := syntheticEntries(n)
		b.Run(fmt.Sprintf("entries=%d", n), func(b *testing.B) {
			builder := NewBuilder()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := builder.Build(context.Background(), entries); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBuildWorkers(b *testing.B) {
	entries := syntheticEntries(5000)
	for _, w := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", w), func(b *testing.B) {
			builder := NewBuilder(WithWorkers(w))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := builder.Build(context.Background(), entries); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkLookup(b *testing.B) {
	idx, _, err := NewBuilder().Build(context.Background(), syntheticEntries(10000))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = idx.Lookup("geometry")
		}
	})
}
