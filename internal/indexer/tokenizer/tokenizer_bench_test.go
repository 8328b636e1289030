package tokenizer

import (
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "Geometry.create_info(shape) -> CreateInfo",
	"medium": `Build the create-info record for a shape before it is registered.
		The record carries the shape's bounding box, its vertex count and the
		name under which it was declared. See also Geometry.Polygon and
		Geometry.area for the signed-area computation used by the renderer.`,
	"long": strings.Repeat(`Documentation generators emit one entry per docstring, section
		and page. Entries carry a location anchor such as #Geometry.area-Tuple{Polygon},
		the page title, the rendered text and a category. Über-long identifiers like
		HTTPServerConfigurationBuilder and snake_case_helpers_with_many_parts appear
		frequently in API references. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	tok := Default()
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.Tokenize(text)
			}
		})
	}
}

func BenchmarkTokensIterator(b *testing.B) {
	tok := Default()
	text := sampleTexts["long"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		n := 0
		for range tok.Tokens(text) {
			n++
		}
		_ = n
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	tok := Default()
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tok.Tokenize(text)
		}
	})
}
