package source

import (
	"context"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
)

// File reads a search_index.js (or plain JSON) artifact from disk.
type File struct {
	Path string
}

func (f *File) Name() string { return "file:" + f.Path }

func (f *File) Load(ctx context.Context) ([]entry.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, unavailable(f.Name(), err)
	}
	defer fh.Close()
	entries, err := entry.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", f.Path, err)
	}
	return entries, nil
}
