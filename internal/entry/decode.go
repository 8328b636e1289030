package entry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

type docsEnvelope struct {
	Docs []Entry `json:"docs"`
}

// Decode reads an entry list in any of the shapes the documentation
// generator emits: the search_index.js script
// (var documenterSearchIndex = {"docs": [...]}), a {"docs": [...]} object,
// or a bare JSON array. Anything after the first JSON value is ignored.
func Decode(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}
	start := bytes.IndexAny(data, "[{")
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON payload found", apperrors.ErrInvalidInput)
	}
	dec := json.NewDecoder(bytes.NewReader(data[start:]))
	if data[start] == '[' {
		var entries []Entry
		if err := dec.Decode(&entries); err != nil {
			return nil, fmt.Errorf("%w: decoding entry array: %v", apperrors.ErrInvalidInput, err)
		}
		return entries, nil
	}
	var env docsEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decoding docs object: %v", apperrors.ErrInvalidInput, err)
	}
	return env.Docs, nil
}
