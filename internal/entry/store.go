package entry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Store is the immutable, canonically ordered set of valid entries. An ID
// is an index into the store.
type Store struct {
	entries     []Entry
	byLocation  map[string]ID
	fingerprint string
}

type ordered struct {
	ordinal int
	entry   Entry
}

// NewStore validates batch, drops malformed and duplicate entries, and
// orders the survivors by location so that IDs do not depend on the order
// the batch arrived in. When two entries share a location the one that
// sorts first on (location, page, title, text, category) is kept.
func NewStore(batch []Entry) (*Store, []*MalformedEntryError) {
	var dropped []*MalformedEntryError
	valid := make([]ordered, 0, len(batch))
	for i, e := range batch {
		if err := Validate(i, e); err != nil {
			dropped = append(dropped, err.(*MalformedEntryError))
			continue
		}
		valid = append(valid, ordered{ordinal: i, entry: Normalize(e)})
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return lessEntry(valid[i].entry, valid[j].entry)
	})

	s := &Store{
		entries:    make([]Entry, 0, len(valid)),
		byLocation: make(map[string]ID, len(valid)),
	}
	for _, v := range valid {
		if _, exists := s.byLocation[v.entry.Location]; exists {
			dropped = append(dropped, &MalformedEntryError{
				Ordinal:  v.ordinal,
				Location: v.entry.Location,
				Reason:   ReasonDuplicateLocation,
			})
			continue
		}
		s.byLocation[v.entry.Location] = ID(len(s.entries))
		s.entries = append(s.entries, v.entry)
	}
	sort.Slice(dropped, func(i, j int) bool {
		return dropped[i].Ordinal < dropped[j].Ordinal
	})
	s.fingerprint = fingerprint(s.entries)
	return s, dropped
}

func lessEntry(a, b Entry) bool {
	switch {
	case a.Location != b.Location:
		return a.Location < b.Location
	case a.Page != b.Page:
		return a.Page < b.Page
	case a.Title != b.Title:
		return a.Title < b.Title
	case a.Text != b.Text:
		return a.Text < b.Text
	default:
		return a.Category < b.Category
	}
}

// fingerprint hashes the canonical entry list. Two stores with the same
// fingerprint answer every query identically.
func fingerprint(entries []Entry) string {
	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e.Location))
		h.Write([]byte{0})
		h.Write([]byte(e.Page))
		h.Write([]byte{0})
		h.Write([]byte(e.Title))
		h.Write([]byte{0})
		h.Write([]byte(e.Text))
		h.Write([]byte{0})
		h.Write([]byte(e.Category))
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Get returns the entry with the given ID. It panics on an ID the store did
// not hand out, which would mean a corrupt posting.
func (s *Store) Get(id ID) Entry {
	return s.entries[id]
}

// Lookup resolves a location to its ID.
func (s *Store) Lookup(location string) (ID, bool) {
	id, ok := s.byLocation[location]
	return id, ok
}

// All returns a copy of the entries in ID order.
func (s *Store) All() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Fingerprint identifies the store's content.
func (s *Store) Fingerprint() string {
	return s.fingerprint
}
