// Package header implements the case-insensitive header list shared by
// requests and responses.
package header

import (
	"iter"
	"maps"
	"slices"
)

// Entry is a single header with a normalized (lower-case) name.
type Entry struct{ Name, Value string }

// Headers holds at most one value per normalized name.
// Enumeration is in ascending order of name.
type Headers struct{ underlying map[string]string }

// New creates headers from init. A nil init yields an empty set.
// Every entry of init is validated before the headers are returned.
func New(init Init) (*Headers, error) {
	h := &Headers{underlying: make(map[string]string)}
	if init == nil {
		return h, nil
	}

	if err := init.forEach(h.Append); err != nil {
		return nil, err
	}

	return h, nil
}

// Get returns the value stored under name.
// ok is false when no such header exists.
func (h *Headers) Get(name string) (value string, ok bool, err error) {
	name, err = NormalizeName(name)
	if err != nil {
		return "", false, err
	}

	value, ok = h.underlying[name]
	return value, ok, nil
}

func (h *Headers) Has(name string) (bool, error) {
	_, ok, err := h.Get(name)
	return ok, err
}

// Set overwrites any value stored under name.
func (h *Headers) Set(name, value string) error {
	name, value, err := normalize(name, value)
	if err != nil {
		return err
	}

	h.lazyInit()
	h.underlying[name] = value
	return nil
}

// Append adds value to the header.
// An existing value is combined with the new one, separated by ", ".
// Reference: https://fetch.spec.whatwg.org/#concept-header-list-combine
func (h *Headers) Append(name, value string) error {
	name, value, err := normalize(name, value)
	if err != nil {
		return err
	}

	h.lazyInit()
	if old, ok := h.underlying[name]; ok {
		value = old + ", " + value
	}

	h.underlying[name] = value
	return nil
}

// Delete removes the header. Deleting an absent header is a no-op.
func (h *Headers) Delete(name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}

	delete(h.underlying, name)
	return nil
}

func (h *Headers) Len() int { return len(h.underlying) }

// Clone returns an independent copy.
func (h *Headers) Clone() *Headers {
	return &Headers{underlying: maps.Clone(h.underlying)}
}

// List returns a sorted snapshot of all entries.
func (h *Headers) List() []Entry {
	names := slices.Sorted(maps.Keys(h.underlying))

	entries := make([]Entry, len(names))
	for idx, name := range names {
		entries[idx] = Entry{Name: name, Value: h.underlying[name]}
	}

	return entries
}

// Keys returns the header names in sorted order.
// The snapshot is taken when Keys is called, later mutations are not observed.
func (h *Headers) Keys() iter.Seq[string] {
	entries := h.List()
	return func(yield func(string) bool) {
		for _, e := range entries {
			if !yield(e.Name) {
				return
			}
		}
	}
}

// Values returns the header values ordered by name.
func (h *Headers) Values() iter.Seq[string] {
	entries := h.List()
	return func(yield func(string) bool) {
		for _, e := range entries {
			if !yield(e.Value) {
				return
			}
		}
	}
}

// Entries returns name/value pairs ordered by name.
func (h *Headers) Entries() iter.Seq2[string, string] {
	entries := h.List()
	return func(yield func(string, string) bool) {
		for _, e := range entries {
			if !yield(e.Name, e.Value) {
				return
			}
		}
	}
}

func (h *Headers) ForEach(fn func(value, name string)) {
	for _, e := range h.List() {
		fn(e.Value, e.Name)
	}
}

func (h *Headers) lazyInit() {
	if h.underlying == nil {
		h.underlying = make(map[string]string)
	}
}

func normalize(name, value string) (string, string, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return "", "", err
	}

	value, err = NormalizeValue(value)
	if err != nil {
		return "", "", err
	}

	return name, value, nil
}
