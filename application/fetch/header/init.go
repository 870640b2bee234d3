package header

import (
	"maps"
	"slices"
)

// Init is something headers can be created from:
// [Pairs], [Map], [Values] or another [*Headers].
type Init interface {
	forEach(fn func(name, value string) error) error
}

var (
	_ Init = Pairs(nil)
	_ Init = Map(nil)
	_ Init = Values(nil)
	_ Init = (*Headers)(nil)
)

// Pairs is an ordered list of name/value pairs.
// Repeated names are combined.
type Pairs [][2]string

func (p Pairs) forEach(fn func(name, value string) error) error {
	for _, pair := range p {
		if err := fn(pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

// Map is a plain name to value mapping.
type Map map[string]string

func (m Map) forEach(fn func(name, value string) error) error {
	for _, name := range slices.Sorted(maps.Keys(m)) {
		if err := fn(name, m[name]); err != nil {
			return err
		}
	}
	return nil
}

// Values maps names to loosely typed values, each converted with [Stringify].
// A list value is the multi-value shorthand: []string{"a", "b"} becomes "a,b".
type Values map[string]any

func (v Values) forEach(fn func(name, value string) error) error {
	for _, name := range slices.Sorted(maps.Keys(v)) {
		if err := fn(name, Stringify(v[name])); err != nil {
			return err
		}
	}
	return nil
}

func (h *Headers) forEach(fn func(name, value string) error) error {
	if h == nil {
		return nil
	}
	for _, e := range h.List() {
		if err := fn(e.Name, e.Value); err != nil {
			return err
		}
	}
	return nil
}
