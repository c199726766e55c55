package project

import (
	"os"
	"slices"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Table is an ordered set of descriptors, looked up by name.
type Table struct {
	libs []*Descriptor
}

// Default returns the built-in library table in build order.
func Default() *Table {
	libs := make([]*Descriptor, len(builtin))
	for i, d := range builtin {
		c := *d
		c.Args = slices.Clone(d.Args)
		libs[i] = &c
	}
	return &Table{libs: libs}
}

// Libs returns all descriptors in build order.
func (t *Table) Libs() []*Descriptor {
	return slices.Clone(t.libs)
}

// Lookup returns the descriptor called name.
func (t *Table) Lookup(name string) (*Descriptor, error) {
	for _, d := range t.libs {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, zerr.With(ErrUnknownLibrary, "lib", name)
}

// Select returns the descriptors for names in table order. No names
// selects every library.
func (t *Table) Select(names ...string) ([]*Descriptor, error) {
	if len(names) == 0 {
		return t.Libs(), nil
	}
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, err := t.Lookup(name); err != nil {
			return nil, err
		}
		want[name] = true
	}
	var out []*Descriptor
	for _, d := range t.libs {
		if want[d.Name] {
			out = append(out, d)
		}
	}
	return out, nil
}

// Merge replaces descriptors with the same name in place and appends the
// rest at the end.
func (t *Table) Merge(extra ...*Descriptor) {
	for _, d := range extra {
		i := slices.IndexFunc(t.libs, func(e *Descriptor) bool { return e.Name == d.Name })
		if i >= 0 {
			t.libs[i] = d
			continue
		}
		t.libs = append(t.libs, d)
	}
}

// LoadFile reads a YAML list of descriptors. Base, name and version are
// derived from the URL as for New when omitted.
func LoadFile(path string) ([]*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "read descriptor file"), "path", path)
	}
	var raw []*Descriptor
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "parse descriptor file"), "path", path)
	}
	seen := make(map[string]bool, len(raw))
	for _, d := range raw {
		if d == nil {
			continue
		}
		if d.Kind == "" {
			d.Kind = Autotools
		}
		if err := d.complete(); err != nil {
			return nil, zerr.With(err, "path", path)
		}
		if err := d.Validate(); err != nil {
			return nil, zerr.With(err, "path", path)
		}
		if seen[d.Name] {
			return nil, zerr.With(zerr.With(ErrInvalid, "lib", d.Name), "reason", "duplicate name")
		}
		seen[d.Name] = true
	}
	return slices.DeleteFunc(raw, func(d *Descriptor) bool { return d == nil }), nil
}
