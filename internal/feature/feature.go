// Package feature defines the uniform in-memory representation of an
// annotated genomic interval and its sub-structure.
package feature

import (
	"fmt"
	"sort"
)

// Strand is the orientation of a feature on its sequence.
type Strand int8

const (
	// Forward is the + strand.
	Forward Strand = 1
	// Reverse is the - strand.
	Reverse Strand = -1
	// Unknown is used when the source format carries no strand.
	Unknown Strand = 0
)

// ParseStrand converts a strand column value to a Strand.
// "+" is forward, "-" is reverse, anything else ("." included) is unknown.
func ParseStrand(s string) Strand {
	switch s {
	case "+":
		return Forward
	case "-":
		return Reverse
	}
	return Unknown
}

// String returns the conventional single-character form.
func (s Strand) String() string {
	switch s {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	}
	return "."
}

// Feature represents one genomic interval with optional children.
// Coordinates are always 1-based and closed, regardless of the source
// dialect's native convention. A child is owned by exactly one parent.
type Feature struct {
	ID     string // unique within a parsed file
	Name   string // display name, defaults to ID
	SeqID  string // chromosome or contig
	Start  int64  // 1-based
	End    int64  // 1-based, inclusive
	Strand Strand
	Type   string // primary tag: gene, mRNA, exon, CDS, peak, ...
	Source string // provenance, defaults to the input file's base name

	Score    float64
	HasScore bool

	Attributes Attributes
	Children   []*Feature
}

// Factory constructs the concrete node used by the decoders. Callers may
// substitute their own to pre-populate defaults on every node.
type Factory func() *Feature

// New returns an empty feature node. It is the default Factory.
func New() *Feature {
	return &Feature{}
}

// DisplayName returns Name, falling back to ID.
func (f *Feature) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.ID
}

// SetScore sets the optional score.
func (f *Feature) SetScore(score float64) {
	f.Score = score
	f.HasScore = true
}

// Length returns the span in bases.
func (f *Feature) Length() int64 {
	return f.End - f.Start + 1
}

// Contains reports whether pos falls within the feature boundaries.
func (f *Feature) Contains(pos int64) bool {
	return pos >= f.Start && pos <= f.End
}

// IsForwardStrand reports whether the feature is on the forward strand.
func (f *Feature) IsForwardStrand() bool {
	return f.Strand == Forward
}

// IsReverseStrand reports whether the feature is on the reverse strand.
func (f *Feature) IsReverseStrand() bool {
	return f.Strand == Reverse
}

// AddChild appends a child node, expanding the parent's boundaries if the
// child extends beyond them.
func (f *Feature) AddChild(c *Feature) {
	f.Children = append(f.Children, c)
	if f.Start == 0 || c.Start < f.Start {
		f.Start = c.Start
	}
	if c.End > f.End {
		f.End = c.End
	}
}

// SortChildren orders children by genomic position along the parent's
// strand: ascending start for forward and unknown strands, descending for
// reverse. Sorting is stable so same-start children keep decode order.
func (f *Feature) SortChildren() {
	if f.Strand == Reverse {
		sort.SliceStable(f.Children, func(i, j int) bool {
			return f.Children[i].Start > f.Children[j].Start
		})
		return
	}
	sort.SliceStable(f.Children, func(i, j int) bool {
		return f.Children[i].Start < f.Children[j].Start
	})
}

// Clone returns a deep copy of the feature and its descendants.
func (f *Feature) Clone() *Feature {
	c := *f
	c.Attributes = Attributes{}
	for _, k := range f.Attributes.Keys() {
		for _, v := range f.Attributes.GetAll(k) {
			c.Attributes.Add(k, v)
		}
	}
	c.Children = make([]*Feature, len(f.Children))
	for i, ch := range f.Children {
		c.Children[i] = ch.Clone()
	}
	return &c
}

// Walk visits the feature and every descendant depth-first.
func (f *Feature) Walk(fn func(*Feature)) {
	fn(f)
	for _, c := range f.Children {
		c.Walk(fn)
	}
}

// CoordString returns the seq:start-end form used in log output.
func (f *Feature) CoordString() string {
	return fmt.Sprintf("%s:%d-%d", f.SeqID, f.Start, f.End)
}

// Attributes is an ordered, possibly multi-valued tag to value mapping for
// format-specific extras (signalValue, itemRGB, arbitrary GFF attributes).
// The zero value is ready to use.
type Attributes struct {
	keys   []string
	values map[string][]string
}

// Set replaces any existing values for tag.
func (a *Attributes) Set(tag, value string) {
	if a.values == nil {
		a.values = make(map[string][]string)
	}
	if _, ok := a.values[tag]; !ok {
		a.keys = append(a.keys, tag)
	}
	a.values[tag] = []string{value}
}

// Add appends a value to tag, preserving earlier values.
func (a *Attributes) Add(tag, value string) {
	if a.values == nil {
		a.values = make(map[string][]string)
	}
	if _, ok := a.values[tag]; !ok {
		a.keys = append(a.keys, tag)
	}
	a.values[tag] = append(a.values[tag], value)
}

// Get returns the first value for tag, or "" when absent.
func (a *Attributes) Get(tag string) string {
	vs := a.values[tag]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// GetAll returns every value for tag in insertion order.
func (a *Attributes) GetAll(tag string) []string {
	return a.values[tag]
}

// Has reports whether tag is present.
func (a *Attributes) Has(tag string) bool {
	_, ok := a.values[tag]
	return ok
}

// Keys returns tags in first-insertion order.
func (a *Attributes) Keys() []string {
	return a.keys
}

// Len returns the number of distinct tags.
func (a *Attributes) Len() int {
	return len(a.keys)
}
