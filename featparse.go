// Package featparse converts flat genomic annotation files — BED family,
// UCSC gene-prediction tables, and GFF3/GTF — into one uniform,
// hierarchical feature model. It is the public facade over the internal
// decoders; callers open a Session per file and retrieve features either
// by streaming (Next) or in bulk (TopFeatures/Fetch).
package featparse

import (
	"github.com/inodb/featparse/internal/feature"
	"github.com/inodb/featparse/internal/format"
	"github.com/inodb/featparse/internal/parser"
)

// Re-exported core types.
type (
	// Session parses one annotation file.
	Session = parser.Session
	// Options is the fixed set of configuration switches accepted at
	// session construction.
	Options = parser.Options
	// Source is the pull contract for anything that yields feature
	// trees.
	Source = parser.Source
	// Feature is one annotated interval with optional children.
	Feature = feature.Feature
	// Attributes is the ordered, multi-valued tag mapping on a Feature.
	Attributes = feature.Attributes
	// Strand is a feature's orientation.
	Strand = feature.Strand
	// Flavor is the coarse format family: bed, gff, or ucsc.
	Flavor = format.Flavor
	// Filetype is the exact sub-dialect within a flavor.
	Filetype = format.Filetype
)

// Strand values.
const (
	Forward = feature.Forward
	Reverse = feature.Reverse
	Unknown = feature.Unknown
)

// Error taxonomy; match with errors.Is.
var (
	ErrUnrecognizedFormat = format.ErrUnrecognizedFormat
	ErrMalformedLine      = format.ErrMalformedLine
	ErrDuplicateID        = format.ErrDuplicateID
	ErrModeConflict       = parser.ErrModeConflict
)

// Open classifies and opens the annotation file at path, transparently
// decompressing gzip.
func Open(path string, opts Options) (*Session, error) {
	return parser.New(path, opts)
}

// DefaultOptions returns the switch defaults: gene assembly on,
// sub-feature emission off.
func DefaultOptions() Options {
	return parser.DefaultOptions()
}

// Detect classifies the file at path without opening a session.
func Detect(path string) (Flavor, Filetype, error) {
	return format.Detect(path)
}
