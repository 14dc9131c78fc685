package parser

import "github.com/inodb/featparse/internal/feature"

// Source is the pull contract for anything that yields feature trees.
// The file-backed Session implements it; a database-backed feature store
// can satisfy the same shape outside this module.
type Source interface {
	// Next returns the next structurally-complete unit.
	// Returns nil, nil when the source is exhausted.
	Next() (*feature.Feature, error)

	// Close releases the source's resources.
	Close() error
}
