// Package accmap builds immutable accession→taxon maps from delimited
// mapping files and resolves protein or peptide accessions to taxa,
// including LCA aggregation of accessions mapped to multiple taxa.
package accmap

import (
	"errors"

	"github.com/metapep/taxadb/internal/taxonomy"
)

// Validation errors, distinguished so callers can tell a wrong delimiter
// from a bad column index.
var (
	// ErrDelimiter means parsing produced a single column, which almost
	// always indicates the wrong delimiter.
	ErrDelimiter = errors.New("only one column in input, is the delimiter correct?")

	// ErrColumnRange means an accession or taxon column index lies outside
	// the parsed table.
	ErrColumnRange = errors.New("column index out of range of input data")

	// ErrSameColumn means the accession and taxon columns are identical.
	ErrSameColumn = errors.New("accession and taxon column index cannot be equal")
)

// Map is an immutable accession→taxon dictionary. It is built once per
// imported mapping file, held for an analysis session and safe for
// unsynchronized concurrent reads.
type Map[ID comparable] struct {
	taxa map[string]ID
}

// FromEntries wraps an existing accession→taxon table, e.g. one reloaded
// from a snapshot store.
func FromEntries[ID comparable](entries map[string]ID) *Map[ID] {
	taxa := make(map[string]ID, len(entries))
	for acc, id := range entries {
		taxa[acc] = id
	}
	return &Map[ID]{taxa: taxa}
}

// Taxon returns the taxon mapped to the accession.
func (m *Map[ID]) Taxon(accession string) (ID, bool) {
	id, ok := m.taxa[accession]
	return id, ok
}

// Len returns the number of accessions in the map.
func (m *Map[ID]) Len() int { return len(m.taxa) }

// Each calls fn for every accession→taxon pair, in unspecified order.
func (m *Map[ID]) Each(fn func(accession string, id ID)) {
	for acc, id := range m.taxa {
		fn(acc, id)
	}
}

// LCA resolves each accession to its taxon, drops unmapped accessions and
// returns the last common ancestor of the rest.
func (m *Map[ID]) LCA(accessions []string, db taxonomy.Database[ID], policy taxonomy.UnknownPolicy) (ID, bool, error) {
	var zero ID
	if db == nil {
		return zero, false, taxonomy.ErrNoDatabase
	}
	ids := make([]ID, 0, len(accessions))
	for _, acc := range accessions {
		if id, ok := m.taxa[acc]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return zero, false, nil
	}
	return db.LCA(ids, policy)
}
