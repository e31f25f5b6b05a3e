package ncbi

import (
	"go.uber.org/zap"

	"github.com/metapep/taxadb/internal/taxonomy"
)

// Snapshot is the serializable form of a Database, used by the snapshot
// cache to skip re-parsing the taxdump files on every session.
type Snapshot struct {
	ParentOf  map[TaxID]TaxID
	RawRanks  map[TaxID]string
	Names     map[TaxID]string
	NameIDs   map[string][]TaxID
	Children  map[TaxID][]TaxID
	Ancestors map[TaxID][]TaxID
}

// Snapshot exports the database contents for serialization.
func (d *Database) Snapshot() *Snapshot {
	return &Snapshot{
		ParentOf:  d.parentOf,
		RawRanks:  d.rawRanks,
		Names:     d.names,
		NameIDs:   d.nameIDs,
		Children:  d.children,
		Ancestors: d.ancestors,
	}
}

// FromSnapshot rebuilds a Database from serialized contents. The lineage
// memo starts empty and refills on demand.
func FromSnapshot(s *Snapshot) *Database {
	return &Database{
		parentOf:  s.ParentOf,
		rawRanks:  s.RawRanks,
		names:     s.Names,
		nameIDs:   s.NameIDs,
		children:  s.Children,
		ancestors: s.Ancestors,
		memo:      taxonomy.NewLineageCache[TaxID](),
		logger:    zap.NewNop(),
	}
}
