package gtdb

import (
	"go.uber.org/zap"

	"github.com/metapep/taxadb/internal/taxonomy"
)

// Snapshot is the serializable form of a Database, used by the snapshot
// cache to skip re-parsing the taxonomy files on every session.
type Snapshot struct {
	Lineages      map[string][]string
	Children      map[string][]string
	GenomeSpecies map[string]string
}

// Snapshot exports the database contents for serialization.
func (d *Database) Snapshot() *Snapshot {
	return &Snapshot{
		Lineages:      d.lineages,
		Children:      d.children,
		GenomeSpecies: d.genomeSpecies,
	}
}

// FromSnapshot rebuilds a Database from serialized contents. The lineage
// memo starts empty and refills on demand.
func FromSnapshot(s *Snapshot) *Database {
	return &Database{
		lineages:      s.Lineages,
		children:      s.Children,
		genomeSpecies: s.GenomeSpecies,
		memo:          taxonomy.NewLineageCache[string](),
		logger:        zap.NewNop(),
	}
}
