// Package gtdb implements the taxonomy database backend for the Genome
// Taxonomy Database. Taxa are identified by rank-prefixed strings such as
// "s__Escherichia coli"; the rank and display name are both encoded in the
// id itself. Genome accessions (Genbank/Refseq) resolve transparently to
// their species taxon in every query.
package gtdb

import (
	"strings"

	"go.uber.org/zap"

	"github.com/metapep/taxadb/internal/taxonomy"
)

// Root is the root sentinel id. GTDB has no canonical root taxon, so a
// synthetic value is used.
const Root = "Root"

// rankPrefixes maps the single-letter id prefix to its rank, in lineage
// order: d__, p__, c__, o__, f__, g__, s__.
var rankPrefixes = [taxonomy.NumRanks]byte{'d', 'p', 'c', 'o', 'f', 'g', 's'}

// ParseID splits a rank-prefixed taxon id into its rank and display name.
func ParseID(id string) (taxonomy.Rank, string, bool) {
	if len(id) < 3 || id[1] != '_' || id[2] != '_' {
		return 0, "", false
	}
	for i, p := range rankPrefixes {
		if id[0] == p {
			return taxonomy.Rank(i), id[3:], true
		}
	}
	return 0, "", false
}

// FormatID reconstructs a taxon id from its rank and display name. It is
// the exact inverse of ParseID.
func FormatID(r taxonomy.Rank, name string) string {
	if !r.Valid() {
		return name
	}
	return string(rankPrefixes[r]) + "__" + name
}

// StripGenomePrefix removes the Genbank/Refseq database prefix from a
// genome accession, matching the format used by the taxonomy files.
func StripGenomePrefix(genome string) string {
	genome = strings.TrimPrefix(genome, "GB_")
	return strings.TrimPrefix(genome, "RS_")
}

// Database is an immutable GTDB taxonomy built from the bacterial and
// archaeal lineage files. All query methods are safe for unsynchronized
// concurrent use.
type Database struct {
	// lineages maps each taxon to its ancestors, root→parent order,
	// excluding the taxon itself.
	lineages map[string][]string
	// children maps each taxon to its immediate children.
	children map[string][]string
	// genomeSpecies maps prefix-stripped genome accessions to their
	// species taxon.
	genomeSpecies map[string]string

	memo   *taxonomy.LineageCache[string]
	logger *zap.Logger
}

// SetLogger sets the logger for query-time diagnostics. The default is a
// no-op logger.
func (d *Database) SetLogger(l *zap.Logger) {
	d.logger = l
}

// Root returns the root sentinel id.
func (d *Database) Root() string { return Root }

// GenomeInDataset reports whether a genome accession is known, with
// Genbank/Refseq prefixes stripped before lookup.
func (d *Database) GenomeInDataset(genome string) bool {
	_, ok := d.genomeSpecies[StripGenomePrefix(genome)]
	return ok
}

// GenomeToSpecies returns the species taxon of a genome accession.
func (d *Database) GenomeToSpecies(genome string) (string, bool) {
	species, ok := d.genomeSpecies[StripGenomePrefix(genome)]
	return species, ok
}

// resolve maps genome accessions to their species taxon and passes taxon
// ids through unchanged. Callers use genome accessions and taxon ids
// interchangeably, so every public query goes through here first.
func (d *Database) resolve(id string) string {
	if species, ok := d.GenomeToSpecies(id); ok {
		return species
	}
	return id
}

// Contains reports whether the id, a taxon id or genome accession, is
// present in the dataset.
func (d *Database) Contains(id string) bool {
	_, ok := d.lineages[d.resolve(id)]
	return ok
}

// Rank returns the rank encoded in the id's prefix.
func (d *Database) Rank(id string) (taxonomy.Rank, bool) {
	id = d.resolve(id)
	if !d.Contains(id) {
		return 0, false
	}
	r, _, ok := ParseID(id)
	return r, ok
}

// Name returns the display name encoded in the id, the substring after the
// rank prefix.
func (d *Database) Name(id string) (string, bool) {
	id = d.resolve(id)
	if !d.Contains(id) {
		return "", false
	}
	_, name, ok := ParseID(id)
	return name, ok
}

// NameToID resolves a display name by probing every rank prefix; the same
// name can exist at multiple ranks (e.g. a genus named after its family).
// Genome accessions resolve directly to their species id.
func (d *Database) NameToID(name string, policy taxonomy.AmbiguityPolicy) ([]string, bool) {
	if species, ok := d.GenomeToSpecies(name); ok {
		return []string{species}, true
	}

	var ids []string
	for r := taxonomy.Superkingdom; r <= taxonomy.Species; r++ {
		if id := FormatID(r, name); d.Contains(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, false
	}
	if len(ids) == 1 {
		return ids, true
	}
	switch policy {
	case taxonomy.AmbiguityFirst:
		return ids[:1], true
	case taxonomy.AmbiguityAll:
		return ids, true
	default:
		d.logger.Debug("ambiguous taxon name", zap.String("name", name), zap.Int("ids", len(ids)))
		return nil, false
	}
}

// Parents returns the root→leaf ancestor chain including the id itself as
// the last element.
func (d *Database) Parents(id string) []string {
	id = d.resolve(id)
	chain, ok := d.lineages[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, id)
}

// Children returns all descendants reachable from the id, excluding the id
// itself.
func (d *Database) Children(id string) []string {
	id = d.resolve(id)
	if !d.Contains(id) {
		return nil
	}
	var out []string
	frontier := []string{id}
	for len(frontier) > 0 {
		var next []string
		for _, cur := range frontier {
			next = append(next, d.children[cur]...)
		}
		out = append(out, next...)
		frontier = next
	}
	return out
}

// StandardLineage returns the seven-slot standard lineage. GTDB lineages
// are complete from domain down to the id's own rank, so slots are filled
// contiguously from the top; ranks below the id stay absent.
func (d *Database) StandardLineage(id string) taxonomy.Lineage[string] {
	var lin taxonomy.Lineage[string]
	id = d.resolve(id)
	if cached, ok := d.memo.Get(id); ok {
		return cached
	}
	chain, ok := d.lineages[id]
	if !ok {
		return lin
	}
	for i, anc := range chain {
		lin.Set(taxonomy.Rank(i), anc)
	}
	lin.Set(taxonomy.Rank(len(chain)), id)
	d.memo.Put(id, lin)
	return lin
}

// ParentAt returns the ancestor at the target rank. An id already at the
// target rank returns itself; a lineage that never reaches the rank
// reports ok=false.
func (d *Database) ParentAt(id string, rank taxonomy.Rank) (string, bool) {
	if !rank.Valid() {
		return "", false
	}
	id = d.resolve(id)
	if !d.Contains(id) {
		d.logger.Debug("taxon id not in gtdb dataset", zap.String("id", id))
		return "", false
	}
	return d.StandardLineage(id).At(rank)
}

// LCA returns the last common ancestor of the ids under the given
// unknown-taxon policy. Genome accessions are resolved to species ids
// before the walk.
func (d *Database) LCA(ids []string, policy taxonomy.UnknownPolicy) (string, bool, error) {
	resolved := make([]string, len(ids))
	for i, id := range ids {
		resolved[i] = d.resolve(id)
	}
	return taxonomy.LCA[string](d, resolved, policy)
}

// Len returns the number of taxa in the dataset.
func (d *Database) Len() int { return len(d.lineages) }

// Genomes returns the number of genome accessions in the dataset.
func (d *Database) Genomes() int { return len(d.genomeSpecies) }

var _ taxonomy.Database[string] = (*Database)(nil)
