// Package ncbi implements the taxonomy database backend for the NCBI
// taxdump distribution. Ids are numeric; lineages are derived by walking
// parent pointers to the root and may have gaps at standard ranks.
package ncbi

import (
	"go.uber.org/zap"

	"github.com/metapep/taxadb/internal/taxonomy"
)

// TaxID is an NCBI numeric taxon id. Zero is not a valid id and serves as
// the absent sentinel in inputs.
type TaxID uint32

// Root is the NCBI root taxon, id 1 across all taxdump versions.
const Root TaxID = 1

// Database is an immutable NCBI taxonomy built from taxdump files. All
// query methods are safe for unsynchronized concurrent use.
type Database struct {
	parentOf map[TaxID]TaxID
	rawRanks map[TaxID]string
	names    map[TaxID]string
	nameIDs  map[string][]TaxID
	children map[TaxID][]TaxID

	// ancestors holds precomputed root→parent chains from
	// taxidlineage.dmp when that file was loaded; otherwise chains are
	// derived from parentOf on demand.
	ancestors map[TaxID][]TaxID

	memo   *taxonomy.LineageCache[TaxID]
	logger *zap.Logger
}

// SetLogger sets the logger for query-time diagnostics. The default is a
// no-op logger.
func (d *Database) SetLogger(l *zap.Logger) {
	d.logger = l
}

// Root returns the root sentinel id.
func (d *Database) Root() TaxID { return Root }

// Contains reports whether the id is present in the dataset.
func (d *Database) Contains(id TaxID) bool {
	_, ok := d.rawRanks[id]
	return ok
}

// RawRank returns the rank name exactly as recorded in nodes.dmp, which
// may be a non-standard rank such as "clade" or "no rank".
func (d *Database) RawRank(id TaxID) (string, bool) {
	r, ok := d.rawRanks[id]
	return r, ok
}

// Rank returns the standard rank of the id; ids at non-standard ranks
// report ok=false.
func (d *Database) Rank(id TaxID) (taxonomy.Rank, bool) {
	raw, ok := d.rawRanks[id]
	if !ok {
		return 0, false
	}
	return taxonomy.ParseRank(raw)
}

// Name returns the scientific name of the id.
func (d *Database) Name(id TaxID) (string, bool) {
	n, ok := d.names[id]
	return n, ok
}

// NameToID resolves a taxon name under the given ambiguity policy.
func (d *Database) NameToID(name string, policy taxonomy.AmbiguityPolicy) ([]TaxID, bool) {
	ids, ok := d.nameIDs[name]
	if !ok || len(ids) == 0 {
		return nil, false
	}
	if len(ids) == 1 {
		return []TaxID{ids[0]}, true
	}
	switch policy {
	case taxonomy.AmbiguityFirst:
		return []TaxID{ids[0]}, true
	case taxonomy.AmbiguityAll:
		out := make([]TaxID, len(ids))
		copy(out, ids)
		return out, true
	default:
		d.logger.Debug("ambiguous taxon name", zap.String("name", name), zap.Int("ids", len(ids)))
		return nil, false
	}
}

// Parents returns the full root→leaf ancestor chain including the id
// itself as the last element. The chain includes taxa at non-standard
// ranks.
func (d *Database) Parents(id TaxID) []TaxID {
	if !d.Contains(id) {
		return nil
	}
	chain := d.ancestorChain(id)
	out := make([]TaxID, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, id)
}

// ancestorChain returns the root→parent chain for id, excluding id. The
// precomputed taxidlineage chain is preferred; otherwise parent pointers
// are walked to the root.
func (d *Database) ancestorChain(id TaxID) []TaxID {
	if chain, ok := d.ancestors[id]; ok {
		return chain
	}
	var rev []TaxID
	for cur := id; cur != Root; {
		parent, ok := d.parentOf[cur]
		if !ok || parent == cur {
			break
		}
		rev = append(rev, parent)
		cur = parent
	}
	chain := make([]TaxID, len(rev))
	for i, v := range rev {
		chain[len(rev)-1-i] = v
	}
	return chain
}

// Children returns all descendants reachable from the id, excluding the id
// itself.
func (d *Database) Children(id TaxID) []TaxID {
	if !d.Contains(id) {
		return nil
	}
	var out []TaxID
	frontier := []TaxID{id}
	for len(frontier) > 0 {
		var next []TaxID
		for _, cur := range frontier {
			next = append(next, d.children[cur]...)
		}
		out = append(out, next...)
		frontier = next
	}
	return out
}

// StandardLineage projects the full ancestor chain of the id onto the
// seven standard ranks. Taxa at non-standard ranks are dropped and
// unannotated standard ranks stay absent. Results are memoized.
func (d *Database) StandardLineage(id TaxID) taxonomy.Lineage[TaxID] {
	var lin taxonomy.Lineage[TaxID]
	if !d.Contains(id) {
		return lin
	}
	if cached, ok := d.memo.Get(id); ok {
		return cached
	}
	for _, anc := range d.Parents(id) {
		if r, ok := d.Rank(anc); ok {
			lin.Set(r, anc)
		}
	}
	d.memo.Put(id, lin)
	return lin
}

// ParentAt returns the ancestor at the target rank. An id already at the
// target rank returns itself; an unannotated or unreached rank reports
// ok=false.
func (d *Database) ParentAt(id TaxID, rank taxonomy.Rank) (TaxID, bool) {
	if !rank.Valid() || !d.Contains(id) {
		return 0, false
	}
	return d.StandardLineage(id).At(rank)
}

// RankFallback selects a neighbor rank when the requested one is
// unannotated in a lineage.
type RankFallback int

const (
	// FallbackNone reports absent when the rank is unannotated.
	FallbackNone RankFallback = iota
	// FallbackDeeper takes the nearest annotated rank toward species.
	FallbackDeeper
	// FallbackShallower takes the nearest annotated rank toward the root,
	// ending at the root id when the whole lineage is unannotated.
	FallbackShallower
)

// ParentAtFallback is ParentAt with a fallback for unannotated ranks.
// NCBI lineages frequently skip standard ranks; GTDB lineages are gap-free
// and never need this.
func (d *Database) ParentAtFallback(id TaxID, rank taxonomy.Rank, fb RankFallback) (TaxID, bool) {
	if !rank.Valid() || !d.Contains(id) {
		return 0, false
	}
	lin := d.StandardLineage(id)
	switch fb {
	case FallbackDeeper:
		for r := rank; r <= taxonomy.Species; r++ {
			if v, ok := lin.At(r); ok {
				return v, true
			}
		}
		return 0, false
	case FallbackShallower:
		for r := rank; r >= taxonomy.Superkingdom; r-- {
			if v, ok := lin.At(r); ok {
				return v, true
			}
		}
		// The id is in the dataset but carries no standard-rank
		// annotation anywhere; the root still holds.
		return Root, true
	default:
		return lin.At(rank)
	}
}

// LCA returns the last common ancestor of the ids under the given
// unknown-taxon policy.
func (d *Database) LCA(ids []TaxID, policy taxonomy.UnknownPolicy) (TaxID, bool, error) {
	return taxonomy.LCA[TaxID](d, ids, policy)
}

// Len returns the number of taxa in the dataset.
func (d *Database) Len() int { return len(d.rawRanks) }

var _ taxonomy.Database[TaxID] = (*Database)(nil)
