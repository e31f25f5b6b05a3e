// Package taxonomy defines the standard rank schema, the lineage
// representation and the database contract shared by the NCBI and GTDB
// backends, together with the lineage-walk LCA algorithm both backends
// delegate to.
package taxonomy

import "strings"

// Rank is a standard taxonomic classification level. The seven standard
// ranks are ordered from least to most specific; that order is the slot
// order of every Lineage.
type Rank int

const (
	Superkingdom Rank = iota
	Phylum
	Class
	Order
	Family
	Genus
	Species
)

// NumRanks is the number of standard ranks, and the fixed length of a
// standard lineage.
const NumRanks = int(Species) + 1

var rankNames = [NumRanks]string{
	"superkingdom",
	"phylum",
	"class",
	"order",
	"family",
	"genus",
	"species",
}

// String returns the lowercase rank name.
func (r Rank) String() string {
	if r < 0 || int(r) >= NumRanks {
		return "unknown"
	}
	return rankNames[r]
}

// Valid reports whether r is one of the seven standard ranks.
func (r Rank) Valid() bool {
	return r >= 0 && int(r) < NumRanks
}

// ParseRank parses a rank name, case-insensitively. "domain" is accepted
// as an alias for superkingdom; GTDB uses it where NCBI uses superkingdom.
func ParseRank(name string) (Rank, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "domain" {
		return Superkingdom, true
	}
	for i, n := range rankNames {
		if n == name {
			return Rank(i), true
		}
	}
	return 0, false
}

// Ranks returns the standard ranks in lineage order.
func Ranks() []Rank {
	out := make([]Rank, NumRanks)
	for i := range out {
		out[i] = Rank(i)
	}
	return out
}
