package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainDB is a minimal in-memory backend for exercising the LCA walk. Each
// entry is a full root→leaf chain including the taxon itself.
type chainDB struct {
	chains map[string][]string
}

func newChainDB() *chainDB {
	return &chainDB{chains: map[string][]string{
		"root":    {"root"},
		"bact":    {"root", "bact"},
		"proteo":  {"root", "bact", "proteo"},
		"entero":  {"root", "bact", "proteo", "entero"},
		"esch":    {"root", "bact", "proteo", "entero", "esch"},
		"coli":    {"root", "bact", "proteo", "entero", "esch", "coli"},
		"ferg":    {"root", "bact", "proteo", "entero", "esch", "ferg"},
		"salm":    {"root", "bact", "proteo", "entero", "salm"},
		"arch":    {"root", "arch"},
		"methano": {"root", "arch", "methano"},
	}}
}

func (d *chainDB) Root() string { return "root" }

func (d *chainDB) Contains(id string) bool {
	_, ok := d.chains[id]
	return ok
}

func (d *chainDB) Parents(id string) []string { return d.chains[id] }

func (d *chainDB) Rank(id string) (Rank, bool)   { return 0, false }
func (d *chainDB) Name(id string) (string, bool) { return id, d.Contains(id) }
func (d *chainDB) NameToID(name string, policy AmbiguityPolicy) ([]string, bool) {
	if d.Contains(name) {
		return []string{name}, true
	}
	return nil, false
}
func (d *chainDB) ParentAt(id string, rank Rank) (string, bool) { return "", false }
func (d *chainDB) Children(id string) []string                  { return nil }
func (d *chainDB) StandardLineage(id string) Lineage[string]    { return Lineage[string]{} }
func (d *chainDB) LCA(ids []string, policy UnknownPolicy) (string, bool, error) {
	return LCA[string](d, ids, policy)
}

var _ Database[string] = (*chainDB)(nil)

func TestLCA(t *testing.T) {
	db := newChainDB()

	tests := []struct {
		name string
		ids  []string
		want string
		ok   bool
	}{
		{"siblings meet at parent", []string{"coli", "ferg"}, "esch", true},
		{"cousins meet at shared ancestor", []string{"coli", "salm"}, "entero", true},
		{"cross-domain meets at root", []string{"coli", "methano"}, "root", true},
		{"single id is its own lca", []string{"coli"}, "coli", true},
		{"identical ids", []string{"salm", "salm"}, "salm", true},
		{"ancestor and descendant", []string{"esch", "coli"}, "esch", true},
		{"empty input is absent", nil, "", false},
		{"zero values dropped", []string{"", "coli", ""}, "coli", true},
		{"all zero values", []string{"", ""}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := LCA[string](db, tt.ids, UnknownIgnore)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLCAUnknownPolicy(t *testing.T) {
	db := newChainDB()
	ids := []string{"coli", "nonexistent"}

	t.Run("ignore drops unknown ids", func(t *testing.T) {
		got, ok, err := LCA[string](db, ids, UnknownIgnore)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "coli", got)
	})

	t.Run("error fails the call", func(t *testing.T) {
		_, _, err := LCA[string](db, ids, UnknownError)
		assert.ErrorIs(t, err, ErrUnknownTaxon)
	})

	t.Run("root short-circuits to root", func(t *testing.T) {
		got, ok, err := LCA[string](db, ids, UnknownRoot)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "root", got)
	})

	t.Run("none short-circuits to absent", func(t *testing.T) {
		_, ok, err := LCA[string](db, ids, UnknownNone)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("policies only trigger on unknown ids", func(t *testing.T) {
		got, ok, err := LCA[string](db, []string{"coli", "ferg"}, UnknownError)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "esch", got)
	})

	t.Run("invalid policy", func(t *testing.T) {
		_, _, err := LCA[string](db, ids, UnknownPolicy(42))
		assert.Error(t, err)
	})
}

func TestCommonAncestor(t *testing.T) {
	t.Run("deepest agreement wins", func(t *testing.T) {
		got, ok := CommonAncestor([][]string{
			{"root", "bact", "proteo", "entero", "esch", "coli"},
			{"root", "bact", "proteo", "entero", "esch", "ferg"},
		})
		assert.True(t, ok)
		assert.Equal(t, "esch", got)
	})

	t.Run("no agreement at all", func(t *testing.T) {
		_, ok := CommonAncestor([][]string{{"a", "b"}, {"x", "y"}})
		assert.False(t, ok)
	})

	t.Run("empty input", func(t *testing.T) {
		_, ok := CommonAncestor[string](nil)
		assert.False(t, ok)
	})

	t.Run("shortest chain bounds the walk", func(t *testing.T) {
		got, ok := CommonAncestor([][]string{
			{"root", "bact"},
			{"root", "bact", "proteo", "entero"},
		})
		assert.True(t, ok)
		assert.Equal(t, "bact", got)
	})
}

func TestCommonAncestorLineages(t *testing.T) {
	mk := func(pairs map[Rank]string) Lineage[string] {
		var lin Lineage[string]
		for r, v := range pairs {
			lin.Set(r, v)
		}
		return lin
	}

	t.Run("gapped rank is skipped, not terminal", func(t *testing.T) {
		a := mk(map[Rank]string{Superkingdom: "d", Class: "c", Genus: "g"})
		b := mk(map[Rank]string{Superkingdom: "d", Phylum: "p", Class: "c", Genus: "g"})

		got, ok := CommonAncestorLineages([]Lineage[string]{a, b})
		assert.True(t, ok)
		assert.Equal(t, "g", got, "consensus resumes below the gap")
	})

	t.Run("disagreement terminates the walk", func(t *testing.T) {
		a := mk(map[Rank]string{Superkingdom: "d", Phylum: "p1", Genus: "g"})
		b := mk(map[Rank]string{Superkingdom: "d", Phylum: "p2", Genus: "g"})

		got, ok := CommonAncestorLineages([]Lineage[string]{a, b})
		assert.True(t, ok)
		assert.Equal(t, "d", got)
	})

	t.Run("empty input", func(t *testing.T) {
		_, ok := CommonAncestorLineages[string](nil)
		assert.False(t, ok)
	})
}
