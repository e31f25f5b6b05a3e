package accmap

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metapep/taxadb/internal/gtdb"
	"github.com/metapep/taxadb/internal/ncbi"
	"github.com/metapep/taxadb/internal/taxonomy"
)

const (
	coliLineage     = "d__Bacteria;p__Pseudomonadota;c__Gammaproteobacteria;o__Enterobacterales;f__Enterobacteriaceae;g__Escherichia;s__Escherichia coli"
	albertiiLineage = "d__Bacteria;p__Pseudomonadota;c__Gammaproteobacteria;o__Enterobacterales;f__Enterobacteriaceae;g__Escherichia;s__Escherichia albertii"
	entericaLineage = "d__Bacteria;p__Pseudomonadota;c__Gammaproteobacteria;o__Enterobacterales;f__Enterobacteriaceae;g__Salmonella;s__Salmonella enterica"
)

func gtdbFixture(t *testing.T) *gtdb.Database {
	t.Helper()
	d, err := gtdb.ReadTaxonomy(strings.NewReader(strings.Join([]string{
		"GB_GCA_000001.1\t" + coliLineage,
		"GB_GCA_000003.1\t" + albertiiLineage,
		"GB_GCA_000004.1\t" + entericaLineage,
	}, "\n")))
	require.NoError(t, err)
	return d
}

// ncbiFixture rebuilds a small Escherichia/Salmonella tree through the
// snapshot form, the same path the cache-restore code uses.
func ncbiFixture(t *testing.T) *ncbi.Database {
	t.Helper()
	return ncbi.FromSnapshot(&ncbi.Snapshot{
		ParentOf: map[ncbi.TaxID]ncbi.TaxID{
			2: 1, 543: 2, 561: 543, 590: 543, 562: 561, 564: 561, 28901: 590,
		},
		RawRanks: map[ncbi.TaxID]string{
			1: "no rank", 2: "superkingdom", 543: "family",
			561: "genus", 590: "genus", 562: "species", 564: "species", 28901: "species",
		},
		Names: map[ncbi.TaxID]string{
			561: "Escherichia", 562: "Escherichia coli", 564: "Escherichia fergusonii",
		},
		NameIDs: map[string][]ncbi.TaxID{
			"Escherichia":            {561},
			"Escherichia coli":       {562},
			"Escherichia fergusonii": {564},
		},
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    Options
		wantErr error
	}{
		{
			name:  "valid comma input",
			input: "P1,562\nP2,564\n",
			opts:  Options{AccessionColumn: 0, TaxonColumn: 1},
		},
		{
			name:    "wrong delimiter",
			input:   "P1\t562\nP2\t564\n",
			opts:    Options{AccessionColumn: 0, TaxonColumn: 1},
			wantErr: ErrDelimiter,
		},
		{
			name:    "column out of range",
			input:   "P1,562\n",
			opts:    Options{AccessionColumn: 0, TaxonColumn: 5},
			wantErr: ErrColumnRange,
		},
		{
			name:    "negative column",
			input:   "P1,562\n",
			opts:    Options{AccessionColumn: -1, TaxonColumn: 1},
			wantErr: ErrColumnRange,
		},
		{
			name:    "equal columns",
			input:   "P1,562\n",
			opts:    Options{AccessionColumn: 1, TaxonColumn: 1},
			wantErr: ErrSameColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(strings.NewReader(tt.input), tt.opts)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestWranglePeptide(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PEPTIDE", "PEPTIDE"},
		{"PEPT(+15.99)IDE", "PEPTIDE"},
		{"LLGK", "IIGK"},
		{"_M(ox)ALK_", "MAIK"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wranglePeptide(tt.in), tt.in)
	}
}

func TestNewNCBI(t *testing.T) {
	t.Run("numeric taxon column, keep first", func(t *testing.T) {
		input := "P1,562\nP2,564\nP1,564\n"
		m, err := NewNCBI(strings.NewReader(input), Options{TaxonColumn: 1, DropDuplicates: true}, nil)
		require.NoError(t, err)

		assert.Equal(t, 2, m.Len())
		id, ok := m.Taxon("P1")
		assert.True(t, ok)
		assert.Equal(t, ncbi.TaxID(562), id, "first row wins")
	})

	t.Run("non-numeric taxon fails fast", func(t *testing.T) {
		input := "P1,Escherichia coli\n"
		_, err := NewNCBI(strings.NewReader(input), Options{TaxonColumn: 1, DropDuplicates: true}, nil)
		assert.ErrorContains(t, err, "entirely numeric")
	})

	t.Run("duplicate taxa collapse to LCA", func(t *testing.T) {
		db := ncbiFixture(t)
		input := "P1,562\nP1,564\nP2,562\nP2,562\n"
		m, err := NewNCBI(strings.NewReader(input), Options{TaxonColumn: 1}, db)
		require.NoError(t, err)

		id, ok := m.Taxon("P1")
		assert.True(t, ok)
		assert.Equal(t, ncbi.TaxID(561), id, "diverging rows aggregate to the genus")

		id, ok = m.Taxon("P2")
		assert.True(t, ok)
		assert.Equal(t, ncbi.TaxID(562), id, "exact duplicates are not an LCA case")
	})

	t.Run("aggregation without database fails", func(t *testing.T) {
		_, err := NewNCBI(strings.NewReader("P1,562\n"), Options{TaxonColumn: 1}, nil)
		assert.ErrorIs(t, err, taxonomy.ErrNoDatabase)
	})

	t.Run("names to ids", func(t *testing.T) {
		db := ncbiFixture(t)
		input := "P1,Escherichia coli\nP2,Unknownus ignotus\n"
		m, err := NewNCBI(strings.NewReader(input), Options{TaxonColumn: 1, NamesToIDs: true}, db)
		require.NoError(t, err)

		id, ok := m.Taxon("P1")
		assert.True(t, ok)
		assert.Equal(t, ncbi.TaxID(562), id)

		_, ok = m.Taxon("P2")
		assert.False(t, ok, "unconvertible names leave the row unmapped")
	})

	t.Run("names to ids without database fails", func(t *testing.T) {
		_, err := NewNCBI(strings.NewReader("P1,Escherichia coli\n"),
			Options{TaxonColumn: 1, NamesToIDs: true, DropDuplicates: true}, nil)
		assert.ErrorIs(t, err, taxonomy.ErrNoDatabase)
	})
}

func TestNewNCBIHeaderAndRegex(t *testing.T) {
	input := "accession,taxid\nsp|P0A7G6|RECA_ECOLI,562\ntr|QXYZ1|QXYZ1_9ZZZZ,564\nnoise,562\n"
	opts := Options{
		TaxonColumn:    1,
		SkipHeader:     true,
		AccessionRegex: regexp.MustCompile(`(?:sp|tr)\|([A-Z0-9]+)\|`),
		DropDuplicates: true,
	}
	m, err := NewNCBI(strings.NewReader(input), opts, nil)
	require.NoError(t, err)

	_, ok := m.Taxon("accession")
	assert.False(t, ok, "header row is skipped")

	id, ok := m.Taxon("sp|P0A7G6|")
	assert.True(t, ok, "accession is replaced by its first regex match")
	assert.Equal(t, ncbi.TaxID(562), id)

	id, ok = m.Taxon("noise")
	assert.True(t, ok, "non-matching accessions keep their raw value")
	assert.Equal(t, ncbi.TaxID(562), id)

	t.Run("drop unmatched", func(t *testing.T) {
		opts := opts
		opts.NoMatchAbsent = true
		m, err := NewNCBI(strings.NewReader(input), opts, nil)
		require.NoError(t, err)
		_, ok := m.Taxon("noise")
		assert.False(t, ok)
	})
}

func TestNewGTDB(t *testing.T) {
	db := gtdbFixture(t)

	t.Run("taxon ids pass through", func(t *testing.T) {
		input := "P1,s__Escherichia coli\n"
		m, err := NewGTDB(strings.NewReader(input), Options{TaxonColumn: 1}, db)
		require.NoError(t, err)

		id, ok := m.Taxon("P1")
		assert.True(t, ok)
		assert.Equal(t, "s__Escherichia coli", id)
	})

	t.Run("genome accessions resolve to species before aggregation", func(t *testing.T) {
		input := "P1,GB_GCA_000001.1\nP1,s__Escherichia coli\n"
		m, err := NewGTDB(strings.NewReader(input), Options{TaxonColumn: 1}, db)
		require.NoError(t, err)

		id, ok := m.Taxon("P1")
		assert.True(t, ok)
		assert.Equal(t, "s__Escherichia coli", id, "genome and its species are the same taxon")
	})

	t.Run("diverging species aggregate to genus", func(t *testing.T) {
		input := "P1,GB_GCA_000001.1\nP1,GB_GCA_000003.1\n"
		m, err := NewGTDB(strings.NewReader(input), Options{TaxonColumn: 1}, db)
		require.NoError(t, err)

		id, ok := m.Taxon("P1")
		assert.True(t, ok)
		assert.Equal(t, "g__Escherichia", id)
	})

	t.Run("names to ids", func(t *testing.T) {
		input := "P1,Escherichia coli\n"
		m, err := NewGTDB(strings.NewReader(input), Options{TaxonColumn: 1, NamesToIDs: true}, db)
		require.NoError(t, err)

		id, ok := m.Taxon("P1")
		assert.True(t, ok)
		assert.Equal(t, "s__Escherichia coli", id)
	})
}

func TestNewNCBIFromGTDB(t *testing.T) {
	metadata := "accession\tncbi_taxid\nGB_GCA_000001.1\t562\nGB_GCA_000003.1\t564\n"
	xwalk, err := gtdb.ReadGenomeToNCBI(strings.NewReader(metadata))
	require.NoError(t, err)

	t.Run("genomes route through the crosswalk", func(t *testing.T) {
		input := "P1,GB_GCA_000001.1\nP2,GB_GCA_999999.9\n"
		m, err := NewNCBIFromGTDB(strings.NewReader(input), Options{TaxonColumn: 1, DropDuplicates: true}, xwalk, nil)
		require.NoError(t, err)

		id, ok := m.Taxon("P1")
		assert.True(t, ok)
		assert.Equal(t, ncbi.TaxID(562), id)

		_, ok = m.Taxon("P2")
		assert.False(t, ok, "genomes missing from the crosswalk stay unmapped")
	})

	t.Run("aggregation runs in ncbi id space", func(t *testing.T) {
		db := ncbiFixture(t)
		input := "P1,GB_GCA_000001.1\nP1,GB_GCA_000003.1\n"
		m, err := NewNCBIFromGTDB(strings.NewReader(input), Options{TaxonColumn: 1}, xwalk, db)
		require.NoError(t, err)

		id, ok := m.Taxon("P1")
		assert.True(t, ok)
		assert.Equal(t, ncbi.TaxID(561), id)
	})

	t.Run("nil crosswalk fails", func(t *testing.T) {
		_, err := NewNCBIFromGTDB(strings.NewReader("P1,x\n"), Options{TaxonColumn: 1, DropDuplicates: true}, nil, nil)
		assert.Error(t, err)
	})
}

func TestMapLCA(t *testing.T) {
	db := gtdbFixture(t)
	m := FromEntries(map[string]string{
		"P1": "s__Escherichia coli",
		"P2": "s__Escherichia albertii",
		"P3": "s__Salmonella enterica",
	})

	got, ok, err := m.LCA([]string{"P1", "P2"}, db, taxonomy.UnknownIgnore)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "g__Escherichia", got)

	got, ok, err = m.LCA([]string{"P1", "P3"}, db, taxonomy.UnknownIgnore)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "f__Enterobacteriaceae", got)

	t.Run("unmapped accessions are dropped", func(t *testing.T) {
		got, ok, err := m.LCA([]string{"P1", "UNMAPPED"}, db, taxonomy.UnknownIgnore)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "s__Escherichia coli", got)
	})

	t.Run("nothing mapped is absent", func(t *testing.T) {
		_, ok, err := m.LCA([]string{"UNMAPPED"}, db, taxonomy.UnknownIgnore)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("nil database", func(t *testing.T) {
		_, _, err := m.LCA([]string{"P1"}, nil, taxonomy.UnknownIgnore)
		assert.ErrorIs(t, err, taxonomy.ErrNoDatabase)
	})
}

func TestParseRowsLineErrors(t *testing.T) {
	t.Run("delimiter error carries the line number", func(t *testing.T) {
		input := "P1,562\nP2\t564\n"
		_, err := NewNCBI(strings.NewReader(input), Options{TaxonColumn: 1, DropDuplicates: true}, nil)
		assert.ErrorIs(t, err, ErrDelimiter)
		assert.ErrorContains(t, err, "line 2")
	})

	t.Run("peptide wrangling collapses search-engine variants", func(t *testing.T) {
		input := "PEPTIDEL,562\nPEPT(+15.99)IDEI,562\n"
		m, err := NewNCBI(strings.NewReader(input), Options{TaxonColumn: 1, DropDuplicates: true, WranglePeptides: true}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, m.Len())

		id, ok := m.Taxon("PEPTIDEI")
		assert.True(t, ok)
		assert.Equal(t, ncbi.TaxID(562), id)
	})
}
