package gtdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTaxonomyMalformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"no tab", "GB_GCA_000001.1 " + coliLineage, "expected genome<TAB>lineage"},
		{"short lineage", "GB_GCA_000001.1\td__Bacteria;p__Pseudomonadota", "expected 7 lineage ranks"},
		{"bad rank token", "GB_GCA_000001.1\t" + strings.Replace(coliLineage, "g__Escherichia", "Escherichia", 1), "malformed rank token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTaxonomy(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestReadTaxonomySkipsBlankLines(t *testing.T) {
	input := "\nGB_GCA_000001.1\t" + coliLineage + "\n\n"
	d, err := ReadTaxonomy(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, d.Genomes())
}

func TestSharedLineagePrefixRegistersOnce(t *testing.T) {
	// Two species under one genus: the second lineage's walk stops at the
	// genus, but the genus still links both species as children.
	d, err := ReadTaxonomy(strings.NewReader(strings.Join([]string{
		"GB_GCA_000001.1\t" + coliLineage,
		"GB_GCA_000003.1\t" + albertiiLineage,
	}, "\n")))
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"s__Escherichia coli", "s__Escherichia albertii"},
		d.Children("g__Escherichia"))
	assert.Equal(t, d.Parents("s__Escherichia coli")[:6], d.Parents("s__Escherichia albertii")[:6])
}

func TestLoadFilesGTDB(t *testing.T) {
	dir := t.TempDir()
	bacteria := filepath.Join(dir, BacteriaFile)
	archaea := filepath.Join(dir, ArchaeaFile)
	require.NoError(t, os.WriteFile(bacteria, []byte("GB_GCA_000001.1\t"+coliLineage+"\n"), 0644))
	require.NoError(t, os.WriteFile(archaea, []byte("RS_GCF_000005.1\t"+methanoLineage+"\n"), 0644))

	d, err := LoadFiles(bacteria, archaea)
	require.NoError(t, err)
	assert.True(t, d.Contains("d__Bacteria"))
	assert.True(t, d.Contains("d__Archaea"))
	assert.Equal(t, 2, d.Genomes())

	t.Run("missing file fails construction", func(t *testing.T) {
		_, err := LoadFiles(bacteria, filepath.Join(dir, "absent.tsv"))
		assert.Error(t, err)
	})

	t.Run("empty input fails construction", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.tsv")
		require.NoError(t, os.WriteFile(empty, nil, 0644))
		_, err := LoadFiles(empty, empty)
		assert.ErrorContains(t, err, "no lineage records")
	})
}
