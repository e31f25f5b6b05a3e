package gtdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/metapep/taxadb/internal/ncbi"
)

// GenomeToNCBI maps GTDB genome accessions to NCBI taxon ids. It is built
// from the GTDB metadata files and used when a caller holds GTDB-keyed
// accession data but needs answers in NCBI id space.
type GenomeToNCBI struct {
	taxids map[string]ncbi.TaxID
}

// Lookup returns the NCBI taxon id for a Genbank or Refseq genome
// accession, with the database prefix stripped before lookup.
func (g *GenomeToNCBI) Lookup(genome string) (ncbi.TaxID, bool) {
	id, ok := g.taxids[StripGenomePrefix(genome)]
	return id, ok
}

// Len returns the number of genome accessions in the crosswalk.
func (g *GenomeToNCBI) Len() int { return len(g.taxids) }

// LoadGenomeToNCBI builds the crosswalk from the bacterial and archaeal
// GTDB metadata files, concatenated. The files are tab-separated with a
// header row; only the "accession" and "ncbi_taxid" columns are used.
func LoadGenomeToNCBI(bacteriaPath, archaeaPath string) (*GenomeToNCBI, error) {
	g := &GenomeToNCBI{taxids: make(map[string]ncbi.TaxID)}
	for _, path := range []string{bacteriaPath, archaeaPath} {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open gtdb metadata file: %w", err)
		}
		err = g.readMetadata(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return g, nil
}

// ReadGenomeToNCBI parses one metadata table from r.
func ReadGenomeToNCBI(r io.Reader) (*GenomeToNCBI, error) {
	g := &GenomeToNCBI{taxids: make(map[string]ncbi.TaxID)}
	if err := g.readMetadata(r); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GenomeToNCBI) readMetadata(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return fmt.Errorf("scan metadata header: %w", err)
		}
		return fmt.Errorf("empty metadata file")
	}
	accCol, taxCol := -1, -1
	for i, name := range strings.Split(sc.Text(), "\t") {
		switch name {
		case "accession":
			accCol = i
		case "ncbi_taxid":
			taxCol = i
		}
	}
	if accCol < 0 || taxCol < 0 {
		return fmt.Errorf("metadata header lacks accession/ncbi_taxid columns")
	}
	maxCol := accCol
	if taxCol > maxCol {
		maxCol = taxCol
	}

	lineNum := 1
	for sc.Scan() {
		lineNum++
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) <= maxCol {
			return fmt.Errorf("line %d: expected at least %d columns, got %d", lineNum, maxCol+1, len(fields))
		}
		taxid, err := strconv.ParseUint(strings.TrimSpace(fields[taxCol]), 10, 32)
		if err != nil {
			return fmt.Errorf("line %d: ncbi_taxid: %w", lineNum, err)
		}
		g.taxids[StripGenomePrefix(fields[accCol])] = ncbi.TaxID(taxid)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan metadata: %w", err)
	}
	return nil
}
