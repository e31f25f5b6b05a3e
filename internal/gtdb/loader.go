package gtdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/metapep/taxadb/internal/taxonomy"
)

// Default file names of the GTDB taxonomy release.
const (
	BacteriaFile = "bac120_taxonomy.tsv"
	ArchaeaFile  = "ar53_taxonomy.tsv"
)

// LoadDir builds a Database from the bacterial and archaeal taxonomy files
// in the given directory.
func LoadDir(dir string) (*Database, error) {
	return LoadFiles(
		dir+string(os.PathSeparator)+BacteriaFile,
		dir+string(os.PathSeparator)+ArchaeaFile,
	)
}

// LoadFiles builds a Database from the bacterial and archaeal taxonomy
// files, concatenated. Each row is "genome<TAB>lineage" where the lineage
// is seven semicolon-joined rank-prefixed tokens. Construction fails on
// missing or malformed input; a partially built database is never
// returned.
func LoadFiles(bacteriaPath, archaeaPath string) (*Database, error) {
	d := &Database{
		lineages:      make(map[string][]string),
		children:      make(map[string][]string),
		genomeSpecies: make(map[string]string),
		memo:          taxonomy.NewLineageCache[string](),
		logger:        zap.NewNop(),
	}

	for _, path := range []string{bacteriaPath, archaeaPath} {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open gtdb taxonomy file: %w", err)
		}
		err = d.readTaxonomy(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if len(d.lineages) == 0 {
		return nil, fmt.Errorf("no lineage records found")
	}
	return d, nil
}

// ReadTaxonomy parses genome/lineage rows from r into a fresh Database.
// Exposed for callers holding the data in memory; file-based construction
// goes through LoadFiles.
func ReadTaxonomy(r io.Reader) (*Database, error) {
	d := &Database{
		lineages:      make(map[string][]string),
		children:      make(map[string][]string),
		genomeSpecies: make(map[string]string),
		memo:          taxonomy.NewLineageCache[string](),
		logger:        zap.NewNop(),
	}
	if err := d.readTaxonomy(r); err != nil {
		return nil, err
	}
	return d, nil
}

// readTaxonomy parses one taxonomy file and merges it into the database.
// Many genomes share a species lineage, so lineage strings are
// deduplicated before the tree walk, and each unique lineage is walked
// leaf→root only until an already-registered taxon is reached; its
// ancestors are then known to be registered too. Construction cost is
// therefore near-linear in the number of unique lineages, not genomes.
func (d *Database) readTaxonomy(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	seen := make(map[string]struct{})
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		genome, lineage, ok := strings.Cut(line, "\t")
		if !ok {
			return fmt.Errorf("line %d: expected genome<TAB>lineage", lineNum)
		}

		tokens := strings.Split(lineage, ";")
		if len(tokens) != taxonomy.NumRanks {
			return fmt.Errorf("line %d: expected %d lineage ranks, got %d", lineNum, taxonomy.NumRanks, len(tokens))
		}
		for i, tok := range tokens {
			if _, _, ok := ParseID(tok); !ok {
				return fmt.Errorf("line %d: malformed rank token %q at position %d", lineNum, tok, i)
			}
		}

		d.genomeSpecies[StripGenomePrefix(genome)] = tokens[taxonomy.NumRanks-1]

		if _, dup := seen[lineage]; dup {
			continue
		}
		seen[lineage] = struct{}{}
		d.registerLineage(tokens)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan taxonomy: %w", err)
	}
	return nil
}

// registerLineage walks one unique lineage from species to domain,
// recording each taxon's ancestor chain and linking it under its parent.
// The walk stops early at the first taxon already registered.
func (d *Database) registerLineage(tokens []string) {
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]

		// Link the child below this taxon even when the taxon itself is
		// already registered: the child may come from a new branch.
		if i < len(tokens)-1 {
			d.addChild(tok, tokens[i+1])
		}

		if _, ok := d.lineages[tok]; ok {
			break
		}
		chain := make([]string, i)
		copy(chain, tokens[:i])
		d.lineages[tok] = chain
	}
}

func (d *Database) addChild(parent, child string) {
	for _, c := range d.children[parent] {
		if c == child {
			return
		}
	}
	d.children[parent] = append(d.children[parent], child)
}
