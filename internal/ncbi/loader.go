package ncbi

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/metapep/taxadb/internal/taxonomy"
)

// File names inside the NCBI new_taxdump distribution.
const (
	NodesFile   = "nodes.dmp"
	NamesFile   = "names.dmp"
	LineageFile = "taxidlineage.dmp"
)

// LoadDir builds a Database from nodes.dmp, names.dmp and taxidlineage.dmp
// in the given directory. The lineage file is optional; without it ancestor
// chains are derived from parent pointers at query time.
func LoadDir(dir string) (*Database, error) {
	nodes := filepath.Join(dir, NodesFile)
	names := filepath.Join(dir, NamesFile)
	lineage := filepath.Join(dir, LineageFile)
	if _, err := os.Stat(lineage); err != nil {
		lineage = ""
	}
	return LoadFiles(nodes, names, lineage)
}

// LoadFiles builds a Database from individual taxdump files. lineagePath
// may be empty. Construction fails on missing or malformed input; a
// partially built database is never returned.
func LoadFiles(nodesPath, namesPath, lineagePath string) (*Database, error) {
	d := newDatabase()

	if err := loadFromFile(nodesPath, d.readNodes); err != nil {
		return nil, fmt.Errorf("load %s: %w", NodesFile, err)
	}
	if err := loadFromFile(namesPath, d.readNames); err != nil {
		return nil, fmt.Errorf("load %s: %w", NamesFile, err)
	}
	if lineagePath != "" {
		if err := loadFromFile(lineagePath, d.readLineages); err != nil {
			return nil, fmt.Errorf("load %s: %w", LineageFile, err)
		}
	}
	return d, nil
}

// LoadArchive builds a Database from a taxdump archive in .tar.gz, .tgz,
// .tar or .zip format, as distributed by NCBI.
func LoadArchive(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxdump archive: %w", err)
	}
	defer f.Close()

	d := newDatabase()
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		err = d.readZip(f)
	case strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz"):
		gz, gzErr := pgzip.NewReader(f)
		if gzErr != nil {
			return nil, fmt.Errorf("open gzip reader: %w", gzErr)
		}
		defer gz.Close()
		err = d.readTar(tar.NewReader(gz))
	case strings.HasSuffix(lower, ".tar"):
		err = d.readTar(tar.NewReader(f))
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", filepath.Base(path))
	}
	if err != nil {
		return nil, err
	}
	if len(d.rawRanks) == 0 {
		return nil, fmt.Errorf("archive %s contains no %s", filepath.Base(path), NodesFile)
	}
	return d, nil
}

func newDatabase() *Database {
	return &Database{
		parentOf:  make(map[TaxID]TaxID),
		rawRanks:  make(map[TaxID]string),
		names:     make(map[TaxID]string),
		nameIDs:   make(map[string][]TaxID),
		children:  make(map[TaxID][]TaxID),
		ancestors: make(map[TaxID][]TaxID),
		memo:      taxonomy.NewLineageCache[TaxID](),
		logger:    zap.NewNop(),
	}
}

func loadFromFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return read(f)
}

func (d *Database) readTar(tr *tar.Reader) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		if err := d.readArchiveMember(filepath.Base(hdr.Name), tr); err != nil {
			return err
		}
	}
}

func (d *Database) readZip(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("open zip reader: %w", err)
	}
	for _, member := range zr.File {
		rc, err := member.Open()
		if err != nil {
			return fmt.Errorf("open zip member %s: %w", member.Name, err)
		}
		err = d.readArchiveMember(filepath.Base(member.Name), rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) readArchiveMember(name string, r io.Reader) error {
	switch name {
	case NodesFile:
		if err := d.readNodes(r); err != nil {
			return fmt.Errorf("load %s: %w", NodesFile, err)
		}
	case NamesFile:
		if err := d.readNames(r); err != nil {
			return fmt.Errorf("load %s: %w", NamesFile, err)
		}
	case LineageFile:
		if err := d.readLineages(r); err != nil {
			return fmt.Errorf("load %s: %w", LineageFile, err)
		}
	}
	return nil
}

// splitDmpLine splits a taxdump line into its fields. Fields are separated
// by "\t|\t" and the line ends with "\t|".
func splitDmpLine(line string) []string {
	line = strings.TrimSuffix(line, "\t|")
	return strings.Split(line, "\t|\t")
}

func dmpScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return sc
}

// readNodes parses nodes.dmp: taxon id, parent id and rank name per line.
// The root node points at itself and is not registered as its own child.
func (d *Database) readNodes(r io.Reader) error {
	sc := dmpScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		fields := splitDmpLine(sc.Text())
		if len(fields) < 3 {
			return fmt.Errorf("line %d: expected at least 3 fields, got %d", lineNum, len(fields))
		}
		id, err := parseTaxID(fields[0])
		if err != nil {
			return fmt.Errorf("line %d: taxon id: %w", lineNum, err)
		}
		parent, err := parseTaxID(fields[1])
		if err != nil {
			return fmt.Errorf("line %d: parent id: %w", lineNum, err)
		}

		d.rawRanks[id] = fields[2]
		if parent != id {
			d.parentOf[id] = parent
			d.children[parent] = append(d.children[parent], id)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan nodes: %w", err)
	}
	if len(d.rawRanks) == 0 {
		return fmt.Errorf("no taxon records found")
	}
	return nil
}

// readNames parses names.dmp. Scientific names define the display name of
// a taxon and always claim the name→id index; other name classes
// (synonyms, common names) are indexed only while the name is unclaimed.
func (d *Database) readNames(r io.Reader) error {
	sc := dmpScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		fields := splitDmpLine(sc.Text())
		if len(fields) < 4 {
			return fmt.Errorf("line %d: expected at least 4 fields, got %d", lineNum, len(fields))
		}
		id, err := parseTaxID(fields[0])
		if err != nil {
			return fmt.Errorf("line %d: taxon id: %w", lineNum, err)
		}
		name, class := fields[1], fields[3]

		if class == "scientific name" {
			d.names[id] = name
			d.nameIDs[name] = append(d.nameIDs[name], id)
		} else if _, taken := d.nameIDs[name]; !taken {
			d.nameIDs[name] = append(d.nameIDs[name], id)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan names: %w", err)
	}
	return nil
}

// readLineages parses taxidlineage.dmp: taxon id and a space-joined
// root→parent ancestor chain. The chains serve as a lineage-walk
// accelerator; correctness does not depend on them.
func (d *Database) readLineages(r io.Reader) error {
	sc := dmpScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		fields := splitDmpLine(sc.Text())
		if len(fields) < 2 {
			return fmt.Errorf("line %d: expected 2 fields, got %d", lineNum, len(fields))
		}
		id, err := parseTaxID(fields[0])
		if err != nil {
			return fmt.Errorf("line %d: taxon id: %w", lineNum, err)
		}

		raw := strings.TrimSpace(fields[1])
		if raw == "" {
			d.ancestors[id] = nil
			continue
		}
		parts := strings.Fields(raw)
		chain := make([]TaxID, len(parts))
		for i, p := range parts {
			anc, err := parseTaxID(p)
			if err != nil {
				return fmt.Errorf("line %d: ancestor id: %w", lineNum, err)
			}
			chain[i] = anc
		}
		d.ancestors[id] = chain
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan lineages: %w", err)
	}
	return nil
}

func parseTaxID(s string) (TaxID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return TaxID(v), nil
}
