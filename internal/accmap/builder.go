package accmap

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/metapep/taxadb/internal/taxonomy"
)

// Options configure accession-map construction. Columns are addressed by
// zero-based index rather than name because header presence varies by
// source tool.
type Options struct {
	// AccessionColumn and TaxonColumn are zero-based column indices.
	AccessionColumn int
	TaxonColumn     int

	// Delimiter separates columns. Empty means comma.
	Delimiter string

	// SkipHeader drops the first row before parsing.
	SkipHeader bool

	// AccessionRegex, when set, replaces each accession with its first
	// match, normalizing vendor-specific decorations. A non-matching
	// accession keeps its raw value unless NoMatchAbsent is set, in which
	// case the row is dropped.
	AccessionRegex *regexp.Regexp
	NoMatchAbsent  bool

	// DropDuplicates keeps only the first row per accession. When false,
	// exact duplicate rows collapse to one and accessions left with
	// diverging taxa are replaced by a single row holding the LCA of the
	// group, which requires a taxonomy database.
	DropDuplicates bool

	// NamesToIDs treats the taxon column as taxon names and converts them
	// through the database; failed conversions are logged and leave the
	// row unmapped.
	NamesToIDs bool
	Ambiguity  taxonomy.AmbiguityPolicy

	// WranglePeptides normalizes peptide-sequence accessions: modification
	// annotations are stripped and Leucine and Isoleucine are equated.
	WranglePeptides bool

	// Logger receives conversion diagnostics. Nil means no logging.
	Logger *zap.Logger
}

func (o Options) delimiter() string {
	if o.Delimiter == "" {
		return ","
	}
	return o.Delimiter
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// checkColumns validates the column configuration independent of data.
func (o Options) checkColumns() error {
	if o.AccessionColumn < 0 || o.TaxonColumn < 0 {
		return ErrColumnRange
	}
	if o.AccessionColumn == o.TaxonColumn {
		return ErrSameColumn
	}
	return nil
}

// Validate inspects up to 100 rows of the input and reports configuration
// problems before any full parse is attempted, distinguishing a wrong
// delimiter from an out-of-range column index.
func Validate(r io.Reader, opts Options) error {
	if err := opts.checkColumns(); err != nil {
		return err
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	rows := 0
	for sc.Scan() && rows < 100 {
		line := sc.Text()
		if line == "" {
			continue
		}
		rows++
		fields := strings.Split(line, opts.delimiter())
		if len(fields) < 2 {
			return ErrDelimiter
		}
		if opts.AccessionColumn >= len(fields) || opts.TaxonColumn >= len(fields) {
			return fmt.Errorf("%w: max index %d", ErrColumnRange, len(fields)-1)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// row is one parsed mapping line before taxon resolution.
type row struct {
	accession string
	taxon     string
}

// wranglePeptide strips modification annotations from a peptide sequence
// and equates Leucine with Isoleucine so search-engine output variants
// collapse to one key.
var residueRun = regexp.MustCompile(`[A-Z]+`)

func wranglePeptide(seq string) string {
	seq = strings.Join(residueRun.FindAllString(seq, -1), "")
	return strings.ReplaceAll(seq, "L", "I")
}

// parseRows reads the delimited input, keeping only the accession and
// taxon columns and applying accession normalization.
func parseRows(r io.Reader, opts Options) ([]row, error) {
	if err := opts.checkColumns(); err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var rows []row
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		if opts.SkipHeader && lineNum == 1 {
			continue
		}
		fields := strings.Split(line, opts.delimiter())
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: %w", lineNum, ErrDelimiter)
		}
		if opts.AccessionColumn >= len(fields) || opts.TaxonColumn >= len(fields) {
			return nil, fmt.Errorf("line %d: %w: max index %d", lineNum, ErrColumnRange, len(fields)-1)
		}

		acc := strings.TrimSpace(fields[opts.AccessionColumn])
		if opts.WranglePeptides {
			acc = wranglePeptide(acc)
		}
		if opts.AccessionRegex != nil {
			if match := opts.AccessionRegex.FindString(acc); match != "" {
				acc = match
			} else if opts.NoMatchAbsent {
				continue
			}
		}
		if acc == "" {
			continue
		}
		rows = append(rows, row{accession: acc, taxon: strings.TrimSpace(fields[opts.TaxonColumn])})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return rows, nil
}

// build resolves taxon fields and collapses duplicate accessions into the
// final map. resolve turns the raw taxon field into an id; returning
// ok=false leaves the row unmapped, returning an error aborts
// construction. db is required for LCA aggregation (DropDuplicates=false).
func build[ID comparable](r io.Reader, opts Options, db taxonomy.Database[ID], resolve func(field string) (ID, bool, error)) (*Map[ID], error) {
	if !opts.DropDuplicates && db == nil {
		return nil, fmt.Errorf("duplicate aggregation: %w", taxonomy.ErrNoDatabase)
	}

	rows, err := parseRows(r, opts)
	if err != nil {
		return nil, err
	}

	taxa := make(map[string]ID, len(rows))
	// groups keeps the distinct taxa seen per accession, insertion
	// ordered, for LCA aggregation.
	var groups map[string][]ID
	if !opts.DropDuplicates {
		groups = make(map[string][]ID)
	}

	for _, rw := range rows {
		id, ok, err := resolve(rw.taxon)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		if opts.DropDuplicates {
			if _, seen := taxa[rw.accession]; !seen {
				taxa[rw.accession] = id
			}
			continue
		}

		group := groups[rw.accession]
		dup := false
		for _, seen := range group {
			if seen == id {
				dup = true
				break
			}
		}
		if !dup {
			groups[rw.accession] = append(group, id)
		}
	}

	if !opts.DropDuplicates {
		logger := opts.logger()
		for acc, group := range groups {
			if len(group) == 1 {
				taxa[acc] = group[0]
				continue
			}
			lca, ok, err := db.LCA(group, taxonomy.UnknownIgnore)
			if err != nil {
				return nil, fmt.Errorf("aggregate accession %q: %w", acc, err)
			}
			if !ok {
				logger.Debug("no LCA for duplicate accession", zap.String("accession", acc))
				continue
			}
			taxa[acc] = lca
		}
	}

	return &Map[ID]{taxa: taxa}, nil
}
