package accmap

import (
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/metapep/taxadb/internal/gtdb"
	"github.com/metapep/taxadb/internal/ncbi"
	"github.com/metapep/taxadb/internal/taxonomy"
)

// NewNCBI builds an accession map whose taxon column holds NCBI ids. The
// taxon column must be entirely numeric unless Options.NamesToIDs routes
// values through the database; a non-numeric value fails construction
// immediately with a descriptive error. db may be nil when neither name
// conversion nor duplicate aggregation is requested.
func NewNCBI(r io.Reader, opts Options, db *ncbi.Database) (*Map[ncbi.TaxID], error) {
	var tdb taxonomy.Database[ncbi.TaxID]
	if db != nil {
		tdb = db
	}

	if opts.NamesToIDs {
		if db == nil {
			return nil, fmt.Errorf("name to id conversion: %w", taxonomy.ErrNoDatabase)
		}
		return build(r, opts, tdb, nameResolver[ncbi.TaxID](db, opts))
	}

	resolve := func(field string) (ncbi.TaxID, bool, error) {
		if field == "" {
			return 0, false, nil
		}
		v, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return 0, false, fmt.Errorf("invalid taxonomy id %q: ensure the taxon column is entirely numeric", field)
		}
		return ncbi.TaxID(v), true, nil
	}
	return build(r, opts, tdb, resolve)
}

// NewNCBIFromGTDB builds an NCBI-space accession map from a GTDB-keyed
// mapping file: taxon values are genome accessions routed through the
// genome→NCBI crosswalk. Genomes missing from the crosswalk leave their
// rows unmapped.
func NewNCBIFromGTDB(r io.Reader, opts Options, xwalk *gtdb.GenomeToNCBI, db *ncbi.Database) (*Map[ncbi.TaxID], error) {
	if xwalk == nil {
		return nil, fmt.Errorf("genome to ncbi crosswalk required")
	}
	var tdb taxonomy.Database[ncbi.TaxID]
	if db != nil {
		tdb = db
	}

	logger := opts.logger()
	resolve := func(field string) (ncbi.TaxID, bool, error) {
		if field == "" {
			return 0, false, nil
		}
		id, ok := xwalk.Lookup(field)
		if !ok {
			logger.Debug("genome accession not in crosswalk", zap.String("genome", field))
			return 0, false, nil
		}
		return id, true, nil
	}
	return build(r, opts, tdb, resolve)
}

