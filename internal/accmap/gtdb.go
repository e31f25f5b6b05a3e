package accmap

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/metapep/taxadb/internal/gtdb"
	"github.com/metapep/taxadb/internal/taxonomy"
)

// NewGTDB builds an accession map whose taxon column holds GTDB taxon ids
// or genome accessions; genome accessions are resolved to their species id
// before duplicate handling, so aggregation always runs in taxon space.
func NewGTDB(r io.Reader, opts Options, db *gtdb.Database) (*Map[string], error) {
	var tdb taxonomy.Database[string]
	if db != nil {
		tdb = db
	}

	if opts.NamesToIDs {
		if db == nil {
			return nil, fmt.Errorf("name to id conversion: %w", taxonomy.ErrNoDatabase)
		}
		return build(r, opts, tdb, nameResolver[string](db, opts))
	}

	resolve := func(field string) (string, bool, error) {
		if field == "" {
			return "", false, nil
		}
		if db != nil {
			if species, ok := db.GenomeToSpecies(field); ok {
				return species, true, nil
			}
		}
		return field, true, nil
	}
	return build(r, opts, tdb, resolve)
}

// nameResolver converts taxon names through the database. Failures are
// logged, never fatal; the affected row stays unmapped.
func nameResolver[ID comparable](db taxonomy.Database[ID], opts Options) func(string) (ID, bool, error) {
	logger := opts.logger()
	return func(field string) (ID, bool, error) {
		var zero ID
		if field == "" {
			return zero, false, nil
		}
		ids, ok := db.NameToID(field, opts.Ambiguity)
		if !ok || len(ids) == 0 {
			logger.Debug("taxon name conversion failed", zap.String("name", field))
			return zero, false, nil
		}
		return ids[0], true, nil
	}
}
