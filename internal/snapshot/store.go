// Package snapshot persists constructed reference data between sessions.
// Accession→taxon maps go into DuckDB (queryable, reusable across runs);
// constructed taxonomy databases are serialized as gob files keyed by
// source-file fingerprints.
package snapshot

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/metapep/taxadb/internal/accmap"
	"github.com/metapep/taxadb/internal/ncbi"
)

// Store manages a DuckDB connection holding resolved accession→taxon rows
// per imported source file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path. Use an empty
// string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create snapshot directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist. Taxa are stored as
// strings; NCBI ids are formatted as decimal and parsed back on load.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS accession_taxa (
		source VARCHAR,
		accession VARCHAR,
		taxon VARCHAR,
		PRIMARY KEY (source, accession)
	)`)
	return err
}

// SaveEntries replaces all rows for a source label with the given
// accession→taxon pairs, in one transaction.
func (s *Store) SaveEntries(source string, entries map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM accession_taxa WHERE source = ?`, source); err != nil {
		return fmt.Errorf("clear source %q: %w", source, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO accession_taxa (source, accession, taxon) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for acc, taxon := range entries {
		if _, err := stmt.Exec(source, acc, taxon); err != nil {
			return fmt.Errorf("insert accession %q: %w", acc, err)
		}
	}
	return tx.Commit()
}

// LoadEntries returns all accession→taxon pairs stored for a source label.
func (s *Store) LoadEntries(source string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT accession, taxon FROM accession_taxa WHERE source = ?`, source)
	if err != nil {
		return nil, fmt.Errorf("query source %q: %w", source, err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var acc, taxon string
		if err := rows.Scan(&acc, &taxon); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		entries[acc] = taxon
	}
	return entries, rows.Err()
}

// Sources lists the source labels present in the store.
func (s *Store) Sources() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT source FROM accession_taxa ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// SaveNCBIMap stores an NCBI accession map under a source label.
func (s *Store) SaveNCBIMap(source string, m *accmap.Map[ncbi.TaxID]) error {
	entries := make(map[string]string, m.Len())
	m.Each(func(acc string, id ncbi.TaxID) {
		entries[acc] = strconv.FormatUint(uint64(id), 10)
	})
	return s.SaveEntries(source, entries)
}

// LoadNCBIMap reloads an NCBI accession map stored under a source label.
func (s *Store) LoadNCBIMap(source string) (*accmap.Map[ncbi.TaxID], error) {
	raw, err := s.LoadEntries(source)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]ncbi.TaxID, len(raw))
	for acc, taxon := range raw {
		v, err := strconv.ParseUint(taxon, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("source %q: stored taxon %q for %q is not an ncbi id: %w", source, taxon, acc, err)
		}
		entries[acc] = ncbi.TaxID(v)
	}
	return accmap.FromEntries(entries), nil
}

// SaveGTDBMap stores a GTDB accession map under a source label.
func (s *Store) SaveGTDBMap(source string, m *accmap.Map[string]) error {
	entries := make(map[string]string, m.Len())
	m.Each(func(acc string, id string) {
		entries[acc] = id
	})
	return s.SaveEntries(source, entries)
}

// LoadGTDBMap reloads a GTDB accession map stored under a source label.
func (s *Store) LoadGTDBMap(source string) (*accmap.Map[string], error) {
	entries, err := s.LoadEntries(source)
	if err != nil {
		return nil, err
	}
	return accmap.FromEntries(entries), nil
}
