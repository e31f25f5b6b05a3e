package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metapep/taxadb/internal/gtdb"
	"github.com/metapep/taxadb/internal/ncbi"
	"github.com/metapep/taxadb/internal/snapshot"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a taxonomic reference dataset",
		Long: `Build a taxonomy database from reference files and warm the snapshot
cache so later queries skip the parse. Paths given here are remembered in
the config file.`,
	}
	cmd.AddCommand(newImportNCBICmd())
	cmd.AddCommand(newImportGTDBCmd())
	return cmd
}

func newImportNCBICmd() *cobra.Command {
	var dir, archive string

	cmd := &cobra.Command{
		Use:   "ncbi",
		Short: "Import the NCBI taxdump",
		Example: `  taxadb import ncbi --dir /data/new_taxdump
  taxadb import ncbi --archive new_taxdump.tar.gz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				db  *ncbi.Database
				err error
			)
			switch {
			case archive != "":
				bar := fileProgress(archive, "importing ncbi taxdump")
				db, err = ncbi.LoadArchive(archive)
				finishProgress(bar)
				if err == nil {
					viper.Set("ncbi.archive", archive)
				}
			case dir != "":
				db, err = ncbi.LoadDir(dir)
				if err == nil {
					viper.Set("ncbi.dir", dir)
				}
			default:
				return fmt.Errorf("either --dir or --archive is required")
			}
			if err != nil {
				return err
			}
			db.SetLogger(logger)

			if err := warmNCBICache(db, dir, archive); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not write snapshot cache: %v\n", err)
			}
			if err := persistConfig(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
			}

			fmt.Printf("Imported NCBI taxonomy: %d taxa\n", db.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory holding nodes.dmp, names.dmp, taxidlineage.dmp")
	cmd.Flags().StringVar(&archive, "archive", "", "Taxdump archive (.tar.gz or .zip)")
	return cmd
}

func newImportGTDBCmd() *cobra.Command {
	var bacteria, archaea string

	cmd := &cobra.Command{
		Use:     "gtdb",
		Short:   "Import the GTDB taxonomy",
		Example: `  taxadb import gtdb --bacteria bac120_taxonomy.tsv --archaea ar53_taxonomy.tsv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bacteria == "" || archaea == "" {
				return fmt.Errorf("both --bacteria and --archaea are required")
			}

			bar := fileProgress(bacteria, "importing gtdb taxonomy")
			db, err := gtdb.LoadFiles(bacteria, archaea)
			finishProgress(bar)
			if err != nil {
				return err
			}
			db.SetLogger(logger)

			viper.Set("gtdb.bacteria", bacteria)
			viper.Set("gtdb.archaea", archaea)

			if err := warmGTDBCache(db, bacteria, archaea); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not write snapshot cache: %v\n", err)
			}
			if err := persistConfig(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
			}

			fmt.Printf("Imported GTDB taxonomy: %d taxa, %d genomes\n", db.Len(), db.Genomes())
			return nil
		},
	}

	cmd.Flags().StringVar(&bacteria, "bacteria", "", "Bacterial taxonomy TSV (bac120_taxonomy.tsv)")
	cmd.Flags().StringVar(&archaea, "archaea", "", "Archaeal taxonomy TSV (ar53_taxonomy.tsv)")
	return cmd
}

// fileProgress shows a byte-level progress bar sized to the input file.
// The loaders own their file handles, so the bar only tracks wall progress
// of the dominant input; it is cosmetic, not a transfer meter.
func fileProgress(path, label string) *progressbar.ProgressBar {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	return progressbar.DefaultBytes(info.Size(), label)
}

func finishProgress(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}

func persistConfig() error {
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".taxadb.yaml")
	}
	return viper.WriteConfigAs(cfgFile)
}

// Snapshot cache entry names.
const (
	ncbiCacheName = "ncbi"
	gtdbCacheName = "gtdb"
)

func dbCache() *snapshot.DBCache {
	return snapshot.NewDBCache(filepath.Join(dataDir(), "cache"))
}

func warmNCBICache(db *ncbi.Database, dir, archive string) error {
	fps, err := ncbiFingerprints(dir, archive)
	if err != nil {
		return err
	}
	return dbCache().Save(ncbiCacheName, db.Snapshot(), fps...)
}

func warmGTDBCache(db *gtdb.Database, bacteria, archaea string) error {
	fps, err := fingerprints(bacteria, archaea)
	if err != nil {
		return err
	}
	return dbCache().Save(gtdbCacheName, db.Snapshot(), fps...)
}

func ncbiFingerprints(dir, archive string) ([]snapshot.FileFingerprint, error) {
	if archive != "" {
		return fingerprints(archive)
	}
	paths := []string{
		filepath.Join(dir, ncbi.NodesFile),
		filepath.Join(dir, ncbi.NamesFile),
	}
	if _, err := os.Stat(filepath.Join(dir, ncbi.LineageFile)); err == nil {
		paths = append(paths, filepath.Join(dir, ncbi.LineageFile))
	}
	return fingerprints(paths...)
}

func fingerprints(paths ...string) ([]snapshot.FileFingerprint, error) {
	fps := make([]snapshot.FileFingerprint, 0, len(paths))
	for _, p := range paths {
		fp, err := snapshot.Fingerprint(p)
		if err != nil {
			return nil, err
		}
		fps = append(fps, fp)
	}
	return fps, nil
}

// loadNCBI opens the imported NCBI database, preferring the snapshot
// cache over a fresh parse.
func loadNCBI() (*ncbi.Database, error) {
	dir := viper.GetString("ncbi.dir")
	archive := viper.GetString("ncbi.archive")
	if dir == "" && archive == "" {
		return nil, fmt.Errorf("no NCBI dataset imported; run: taxadb import ncbi")
	}

	if fps, err := ncbiFingerprints(dir, archive); err == nil && dbCache().Valid(ncbiCacheName, fps...) {
		var snap ncbi.Snapshot
		if err := dbCache().Load(ncbiCacheName, &snap); err == nil {
			db := ncbi.FromSnapshot(&snap)
			db.SetLogger(logger)
			return db, nil
		}
	}

	var (
		db  *ncbi.Database
		err error
	)
	if archive != "" {
		db, err = ncbi.LoadArchive(archive)
	} else {
		db, err = ncbi.LoadDir(dir)
	}
	if err != nil {
		return nil, err
	}
	db.SetLogger(logger)
	return db, nil
}

// loadGTDB opens the imported GTDB database, preferring the snapshot
// cache over a fresh parse.
func loadGTDB() (*gtdb.Database, error) {
	bacteria := viper.GetString("gtdb.bacteria")
	archaea := viper.GetString("gtdb.archaea")
	if bacteria == "" || archaea == "" {
		return nil, fmt.Errorf("no GTDB dataset imported; run: taxadb import gtdb")
	}

	if fps, err := fingerprints(bacteria, archaea); err == nil && dbCache().Valid(gtdbCacheName, fps...) {
		var snap gtdb.Snapshot
		if err := dbCache().Load(gtdbCacheName, &snap); err == nil {
			db := gtdb.FromSnapshot(&snap)
			db.SetLogger(logger)
			return db, nil
		}
	}

	db, err := gtdb.LoadFiles(bacteria, archaea)
	if err != nil {
		return nil, err
	}
	db.SetLogger(logger)
	return db, nil
}
