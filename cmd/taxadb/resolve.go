package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/metapep/taxadb/internal/accmap"
	"github.com/metapep/taxadb/internal/gtdb"
	"github.com/metapep/taxadb/internal/ncbi"
	"github.com/metapep/taxadb/internal/snapshot"
)

// resolveFlags cover accession-map construction and persistence.
type resolveFlags struct {
	queryFlags

	mapFile   string
	source    string
	accCol    int
	taxCol    int
	delimiter string
	header    bool
	pattern   string
	noMatch   bool
	keepFirst bool
	names     bool
	peptides  bool
	crosswalk string
	save      bool
	aggregate bool
}

func newResolveCmd() *cobra.Command {
	var flags resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve <accession>...",
		Short: "Resolve protein accessions to taxa through a mapping file",
		Long: `Build an accession→taxon map from a delimited mapping file and resolve
the given accessions against it. Built maps can be persisted to the local
DuckDB store under a source label and reused without the mapping file.`,
		Example: `  taxadb resolve --map prot.accession2taxid --tax-col 2 --delimiter $'\t' P0A7G6
  taxadb resolve --db gtdb --map genomes.tsv --save --source mygut GCA_003096215.1
  taxadb resolve --source mygut --lca P0A7G6 P0AES4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.mapFile == "" && flags.source == "" {
				return fmt.Errorf("either --map or --source is required")
			}
			if flags.save && flags.source == "" {
				return fmt.Errorf("--save requires --source")
			}

			switch flags.backend {
			case "ncbi":
				return flags.runNCBI(args)
			case "gtdb":
				return flags.runGTDB(args)
			default:
				return fmt.Errorf("unknown backend %q", flags.backend)
			}
		},
	}

	flags.register(cmd)
	flags.registerPolicy(cmd)
	cmd.Flags().StringVar(&flags.mapFile, "map", "", "Delimited accession→taxon mapping file")
	cmd.Flags().StringVar(&flags.source, "source", "", "Source label in the snapshot store")
	cmd.Flags().IntVar(&flags.accCol, "acc-col", 0, "Zero-based accession column index")
	cmd.Flags().IntVar(&flags.taxCol, "tax-col", 1, "Zero-based taxon column index")
	cmd.Flags().StringVar(&flags.delimiter, "delimiter", ",", "Column delimiter")
	cmd.Flags().BoolVar(&flags.header, "header", false, "Skip the first row of the mapping file")
	cmd.Flags().StringVar(&flags.pattern, "pattern", "", "Regular expression normalizing accessions to their first match")
	cmd.Flags().BoolVar(&flags.noMatch, "drop-unmatched", false, "Drop rows whose accession does not match --pattern")
	cmd.Flags().BoolVar(&flags.keepFirst, "keep-first", false, "Keep the first row per accession instead of LCA-aggregating duplicates")
	cmd.Flags().BoolVar(&flags.names, "names", false, "Treat the taxon column as taxon names")
	cmd.Flags().BoolVar(&flags.peptides, "peptides", false, "Normalize peptide-sequence accessions (strip modifications, equate L and I)")
	cmd.Flags().StringVar(&flags.crosswalk, "crosswalk", "", "GTDB metadata files (bacteria,archaea) routing genome accessions to NCBI ids")
	cmd.Flags().BoolVar(&flags.save, "save", false, "Persist the built map to the snapshot store")
	cmd.Flags().BoolVar(&flags.aggregate, "lca", false, "Print one LCA over the resolved taxa instead of per-accession rows")
	return cmd
}

func (f *resolveFlags) options() (accmap.Options, error) {
	opts := accmap.Options{
		AccessionColumn: f.accCol,
		TaxonColumn:     f.taxCol,
		Delimiter:       f.delimiter,
		SkipHeader:      f.header,
		NoMatchAbsent:   f.noMatch,
		DropDuplicates:  f.keepFirst,
		NamesToIDs:      f.names,
		WranglePeptides: f.peptides,
		Logger:          logger,
	}
	if f.pattern != "" {
		re, err := regexp.Compile(f.pattern)
		if err != nil {
			return accmap.Options{}, fmt.Errorf("invalid accession pattern: %w", err)
		}
		opts.AccessionRegex = re
	}
	return opts, nil
}

// openStore opens the DuckDB snapshot store under the data directory.
func openStore() (*snapshot.Store, error) {
	path := viper.GetString("store.path")
	if path == "" {
		path = filepath.Join(dataDir(), "accessions.duckdb")
	}
	return snapshot.Open(path)
}

func (f *resolveFlags) runNCBI(accessions []string) error {
	db, err := loadNCBI()
	if err != nil {
		return err
	}

	var m *accmap.Map[ncbi.TaxID]
	if f.mapFile != "" {
		opts, err := f.options()
		if err != nil {
			return err
		}
		in, err := os.Open(f.mapFile)
		if err != nil {
			return fmt.Errorf("open mapping file: %w", err)
		}
		defer in.Close()

		if f.crosswalk != "" {
			xwalk, err := loadCrosswalk(f.crosswalk)
			if err != nil {
				return err
			}
			m, err = accmap.NewNCBIFromGTDB(in, opts, xwalk, db)
			if err != nil {
				return err
			}
		} else {
			m, err = accmap.NewNCBI(in, opts, db)
			if err != nil {
				return err
			}
		}
		if f.save {
			if err := saveNCBIMap(f.source, m); err != nil {
				return err
			}
		}
	} else {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if m, err = store.LoadNCBIMap(f.source); err != nil {
			return err
		}
	}

	if f.aggregate {
		policy, err := f.unknownPolicy()
		if err != nil {
			return err
		}
		lca, ok, err := m.LCA(accessions, db, policy)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("-")
			return nil
		}
		name, _ := db.Name(lca)
		fmt.Printf("%d\t%s\n", lca, name)
		return nil
	}

	for _, acc := range accessions {
		id, ok := m.Taxon(acc)
		if !ok {
			fmt.Printf("%s\t-\n", acc)
			continue
		}
		name, _ := db.Name(id)
		fmt.Printf("%s\t%d\t%s\n", acc, id, name)
	}
	return nil
}

func (f *resolveFlags) runGTDB(accessions []string) error {
	db, err := loadGTDB()
	if err != nil {
		return err
	}

	var m *accmap.Map[string]
	if f.mapFile != "" {
		opts, err := f.options()
		if err != nil {
			return err
		}
		in, err := os.Open(f.mapFile)
		if err != nil {
			return fmt.Errorf("open mapping file: %w", err)
		}
		defer in.Close()

		if m, err = accmap.NewGTDB(in, opts, db); err != nil {
			return err
		}
		if f.save {
			if err := saveGTDBMap(f.source, m); err != nil {
				return err
			}
		}
	} else {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if m, err = store.LoadGTDBMap(f.source); err != nil {
			return err
		}
	}

	if f.aggregate {
		policy, err := f.unknownPolicy()
		if err != nil {
			return err
		}
		lca, ok, err := m.LCA(accessions, db, policy)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("-")
			return nil
		}
		fmt.Println(lca)
		return nil
	}

	for _, acc := range accessions {
		if id, ok := m.Taxon(acc); ok {
			fmt.Printf("%s\t%s\n", acc, id)
		} else {
			fmt.Printf("%s\t-\n", acc)
		}
	}
	return nil
}

func saveNCBIMap(source string, m *accmap.Map[ncbi.TaxID]) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SaveNCBIMap(source, m); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved %d accessions under source %q\n", m.Len(), source)
	return nil
}

func saveGTDBMap(source string, m *accmap.Map[string]) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SaveGTDBMap(source, m); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved %d accessions under source %q\n", m.Len(), source)
	return nil
}

// loadCrosswalk parses a "bacteria,archaea" metadata path pair into the
// genome→NCBI crosswalk.
func loadCrosswalk(paths string) (*gtdb.GenomeToNCBI, error) {
	bacteria, archaea, ok := strings.Cut(paths, ",")
	if !ok || bacteria == "" || archaea == "" {
		return nil, fmt.Errorf("crosswalk wants two comma-separated metadata paths, got %q", paths)
	}
	xwalk, err := gtdb.LoadGenomeToNCBI(bacteria, archaea)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded genome crosswalk", zap.Int("genomes", xwalk.Len()))
	return xwalk, nil
}
