package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/metapep/taxadb/internal/ncbi"
	"github.com/metapep/taxadb/internal/taxonomy"
)

// queryFlags are shared by the read-only query commands.
type queryFlags struct {
	backend string
	policy  string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.backend, "db", "ncbi", "Taxonomy backend: ncbi or gtdb")
}

func (q *queryFlags) registerPolicy(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.policy, "unknown", "ignore", "Unknown-taxon policy: ignore, error, root, none")
}

func (q *queryFlags) unknownPolicy() (taxonomy.UnknownPolicy, error) {
	p, ok := taxonomy.ParseUnknownPolicy(q.policy)
	if !ok {
		return 0, fmt.Errorf("invalid unknown-taxon policy %q", q.policy)
	}
	return p, nil
}

func newLineageCmd() *cobra.Command {
	var flags queryFlags
	var fillGaps bool

	cmd := &cobra.Command{
		Use:   "lineage <taxon-id>",
		Short: "Print the standard 7-rank lineage of a taxon",
		Example: `  taxadb lineage 562
  taxadb lineage --db gtdb "s__Escherichia coli"
  taxadb lineage --db gtdb GCA_003096215.1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch flags.backend {
			case "ncbi":
				db, err := loadNCBI()
				if err != nil {
					return err
				}
				id, err := parseNCBIID(args[0])
				if err != nil {
					return err
				}
				if !db.Contains(id) {
					return fmt.Errorf("taxon %d not in dataset", id)
				}
				lin := db.StandardLineage(id)
				if fillGaps {
					lin = lin.FillGaps()
				}
				printLineage(lin, func(id ncbi.TaxID) string {
					name, _ := db.Name(id)
					return fmt.Sprintf("%d\t%s", id, name)
				})
			case "gtdb":
				db, err := loadGTDB()
				if err != nil {
					return err
				}
				if !db.Contains(args[0]) {
					return fmt.Errorf("taxon %q not in dataset", args[0])
				}
				printLineage(db.StandardLineage(args[0]), func(id string) string {
					return id
				})
			default:
				return fmt.Errorf("unknown backend %q", flags.backend)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&fillGaps, "fill-gaps", false, "Fill unannotated ranks from deeper annotations (NCBI only)")
	return cmd
}

func printLineage[ID comparable](lin taxonomy.Lineage[ID], format func(ID) string) {
	for _, r := range taxonomy.Ranks() {
		if id, ok := lin.At(r); ok {
			fmt.Printf("%-13s %s\n", r.String(), format(id))
		} else {
			fmt.Printf("%-13s -\n", r.String())
		}
	}
}

func newLCACmd() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "lca <taxon-id>...",
		Short: "Print the last common ancestor of a set of taxa",
		Example: `  taxadb lca 562 564
  taxadb lca --db gtdb "s__Escherichia coli" "s__Escherichia albertii"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := flags.unknownPolicy()
			if err != nil {
				return err
			}

			switch flags.backend {
			case "ncbi":
				db, err := loadNCBI()
				if err != nil {
					return err
				}
				ids := make([]ncbi.TaxID, len(args))
				for i, arg := range args {
					if ids[i], err = parseNCBIID(arg); err != nil {
						return err
					}
				}
				lca, ok, err := db.LCA(ids, policy)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("-")
					return nil
				}
				name, _ := db.Name(lca)
				fmt.Printf("%d\t%s\n", lca, name)
			case "gtdb":
				db, err := loadGTDB()
				if err != nil {
					return err
				}
				lca, ok, err := db.LCA(args, policy)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("-")
					return nil
				}
				fmt.Println(lca)
			default:
				return fmt.Errorf("unknown backend %q", flags.backend)
			}
			return nil
		},
	}

	flags.register(cmd)
	flags.registerPolicy(cmd)
	return cmd
}

func parseNCBIID(s string) (ncbi.TaxID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid ncbi taxon id %q", s)
	}
	return ncbi.TaxID(v), nil
}
