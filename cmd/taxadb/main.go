// Package main provides the taxadb command-line tool: one-time import of
// taxonomic reference datasets and lineage/LCA/accession queries against
// them.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var logger = zap.NewNop()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "taxadb",
		Short: "Taxonomy database and accession resolution engine",
		Long: `taxadb imports NCBI and GTDB taxonomic reference datasets and answers
lineage, last-common-ancestor and accession-to-taxon queries against them.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initConfig()
			if verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				logger = l
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newLineageCmd())
	cmd.AddCommand(newLCACmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// initConfig wires viper to ~/.taxadb.yaml and TAXADB_* environment
// variables.
func initConfig() {
	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".taxadb")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("taxadb")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// dataDir returns the root directory for reference data and snapshot
// caches, ~/.taxadb by default.
func dataDir() string {
	if dir := viper.GetString("data.dir"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taxadb"
	}
	return filepath.Join(home, ".taxadb")
}
