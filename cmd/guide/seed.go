package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-guide-backend/internal/catalog"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a YAML project catalog into the database",
	Long: `Upserts every project, milestone and seed hint from a catalog file.
Re-seeding the same file is safe.

Example:
  guide seed --file data/projects.yaml`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "catalog YAML (default: CATALOG_PATH)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := seedFile
	if path == "" {
		path = cfg.CatalogPath
	}
	if path == "" {
		return errors.New("no catalog file: pass --file or set CATALOG_PATH")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)
	n, err := catalog.SeedFile(cmd.Context(), db, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d projects from %s\n", n, path)
	return nil
}
