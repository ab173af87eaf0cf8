package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brewcrew/barista/internal/importer"
	"github.com/brewcrew/barista/internal/store"
)

func buildImportCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import-users <users.csv>",
		Short: "Import user profiles from CSV (first_name,last_name,slack_id,department)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			summary, err := importer.ImportFile(context.Background(), st, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d user(s), skipped %d row(s).\n", summary.Imported, summary.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "data/barista.db", "path to the SQLite database")
	return cmd
}
