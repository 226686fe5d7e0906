package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the record and discrepancy tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		zap.L().Info("migrations applied",
			zap.String("driver", cfg.Store.Driver),
			zap.String("records_table", cfg.Store.RecordsTable),
			zap.String("discrepancies_table", cfg.Store.DiscrepanciesTable),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
