package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/docval/internal/store"
)

var purgeCmd = &cobra.Command{
	Use:   "purge [records|discrepancies]",
	Short: "Delete stored rows from one collection, or from both",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collections := store.Collections()
		if len(args) == 1 {
			c, err := store.ParseCollection(args[0])
			if err != nil {
				return err
			}
			collections = []store.Collection{c}
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		for _, c := range collections {
			n, err := st.Empty(ctx, c)
			if err != nil {
				return err
			}
			zap.L().Info("purged collection", zap.String("collection", string(c)), zap.Int64("rows", n))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d removed\n", c, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}
