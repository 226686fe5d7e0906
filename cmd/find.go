package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/docval/internal/store"
)

var findFilter store.Filter

var findCmd = &cobra.Command{
	Use:       "find records|discrepancies",
	Short:     "Print stored records or discrepancies as JSON lines",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(store.Records), string(store.Discrepancies)},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := store.ParseCollection(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		switch c {
		case store.Records:
			recs, err := st.FindRecords(ctx, findFilter)
			if err != nil {
				return err
			}
			for _, r := range recs {
				if err := enc.Encode(r); err != nil {
					return eris.Wrap(err, "encode record")
				}
			}
		case store.Discrepancies:
			discs, err := st.FindDiscrepancies(ctx, findFilter)
			if err != nil {
				return err
			}
			for _, d := range discs {
				if err := enc.Encode(d); err != nil {
					return eris.Wrap(err, "encode discrepancy")
				}
			}
		}
		return nil
	},
}

func init() {
	f := findCmd.Flags()
	f.StringVar(&findFilter.FileName, "file", "", "only this input file name")
	f.StringVar(&findFilter.DocumentID, "document-id", "", "only this document id")
	f.StringVar(&findFilter.RunID, "run-id", "", "only this run")
	f.IntVar(&findFilter.Limit, "limit", 100, "maximum rows to print")
	rootCmd.AddCommand(findCmd)
}
