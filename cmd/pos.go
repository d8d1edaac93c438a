package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/hospital-cli/internal/dataset"
	"github.com/sells-group/hospital-cli/internal/export"
	"github.com/sells-group/hospital-cli/internal/fetcher"
	"github.com/sells-group/hospital-cli/internal/model"
)

var posCmd = &cobra.Command{
	Use:   "pos",
	Short: "Filter the CMS provider-of-services file to short-term acute care hospitals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("pos"); err != nil {
			return err
		}
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tr, err := startRun(ctx, st, model.RunKindPOS, input)
		if err != nil {
			return err
		}

		tbl, err := fetcher.OpenTable(ctx, input)
		if err != nil {
			return tr.finish(ctx, nil, err)
		}
		defer tbl.Close()

		rows, stats, err := dataset.FilterPOS(ctx, tbl.Header, tbl.Rows, tbl.Errs, cfg.POS.Columns)
		if err != nil {
			return tr.finish(ctx, nil, err)
		}
		if err := export.WriteFile(output, cfg.POS.Columns, rows); err != nil {
			return tr.finish(ctx, nil, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d providers kept -> %s\n", stats.Kept, stats.Read, output)
		return tr.finish(ctx, &model.RunStats{Items: stats.Read, Succeeded: stats.Kept, Rows: stats.Kept}, nil)
	},
}

func init() {
	posCmd.Flags().String("input", "", "provider-of-services file (.csv, .xlsx or .zip)")
	posCmd.Flags().String("output", "pos_hospitals.csv", "output file (.csv or .xlsx)")
	_ = posCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(posCmd)
}
