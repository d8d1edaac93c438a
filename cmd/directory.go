package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/hospital-cli/internal/directory"
	"github.com/sells-group/hospital-cli/internal/export"
	"github.com/sells-group/hospital-cli/internal/model"
	"github.com/sells-group/hospital-cli/internal/staffing"
)

// scrapeDirectory downloads and parses the hospital directory page. A local
// file path may be given instead of a URL.
func scrapeDirectory(ctx context.Context, d staffing.Downloader, src string, local bool) ([]directory.Listing, error) {
	var (
		body []byte
		err  error
	)
	if local {
		body, err = os.ReadFile(src)
	} else {
		body, err = d.Fetch(ctx, src)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "directory: load %s", src)
	}
	return directory.ParseDirectory(bytes.NewReader(body))
}

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Scrape the state hospital directory into the canonical list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if u, _ := cmd.Flags().GetString("url"); u != "" {
			cfg.Directory.URL = u
		}
		if o, _ := cmd.Flags().GetString("output"); o != "" {
			cfg.Directory.Output = o
		}
		if err := cfg.Validate("directory"); err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		src := cfg.Directory.URL
		if file != "" {
			src = file
		}
		tr, err := startRun(ctx, st, model.RunKindDirectory, src)
		if err != nil {
			return err
		}

		listings, err := scrapeDirectory(ctx, newFetcher(cfg.Fetch), src, file != "")
		if err != nil {
			return tr.finish(ctx, nil, err)
		}
		if len(listings) == 0 {
			return tr.finish(ctx, nil, eris.Errorf("directory: no listings found at %s", src))
		}
		if err := export.WriteFile(cfg.Directory.Output, directory.Columns, directory.Records(listings)); err != nil {
			return tr.finish(ctx, nil, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d hospitals -> %s\n", len(listings), cfg.Directory.Output)
		return tr.finish(ctx, &model.RunStats{Items: len(listings), Succeeded: len(listings), Rows: len(listings)}, nil)
	},
}

func init() {
	directoryCmd.Flags().String("url", "", "directory page URL (default from config)")
	directoryCmd.Flags().String("file", "", "parse a saved directory page instead of fetching")
	directoryCmd.Flags().String("output", "", "output file (.csv or .xlsx)")
	rootCmd.AddCommand(directoryCmd)
}
