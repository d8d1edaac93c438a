package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hospital-cli/internal/directory"
	"github.com/sells-group/hospital-cli/internal/export"
	"github.com/sells-group/hospital-cli/internal/model"
	"github.com/sells-group/hospital-cli/internal/ocr"
	"github.com/sells-group/hospital-cli/internal/staffing"
)

// failureColumns is the header of the staffing errors file.
var failureColumns = []string{"pfi", "name", "error", "error_type"}

func failureRows(fs []model.Failure) [][]string {
	out := make([][]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, []string{f.ItemID, f.ItemName, f.Error, f.ErrorType})
	}
	return out
}

// parseStaffingPDF parses one document without an index entry; the facility
// comes from the document header.
func parseStaffingPDF(ctx context.Context, x ocr.Extractor, p *staffing.Parser, pdf []byte) ([]string, [][]string, error) {
	pages, err := x.ExtractPages(ctx, pdf)
	if err != nil {
		return nil, nil, err
	}
	rep := p.Parse(pages)
	shifts := p.Shifts()
	return staffing.Columns(shifts), staffing.Rows(staffing.FacilityFromHeader(rep.Header), rep, shifts), nil
}

// loadPlans fetches the staffing index and returns at most limit plans.
func loadPlans(ctx context.Context, d staffing.Downloader, indexURL, baseURL string, limit int) ([]staffing.Plan, error) {
	body, err := d.Fetch(ctx, indexURL)
	if err != nil {
		return nil, eris.Wrap(err, "staffing: fetch index")
	}
	plans, err := directory.ParseStaffingIndex(bytes.NewReader(body), baseURL)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(plans) {
		plans = plans[:limit]
	}
	return plans, nil
}

var staffingCmd = &cobra.Command{
	Use:   "staffing",
	Short: "Collect nurse staffing plans into one row per hospital unit",
	Long: "Fetches the staffing plan index, downloads each PDF, extracts the RN per-shift tables " +
		"and writes a flat table. Documents that fail are listed in the errors file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if c, _ := cmd.Flags().GetInt("concurrency"); c > 0 {
			cfg.Staffing.Concurrency = c
		}
		if o, _ := cmd.Flags().GetString("output"); o != "" {
			cfg.Staffing.Output = o
		}
		if err := cfg.Validate("staffing"); err != nil {
			return err
		}
		pdfPath, _ := cmd.Flags().GetString("pdf")
		limit, _ := cmd.Flags().GetInt("limit")

		extractor, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return err
		}
		parser := staffing.NewParser(cfg.Staffing.Parser())

		if pdfPath != "" {
			data, err := os.ReadFile(pdfPath)
			if err != nil {
				return eris.Wrapf(err, "read %s", pdfPath)
			}
			header, rows, err := parseStaffingPDF(ctx, extractor, parser, data)
			if err != nil {
				return err
			}
			if err := export.WriteFile(cfg.Staffing.Output, header, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d units -> %s\n", len(rows), cfg.Staffing.Output)
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tr, err := startRun(ctx, st, model.RunKindStaffing, cfg.Staffing.IndexURL)
		if err != nil {
			return err
		}

		f := newFetcher(cfg.Fetch)
		plans, err := loadPlans(ctx, f, cfg.Staffing.IndexURL, cfg.Staffing.BaseURL, limit)
		if err != nil {
			return tr.finish(ctx, nil, err)
		}

		res, err := staffing.NewCollector(f, extractor, parser, cfg.Staffing.Concurrency).Collect(ctx, tr.ID(), plans)
		if err != nil {
			return tr.finish(ctx, nil, err)
		}

		rows := res.Rows(parser.Shifts())
		if err := export.WriteFile(cfg.Staffing.Output, staffing.Columns(parser.Shifts()), rows); err != nil {
			return tr.finish(ctx, nil, err)
		}
		if len(res.Failures) > 0 {
			if err := export.WriteFile(cfg.Staffing.ErrorsOutput, failureColumns, failureRows(res.Failures)); err != nil {
				return tr.finish(ctx, nil, err)
			}
			if err := st.AddFailures(ctx, res.Failures); err != nil {
				zap.L().Error("record failures", zap.String("run_id", tr.ID()), zap.Error(err))
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d/%d plans parsed, %d units -> %s\n",
			len(res.Reports), len(plans), len(rows), cfg.Staffing.Output)
		if len(res.Failures) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%d failures -> %s\n", len(res.Failures), cfg.Staffing.ErrorsOutput)
		}
		return tr.finish(ctx, &model.RunStats{
			Items:     len(plans),
			Succeeded: len(res.Reports),
			Failed:    len(res.Failures),
			Rows:      len(rows),
		}, nil)
	},
}

func init() {
	staffingCmd.Flags().String("pdf", "", "parse a single local staffing plan PDF")
	staffingCmd.Flags().Int("limit", 0, "process at most this many plans (0 = all)")
	staffingCmd.Flags().Int("concurrency", 0, "concurrent downloads (default from config)")
	staffingCmd.Flags().String("output", "", "output file (.csv or .xlsx)")
	rootCmd.AddCommand(staffingCmd)
}
