package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/hospital-cli/internal/model"
	"github.com/sells-group/hospital-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect run history",
	Long:  "Lists recent runs, or with --id shows one run with its failures and match decisions.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out := cmd.OutOrStdout()
		if id, _ := cmd.Flags().GetString("id"); id != "" {
			run, err := st.GetRun(ctx, id)
			if err != nil {
				return eris.Wrap(err, "runs show")
			}
			failures, err := st.ListFailures(ctx, id)
			if err != nil {
				return eris.Wrap(err, "runs show")
			}
			decisions, err := st.ListDecisions(ctx, id)
			if err != nil {
				return eris.Wrap(err, "runs show")
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(runDetail{Run: run, Failures: failures, Decisions: summarizeDecisions(decisions)})
		}

		kind, _ := cmd.Flags().GetString("kind")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Kind:   model.RunKind(kind),
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No runs found.")
			return nil
		}
		formatRunsList(out, runs)
		return nil
	},
}

// runDetail is the JSON shape of `runs --id`.
type runDetail struct {
	Run       *model.Run      `json:"run"`
	Failures  []model.Failure `json:"failures"`
	Decisions map[string]int  `json:"decisions,omitempty"`
}

// summarizeDecisions counts decisions per "dataset/status".
func summarizeDecisions(ds []model.Decision) map[string]int {
	if len(ds) == 0 {
		return nil
	}
	out := make(map[string]int)
	for _, d := range ds {
		out[d.Dataset+"/"+d.Status]++
	}
	return out
}

func init() {
	runsCmd.Flags().String("id", "", "show one run with its failures")
	runsCmd.Flags().String("kind", "", "filter by kind (directory, reconcile, staffing, pos)")
	runsCmd.Flags().String("status", "", "filter by status (running, complete, failed)")
	runsCmd.Flags().Int("limit", 50, "max number of runs to display")
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tSOURCE\tSTATUS\tITEMS\tFAILED\tROWS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t------\t-----\t------\t----\t-------\t--------")

	for _, r := range runs {
		items, failed, rows := "", "", ""
		if r.Stats != nil {
			items = fmt.Sprint(r.Stats.Items)
			failed = fmt.Sprint(r.Stats.Failed)
			rows = fmt.Sprint(r.Stats.Rows)
		}

		source := r.Source
		if len(source) > 40 {
			source = "..." + source[len(source)-37:]
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Kind,
			source,
			r.Status,
			items,
			failed,
			rows,
			r.CreatedAt.Format("2006-01-02 15:04"),
			runDuration(r),
		)
	}
	_ = w.Flush()
}

// runDuration prefers the recorded duration over the timestamp difference.
func runDuration(r model.Run) string {
	if r.Stats != nil && r.Stats.DurationMs > 0 {
		return (time.Duration(r.Stats.DurationMs) * time.Millisecond).Round(time.Millisecond).String()
	}
	if r.Status == model.RunStatusRunning {
		return "-"
	}
	return r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
