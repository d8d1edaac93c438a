package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hospital-cli/internal/dataset"
	"github.com/sells-group/hospital-cli/internal/export"
	"github.com/sells-group/hospital-cli/internal/fetcher"
	"github.com/sells-group/hospital-cli/internal/model"
	"github.com/sells-group/hospital-cli/internal/resolve"
)

// reconcileJob is one dataset reconciliation, shared by the CLI and the API.
type reconcileJob struct {
	Profile dataset.Profile
	Match   resolve.Config
	Workers int
	Output  dataset.OutputOptions
}

// reconcileOutcome is the laid-out table plus what produced it.
type reconcileOutcome struct {
	Header []string
	Rows   [][]string
	Result *resolve.Result
	Groups *resolve.Groups
	Load   dataset.LoadStats
}

// stats converts the outcome into run counters.
func (o *reconcileOutcome) stats() *model.RunStats {
	st := o.Result.Stats()
	return &model.RunStats{
		Items:     st.Identities,
		Succeeded: st.Matched,
		Rows:      len(o.Rows),
		Matched:   st.Matched,
		Unmatched: st.Unmatched,
		Extras:    st.ExtraGroups,
	}
}

func newReconcileJob(p dataset.Profile, base resolve.Config, flagColumn string, workers int, explain bool) reconcileJob {
	return reconcileJob{
		Profile: p,
		Match:   p.MatchConfig(base),
		Workers: workers,
		Output: dataset.OutputOptions{
			FlagColumn: flagColumn,
			Labels:     p.Labels,
			Explain:    explain,
		},
	}
}

// runReconcile groups the dataset rows, links them to ids and lays out the
// output table.
func runReconcile(ctx context.Context, job reconcileJob, ids []resolve.FacilityIdentity, header []string, rows <-chan []string, errs <-chan error) (*reconcileOutcome, error) {
	scorer, err := resolve.NewScorer(job.Match)
	if err != nil {
		return nil, err
	}

	groups, load, err := job.Profile.Load(ctx, header, rows, errs)
	if err != nil {
		return nil, err
	}

	rec := resolve.NewReconciler(scorer, resolve.ReconcileOptions{
		Placeholder: job.Profile.Placeholder(),
		Workers:     job.Workers,
	})
	res, err := rec.Reconcile(ctx, ids, groups)
	if err != nil {
		return nil, err
	}

	outHeader, outRows := dataset.Table(res, header, job.Output)
	return &reconcileOutcome{Header: outHeader, Rows: outRows, Result: res, Groups: groups, Load: load}, nil
}

// loadRegistry returns the built-in profiles plus those of path, if set.
func loadRegistry(path string) (*dataset.Registry, error) {
	reg := dataset.NewRegistry()
	if path != "" {
		if err := reg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// loadCanonical reads the canonical directory table. The directory command
// writes CSV by default, which is read whole; other formats are streamed.
func loadCanonical(ctx context.Context, spec string) ([]resolve.FacilityIdentity, error) {
	if strings.EqualFold(filepath.Ext(spec), ".csv") {
		f, err := os.Open(spec)
		if err != nil {
			return nil, eris.Wrap(err, "open canonical list")
		}
		defer f.Close() //nolint:errcheck

		header, rows, err := fetcher.ReadCSV(f, fetcher.CSVOptions{HasHeader: true, LazyQuotes: true})
		if err != nil {
			return nil, eris.Wrap(err, "read canonical list")
		}
		return dataset.LoadIdentities(header, rows)
	}

	tbl, err := fetcher.OpenTable(ctx, spec)
	if err != nil {
		return nil, eris.Wrap(err, "open canonical list")
	}
	defer tbl.Close()

	rows, err := drain(tbl)
	if err != nil {
		return nil, eris.Wrap(err, "read canonical list")
	}
	return dataset.LoadIdentities(tbl.Header, rows)
}

// sliceRows feeds in-memory rows through the streaming loader.
func sliceRows(rows [][]string) <-chan []string {
	ch := make(chan []string, len(rows))
	for _, r := range rows {
		ch <- r
	}
	close(ch)
	return ch
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile an external hospital dataset against the canonical directory",
	Long: "Groups the dataset's rows by facility, links each canonical hospital to at most one " +
		"group, and writes every row tagged with its match status.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if w, _ := cmd.Flags().GetInt("workers"); w > 0 {
			cfg.Reconcile.Workers = w
		}
		if p, _ := cmd.Flags().GetString("profiles"); p != "" {
			cfg.Reconcile.Profiles = p
		}
		if c, _ := cmd.Flags().GetString("canonical"); c != "" {
			cfg.Reconcile.Canonical = c
		}
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("dataset")
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		explain, _ := cmd.Flags().GetBool("explain")
		if output == "" {
			output = fmt.Sprintf("%s_reconciled.csv", name)
		}

		reg, err := loadRegistry(cfg.Reconcile.Profiles)
		if err != nil {
			return err
		}
		profile, err := reg.Get(name)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tr, err := startRun(ctx, st, model.RunKindReconcile, input)
		if err != nil {
			return err
		}

		out, err := reconcileFile(ctx,
			newReconcileJob(profile, cfg.Match, cfg.Reconcile.FlagColumn, cfg.Reconcile.Workers, explain),
			cfg.Reconcile.Canonical, input)
		if err != nil {
			return tr.finish(ctx, nil, err)
		}
		if err := export.WriteFile(output, out.Header, out.Rows); err != nil {
			return tr.finish(ctx, nil, err)
		}
		if err := st.SaveDecisions(ctx, dataset.Decisions(tr.ID(), profile.Name, out.Result, out.Groups)); err != nil {
			zap.L().Error("save decisions", zap.String("run_id", tr.ID()), zap.Error(err))
		}

		summary := out.Result.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d matched, %d unmatched, %d extra facilities, %d rows -> %s\n",
			profile.Name, summary.Matched, summary.Unmatched, summary.ExtraGroups, len(out.Rows), output)
		return tr.finish(ctx, out.stats(), nil)
	},
}

// reconcileFile runs job over the canonical list and the input table.
func reconcileFile(ctx context.Context, job reconcileJob, canonical, input string) (*reconcileOutcome, error) {
	ids, err := loadCanonical(ctx, canonical)
	if err != nil {
		return nil, err
	}

	tbl, err := fetcher.OpenTable(ctx, input)
	if err != nil {
		return nil, eris.Wrap(err, "open dataset")
	}
	defer tbl.Close()

	return runReconcile(ctx, job, ids, tbl.Header, tbl.Rows, tbl.Errs)
}

func init() {
	reconcileCmd.Flags().String("dataset", "", "dataset profile (unplanned_visits, hcahps, hac_reduction or one from --profiles)")
	reconcileCmd.Flags().String("input", "", "dataset file (.csv, .xlsx, .zip or bundle.zip:member.csv)")
	reconcileCmd.Flags().String("canonical", "", "canonical directory CSV (default from config)")
	reconcileCmd.Flags().String("output", "", "output file (.csv or .xlsx); default <dataset>_reconciled.csv")
	reconcileCmd.Flags().String("profiles", "", "YAML file with extra dataset profiles")
	reconcileCmd.Flags().Bool("explain", false, "append match score and canonical name columns")
	reconcileCmd.Flags().Int("workers", 0, "concurrent scoring workers (default from config)")
	_ = reconcileCmd.MarkFlagRequired("dataset")
	_ = reconcileCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(reconcileCmd)
}
