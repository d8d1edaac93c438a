package dataset

import (
	"strconv"
	"strings"

	"github.com/sells-group/hospital-cli/internal/model"
	"github.com/sells-group/hospital-cli/internal/resolve"
)

// Explain columns appended when match details are requested.
const (
	ColMatchScore    = "match_score"
	ColCanonicalName = "canonical_name"
)

// OutputOptions controls how a reconcile result is laid out.
type OutputOptions struct {
	FlagColumn string
	Labels     Labels
	// Explain appends the match score and canonical name to every row.
	Explain bool
}

// Table lays out a reconcile result as the flag column followed by the input
// header, in the result's row order.
func Table(res *resolve.Result, header []string, opts OutputOptions) ([]string, [][]string) {
	flag := opts.FlagColumn
	if flag == "" {
		flag = "match_status"
	}

	out := append([]string{flag}, header...)
	if opts.Explain {
		out = append(out, ColMatchScore, ColCanonicalName)
	}

	rows := res.Rows()
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		rec := make([]string, 0, len(out))
		rec = append(rec, opts.Labels.For(r.Status))
		for _, h := range header {
			rec = append(rec, r.Row[h])
		}
		if opts.Explain {
			score, canonical := "", ""
			if r.Status == resolve.StatusMatched {
				score = strconv.Itoa(r.Score)
			}
			if r.Identity != nil {
				canonical = r.Identity.Name
			}
			rec = append(rec, score, canonical)
		}
		table = append(table, rec)
	}
	return out, table
}

// Decisions summarizes a result per identity and per unclaimed group.
func Decisions(runID, dataset string, res *resolve.Result, groups *resolve.Groups) []model.Decision {
	rowCount := func(name string) int {
		if groups == nil {
			return 0
		}
		if g, ok := groups.Get(name); ok {
			return len(g.Rows)
		}
		return 0
	}

	out := make([]model.Decision, 0, len(res.Matches)+len(res.UnmatchedIdentities)+len(res.ExtraGroups))
	for _, m := range res.Matches {
		names := make([]string, 0, len(m.Breakdown.Signals))
		for _, s := range m.Breakdown.Signals {
			names = append(names, s.Name)
		}
		out = append(out, model.Decision{
			RunID:     runID,
			Dataset:   dataset,
			Facility:  m.Identity.Name,
			GroupName: m.Group,
			Status:    string(resolve.StatusMatched),
			Score:     m.Breakdown.Score,
			Signals:   strings.Join(names, ","),
			Rows:      rowCount(m.Group),
		})
	}
	for _, id := range res.UnmatchedIdentities {
		out = append(out, model.Decision{
			RunID:    runID,
			Dataset:  dataset,
			Facility: id.Name,
			Status:   string(resolve.StatusUnmatched),
			Rows:     1,
		})
	}
	for _, g := range res.ExtraGroups {
		out = append(out, model.Decision{
			RunID:     runID,
			Dataset:   dataset,
			Facility:  g,
			GroupName: g,
			Status:    string(resolve.StatusExtra),
			Rows:      rowCount(g),
		})
	}
	return out
}
