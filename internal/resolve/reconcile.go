package resolve

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status tags each reconciled output row.
type Status string

const (
	// StatusMatched marks rows of an external group claimed by a canonical identity.
	StatusMatched Status = "matched"
	// StatusUnmatched marks the placeholder row of an identity with no external data.
	StatusUnmatched Status = "declared-but-unmatched"
	// StatusExtra marks rows of external groups no identity claimed.
	StatusExtra Status = "unmatched-extra"
)

// ErrDuplicateIdentity is returned when the canonical list repeats a name.
var ErrDuplicateIdentity = eris.New("resolve: duplicate canonical identity")

// OutputRow is one row of the reconciled output.
type OutputRow struct {
	Status Status `json:"status"`
	// Facility is the external facility name for matched and extra rows and the
	// identity name for placeholder rows.
	Facility string            `json:"facility"`
	Identity *FacilityIdentity `json:"identity,omitempty"`
	Score    int               `json:"score,omitempty"`
	Row      Row               `json:"row"`
}

// Match records which group an identity claimed and why.
type Match struct {
	Identity  FacilityIdentity `json:"identity"`
	Group     string           `json:"group"`
	Breakdown Breakdown        `json:"breakdown"`
}

// Result partitions the reconciled output.
type Result struct {
	Matched   []OutputRow `json:"matched"`
	Unmatched []OutputRow `json:"unmatched"`
	Extras    []OutputRow `json:"extras"`

	// Matches holds one entry per matched identity, in canonical order.
	Matches []Match `json:"matches"`
	// UnmatchedIdentities is sorted by name.
	UnmatchedIdentities []FacilityIdentity `json:"unmatched_identities"`
	// ExtraGroups lists unclaimed group names in dataset order.
	ExtraGroups []string `json:"extra_groups"`
}

// Rows returns matched rows in canonical order, then placeholder rows, then
// extra rows, each of the latter two sorted by facility name.
func (r *Result) Rows() []OutputRow {
	out := make([]OutputRow, 0, len(r.Matched)+len(r.Unmatched)+len(r.Extras))
	out = append(out, r.Matched...)
	out = append(out, r.Unmatched...)
	out = append(out, r.Extras...)
	return out
}

// Stats summarizes a Result.
type Stats struct {
	Identities  int `json:"identities"`
	Matched     int `json:"matched"`
	Unmatched   int `json:"unmatched"`
	ExtraGroups int `json:"extra_groups"`
	MatchedRows int `json:"matched_rows"`
	ExtraRows   int `json:"extra_rows"`
}

// Stats returns summary counts.
func (r *Result) Stats() Stats {
	return Stats{
		Identities:  len(r.Matches) + len(r.UnmatchedIdentities),
		Matched:     len(r.Matches),
		Unmatched:   len(r.UnmatchedIdentities),
		ExtraGroups: len(r.ExtraGroups),
		MatchedRows: len(r.Matched),
		ExtraRows:   len(r.Extras),
	}
}

// Placeholder maps identity fields onto dataset columns for the row emitted when
// an identity has no external data. Empty column names are skipped.
type Placeholder struct {
	NameColumn    string            `yaml:"name_column" json:"name_column"`
	AddressColumn string            `yaml:"address_column" json:"address_column"`
	CityColumn    string            `yaml:"city_column" json:"city_column"`
	PhoneColumn   string            `yaml:"phone_column" json:"phone_column"`
	Fixed         map[string]string `yaml:"fixed" json:"fixed,omitempty"`
}

// Row builds the placeholder row for id.
func (p Placeholder) Row(id FacilityIdentity) Row {
	row := make(Row, len(p.Fixed)+4)
	for k, v := range p.Fixed {
		row[k] = v
	}
	set := func(col, v string) {
		if col != "" {
			row[col] = v
		}
	}
	set(p.NameColumn, id.Name)
	set(p.AddressColumn, id.Address)
	set(p.CityColumn, id.City)
	set(p.PhoneColumn, id.Phone)
	return row
}

// ReconcileOptions configures a Reconciler.
type ReconcileOptions struct {
	Placeholder Placeholder
	// Workers > 1 scores identities concurrently. Consumption is still resolved
	// in canonical order, so results do not depend on the worker count.
	Workers int
}

// Reconciler greedily links canonical identities to external groups.
type Reconciler struct {
	scorer *Scorer
	opts   ReconcileOptions
}

// NewReconciler creates a Reconciler.
func NewReconciler(scorer *Scorer, opts ReconcileOptions) *Reconciler {
	return &Reconciler{scorer: scorer, opts: opts}
}

// ranked is an eligible candidate for one identity.
type ranked struct {
	index     int
	breakdown Breakdown
}

// Reconcile matches identities in input order. Each identity claims the best
// eligible group not yet claimed by an earlier identity; ties go to the group
// added first.
func (r *Reconciler) Reconcile(ctx context.Context, identities []FacilityIdentity, groups *Groups) (*Result, error) {
	log := zap.L().With(zap.String("component", "reconciler"))

	seen := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		if _, dup := seen[id.Name]; dup {
			return nil, eris.Wrapf(ErrDuplicateIdentity, "name %q", id.Name)
		}
		seen[id.Name] = struct{}{}
	}
	if groups == nil {
		groups = NewGroups()
	}

	candidates := make([]Features, groups.Len())
	for i := range candidates {
		candidates[i] = GroupFeatures(groups.At(i))
	}

	var (
		choices []*ranked
		err     error
	)
	if r.opts.Workers > 1 {
		choices, err = r.chooseParallel(ctx, identities, candidates)
	} else {
		choices, err = r.chooseSerial(ctx, identities, candidates)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		Matched:             []OutputRow{},
		Unmatched:           []OutputRow{},
		Extras:              []OutputRow{},
		Matches:             []Match{},
		UnmatchedIdentities: []FacilityIdentity{},
		ExtraGroups:         []string{},
	}
	consumed := make([]bool, groups.Len())

	for i := range identities {
		id := identities[i]
		choice := choices[i]
		if choice == nil {
			res.UnmatchedIdentities = append(res.UnmatchedIdentities, id)
			res.Unmatched = append(res.Unmatched, OutputRow{
				Status:   StatusUnmatched,
				Facility: id.Name,
				Identity: &identities[i],
				Row:      r.opts.Placeholder.Row(id),
			})
			log.Debug("no match", zap.String("identity", id.Name))
			continue
		}

		consumed[choice.index] = true
		grp := groups.At(choice.index)
		res.Matches = append(res.Matches, Match{Identity: id, Group: grp.Name, Breakdown: choice.breakdown})
		for _, row := range grp.Rows {
			res.Matched = append(res.Matched, OutputRow{
				Status:   StatusMatched,
				Facility: grp.Name,
				Identity: &identities[i],
				Score:    choice.breakdown.Score,
				Row:      row,
			})
		}
		log.Debug("matched",
			zap.String("identity", id.Name),
			zap.String("group", grp.Name),
			zap.Int("score", choice.breakdown.Score),
		)
	}

	for i := 0; i < groups.Len(); i++ {
		if consumed[i] {
			continue
		}
		grp := groups.At(i)
		res.ExtraGroups = append(res.ExtraGroups, grp.Name)
		for _, row := range grp.Rows {
			res.Extras = append(res.Extras, OutputRow{Status: StatusExtra, Facility: grp.Name, Row: row})
		}
	}

	sort.SliceStable(res.UnmatchedIdentities, func(a, b int) bool {
		return res.UnmatchedIdentities[a].Name < res.UnmatchedIdentities[b].Name
	})
	sort.SliceStable(res.Unmatched, func(a, b int) bool { return res.Unmatched[a].Facility < res.Unmatched[b].Facility })
	sort.SliceStable(res.Extras, func(a, b int) bool { return res.Extras[a].Facility < res.Extras[b].Facility })

	st := res.Stats()
	log.Info("reconcile complete",
		zap.Int("identities", st.Identities),
		zap.Int("matched", st.Matched),
		zap.Int("unmatched", st.Unmatched),
		zap.Int("extra_groups", st.ExtraGroups),
	)
	return res, nil
}

// chooseSerial scans candidates for each identity, skipping claimed ones.
func (r *Reconciler) chooseSerial(ctx context.Context, identities []FacilityIdentity, candidates []Features) ([]*ranked, error) {
	choices := make([]*ranked, len(identities))
	consumed := make([]bool, len(candidates))

	for i, id := range identities {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "resolve: reconcile cancelled")
		}
		feat := IdentityFeatures(id)

		var best *ranked
		for j, cand := range candidates {
			if consumed[j] {
				continue
			}
			b := r.scorer.Compare(feat, cand)
			if !r.scorer.Accepts(b.Score) {
				continue
			}
			if best == nil || b.Score > best.breakdown.Score {
				best = &ranked{index: j, breakdown: b}
			}
		}
		if best != nil {
			consumed[best.index] = true
			choices[i] = best
		}
	}
	return choices, nil
}

// chooseParallel ranks every eligible candidate per identity concurrently, then
// replays consumption serially in canonical order. Taking the first unclaimed
// entry of a list ordered by (score desc, dataset order asc) picks the same
// candidate the serial scan would.
func (r *Reconciler) chooseParallel(ctx context.Context, identities []FacilityIdentity, candidates []Features) ([]*ranked, error) {
	lists := make([][]ranked, len(identities))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, id := range identities {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			feat := IdentityFeatures(id)
			var list []ranked
			for j, cand := range candidates {
				b := r.scorer.Compare(feat, cand)
				if r.scorer.Accepts(b.Score) {
					list = append(list, ranked{index: j, breakdown: b})
				}
			}
			sort.SliceStable(list, func(a, b int) bool {
				return list[a].breakdown.Score > list[b].breakdown.Score
			})
			lists[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "resolve: reconcile cancelled")
	}

	choices := make([]*ranked, len(identities))
	consumed := make([]bool, len(candidates))
	for i, list := range lists {
		for k := range list {
			if consumed[list[k].index] {
				continue
			}
			consumed[list[k].index] = true
			choices[i] = &list[k]
			break
		}
	}
	return choices, nil
}
