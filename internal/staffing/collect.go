package staffing

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/hospital-cli/internal/model"
	"github.com/sells-group/hospital-cli/internal/resilience"
)

// Downloader fetches a document body.
type Downloader interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// PageExtractor turns a PDF into pages of text and tables.
type PageExtractor interface {
	ExtractPages(ctx context.Context, pdf []byte) ([]model.Page, error)
}

// Plan is one staffing document to collect.
type Plan struct {
	Facility Facility `json:"facility"`
	URL      string   `json:"url"`
}

// FacilityReport is a parsed document and the facility it was collected for.
// Facility fields left empty by the index are filled from the report header.
type FacilityReport struct {
	Facility Facility `json:"facility"`
	URL      string   `json:"url"`
	Report   *Report  `json:"report"`
}

// CollectResult holds reports in plan order and one failure per plan that
// could not be processed.
type CollectResult struct {
	Reports  []FacilityReport `json:"reports"`
	Failures []model.Failure  `json:"failures"`
}

// Rows flattens every report, aligned with Columns(shifts).
func (r *CollectResult) Rows(shifts []Shift) [][]string {
	var out [][]string
	for _, fr := range r.Reports {
		out = append(out, Rows(fr.Facility, fr.Report, shifts)...)
	}
	return out
}

// Collector downloads, extracts and parses staffing documents concurrently.
// A failing document is recorded and does not stop the others.
type Collector struct {
	downloader  Downloader
	extractor   PageExtractor
	parser      *Parser
	concurrency int
	now         func() time.Time
}

// NewCollector creates a Collector. concurrency < 1 means 1.
func NewCollector(d Downloader, x PageExtractor, p *Parser, concurrency int) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{downloader: d, extractor: x, parser: p, concurrency: concurrency, now: time.Now}
}

// Collect processes plans. It only returns an error when ctx is cancelled.
func (c *Collector) Collect(ctx context.Context, runID string, plans []Plan) (*CollectResult, error) {
	log := zap.L().With(zap.String("component", "staffing.collector"), zap.String("run_id", runID))

	reports := make([]*FacilityReport, len(plans))
	failures := make([]*model.Failure, len(plans))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, plan := range plans {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			rep, err := c.one(gCtx, plan)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				log.Warn("document failed",
					zap.String("pfi", plan.Facility.PFI),
					zap.String("url", plan.URL),
					zap.Error(err),
				)
				failures[i] = &model.Failure{
					RunID:     runID,
					ItemID:    plan.Facility.PFI,
					ItemName:  plan.Facility.Name,
					Error:     err.Error(),
					ErrorType: resilience.ClassifyError(err),
					CreatedAt: c.now(),
				}
				return nil
			}
			reports[i] = rep
			log.Info("document parsed",
				zap.String("pfi", rep.Facility.PFI),
				zap.Int("units", len(rep.Report.Units)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "staffing: collect cancelled")
	}

	res := &CollectResult{Reports: []FacilityReport{}, Failures: []model.Failure{}}
	// Both slices are indexed by plan, so output follows plan order
	// regardless of completion order.
	for i := range plans {
		if r := reports[i]; r != nil {
			res.Reports = append(res.Reports, *r)
		}
		if f := failures[i]; f != nil {
			res.Failures = append(res.Failures, *f)
		}
	}
	return res, nil
}

func (c *Collector) one(ctx context.Context, plan Plan) (*FacilityReport, error) {
	if plan.URL == "" {
		return nil, eris.Errorf("staffing: no document url for %q", plan.Facility.Name)
	}
	pdf, err := c.downloader.Fetch(ctx, plan.URL)
	if err != nil {
		return nil, eris.Wrap(err, "staffing: download")
	}
	pages, err := c.extractor.ExtractPages(ctx, pdf)
	if err != nil {
		return nil, eris.Wrap(err, "staffing: extract pages")
	}
	rep := c.parser.Parse(pages)

	fac := plan.Facility
	hdr := FacilityFromHeader(rep.Header)
	if fac.PFI == "" {
		fac.PFI = hdr.PFI
	}
	if fac.Name == "" {
		fac.Name = hdr.Name
	}
	if fac.County == "" {
		fac.County = hdr.County
	}
	return &FacilityReport{Facility: fac, URL: plan.URL, Report: rep}, nil
}
