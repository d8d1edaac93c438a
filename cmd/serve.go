package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hospital-cli/internal/dataset"
	"github.com/sells-group/hospital-cli/internal/model"
	"github.com/sells-group/hospital-cli/internal/ocr"
	"github.com/sells-group/hospital-cli/internal/resolve"
	"github.com/sells-group/hospital-cli/internal/staffing"
	"github.com/sells-group/hospital-cli/internal/store"
)

var servePort int

// api serves scoring, reconciliation and staffing parsing over HTTP.
type api struct {
	st         store.Store
	reg        *dataset.Registry
	extractor  ocr.Extractor
	parser     *staffing.Parser
	match      resolve.Config
	flagColumn string
	workers    int
	maxBody    int64
}

// buildRouter wires the API routes behind CORS.
func buildRouter(a *api, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/score", a.handleScore)
		r.Post("/reconcile", a.handleReconcile)
		r.Post("/staffing/parse", a.handleStaffingParse)
		r.Get("/runs", a.handleListRuns)
		r.Get("/runs/{id}", a.handleGetRun)
		r.Get("/runs/{id}/failures", a.handleListFailures)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body capped at maxBody bytes.
func (a *api) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type scoreRequest struct {
	Identity resolve.FacilityIdentity `json:"identity"`
	Group    resolve.ExternalGroup    `json:"group"`
	Mode     resolve.Mode             `json:"mode"`
}

type scoreResponse struct {
	resolve.Breakdown
	MinScore int  `json:"min_score"`
	Accepted bool `json:"accepted"`
}

func (a *api) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !a.decode(w, r, &req) {
		return
	}
	scorer, err := resolve.NewScorer(dataset.Profile{Mode: req.Mode}.MatchConfig(a.match))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b := scorer.Explain(req.Identity, &req.Group)
	writeJSON(w, http.StatusOK, scoreResponse{
		Breakdown: b,
		MinScore:  scorer.Config().MinScore,
		Accepted:  scorer.Accepts(b.Score),
	})
}

type reconcileRequest struct {
	Dataset    string                     `json:"dataset"`
	Identities []resolve.FacilityIdentity `json:"identities"`
	Header     []string                   `json:"header"`
	Rows       [][]string                 `json:"rows"`
	Explain    bool                       `json:"explain"`
}

type reconcileResponse struct {
	RunID  string            `json:"run_id"`
	Header []string          `json:"header"`
	Rows   [][]string        `json:"rows"`
	Stats  resolve.Stats     `json:"stats"`
	Load   dataset.LoadStats `json:"load"`
}

func (a *api) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if !a.decode(w, r, &req) {
		return
	}
	profile, err := a.reg.Get(req.Dataset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Header) == 0 {
		writeError(w, http.StatusBadRequest, "header is required")
		return
	}

	ctx := r.Context()
	tr, err := startRun(ctx, a.st, model.RunKindReconcile, "api:"+profile.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not start run")
		return
	}

	job := newReconcileJob(profile, a.match, a.flagColumn, a.workers, req.Explain)
	out, err := runReconcile(ctx, job, req.Identities, req.Header, sliceRows(req.Rows), nil)
	if err != nil {
		_ = tr.finish(ctx, nil, err)
		status := http.StatusUnprocessableEntity
		if errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	if err := a.st.SaveDecisions(ctx, dataset.Decisions(tr.ID(), profile.Name, out.Result, out.Groups)); err != nil {
		zap.L().Error("save decisions", zap.String("run_id", tr.ID()), zap.Error(err))
	}
	if err := tr.finish(ctx, out.stats(), nil); err != nil {
		zap.L().Error("finish run", zap.String("run_id", tr.ID()), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, reconcileResponse{
		RunID:  tr.ID(),
		Header: out.Header,
		Rows:   out.Rows,
		Stats:  out.Result.Stats(),
		Load:   out.Load,
	})
}

type staffingResponse struct {
	Facility staffing.Facility  `json:"facility"`
	Pages    staffing.PageStats `json:"pages"`
	Columns  []string           `json:"columns"`
	Rows     [][]string         `json:"rows"`
}

func (a *api) handleStaffingParse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty body, expected a PDF")
		return
	}

	pages, err := a.extractor.ExtractPages(r.Context(), body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	rep := a.parser.Parse(pages)
	fac := staffing.FacilityFromHeader(rep.Header)
	shifts := a.parser.Shifts()

	writeJSON(w, http.StatusOK, staffingResponse{
		Facility: fac,
		Pages:    rep.Pages,
		Columns:  staffing.Columns(shifts),
		Rows:     staffing.Rows(fac, rep, shifts),
	})
}

func (a *api) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Kind:   model.RunKind(q.Get("kind")),
		Status: model.RunStatus(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	runs, err := a.st.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *api) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.st.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *api) handleListFailures(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := a.st.GetRun(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	failures, err := a.st.ListFailures(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failures failed")
		return
	}
	if failures == nil {
		failures = []model.Failure{}
	}
	writeJSON(w, http.StatusOK, failures)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reg, err := loadRegistry(cfg.Reconcile.Profiles)
		if err != nil {
			return err
		}
		extractor, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return err
		}

		a := &api{
			st:         st,
			reg:        reg,
			extractor:  extractor,
			parser:     staffing.NewParser(cfg.Staffing.Parser()),
			match:      cfg.Match,
			flagColumn: cfg.Reconcile.FlagColumn,
			workers:    cfg.Reconcile.Workers,
			maxBody:    int64(cfg.Server.MaxBodyMB) << 20,
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(a, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
