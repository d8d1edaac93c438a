//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hospital-cli/internal/dataset"
	"github.com/sells-group/hospital-cli/internal/model"
	"github.com/sells-group/hospital-cli/internal/resolve"
	"github.com/sells-group/hospital-cli/internal/staffing"
	"github.com/sells-group/hospital-cli/internal/store"
)

func newTestAPI(t *testing.T) (*api, http.Handler) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	a := &api{
		st:         st,
		reg:        dataset.NewRegistry(),
		extractor:  &fakeExtractor{pages: staffingPages()},
		parser:     staffing.NewParser(staffing.DefaultConfig()),
		flagColumn: "match_status",
		workers:    2,
		maxBody:    1 << 20,
	}
	return a, buildRouter(a, []string{"*"})
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestRouter_Health(t *testing.T) {
	_, h := newTestAPI(t)
	rr := do(t, h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRouter_CORSPreflight(t *testing.T) {
	_, h := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/score", nil)
	req.Header.Set("Origin", "https://dashboard.example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Score(t *testing.T) {
	_, h := newTestAPI(t)
	body := mustJSON(t, scoreRequest{
		Identity: resolve.FacilityIdentity{Name: "Albany Medical Center Hospital", Address: "43 New Scotland Ave", City: "Albany", Phone: "(518) 262-3125"},
		Group:    resolve.ExternalGroup{Name: "ALBANY MEDICAL CENTER HOSPITAL", Address: "43 NEW SCOTLAND AVENUE", City: "ALBANY", Phone: "518-262-3125"},
	})
	rr := do(t, h, http.MethodPost, "/v1/score", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp scoreResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, 8, resp.MinScore)
	assert.GreaterOrEqual(t, resp.Score, 15)

	var names []string
	for _, s := range resp.Signals {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, resolve.SignalPhoneExact)
}

func TestRouter_ScoreNameOnly(t *testing.T) {
	_, h := newTestAPI(t)
	body := mustJSON(t, scoreRequest{
		Identity: resolve.FacilityIdentity{Name: "Ellis Hospital", Phone: "(518) 243-4000"},
		Group:    resolve.ExternalGroup{Name: "ELLIS HOSPITAL", Phone: "(518) 243-4000"},
		Mode:     resolve.ModeNameOnly,
	})
	rr := do(t, h, http.MethodPost, "/v1/score", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp scoreResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.MinScore)
	for _, s := range resp.Signals {
		assert.NotEqual(t, resolve.SignalPhoneExact, s.Name)
	}
}

func TestRouter_ScoreBadRequests(t *testing.T) {
	_, h := newTestAPI(t)

	rr := do(t, h, http.MethodPost, "/v1/score", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/v1/score", []byte(`{"mode":"fuzzy"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "fuzzy")
}

func TestRouter_Reconcile(t *testing.T) {
	a, h := newTestAPI(t)
	body := mustJSON(t, reconcileRequest{
		Dataset: "unplanned_visits",
		Identities: []resolve.FacilityIdentity{
			{Name: "Albany Medical Center Hospital", Address: "43 New Scotland Ave", City: "Albany", Phone: "(518) 262-3125"},
			{Name: "Lakeside Memorial", Address: "1 Lake St", City: "Brockport", Phone: "(585) 555-0100"},
		},
		Header: visitsHeader,
		Rows:   visitsRows,
	})
	rr := do(t, h, http.MethodPost, "/v1/reconcile", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp reconcileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "match_status", resp.Header[0])
	require.Len(t, resp.Rows, 4)
	assert.Equal(t, 1, resp.Stats.Matched)
	assert.Equal(t, 1, resp.Stats.Unmatched)
	assert.Equal(t, 1, resp.Stats.ExtraGroups)
	assert.Equal(t, 1, resp.Load.OutOfState)

	ctx := context.Background()
	run, err := a.st.GetRun(ctx, resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Stats)
	assert.Equal(t, 4, run.Stats.Rows)

	decisions, err := a.st.ListDecisions(ctx, resp.RunID)
	require.NoError(t, err)
	assert.Len(t, decisions, 3)

	rr = do(t, h, http.MethodGet, "/v1/runs/"+resp.RunID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"kind":"reconcile"`)
}

func TestRouter_ReconcileErrors(t *testing.T) {
	_, h := newTestAPI(t)

	rr := do(t, h, http.MethodPost, "/v1/reconcile", mustJSON(t, reconcileRequest{Dataset: "nope", Header: visitsHeader}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown profile")

	rr = do(t, h, http.MethodPost, "/v1/reconcile", mustJSON(t, reconcileRequest{Dataset: "hcahps"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "header is required")

	rr = do(t, h, http.MethodPost, "/v1/reconcile", mustJSON(t, reconcileRequest{
		Dataset:    "unplanned_visits",
		Identities: []resolve.FacilityIdentity{{Name: "A"}, {Name: "A"}},
		Header:     visitsHeader,
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "duplicate")
}

func TestRouter_StaffingParse(t *testing.T) {
	_, h := newTestAPI(t)
	rr := do(t, h, http.MethodPost, "/v1/staffing/parse", []byte("%PDF-1.4 fake"))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp staffingResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "0001", resp.Facility.PFI)
	assert.Equal(t, 1, resp.Pages.Header)
	assert.Equal(t, 1, resp.Pages.Shift)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "Critical Care", resp.Rows[0][4])
	assert.Len(t, resp.Rows[0], len(resp.Columns))
}

func TestRouter_StaffingParseEmptyBody(t *testing.T) {
	_, h := newTestAPI(t)
	rr := do(t, h, http.MethodPost, "/v1/staffing/parse", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_Runs(t *testing.T) {
	a, h := newTestAPI(t)
	ctx := context.Background()

	rr := do(t, h, http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	run, err := a.st.CreateRun(ctx, model.RunKindStaffing, "index")
	require.NoError(t, err)
	require.NoError(t, a.st.AddFailures(ctx, []model.Failure{
		{RunID: run.ID, ItemID: "0002", ItemName: "Ellis Hospital", Error: "no table", ErrorType: "permanent"},
		{RunID: run.ID, ItemID: "0004", ItemName: "Down Host", Error: "503", ErrorType: "transient"},
	}))

	rr = do(t, h, http.MethodGet, "/v1/runs?kind=staffing&limit=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var runs []model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	rr = do(t, h, http.MethodGet, "/v1/runs/"+run.ID+"/failures", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var failures []model.Failure
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &failures))
	require.Len(t, failures, 2)
	assert.Equal(t, "0002", failures[0].ItemID)
}

func TestRouter_RunsErrors(t *testing.T) {
	_, h := newTestAPI(t)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/runs/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/runs/missing/failures", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/runs?limit=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/runs?offset=-1", nil).Code)
}
