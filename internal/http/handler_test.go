package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dsocial118/SISOC-sub000/internal/authz"
	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/events"
	"github.com/dsocial118/SISOC-sub000/internal/metrics"
	"github.com/dsocial118/SISOC-sub000/internal/repository"
	"github.com/dsocial118/SISOC-sub000/internal/service"
	"github.com/dsocial118/SISOC-sub000/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiUser struct{ id, role string }

var (
	admin    = apiUser{"admin-1", domain.RoleAdministrator}
	operator = apiUser{"u1", domain.RoleOperator}
	tech     = apiUser{"t1", domain.RoleTechnical}
	viewer   = apiUser{"v1", domain.RoleViewer}
	nobody   = apiUser{}
)

type testAPI struct {
	t       *testing.T
	router  *Router
	metrics *metrics.Metrics
}

func newTestAPI(t *testing.T, kv store.KV) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	az, err := authz.NewService("", logger)
	require.NoError(t, err)
	m := metrics.New()
	svc := service.New(repository.NewMemoryStore(), service.WithLogger(logger), service.WithMetrics(m))

	r := NewRouter(logger, m)
	r.RegisterOps("/metrics")
	NewHandler(svc, az, kv, logger).Register(r)
	return &testAPI{t: t, router: r, metrics: m}
}

func (a *testAPI) do(method, path string, as apiUser, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, APIPrefix+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as.id != "" {
		req.Header.Set("X-User-Id", as.id)
		req.Header.Set("X-User-Role", as.role)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// ok asserts the status and decodes Result.result into out.
func (a *testAPI) ok(rec *httptest.ResponseRecorder, status int, out any) {
	a.t.Helper()
	require.Equal(a.t, status, rec.Code, rec.Body.String())
	var res Result[json.RawMessage]
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(a.t, ResultSuccess, res.Code)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(res.Result, out))
	}
}

func (a *testAPI) fails(rec *httptest.ResponseRecorder, status int, kind domain.ErrorKind) {
	a.t.Helper()
	require.Equal(a.t, status, rec.Code, rec.Body.String())
	var res Result[any]
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(a.t, ResultError, res.Code)
	assert.Equal(a.t, "error", res.Type)
	assert.Equal(a.t, string(kind), res.Kind)
}

func TestAPI_SeatProgramCase(t *testing.T) {
	api := newTestAPI(t, nil)

	api.ok(api.do(http.MethodPut, "/programs/nursery", admin, map[string]any{"name": "Nursery", "allocates_seats": true}), http.StatusOK, nil)
	var c1, c2 domain.Criterion
	api.ok(api.do(http.MethodPost, "/criteria", admin, map[string]any{"family": "IVI", "kind": "housing", "weight": 3, "text": "overcrowding"}), http.StatusCreated, &c1)
	api.ok(api.do(http.MethodPost, "/criteria", admin, map[string]any{"family": "IVI", "kind": "health", "weight": 5, "text": "no health coverage"}), http.StatusCreated, &c2)
	api.ok(api.do(http.MethodPut, "/slot-pools", admin, map[string]any{"centre": "C1", "sala": "2", "shift": "morning", "capacity": 1}), http.StatusOK, nil)

	var b domain.Beneficiary
	api.ok(api.do(http.MethodPost, "/beneficiaries", operator, map[string]any{
		"document_type": "DNI", "document_number": "40111222", "first_name": "Luz", "last_name": "Gomez", "birth_date": "2022-05-01",
	}), http.StatusCreated, &b)

	var d domain.Derivation
	api.ok(api.do(http.MethodPost, "/derivations", operator, map[string]any{"beneficiary_id": b.ID, "target_program_id": "nursery"}), http.StatusCreated, &d)
	assert.Equal(t, domain.DerivationPending, d.State)
	assert.Equal(t, domain.PriorityMedium, d.Priority)

	var pa domain.PreAdmission
	api.ok(api.do(http.MethodPost, "/derivations/"+d.ID+"/accept", operator, map[string]any{
		"payload": map[string]string{"centre": "C1", "sala": "2", "shift": "morning"},
	}), http.StatusCreated, &pa)

	var snap domain.AssessmentSnapshot
	api.ok(api.do(http.MethodPost, "/pre-admissions/"+pa.ID+"/snapshots", operator, map[string]any{
		"family": "IVI", "phase": "ENTRY", "criterion_ids": []string{c1.ID},
	}), http.StatusCreated, &snap)
	assert.Equal(t, 3, snap.TotalScore)
	assert.Equal(t, 8, snap.MaxPossibleScore)

	var fin finalizeResult
	api.ok(api.do(http.MethodPost, "/pre-admissions/"+pa.ID+"/finalize", operator, map[string]any{"decision": "ADMIT"}), http.StatusOK, &fin)
	require.NotNil(t, fin.Admission)
	assert.Equal(t, domain.AllocationWaitlist, fin.Admission.AllocationState)
	admID := fin.Admission.ID

	var waiting []domain.Admission
	api.ok(api.do(http.MethodGet, "/slot-pools/waitlist?centre=C1&sala=2&shift=morning", viewer, nil), http.StatusOK, &waiting)
	require.Len(t, waiting, 1)

	// operators cannot allocate seats
	api.fails(api.do(http.MethodPost, "/admissions/"+admID+"/slot", operator, map[string]any{"centre": "C1", "sala": "2", "shift": "morning"}), http.StatusForbidden, domain.KindUnauthorizedActor)

	var alloc domain.Allocation
	api.ok(api.do(http.MethodPost, "/admissions/"+admID+"/slot", tech, map[string]any{"centre": "C1", "sala": "2", "shift": "morning", "start_date": "2026-03-02"}), http.StatusCreated, &alloc)
	assert.Equal(t, domain.AllocAssigned, alloc.State)

	api.fails(api.do(http.MethodPost, "/admissions/"+admID+"/slot", tech, map[string]any{"centre": "C1", "sala": "2", "shift": "morning"}), http.StatusConflict, domain.KindForbiddenTransition)

	var pools []domain.PoolOccupancy
	api.ok(api.do(http.MethodGet, "/slot-pools", viewer, nil), http.StatusOK, &pools)
	require.Len(t, pools, 1)
	assert.Equal(t, 1, pools[0].AssignedCount)
	assert.Equal(t, 0, pools[0].Free)

	var exit domain.AssessmentSnapshot
	api.ok(api.do(http.MethodPost, "/admissions/"+admID+"/exit", operator, map[string]any{"criterion_ids": []string{c2.ID}}), http.StatusCreated, &exit)
	assert.Equal(t, domain.PhaseExit, exit.Phase)

	var cmp domain.Comparison
	api.ok(api.do(http.MethodGet, "/pre-admissions/"+pa.ID+"/comparison", viewer, nil), http.StatusOK, &cmp)
	assert.Len(t, cmp.Deltas, 2)

	var steps []domain.TimelineStep
	api.ok(api.do(http.MethodGet, "/derivations/"+d.ID+"/timeline", viewer, nil), http.StatusOK, &steps)
	require.NotEmpty(t, steps)
	assert.Equal(t, domain.EventDerivationCreated, steps[0].Event.Kind)
	assert.Equal(t, domain.StageInactive, steps[len(steps)-1].Stage)

	var evs []domain.CaseEvent
	api.ok(api.do(http.MethodGet, "/events?derivation_id="+d.ID+"&kind=SLOT_ASSIGNED", viewer, nil), http.StatusOK, &evs)
	require.Len(t, evs, 1)
	assert.Equal(t, "C1:2:morning", evs[0].FreeText)
}

func TestAPI_ErrorMapping(t *testing.T) {
	api := newTestAPI(t, nil)

	api.fails(api.do(http.MethodGet, "/derivations", nobody, nil), http.StatusForbidden, domain.KindUnauthorizedActor)
	api.fails(api.do(http.MethodGet, "/derivations/missing", viewer, nil), http.StatusNotFound, domain.KindNotFound)
	api.fails(api.do(http.MethodPost, "/derivations", operator, "{not json"), http.StatusUnprocessableEntity, domain.KindInvalidInput)
	api.fails(api.do(http.MethodPost, "/derivations", operator, map[string]any{"beneficiary_id": "b"}), http.StatusUnprocessableEntity, domain.KindInvalidInput)
	api.fails(api.do(http.MethodPost, "/criteria", admin, map[string]any{"family": "ENTRY", "kind": "k", "weight": 11, "text": "t"}), http.StatusUnprocessableEntity, domain.KindInvalidInput)
	api.fails(api.do(http.MethodGet, "/slot-pools/waitlist?centre=C1", viewer, nil), http.StatusUnprocessableEntity, domain.KindInvalidInput)
	api.fails(api.do(http.MethodGet, "/events?after_seq=x", viewer, nil), http.StatusUnprocessableEntity, domain.KindInvalidInput)

	rec := api.do(http.MethodPatch, "/derivations", operator, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPI_ExportOccupancy(t *testing.T) {
	api := newTestAPI(t, nil)
	api.ok(api.do(http.MethodPut, "/slot-pools", admin, map[string]any{"centre": "C1", "sala": "3", "shift": "afternoon", "capacity": 4}), http.StatusOK, nil)

	rec := api.do(http.MethodGet, "/slot-pools/export", viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "occupancy-")
	// xlsx is a zip archive
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestAPI_DashboardCounters(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := api.do(http.MethodGet, "/dashboard/counters?program_id=nursery", viewer, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	kv := store.NewRedisKV(client)
	_, err := kv.IncrBy(context.Background(), events.CounterKey("nursery", string(domain.EventAdmitted)), 2)
	require.NoError(t, err)

	api = newTestAPI(t, kv)
	var counters map[string]int64
	api.ok(api.do(http.MethodGet, "/dashboard/counters?program_id=nursery", viewer, nil), http.StatusOK, &counters)
	assert.Equal(t, map[string]int64{"ADMITTED": 2}, counters)

	api.fails(api.do(http.MethodGet, "/dashboard/counters", viewer, nil), http.StatusUnprocessableEntity, domain.KindInvalidInput)
}

func TestAPI_OpsEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	api.do(http.MethodGet, "/programs", viewer, nil)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `vaac_http_requests_total{route="GET /vaac/api/v1/programs",status="200"} 1`))
}
