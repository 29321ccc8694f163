package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanhydro/abimo/internal/input"
	"github.com/urbanhydro/abimo/internal/model"
	"github.com/urbanhydro/abimo/internal/pipeline"
	"github.com/urbanhydro/abimo/internal/store"
)

func testParameters() model.Parameters {
	p := model.DefaultParameters()
	p.ETP = map[int]int{0: 650, 1: 660, 2: 640}
	p.ETPS = map[int]int{1: 530, 2: 520}
	p.EG = map[int]int{1: 775}
	return p
}

func testRecords() []model.InputRecord {
	return []model.InputRecord{
		{
			Code: "1000", Usage: 21, Type: 1, District: 1,
			DepthToWaterTable: 2.5, FieldCapacity30: 12, FieldCapacity150: 14,
			PrecipitationYear: 600, PrecipitationSummer: 300,
			RoofSealed: 30, OtherSealed: 20, RoadSealed: 80,
			Pavement:     [4]float32{50, 30, 20, 0},
			RoadPavement: [4]float32{60, 20, 20, 0},
			RoofSewer:    90, OtherSewer: 50, RoadSewer: 100,
			MainArea: 1500, RoadArea: 400,
		},
		{
			Code: "2000", Usage: 100, Type: 55, District: 2,
			DepthToWaterTable: 0.8, FieldCapacity30: 10, FieldCapacity150: 18,
			PrecipitationYear: 580, PrecipitationSummer: 290,
			MainArea: 10000,
		},
	}
}

func csvData(recs []model.InputRecord) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(input.RequiredFields, ",") + "\n")
	for _, r := range recs {
		b.WriteString(strings.Join(input.Row(r), ",") + "\n")
	}
	return []byte(b.String())
}

type fakeMetrics struct {
	mu     sync.Mutex
	routes []string
}

func (m *fakeMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("abimo_runs_total 0\n"))
	})
}

func (m *fakeMetrics) ObserveHTTP(method, route string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, method+" "+route+" "+http.StatusText(status))
}

type testEnv struct {
	srv     *Server
	handler http.Handler
	runs    *store.SQLiteStore
	metrics *fakeMetrics
	dir     string
}

func newTestEnv(t *testing.T, withStore bool) *testEnv {
	t.Helper()
	env := &testEnv{dir: t.TempDir(), metrics: &fakeMetrics{}}

	opts := pipeline.Options{}
	var runs store.Store
	if withStore {
		st, err := store.NewSQLite(filepath.Join(t.TempDir(), "abimo.db"))
		require.NoError(t, err)
		require.NoError(t, st.Migrate(context.Background()))
		t.Cleanup(func() { _ = st.Close() })
		env.runs = st
		opts.Store = st
		runs = st
	}

	p, err := pipeline.New(testParameters(), opts)
	require.NoError(t, err)

	env.srv = New(context.Background(), p, runs, env.metrics, Config{
		AllowedOrigins: []string{"*"},
		WorkDir:        env.dir,
	})
	env.handler = env.srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, env.metrics.routes)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "abimo_runs_total")
}

func TestBalance(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, false)
	body, err := json.Marshal(BalanceRequest{Records: testRecords()})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/v1/balance", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ev pipeline.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, model.RunStatusComplete, ev.Status)
	require.Len(t, ev.Outputs, 2)
	assert.InDelta(t, 429.04, ev.Outputs[0].Runoff, 1e-4)
	assert.Equal(t, 2, ev.Counters.RecordsWritten)

	assert.Contains(t, env.metrics.routes, "POST /v1/balance OK")
}

func TestBalance_InvalidBody(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodPost, "/v1/balance", []byte("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestBalance_UnknownUsage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, false)
	recs := testRecords()
	recs[1].Usage = 999
	body, err := json.Marshal(BalanceRequest{Records: recs})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/v1/balance", body, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Error  string              `json:"error"`
		Result pipeline.Evaluation `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, model.RunStatusFailed, resp.Result.Status)
	assert.Len(t, resp.Result.Outputs, 1)
}

func TestRuns_WithoutStore(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, false)
	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/v1/runs"},
		{http.MethodGet, "/v1/runs/abc"},
		{http.MethodPost, "/v1/runs"},
	} {
		rec := env.do(t, tc.method, tc.target, []byte(`{"source":"a.csv"}`), "application/json")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.target)
	}
}

func waitForRun(t *testing.T, env *testEnv, id string) *model.Run {
	t.Helper()
	env.srv.Wait()
	run, err := env.runs.GetRun(context.Background(), id)
	require.NoError(t, err)
	return run
}

func TestStartRun_JSON(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "blocks.csv"), csvData(testRecords()), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(env.dir, "out"), 0o755))

	rec := env.do(t, http.MethodPost, "/v1/runs", []byte(`{"source":"blocks.csv","output":"out/result.dbf"}`), "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var started model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.ID)
	assert.Equal(t, filepath.Join(env.dir, "blocks.csv"), started.Input.Source)

	run := waitForRun(t, env, started.ID)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, 2, run.Result.Counters.RecordsRead)
	assert.FileExists(t, filepath.Join(env.dir, "out", "result.dbf"))
	assert.FileExists(t, filepath.Join(env.dir, "out", "result.log"))
}

func TestStartRun_Upload(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "blocks.csv")
	require.NoError(t, err)
	_, err = fw.Write(csvData(testRecords()))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := env.do(t, http.MethodPost, "/v1/runs", body.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var started model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	run := waitForRun(t, env, started.ID)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, 2, run.Result.Counters.RecordsWritten)
	assert.FileExists(t, run.Result.Output)
	assert.True(t, strings.HasPrefix(run.Result.Output, filepath.Join(env.dir, "uploads")))
}

func TestStartRun_BadRequests(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	for name, body := range map[string]string{
		"invalid json":   `{`,
		"missing source": `{}`,
		"escaping path":  `{"source":"../etc/blocks.csv"}`,
		"absolute path":  `{"source":"/etc/blocks.csv"}`,
		"escaping out":   `{"source":"blocks.csv","output":"../out.dbf"}`,
	} {
		rec := env.do(t, http.MethodPost, "/v1/runs", []byte(body), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	runs, err := env.runs.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStartRun_FailedRunIsRecorded(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	rec := env.do(t, http.MethodPost, "/v1/runs", []byte(`{"source":"missing.csv"}`), "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	run := waitForRun(t, env, started.ID)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	require.NotNil(t, run.Result)
	assert.NotEmpty(t, run.Result.Error)
}

func TestListAndGetRuns(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	ctx := context.Background()
	a, err := env.runs.CreateRun(ctx, model.RunInput{Source: "a.dbf"})
	require.NoError(t, err)
	_, err = env.runs.CreateRun(ctx, model.RunInput{Source: "b.dbf"})
	require.NoError(t, err)
	require.NoError(t, env.runs.UpdateRunResult(ctx, a.ID, &model.RunResult{Status: model.RunStatusComplete}))

	rec := env.do(t, http.MethodGet, "/v1/runs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	rec = env.do(t, http.MethodGet, "/v1/runs?status=complete&limit=10", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, a.ID, runs[0].ID)

	rec = env.do(t, http.MethodGet, "/v1/runs?status=failed", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/runs/"+a.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "a.dbf", got.Input.Source)

	rec = env.do(t, http.MethodGet, "/v1/runs/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Contains(t, env.metrics.routes, "GET /v1/runs/{id} Not Found")
}

func TestListRuns_InvalidFilter(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	for _, q := range []string{"limit=x", "offset=-1", "created_after=yesterday"} {
		rec := env.do(t, http.MethodGet, "/v1/runs?"+q, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/v1/balance", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestResolve(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), nil, nil, nil, Config{WorkDir: "/srv/abimo"})
	got, err := s.resolve("data/blocks.dbf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/abimo", "data", "blocks.dbf"), got)

	got, err = s.resolve("data/../blocks.dbf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/abimo", "blocks.dbf"), got)

	_, err = s.resolve("../blocks.dbf")
	require.Error(t, err)
}
