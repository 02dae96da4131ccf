package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/internal/metrics"
	"github.com/agentstation/catalogsync/internal/server/events"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/catalog/memory"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/runs"
)

const feed = `sku;title;price;sale-price;url;category-path;image;description
W-1;Blue Widget;19,99;;http://shop.example.com/widgets/blue;Tools>Hand;;
W-2;;5;;http://shop.example.com/widgets/nameless;;;
W-3;Red Widget;12;;http://shop.example.com/widgets/red;Tools;;
`

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	*httptest.Server
	store   *memory.Store
	metrics *metrics.Metrics
	engine  catalogsync.Engine
}

func newTestServer(t *testing.T, cfg Config, opts ...Option) *testServer {
	t.Helper()
	m := metrics.New(false)
	store := memory.New()
	vendors := memory.NewVendors(catalog.Vendor{ID: "acme"})

	engine, err := catalogsync.New(store, vendors, catalogsync.WithRemoteObserver(m.ObserveRemoteRequest))
	require.NoError(t, err)
	engine.OnRunFinished(m.ObserveRun)

	srv := New(engine, logging.NewNopLogger(), cfg, append([]Option{WithMetrics(m)}, opts...)...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, store: store, metrics: m, engine: engine}
}

func (ts *testServer) do(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func (ts *testServer) post(t *testing.T, path, contentType string, body []byte) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	return ts.do(t, req)
}

func (ts *testServer) get(t *testing.T, path string) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	return ts.do(t, req)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	resp, env := ts.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "healthy")
}

func TestReady(t *testing.T) {
	ts := newTestServer(t, DefaultConfig(),
		WithReadyCheck("store", func(context.Context) error { return nil }),
		WithReadyCheck("cache", func(context.Context) error { return fmt.Errorf("connection refused") }),
	)
	resp, env := ts.get(t, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"cache":"unavailable"`)
	assert.Contains(t, string(env.Data), `"store":"ok"`)
}

func TestFlatFileImportRawBody(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	resp, env := ts.post(t, "/api/v1/vendors/acme/imports/flatfile?name=feed.csv", "text/csv", []byte(feed))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Nil(t, env.Error)

	var run runs.ImportRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, runs.StatusCompleted, run.Status)
	assert.Equal(t, runs.Totals{Found: 3, New: 2, Ignored: 1}, run.Totals)
	assert.Equal(t, 2, ts.store.Len())
}

func TestFlatFileImportMultipart(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "widgets.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(feed))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, env := ts.post(t, "/api/v1/vendors/acme/imports/flatfile", mw.FormDataContentType(), body.Bytes())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var run runs.ImportRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, 2, run.New)
}

func TestFlatFileImportErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxUploadSize = 64
	ts := newTestServer(t, cfg)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"empty body", "/api/v1/vendors/acme/imports/flatfile", "", http.StatusBadRequest, "BAD_REQUEST"},
		{"too large", "/api/v1/vendors/acme/imports/flatfile", strings.Repeat("x", 200), http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{"unknown vendor", "/api/v1/vendors/nobody/imports/flatfile", "a;b", http.StatusNotFound, "NOT_FOUND"},
		{"unknown charset", "/api/v1/vendors/acme/imports/flatfile?charset=klingon", "a;b", http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := ts.post(t, tt.path, "text/csv", []byte(tt.body))
			assert.Equal(t, tt.status, resp.StatusCode)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestFailedRunIsReturnedWithError(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	resp, env := ts.post(t, "/api/v1/vendors/nobody/imports/flatfile", "text/csv", []byte(feed))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var run runs.ImportRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, runs.StatusFailed, run.Status)
	assert.NotEmpty(t, run.ID)

	resp, env = ts.get(t, "/api/v1/imports/"+run.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"status":"failed"`)
}

func remoteShop(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/products/7") {
			_, _ = w.Write([]byte(`{"id":7,"name":"Lamp","permalink":"https://shop.test/lamp","status":"publish","regular_price":"20"}`))
			return
		}
		if r.URL.Query().Get("page") != "1" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[
			{"id":7,"name":"Lamp","permalink":"https://shop.test/lamp","status":"publish","regular_price":"20"},
			{"id":8,"name":"Chair","permalink":"","status":"publish","regular_price":"35"}
		]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteImportAndRefresh(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	shop := remoteShop(t)

	body := fmt.Sprintf(`{"endpoint":%q}`, shop.URL+"/products")
	resp, env := ts.post(t, "/api/v1/vendors/acme/imports/remote", "application/json", []byte(body))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var run runs.ImportRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, runs.Totals{Found: 2, New: 1, Ignored: 1}, run.Totals)

	body = fmt.Sprintf(`{"endpoint":%q,"refs":["7"]}`, shop.URL+"/products")
	resp, env = ts.post(t, "/api/v1/vendors/acme/imports/remote", "application/json", []byte(body))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, runs.Totals{Found: 1, Ignored: 1}, run.Totals)

	resp, env = ts.get(t, "/api/v1/vendors/acme/imports")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"count":2`)
}

func TestRemoteImportRejectsBadBody(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	tests := []struct {
		name string
		body string
	}{
		{"not json", `endpoint=x`},
		{"unknown field", `{"endpoint":"https://shop.test","color":"red"}`},
		{"invalid config", `{"endpoint":"not a url"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := ts.post(t, "/api/v1/vendors/acme/imports/remote", "application/json", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.NotNil(t, env.Error)
		})
	}
}

func TestPreviewRemote(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	shop := remoteShop(t)

	body := fmt.Sprintf(`{"endpoint":%q}`, shop.URL+"/products")
	resp, env := ts.post(t, "/api/v1/vendors/acme/imports/remote/preview", "application/json", []byte(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var preview struct {
		Found      int                 `json:"found"`
		Candidates []catalog.Candidate `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Equal(t, 2, preview.Found)
	assert.Len(t, preview.Candidates, 1)
	assert.Zero(t, ts.store.Len())

	_, env = ts.get(t, "/api/v1/imports")
	assert.Contains(t, string(env.Data), `"count":0`)
}

func TestAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "s3cret"
	ts := newTestServer(t, cfg)

	resp, _ := ts.get(t, "/api/v1/imports")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/imports", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "s3cret")
	resp, _ = ts.do(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	_, _ = ts.post(t, "/api/v1/vendors/acme/imports/flatfile", "text/csv", []byte(feed))

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, buf.String(), `catalogsync_import_runs_total{source="flatfile",status="completed"} 1`)
}

func TestRunEventsOverWebSocket(t *testing.T) {
	hub := events.NewHub(logging.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	ts := newTestServer(t, Config{}, WithEvents(hub))
	ts.engine.OnRunStarted(hub.OnRunStarted)
	ts.engine.OnRunFinished(hub.OnRunFinished)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/v1/imports/events", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	resp, _ := ts.post(t, "/api/v1/vendors/acme/imports/flatfile", "text/csv", []byte(feed))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var started, finished events.Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&started))
	require.NoError(t, conn.ReadJSON(&finished))
	assert.Equal(t, events.RunStarted, started.Type)
	assert.Equal(t, events.RunFinished, finished.Type)
	assert.Equal(t, started.Run.ID, finished.Run.ID)
	assert.Equal(t, runs.StatusCompleted, finished.Run.Status)
	assert.Equal(t, 2, finished.Run.New)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	resp, env := ts.get(t, "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	engine, err := catalogsync.New(memory.New(), memory.NewVendors())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Port = 0
	srv := New(engine, logging.NewNopLogger(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
