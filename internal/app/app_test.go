package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyindex/internal/config"
	"dailyindex/internal/services"
	"dailyindex/internal/shared/testutil"
)

// createTestLogger creates a logger that discards output for testing
func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testConfig(t *testing.T, seed string) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Data.SeedFile = testutil.WriteFile(t, "seed.csv", seed)
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.Enabled = false
	cfg.Telemetry.EnableTracing = false
	cfg.Telemetry.TraceExporter = "none"
	cfg.WebSocket.PingPeriod = time.Second
	cfg.WebSocket.PongWait = 2 * time.Second
	return cfg
}

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	app, err := NewApplication(testConfig(t, testutil.SimpleCSV), createTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})
	return app
}

func serve(t *testing.T, app *Application, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func csvForm(t *testing.T, content string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "update.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestNewApplication(t *testing.T) {
	app := newTestApplication(t)

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.WebSocketHub)
	assert.NotNil(t, app.OTelProviders)
	assert.Equal(t, ":0", app.Server.Addr)
	assert.Equal(t, app.Config.Server.MaxHeaderBytes, app.Server.MaxHeaderBytes)

	stats := app.IndexService.Stats()
	assert.True(t, stats.Loaded)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, []string{"DAX", "SP500"}, stats.Indices)
}

func TestNewApplication_SeedFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(cfg *config.Config)
	}{
		{
			name: "missing seed",
			setup: func(cfg *config.Config) {
				cfg.Data.SeedFile = cfg.Data.SeedFile + ".missing"
			},
		},
		{
			name: "malformed seed",
			setup: func(cfg *config.Config) {
				cfg.Data.SeedFile = testutil.WriteFile(t, "broken.csv", "Date,DAX\n2015-05-01,1\n")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, testutil.SimpleCSV)
			tt.setup(cfg)

			app, err := NewApplication(cfg, createTestLogger())
			require.Error(t, err)
			assert.Nil(t, app)
			assert.Contains(t, err.Error(), "failed to load seed table")
		})
	}
}

func TestApplication_setupRouter(t *testing.T) {
	app := newTestApplication(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		contains   string
	}{
		{"health", http.MethodGet, "/health", http.StatusOK, services.HealthMessage},
		{"readiness", http.MethodGet, "/health/ready", http.StatusOK, `"status":"ready"`},
		{"version", http.MethodGet, "/version", http.StatusOK, config.AppVersion},
		{"docs", http.MethodGet, "/docs", http.StatusOK, "/uploadfile"},
		{"root redirect", http.MethodGet, "/", http.StatusTemporaryRedirect, ""},
		{"getdata", http.MethodGet, "/getdata?index=DAX", http.StatusOK, `[{"1":[["20150502","2"],["20150501","1"]]}]`},
		{"getdata by date", http.MethodGet, "/getdata/20150501?index=sp500", http.StatusOK, `"SP500":"600"`},
		{"unknown date", http.MethodGet, "/getdata/20990101", http.StatusNotFound, "Date or index not found"},
		{"testdb", http.MethodGet, "/testdb", http.StatusOK, "20150502"},
		{"export", http.MethodGet, "/export", http.StatusOK, "Date,DAX,SP500"},
		{"not found", http.MethodGet, "/nope", http.StatusNotFound, `"status":404`},
		{"method not allowed", http.MethodDelete, "/health", http.StatusMethodNotAllowed, `"status":405`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, app, tt.method, tt.path, nil, "")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestApplication_Middleware(t *testing.T) {
	app := newTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := testConfig(t, testutil.SimpleCSV)
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}

	app, err := NewApplication(cfg, createTestLogger())
	require.NoError(t, err)
	defer app.Stop(context.Background())

	first := serve(t, app, http.MethodGet, "/health", nil, "")
	second := serve(t, app, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestApplication_UploadAndReset(t *testing.T) {
	app := newTestApplication(t)

	body, contentType := csvForm(t, "Date,DAX,SP500\n20150503,3,1800\n")
	rec := serve(t, app, http.MethodPost, "/uploadfile", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 3, app.IndexService.Stats().Entries)

	rec = serve(t, app, http.MethodGet, "/getdata/20150503", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"DAX":"3"`)

	rec = serve(t, app, http.MethodGet, "/refreshdb", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, app.IndexService.Stats().Entries)
}

func TestApplication_Metrics(t *testing.T) {
	app := newTestApplication(t)

	serve(t, app, http.MethodGet, "/getdata?index=DAX", nil, "")
	rec := serve(t, app, http.MethodGet, "/metrics", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "table_entries")
	assert.Contains(t, body, "http_request_duration_seconds")
}

func TestApplication_WebSocketFeed(t *testing.T) {
	app := newTestApplication(t)

	server := httptest.NewServer(app.Router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var greeting map[string]interface{}
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, "connection", greeting["type"])

	body, contentType := csvForm(t, "Date,FTSE\n20150501,7000\n")
	resp, err := http.Post(server.URL+"/uploadfile", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var event struct {
		Type string `json:"type"`
		Data struct {
			Action  string   `json:"action"`
			Entries int      `json:"entries"`
			Indices []string `json:"indices"`
		} `json:"data"`
	}
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &event))

	assert.Equal(t, "table_updated", event.Type)
	assert.Equal(t, "upload", event.Data.Action)
	assert.Equal(t, 2, event.Data.Entries)
	assert.Contains(t, event.Data.Indices, "FTSE")
}

func TestApplication_StartStop(t *testing.T) {
	app, err := NewApplication(testConfig(t, testutil.SimpleCSV), createTestLogger())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.Start(ctx, ln, cancel)

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, app.Stop(context.Background()))
	assert.NoError(t, ctx.Err(), "clean shutdown must not cancel the run context")

	_, err = http.Get("http://" + ln.Addr().String() + "/health")
	assert.Error(t, err)
}
