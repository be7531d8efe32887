package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docchat/internal/handlers"
	"docchat/internal/middleware"
	"docchat/internal/models"
	"docchat/internal/services"
	"docchat/internal/websocket"
)

type stubDocs struct{ dir string }

func (s *stubDocs) Ingest(ctx context.Context, up services.Upload) (*models.Document, error) {
	io.Copy(io.Discard, up.Body)
	return &models.Document{Filename: up.Filename, ChunkCount: 1}, nil
}

func (s *stubDocs) Active(ctx context.Context) (*models.Document, error) {
	return &models.Document{Filename: "notes.txt", Status: models.DocumentReady}, nil
}

func (s *stubDocs) StoragePath() string { return s.dir }

type stubQA struct{}

func (stubQA) Ask(ctx context.Context, question string) (string, error) {
	return "echo: " + question, nil
}

func newTestRouter(t *testing.T, limits Limits) (*Router, *prometheus.Registry) {
	t.Helper()
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	h := Handlers{
		Documents: handlers.NewDocumentHandler(&stubDocs{dir: t.TempDir()}, 1, logger),
		Chat:      handlers.NewChatHandler(stubQA{}, logger),
		Hub:       websocket.NewHub(nil, services.StatusChannel, logger),
	}
	rt := New(h, limits, middleware.NewMetrics(reg), reg)
	t.Cleanup(rt.Close)
	return rt, reg
}

func chatRequest(msg string) *http.Request {
	body, _ := json.Marshal(models.ChatRequest{Message: msg})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:5555"
	return req
}

func TestRouter_Health(t *testing.T) {
	r, _ := newTestRouter(t, DefaultLimits)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_Chat(t *testing.T) {
	r, _ := newTestRouter(t, DefaultLimits)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, chatRequest("hello"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "echo: hello", resp.Answer)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestRouter_ChatRateLimited(t *testing.T) {
	r, _ := newTestRouter(t, Limits{Upload: 1, Chat: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, chatRequest("again"))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRouter_ActiveDocument(t *testing.T) {
	r, _ := newTestRouter(t, DefaultLimits)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/active", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "notes.txt")
}

func TestRouter_UnknownRoute(t *testing.T) {
	r, _ := newTestRouter(t, DefaultLimits)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MetricsExposed(t *testing.T) {
	r, _ := newTestRouter(t, DefaultLimits)

	r.ServeHTTP(httptest.NewRecorder(), chatRequest("count me"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "docchat_http_requests_total"), "metrics body: %s", body)
	assert.Contains(t, body, `route="/chat"`)
}

func TestRouter_CloseStopsLimiters(t *testing.T) {
	r, _ := newTestRouter(t, DefaultLimits)
	require.Len(t, r.limiters, 2)

	r.Close()
	r.Close()

	for _, l := range r.limiters {
		select {
		case <-l.Done():
		default:
			t.Fatal("rate limiter still running after Close")
		}
	}
}
