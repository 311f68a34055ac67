package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/bank-notifier/internal/api/handlers"
	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/dvloznov/bank-notifier/internal/ingest"
	"github.com/dvloznov/bank-notifier/internal/jobs/inmemory"
	"github.com/dvloznov/bank-notifier/internal/notification"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vcbOutgoing = "Số dư TK VCB 0541000346532 -1,000 VND lúc 17-07-2025 13:52:49. Số dư 319,000 VND. Ref MBVCB.10226218427.BUI THANH XUAN chuyen tien.CT tu 0541000346532 BUI THANH XUAN toi 9963595567 TRAN THU UYEN"

type recordingSink struct {
	saved []domain.Transaction
}

func (s *recordingSink) Name() string { return "test" }

func (s *recordingSink) Save(ctx context.Context, tx domain.Transaction, at time.Time) (string, error) {
	s.saved = append(s.saved, tx)
	return "page-123", nil
}

func newTestServer(t *testing.T) (*httptest.Server, *recordingSink) {
	t.Helper()
	log := zerolog.Nop()

	parser := notification.DefaultRouter(log)
	sink := &recordingSink{}
	svc := ingest.NewService(parser, sink, log)

	h := NewHandler(Routes{
		Notifications: handlers.NewNotificationsHandler(svc, "Notion", log),
		Health:        handlers.NewHealthHandler(parser.Packages),
		Jobs:          handlers.NewJobsHandler(inmemory.NewStore(), log),
		Requests:      handlers.NewRequestsHandler(nil, log),
		BasicAuthUser: "phone",
		BasicAuthPass: "secret",
	}, log)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, sink
}

func do(t *testing.T, method, url, body string, auth bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if auth {
		req.SetBasicAuth("phone", "secret")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandler_PostNotificationEndToEnd(t *testing.T) {
	srv, sink := newTestServer(t)

	payload, err := json.Marshal(map[string]interface{}{
		"package": "com.VCB",
		"text":    vcbOutgoing,
		"time":    1752735169000,
	})
	require.NoError(t, err)

	resp := do(t, http.MethodPost, srv.URL+"/api", string(payload), true)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body struct {
		Success      bool               `json:"success"`
		Message      string             `json:"message"`
		NotionPageID string             `json:"notionPageId"`
		ParsedData   domain.Transaction `json:"parsedData"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "Request processed and saved to Notion.", body.Message)
	assert.Equal(t, "page-123", body.NotionPageID)
	assert.Equal(t, int64(-1000), body.ParsedData.Amount)
	assert.Equal(t, "CT tu 0541000346532 BUI THANH XUAN toi 9963595567 TRAN THU UYEN", body.ParsedData.Transaction)

	require.Len(t, sink.saved, 1)
	assert.Equal(t, body.ParsedData, sink.saved[0])
}

func TestHandler_UnparsableNotification(t *testing.T) {
	srv, sink := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api", `{"package":"com.Techcombank","text":"hello","time":1}`, true)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Could not parse notification for package: com.Techcombank", body["error"])
	assert.Empty(t, sink.saved)
}

func TestHandler_RequiresAuth(t *testing.T) {
	srv, sink := newTestServer(t)

	for _, path := range []string{"/api", "/api/jobs", "/api/jobs/x", "/api/requests"} {
		resp := do(t, http.MethodPost, srv.URL+path, `{}`, false)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Equal(t, `Basic realm="401"`, resp.Header.Get("WWW-Authenticate"), path)
	}
	assert.Empty(t, sink.saved)
}

func TestHandler_HealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/health", "", false)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, []interface{}{"com.VCB"}, body["packages"])
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct{ method, path string }{
		{http.MethodGet, "/api"},
		{http.MethodPost, "/api/health"},
		{http.MethodDelete, "/api/jobs"},
		{http.MethodPut, "/api/requests/abc"},
	}
	for _, tt := range tests {
		resp := do(t, tt.method, srv.URL+tt.path, "", true)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, "%s %s", tt.method, tt.path)
	}
}

func TestHandler_RequestLogDisabled(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/requests", "", true)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
