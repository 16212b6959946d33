package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/scribelabs/meetbot/adapters/meeting"
	"github.com/scribelabs/meetbot/adapters/stt"
	"github.com/scribelabs/meetbot/adapters/webhook"
	"github.com/scribelabs/meetbot/domain/repositories"
	"github.com/scribelabs/meetbot/internal/config"
	"github.com/scribelabs/meetbot/usecase"
)

const testMeetingURL = "https://teams.microsoft.com/l/meetup-join/19%3ameeting_xyz"

func newTestServer(t *testing.T, apiSecret string) (*echo.Echo, *httptest.Server) {
	t.Helper()

	logger := zap.NewNop()
	cfg := &config.Config{
		Deepgram: config.DeepgramConfig{Model: "nova-2", Language: "en", SampleRate: 16000},
		Webhook:  config.WebhookConfig{TimeoutSeconds: 2, RetryCount: 1},
		Bot:      config.BotConfig{DefaultName: "Transcription Bot", SessionRetention: time.Minute},
	}
	deliverer := webhook.NewDeliverer(2*time.Second, 1, true, logger)
	registry := usecase.NewRegistry(cfg, stt.NewMockSpeechToText(logger), func() repositories.MeetingAdapter {
		return meeting.NewMockAdapter(logger)
	}, deliverer, logger)

	e := echo.New()
	InitRoutes(e, registry, apiSecret, logger)

	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(sink.Close)
	return e, sink
}

func doJSON(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateBot(t *testing.T) {
	e, sink := newTestServer(t, "")

	body := `{"meeting_url":"` + testMeetingURL + `","webhook_url":"` + sink.URL + `"}`
	rec := doJSON(e, http.MethodPost, "/bots", body, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp BotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "bot_") {
		t.Errorf("id = %q, want bot_ prefix", resp.ID)
	}
	if resp.State != "joining" {
		t.Errorf("state = %q, want joining", resp.State)
	}
	if resp.BotName != "Transcription Bot" {
		t.Errorf("bot_name = %q, want default applied", resp.BotName)
	}

	got := doJSON(e, http.MethodGet, "/bots/"+resp.ID, "", nil)
	if got.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", got.Code)
	}
}

func TestCreateBotValidation(t *testing.T) {
	e, sink := newTestServer(t, "")

	cases := []struct {
		name string
		body string
	}{
		{"missing meeting_url", `{"webhook_url":"` + sink.URL + `"}`},
		{"missing webhook_url", `{"meeting_url":"` + testMeetingURL + `"}`},
		{"non teams host", `{"meeting_url":"https://zoom.us/j/1","webhook_url":"` + sink.URL + `"}`},
		{"malformed json", `{"meeting_url":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/bots", tc.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetBotNotFound(t *testing.T) {
	e, _ := newTestServer(t, "")

	rec := doJSON(e, http.MethodGet, "/bots/bot_ffffffffffffffff", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != "not_found" {
		t.Errorf("error = %q, want not_found", resp.Error)
	}
}

func TestLeaveBot(t *testing.T) {
	e, sink := newTestServer(t, "")

	body := `{"meeting_url":"` + testMeetingURL + `","webhook_url":"` + sink.URL + `"}`
	rec := doJSON(e, http.MethodPost, "/bots", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created BotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	leave := doJSON(e, http.MethodPost, "/bots/"+created.ID+"/leave", "", nil)
	if leave.Code != http.StatusOK {
		t.Fatalf("leave status = %d, want 200: %s", leave.Code, leave.Body.String())
	}

	missing := doJSON(e, http.MethodPost, "/bots/bot_ffffffffffffffff/leave", "", nil)
	if missing.Code != http.StatusNotFound {
		t.Errorf("leave on unknown bot status = %d, want 404", missing.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	e, sink := newTestServer(t, "sekrit")
	body := `{"meeting_url":"` + testMeetingURL + `","webhook_url":"` + sink.URL + `"}`

	cases := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing header", nil, http.StatusUnauthorized},
		{"wrong secret", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"bearer secret", map[string]string{"Authorization": "Bearer sekrit"}, http.StatusCreated},
		{"token secret", map[string]string{"Authorization": "Token sekrit"}, http.StatusCreated},
		{"raw secret", map[string]string{"Authorization": "sekrit"}, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/bots", body, tc.headers)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestHealthBypassesAuth(t *testing.T) {
	e, _ := newTestServer(t, "sekrit")

	rec := doJSON(e, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := newTestServer(t, "sekrit")

	rec := doJSON(e, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "meetbot_") {
		t.Error("metrics output missing meetbot namespace")
	}
}
