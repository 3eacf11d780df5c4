package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/calendar"
	"github.com/teemow/inboxtriage/internal/model"
	"github.com/teemow/inboxtriage/internal/store"
	"github.com/teemow/inboxtriage/internal/triage"
)

type fakeService struct {
	profiles  []Profile
	digest    *model.Digest
	runErr    error
	confirmed []triage.ConfirmRequest
	confirm   *triage.ConfirmResult
	gateway   error
	history   store.Store
}

func (f *fakeService) DefaultProfile() Profile { return Profile{Account: "default"} }

func (f *fakeService) Run(_ context.Context, p Profile) (*model.Digest, error) {
	f.profiles = append(f.profiles, p)
	return f.digest, f.runErr
}

func (f *fakeService) ConfirmCalendar(_ context.Context, _ string, req triage.ConfirmRequest) (*triage.ConfirmResult, error) {
	if _, _, err := req.Validate(time.UTC); err != nil {
		return nil, err
	}
	f.confirmed = append(f.confirmed, req)
	if f.gateway != nil {
		return nil, f.gateway
	}
	return f.confirm, nil
}

func (f *fakeService) UpcomingEvents(context.Context, string, int, int64) ([]calendar.EventSummary, error) {
	return nil, nil
}

func (f *fakeService) History() store.Store { return f.history }

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func sampleDigest() *model.Digest {
	return triage.BuildDigest("run-42", time.Now(), time.Now(), []model.ProcessedResult{
		{Index: 1, EmailID: "m1", Sender: "A", Subject: "Hi", DraftID: "d1", ReplyNeeded: true},
	})
}

func TestAPI_Health(t *testing.T) {
	h := NewAPIRouter(&fakeService{}, APIOptions{Health: NewHealthChecker(nil)})

	rec, body := do(t, h, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])

	rec, _ = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, body = do(t, h, http.MethodGet, "/healthz/detailed", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disabled", body["history"])
}

func TestAPI_Run(t *testing.T) {
	svc := &fakeService{digest: sampleDigest()}
	h := NewAPIRouter(svc, APIOptions{})

	rec, body := do(t, h, http.MethodPost, "/api/run",
		`{"name":"Sam","email":"sam@example.com","num_emails":3,"email_type":"latest","tone":"casual"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, "run-42", body["run_id"])
	assert.Len(t, body["results"], 1)
	assert.Contains(t, body["digest"], "FINAL DIGEST")

	require.Len(t, svc.profiles, 1)
	p := svc.profiles[0]
	assert.Equal(t, "Sam", p.Name)
	assert.Equal(t, 3, p.MaxEmails)
	assert.Equal(t, "latest", p.EmailType)
	assert.Equal(t, "casual", p.Tone)
	assert.Equal(t, "api", p.Trigger)
}

func TestAPI_RunEmptyBody(t *testing.T) {
	svc := &fakeService{digest: sampleDigest()}
	h := NewAPIRouter(svc, APIOptions{})

	rec, _ := do(t, h, http.MethodPost, "/api/run", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.profiles, 1)
	assert.Equal(t, 0, svc.profiles[0].MaxEmails)
}

func TestAPI_RunErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		runErr error
		want   int
	}{
		{name: "bad json", body: `{`, want: http.StatusBadRequest},
		{name: "negative count", body: `{"num_emails":-1}`, want: http.StatusBadRequest},
		{name: "bad email type", body: `{"email_type":"starred"}`, want: http.StatusBadRequest},
		{name: "bad tone", body: `{"tone":"sarcastic"}`, want: http.StatusBadRequest},
		{name: "run failure", body: `{}`, runErr: errors.New("no token"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{runErr: tt.runErr}
			rec, body := do(t, NewAPIRouter(svc, APIOptions{}), http.MethodPost, "/api/run", tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestAPI_ConfirmCalendar(t *testing.T) {
	start := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	tests := []struct {
		name      string
		body      string
		gateway   error
		want      int
		wantError string
		wantCalls int
	}{
		{
			name:      "created",
			body:      `{"action":"meeting","title":"Sync","date":"2026-03-15","time":"14:30","duration_minutes":30}`,
			want:      http.StatusOK,
			wantCalls: 1,
		},
		{
			name:      "placeholder date",
			body:      `{"action":"meeting","title":"Sync","date":"[DATE]","time":"14:30"}`,
			want:      http.StatusBadRequest,
			wantError: "Please enter a valid date (YYYY-MM-DD) before confirming.",
		},
		{
			name:      "bad time",
			body:      `{"action":"reminder","title":"Pay","date":"2026-03-15","time":"2pm"}`,
			want:      http.StatusBadRequest,
			wantError: "Invalid time format '2pm'. Please use HH:MM (e.g. 14:30).",
		},
		{
			name:      "bad action",
			body:      `{"action":"party","date":"2026-03-15","time":"14:30"}`,
			want:      http.StatusBadRequest,
			wantError: "Invalid action type",
		},
		{
			name:      "gateway failure",
			body:      `{"action":"meeting","title":"Sync","date":"2026-03-15","time":"14:30"}`,
			gateway:   errors.New("403 forbidden"),
			want:      http.StatusInternalServerError,
			wantError: "Failed to create calendar event",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{
				gateway: tt.gateway,
				confirm: &triage.ConfirmResult{EventID: "e1", EventLink: "https://cal/e1", Title: "Sync", Start: start},
			}
			rec, body := do(t, NewAPIRouter(svc, APIOptions{}), http.MethodPost, "/api/confirm-calendar", tt.body)

			assert.Equal(t, tt.want, rec.Code)
			assert.Len(t, svc.confirmed, tt.wantCalls)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			assert.Equal(t, true, body["success"])
			assert.Equal(t, "e1", body["event_id"])
			assert.Equal(t, "https://cal/e1", body["event_link"])
			assert.Equal(t, "2026-03-15T14:30:00Z", body["start"])
		})
	}
}

func TestAPI_SkipCalendar(t *testing.T) {
	rec, body := do(t, NewAPIRouter(&fakeService{}, APIOptions{}), http.MethodPost, "/api/skip-calendar", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Calendar event skipped.", body["message"])
}

func TestAPI_Runs(t *testing.T) {
	history, err := store.NewSQLiteStore(t.TempDir() + "/history.db")
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })
	require.NoError(t, history.SaveRun(context.Background(), sampleDigest()))

	h := NewAPIRouter(&fakeService{history: history}, APIOptions{})

	rec, body := do(t, h, http.MethodGet, "/api/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["runs"], 1)

	rec, body = do(t, h, http.MethodGet, "/api/runs/run-42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	digest := body["digest"].(map[string]any)
	assert.Equal(t, "run-42", digest["run_id"])

	rec, _ = do(t, h, http.MethodGet, "/api/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/runs?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RunsDisabled(t *testing.T) {
	h := NewAPIRouter(&fakeService{}, APIOptions{})
	rec, _ := do(t, h, http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec, _ = do(t, h, http.MethodGet, "/api/runs/x", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_CORS(t *testing.T) {
	h := NewAPIRouter(&fakeService{}, APIOptions{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/run", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
