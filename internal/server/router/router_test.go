package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository/repotest"
	"github.com/mamadbah2/farebook/internal/server/handlers"
	"github.com/mamadbah2/farebook/internal/service/actions"
	"github.com/mamadbah2/farebook/internal/service/approval"
	"github.com/mamadbah2/farebook/internal/service/auth"
	"github.com/mamadbah2/farebook/internal/service/entries"
	"github.com/mamadbah2/farebook/internal/service/export"
	"github.com/mamadbah2/farebook/internal/service/reporting"
)

type testServer struct {
	engine *gin.Engine
	tokens map[string]string
	store  *repotest.EntryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	users := repotest.NewUserStore(
		models.User{Username: "ram", Role: models.RoleDriver, PasswordHash: hash},
		models.User{Username: "shyam", Role: models.RoleDriver, PasswordHash: hash},
		models.User{Username: "hari", Role: models.RoleManager, PasswordHash: hash},
		models.User{Username: "gita", Role: models.RoleAdmin, PasswordHash: hash},
	)
	store := repotest.NewEntryStore()

	authSvc := auth.NewService(users, "router-test", time.Hour, nil)
	lock := &sync.Mutex{}
	entrySvc := entries.NewService(store, lock, nil)
	approvalSvc := approval.NewService(store, lock, nil, nil)
	reportingSvc := reporting.NewService(store, nil, time.UTC, nil)
	exportSvc := export.NewService(entrySvc, nil)
	dispatcher := actions.NewDispatcher(entrySvc, approvalSvc, reportingSvc, nil)

	engine := New(Handlers{
		Auth:    handlers.NewAuthHandler(authSvc, nil),
		Entries: handlers.NewEntryHandler(entrySvc, approvalSvc, nil),
		Reports: handlers.NewReportHandler(reportingSvc, exportSvc, nil),
		Actions: handlers.NewActionHandler(dispatcher, nil),
	}, authSvc, nil)

	ts := &testServer{engine: engine, tokens: map[string]string{}, store: store}
	for _, name := range []string{"ram", "shyam", "hari", "gita"} {
		rec := ts.do(t, "", http.MethodPost, "/api/auth/login", map[string]string{"username": name, "password": "secret"})
		if rec.Code != http.StatusOK {
			t.Fatalf("login %s: %d %s", name, rec.Code, rec.Body)
		}
		var body struct {
			Token string `json:"token"`
		}
		decode(t, rec, &body)
		ts.tokens[name] = body.Token
	}
	return ts
}

func (ts *testServer) do(t *testing.T, user, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+ts.tokens[user])
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthAndAuth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "", http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("healthz: %d, request id %q", rec.Code, rec.Header().Get(requestIDHeader))
	}

	if rec := ts.do(t, "", http.MethodGet, "/api/entries", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	ts.tokens["mallory"] = "forged.token.value"
	if rec := ts.do(t, "mallory", http.MethodGet, "/api/entries", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}

	rec = ts.do(t, "", http.MethodPost, "/api/auth/login", map[string]string{"username": "ram", "password": "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}

	rec = ts.do(t, "hari", http.MethodGet, "/api/auth/me", nil)
	var me models.User
	decode(t, rec, &me)
	if me.Username != "hari" || me.Role != models.RoleManager {
		t.Fatalf("me = %+v", me)
	}
}

func TestEntryWorkflowOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "ram", http.MethodPost, "/api/entries", map[string]interface{}{
		"type": "daily", "date": "2024-03-04", "route": "Kathmandu-Pokhara", "cashAmount": 3500,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var created models.Entry
	decode(t, rec, &created)
	if created.EntryStatus != models.StatusPending || created.SubmittedBy != "ram" {
		t.Fatalf("created = %+v", created)
	}
	path := fmt.Sprintf("/api/entries/%d", created.EntryID)

	rec = ts.do(t, "ram", http.MethodPost, "/api/entries", map[string]interface{}{
		"type": "booking", "date": "2024-03-03", "endDate": "2024-03-05", "bankAmount": 20000,
	})
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "conflict") {
		t.Fatalf("expected overlap conflict, got %d %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, "ram", http.MethodPost, "/api/entries", map[string]interface{}{"type": "lunch", "date": "2024-03-04"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", rec.Code)
	}

	if rec := ts.do(t, "shyam", http.MethodGet, path, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other driver, got %d", rec.Code)
	}

	rec = ts.do(t, "hari", http.MethodGet, path+"/transitions", nil)
	var transitions struct {
		Allowed []models.EntryStatus `json:"allowed"`
	}
	decode(t, rec, &transitions)
	if len(transitions.Allowed) != 2 {
		t.Fatalf("manager transitions = %v", transitions.Allowed)
	}

	if rec := ts.do(t, "ram", http.MethodPost, path+"/status", map[string]string{"entryStatus": "approved"}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for driver status change, got %d", rec.Code)
	}

	rec = ts.do(t, "hari", http.MethodPost, path+"/status", map[string]string{"entryStatus": "forwardedCash"})
	if rec.Code != http.StatusOK {
		t.Fatalf("forward: %d %s", rec.Code, rec.Body)
	}

	if rec := ts.do(t, "ram", http.MethodPut, path, map[string]interface{}{"type": "daily", "date": "2024-03-04", "cashAmount": 1}); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 editing forwarded entry, got %d", rec.Code)
	}

	if rec := ts.do(t, "hari", http.MethodPost, path+"/status", map[string]string{"entryStatus": "approved"}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager approval, got %d", rec.Code)
	}

	rec = ts.do(t, "gita", http.MethodPost, "/api/entries/status", map[string]interface{}{
		"entryIds": []int64{created.EntryID, 999}, "entryStatus": "approved",
	})
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("bulk: %d %s", rec.Code, rec.Body)
	}

	rec = ts.do(t, "gita", http.MethodGet, "/api/summary?from=2024-03-01&to=2024-03-31", nil)
	var summary models.SummarySnapshot
	decode(t, rec, &summary)
	if !summary.Totals.Approved.Equal(decimal.NewFromInt(3500)) {
		t.Fatalf("approved total = %s", summary.Totals.Approved)
	}

	rec = ts.do(t, "ram", http.MethodGet, "/api/summary/daily?from=2024-03-03&to=2024-03-05", nil)
	var daily struct {
		Days []models.DailyTotal `json:"days"`
	}
	decode(t, rec, &daily)
	if len(daily.Days) != 3 || !daily.Days[1].Income.Equal(decimal.NewFromInt(3500)) {
		t.Fatalf("daily = %+v", daily.Days)
	}

	if rec := ts.do(t, "ram", http.MethodDelete, path, nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 deleting approved entry, got %d", rec.Code)
	}

	if rec := ts.do(t, "ram", http.MethodGet, "/api/entries?from=04-03-2024", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad filter, got %d", rec.Code)
	}

	rec = ts.do(t, "hari", http.MethodGet, "/api/export.xlsx", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/vnd.openxmlformats") {
		t.Fatalf("export: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestExecEnvelope(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "ram", http.MethodPost, "/api/exec", map[string]interface{}{
		"action": "addEntry",
		"entry":  map[string]interface{}{"type": "fuel", "date": "2024-03-04", "cashAmount": "1500.50"},
	})
	var resp struct {
		Status  string          `json:"status"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	decode(t, rec, &resp)
	if rec.Code != http.StatusOK || resp.Status != models.ActionStatusSuccess {
		t.Fatalf("addEntry: %d %+v", rec.Code, resp)
	}

	rec = ts.do(t, "ram", http.MethodPost, "/api/exec", map[string]interface{}{"action": "purgeSheet"})
	decode(t, rec, &resp)
	if rec.Code != http.StatusBadRequest || resp.Status != models.ActionStatusError || !strings.Contains(resp.Message, "unsupported") {
		t.Fatalf("unknown action: %d %+v", rec.Code, resp)
	}

	entries, _ := ts.store.List(context.Background())
	if len(entries) != 1 {
		t.Fatalf("expected one stored entry, got %d", len(entries))
	}
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]string{"username": "sita", "name": "Sita", "role": "driver", "password": "secret1"}

	if rec := ts.do(t, "hari", http.MethodPost, "/api/users", body); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager, got %d", rec.Code)
	}
	if rec := ts.do(t, "gita", http.MethodPost, "/api/users", body); rec.Code != http.StatusCreated {
		t.Fatalf("create user: %d %s", rec.Code, rec.Body)
	}
	if rec := ts.do(t, "gita", http.MethodPost, "/api/users", body); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}
	if rec := ts.do(t, "", http.MethodPost, "/api/auth/login", map[string]string{"username": "sita", "password": "secret1"}); rec.Code != http.StatusOK {
		t.Fatalf("new user login: %d", rec.Code)
	}
}
