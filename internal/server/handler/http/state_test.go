package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/appstate/internal/metrics"
	"github.com/atinyakov/appstate/internal/models"
	"github.com/atinyakov/appstate/internal/modules/auth"
	"github.com/atinyakov/appstate/internal/modules/pagecache"
	"github.com/atinyakov/appstate/internal/modules/user"
	"github.com/atinyakov/appstate/internal/store"
)

func newTestStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	s := store.New(opts...)
	if err := s.Register(auth.Module(), user.Module(), pagecache.Module()); err != nil {
		t.Fatalf("register: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestRouter(t *testing.T, s *store.Store, token string) http.Handler {
	t.Helper()
	return NewRouter(
		chi.NewRouter(),
		&StateHandler{Store: s},
		NewWatchHandler(s, zap.NewNop()),
		nil,
		token,
		zap.NewNop(),
	)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStateHandler_Commit(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		body         string
		expectedCode int
	}{
		{name: "set token", target: "/api/commit/setToken", body: `"abc"`, expectedCode: http.StatusNoContent},
		{name: "nil payload", target: "/api/commit/resetPageCache", expectedCode: http.StatusNoContent},
		{name: "page entry", target: "/api/commit/setPageToCache", body: `{"pageName":"About"}`, expectedCode: http.StatusNoContent},
		{name: "unknown mutation", target: "/api/commit/nope", body: `"x"`, expectedCode: http.StatusNotFound},
		{name: "wrong payload type", target: "/api/commit/setToken", body: `12`, expectedCode: http.StatusBadRequest},
		{name: "invalid JSON", target: "/api/commit/setToken", body: `{`, expectedCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, newTestStore(t), "")
			rec := do(t, h, "POST", tt.target, tt.body)
			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestStateHandler_CommitRejectsNonJSON(t *testing.T) {
	h := newTestRouter(t, newTestStore(t), "")
	req := httptest.NewRequest("POST", "/api/commit/setToken", bytes.NewBufferString(`"abc"`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status %d, got %d", http.StatusUnsupportedMediaType, rec.Code)
	}
}

func TestStateHandler_DispatchAndRead(t *testing.T) {
	s := newTestStore(t)
	h := newTestRouter(t, s, "")

	rec := do(t, h, "POST", "/api/dispatch/updateAuthData", `{"token":"t","expire":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("dispatch: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := s.State().Auth; got != (models.AuthState{Token: "t", TokenExpire: 100}) {
		t.Errorf("auth state = %+v", got)
	}

	rec = do(t, h, "POST", "/api/commit/setUserId", `"u1"`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("commit: expected 204, got %d", rec.Code)
	}

	rec = do(t, h, "GET", "/api/state/auth.isLogin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get path: expected 200, got %d", rec.Code)
	}
	var value map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&value); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if value["value"] != true {
		t.Errorf("expected isLogin true, got %v", value["value"])
	}

	rec = do(t, h, "GET", "/api/state", "")
	var st models.State
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if st.User.UserID != "u1" || len(st.PageCache.PagesName) != 1 {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestStateHandler_DispatchErrors(t *testing.T) {
	h := newTestRouter(t, newTestStore(t), "")

	if rec := do(t, h, "POST", "/api/dispatch/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown action: expected 404, got %d", rec.Code)
	}
	if rec := do(t, h, "POST", "/api/dispatch/updateAuthData", `{"token":5}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad payload: expected 400, got %d", rec.Code)
	}
	if rec := do(t, h, "GET", "/api/state/auth.missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path: expected 404, got %d", rec.Code)
	}
}

func TestStateHandler_DispatchWaitCancelled(t *testing.T) {
	s := newTestStore(t)
	handler := &StateHandler{Store: s}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("POST", "/dispatch/cleanAuthData", nil).WithContext(ctx)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("name", "cleanAuthData")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler.Dispatch(rec, req)

	// either the action won the race or the wait was abandoned
	if rec.Code != http.StatusOK && rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 200 or 504, got %d", rec.Code)
	}
}

func TestRouter_TokenAndMetrics(t *testing.T) {
	m := metrics.New()
	s := newTestStore(t, store.WithRecorder(m))
	h := NewRouter(chi.NewRouter(), &StateHandler{Store: s}, NewWatchHandler(s, nil), m.Handler(), "s3cret", zap.NewNop())

	if rec := do(t, h, "GET", "/api/state", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest("POST", "/api/commit/setToken", bytes.NewBufferString(`"abc"`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with token, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/metrics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if !bytes.Contains(rec.Body.Bytes(), []byte(`appstate_commits_total{mutation="setToken",result="ok"} 1`)) {
		t.Errorf("expected commit counter in metrics, got:\n%s", rec.Body.String())
	}
}
