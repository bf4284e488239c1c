package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusTeapot)
}

func TestTokenAuth(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		target     string
		wantCalled bool
		wantCode   int
	}{
		{name: "disabled", token: "", target: "/api/state", wantCalled: true, wantCode: http.StatusTeapot},
		{name: "missing token", token: "s3cret", target: "/api/state", wantCode: http.StatusUnauthorized},
		{name: "wrong token", token: "s3cret", header: "Bearer nope", target: "/api/state", wantCode: http.StatusUnauthorized},
		{name: "header token", token: "s3cret", header: "Bearer s3cret", target: "/api/state", wantCalled: true, wantCode: http.StatusTeapot},
		{name: "query token", token: "s3cret", target: "/api/watch?token=s3cret", wantCalled: true, wantCode: http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := TokenAuth(tt.token)(dummy)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(rec, req)

			if dummy.called != tt.wantCalled {
				t.Errorf("next called = %v; want %v", dummy.called, tt.wantCalled)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if dummy.called && GetClientIDFromContext(dummy.ctx) == "" {
				t.Error("expected client id in context")
			}
		})
	}
}

func TestGetClientIDFromContext_Empty(t *testing.T) {
	if got := GetClientIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty client id, got %q", got)
	}
}

func TestWithRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(&buf),
		zapcore.InfoLevel,
	)

	h := WithRequestLogging(zap.New(core))(&dummyHandler{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/commit/setToken", nil))

	out := buf.String()
	for _, want := range []string{"request", "/api/commit/setToken", "418"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %q, got:\n%s", want, out)
		}
	}
}
