package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

// ---------------------------------------------------------------------------
// healthCheckHandler
// ---------------------------------------------------------------------------

func newHealthDB(t *testing.T, pingOK bool) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if pingOK {
		mock.ExpectPing()
	} else {
		mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	}
	return db
}

func serve(t *testing.T, h gin.HandlerFunc, path string) (int, map[string]interface{}) {
	t.Helper()
	r := gin.New()
	r.GET(path, h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return w.Code, body
}

func TestHealthCheckHandler_Healthy(t *testing.T) {
	code, body := serve(t, healthCheckHandler(newHealthDB(t, true)), "/health")

	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestHealthCheckHandler_Unhealthy(t *testing.T) {
	code, body := serve(t, healthCheckHandler(newHealthDB(t, false)), "/health")

	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("status = %v, want unhealthy", body["status"])
	}
}

// ---------------------------------------------------------------------------
// readinessHandler
// ---------------------------------------------------------------------------

func TestReadinessHandler_Ready(t *testing.T) {
	migrations := ReadinessCheck{Name: "migrations", Check: func(context.Context) error { return nil }}
	code, body := serve(t, readinessHandler(newHealthDB(t, true), migrations), "/ready")

	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if body["ready"] != true {
		t.Errorf("ready = %v, want true", body["ready"])
	}
	checks, _ := body["checks"].(map[string]interface{})
	if checks["migrations"] != "healthy" {
		t.Errorf("checks = %v, want migrations healthy", checks)
	}
}

func TestReadinessHandler_DatabaseDown(t *testing.T) {
	called := false
	extra := ReadinessCheck{Name: "redis", Check: func(context.Context) error { called = true; return nil }}
	code, body := serve(t, readinessHandler(newHealthDB(t, false), extra), "/ready")

	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if body["ready"] != false {
		t.Errorf("ready = %v, want false", body["ready"])
	}
	if called {
		t.Error("extra checks should not run when the database is down")
	}
}

func TestReadinessHandler_CheckFails(t *testing.T) {
	redis := ReadinessCheck{Name: "redis", Check: func(context.Context) error { return errors.New("dial tcp: refused") }}
	code, body := serve(t, readinessHandler(newHealthDB(t, true), redis), "/ready")

	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if body["error"] != "redis not ready" {
		t.Errorf("error = %v, want %q", body["error"], "redis not ready")
	}
}

// ---------------------------------------------------------------------------
// NewRouter
// ---------------------------------------------------------------------------

func TestNewRouter_SecurityHeadersAndRequestID(t *testing.T) {
	r := NewRouter(RouterDeps{DB: newHealthDB(t, true), Bookings: &fakeBookings{}, Reads: &fakeReads{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options: nosniff")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestNewRouter_UnknownRoute(t *testing.T) {
	r := NewRouter(RouterDeps{Bookings: &fakeBookings{}, Reads: &fakeReads{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/modules", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
