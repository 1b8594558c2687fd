package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/academiaalbert/academia-backend/api/responses"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
)

func TestRequestIDEchoesWellFormedID(t *testing.T) {
	handler := RequestID(nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(responses.RequestIDHeader, "web-42.abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(responses.RequestIDHeader); got != "web-42.abc" {
		t.Fatalf("expected caller id echoed, got %q", got)
	}
}

func TestRequestIDReplacesUnsafeID(t *testing.T) {
	handler := RequestID(nil)(okHandler())
	for _, bad := range []string{"", "has space", "line\nbreak", strings.Repeat("a", maxRequestIDLength+1)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(responses.RequestIDHeader, bad)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if _, err := uuid.Parse(rec.Header().Get(responses.RequestIDHeader)); err != nil {
			t.Fatalf("expected minted uuid for %q, got %q", bad, rec.Header().Get(responses.RequestIDHeader))
		}
	}
}

func TestRequestIDReachesErrorEnvelope(t *testing.T) {
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "course not found"))
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(responses.RequestIDHeader, "trace-1")
	rec := httptest.NewRecorder()
	RequestID(nil)(failing).ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), `"request_id":"trace-1"`) {
		t.Fatalf("expected request id in error body, got %s", rec.Body.String())
	}
}
