package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/academiaalbert/academia-backend/pkg/enums"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
)

const enrollPath = "/api/v1/courses/c1/enrollments"

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func postEnrollment(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, enrollPath, strings.NewReader(body))
}

func TestRuleTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"enroll", http.MethodPost, enrollPath, defaultIdempotencyTTL, true},
		{"review", http.MethodPost, "/api/v1/courses/c1/reviews", defaultIdempotencyTTL, true},
		{"create course", http.MethodPost, "/api/admin/courses", defaultIdempotencyTTL, true},
		{"payment review", http.MethodPost, "/api/admin/users/u1/enrollments/c1/payment", criticalIdempotencyTTL, true},
		{"block", http.MethodPost, "/api/admin/users/u1/enrollments/c1/block/", defaultIdempotencyTTL, true},
		{"role", http.MethodPost, "/api/admin/users/u1/role", defaultIdempotencyTTL, true},
		{"lesson complete", http.MethodPost, "/api/v1/courses/c1/lessons/l1/complete", 0, false},
		{"extra segment", http.MethodPost, "/api/admin/users/u1/x/role", 0, false},
		{"login", http.MethodPost, "/api/v1/auth/login", 0, false},
		{"read", http.MethodGet, enrollPath, 0, false},
	}

	for _, tt := range tests {
		ttl, ok := ruleTTL(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := postEnrollment(`{"payment_method":"MPESA"}`)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	for i := 0; i < 2; i++ {
		req := postEnrollment(`{"payment_method":"MPESA"}`)
		req.Header.Set("Idempotency-Key", "abc")
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i, rec.Code)
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Fatalf("expected content-type header preserved")
		}
		if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
			t.Fatalf("unexpected body %s", rec.Body.String())
		}
		if i == 1 && rec.Header().Get("Idempotent-Replay") != "true" {
			t.Fatalf("expected replay marker on second attempt")
		}
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDoesNotStoreServerErrors(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 2; i++ {
		req := postEnrollment(`{}`)
		req.Header.Set("Idempotency-Key", "retry-me")
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected a retry after a server error, handler ran %d times", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := postEnrollment(`{"payment_method":"MPESA"}`)
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := postEnrollment(`{"payment_method":"BIM"}`)
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyMiddlewareScopesKeysPerUser(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	for _, user := range []uuid.UUID{uuid.New(), uuid.New()} {
		req := postEnrollment(`{"payment_method":"MPESA"}`)
		req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: user, Role: enums.UserRoleStudent}))
		req.Header.Set("Idempotency-Key", "same")
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected both students to reach the handler, got %d calls", calls)
	}
}
