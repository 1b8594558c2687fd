package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/academiaalbert/academia-backend/api/responses"
	pkgerrors "github.com/academiaalbert/academia-backend/pkg/errors"
	"github.com/academiaalbert/academia-backend/pkg/logger"
	pkgredis "github.com/academiaalbert/academia-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	replayHeader           = "Idempotent-Replay"
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// idempotencyRule matches concrete request paths; "*" stands for one path segment.
// Rules are checked against r.URL.Path because sub-router middleware runs
// before chi has resolved the full route pattern.
type idempotencyRule struct {
	method   string
	segments []string
	ttl      time.Duration
}

func rule(method, template string, ttl time.Duration) idempotencyRule {
	return idempotencyRule{method: method, segments: splitPath(template), ttl: ttl}
}

var idempotencyRules = []idempotencyRule{
	rule(http.MethodPost, "/api/v1/courses/*/enrollments", defaultIdempotencyTTL),
	rule(http.MethodPost, "/api/v1/courses/*/reviews", defaultIdempotencyTTL),
	rule(http.MethodPost, "/api/admin/courses", defaultIdempotencyTTL),
	rule(http.MethodPost, "/api/admin/users/*/role", defaultIdempotencyTTL),
	rule(http.MethodPost, "/api/admin/users/*/enrollments/*/block", defaultIdempotencyTTL),
	// payment reviews grant access for weeks; replays are kept longer
	rule(http.MethodPost, "/api/admin/users/*/enrollments/*/payment", criticalIdempotencyTTL),
}

func (r idempotencyRule) matches(method string, segments []string) bool {
	if r.method != method || len(r.segments) != len(segments) {
		return false
	}
	for i, want := range r.segments {
		if want != "*" && want != segments[i] {
			return false
		}
	}
	return true
}

func ruleTTL(method, path string) (time.Duration, bool) {
	segments := splitPath(path)
	for _, candidate := range idempotencyRules {
		if candidate.matches(method, segments) {
			return candidate.ttl, true
		}
	}
	return 0, false
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

// replayRecord is the stored outcome of the first request made with a key.
type replayRecord struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	BodyHash    string `json:"body_hash"`
}

// Idempotency replays the stored response when an enrollment, review or admin
// write repeats its Idempotency-Key. A reused key with a different body is
// rejected. 5xx outcomes are not stored so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := ruleTTL(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			bodyHash := hashBody(body)
			key := store.IdempotencyKey(replayScope(r), clientKey)

			stored, err := store.Get(ctx, key)
			switch {
			case err != nil && !errors.Is(err, redis.Nil):
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key"))
				return
			case stored != "":
				var record replayRecord
				if err := json.Unmarshal([]byte(stored), &record); err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
					return
				}
				if record.BodyHash != bodyHash {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				record.writeTo(w)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.statusOrOK()
			if status >= http.StatusInternalServerError {
				return
			}
			payload, err := json.Marshal(replayRecord{
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				BodyHash:    bodyHash,
			})
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "idempotency.encode_failed", err)
				}
				return
			}
			if _, err := store.SetNX(ctx, key, string(payload), ttl); err != nil && logg != nil {
				logg.Error(ctx, "idempotency.store_failed", err)
			}
		})
	}
}

// replayScope keeps keys per caller and concrete path so two students
// reusing the same key never see each other's responses.
func replayScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func (rec replayRecord) writeTo(w http.ResponseWriter) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(replayHeader, "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
