package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeAccessDenied, status: http.StatusForbidden, publicMsg: "course access denied", detailsOK: true},
		{code: CodePersistence, status: http.StatusServiceUnavailable, publicMsg: "could not save changes", retryable: true},
		{code: CodeTimeout, status: http.StatusGatewayTimeout, publicMsg: "operation timed out", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestWrapExternalMapsDeadlineToTimeout(t *testing.T) {
	err := WrapExternal(CodePersistence, fmt.Errorf("save: %w", context.DeadlineExceeded), "save profile")
	if !IsCode(err, CodeTimeout) {
		t.Fatalf("expected timeout code, got %v", err)
	}
	if !stdErrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected cause to be preserved")
	}
}

func TestWrapExternalKeepsTypedErrors(t *testing.T) {
	typed := New(CodeConflict, "stale version")
	err := WrapExternal(CodePersistence, typed, "save profile")
	if !IsCode(err, CodeConflict) {
		t.Fatalf("expected conflict to pass through, got %v", err)
	}
}

func TestWrapExternalDefaultsToRequestedCode(t *testing.T) {
	err := WrapExternal(CodePersistence, stdErrors.New("connection reset"), "save profile")
	if !IsCode(err, CodePersistence) {
		t.Fatalf("expected persistence code, got %v", err)
	}
	if WrapExternal(CodePersistence, nil, "noop") != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestDumpCollectsPostgresDiagnostic(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_profiles_email", TableName: "profiles"}
	err := Wrap(CodeConflict, fmt.Errorf("insert profile: %w", pgErr), "email already registered")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.Postgres == nil || d.Postgres.Constraint != "idx_profiles_email" {
		t.Fatalf("expected postgres constraint in dump, got %+v", d.Postgres)
	}
	fields := d.Fields()
	if fields["pg_code"] != "23505" {
		t.Fatalf("expected pg_code field, got %v", fields["pg_code"])
	}
}

func TestDumpFlagsDeadline(t *testing.T) {
	d := Dump(WrapExternal(CodePersistence, context.DeadlineExceeded, "save enrollments"))
	if !d.DeadlineExceeded || d.Code != CodeTimeout {
		t.Fatalf("expected timeout dump, got %+v", d)
	}
	if _, ok := d.Fields()["pg_code"]; ok {
		t.Fatal("no postgres fields expected")
	}
}

func TestServerCodesHideTheirMessage(t *testing.T) {
	for _, code := range []Code{CodeInternal, CodeDependency, CodePersistence, CodeTimeout} {
		if MetadataFor(code).ExposeMessage {
			t.Fatalf("%s must not expose its message", code)
		}
	}
	if !MetadataFor(CodeStateConflict).ExposeMessage {
		t.Fatal("state conflicts should explain themselves to the client")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodePersistence, stdErrors.New("connection refused"), "update enrollments")
	if got := err.Error(); got != "PERSISTENCE_ERROR: update enrollments: connection refused" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := Newf(CodeNotFound, "course %s not found", "c-1").Message(); got != "course c-1 not found" {
		t.Fatalf("unexpected message %q", got)
	}
}
