package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/academiaalbert/academia-backend/pkg/config"
	"github.com/academiaalbert/academia-backend/pkg/logger"
)

type testModel struct {
	ID    int
	Name  string
	Email string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestQueryLoggerHidesBoundValues(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	conn := newTestDB(t)
	conn.Logger = newQueryLogger(logg, time.Nanosecond)

	if err := conn.Create(&testModel{Name: "secret-name", Email: "slow@x.co"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "db.slow_query") {
		t.Fatalf("expected slow query log, got %s", out)
	}
	if strings.Contains(out, "secret-name") || strings.Contains(out, "slow@x.co") {
		t.Fatalf("bound values leaked into log: %s", out)
	}
}

func TestQueryLoggerIgnoresRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	conn := newTestDB(t)
	conn.Logger = newQueryLogger(logg, time.Hour)

	var row testModel
	if err := conn.First(&row, "email = ?", "missing@x.co").Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no log output, got %s", buf.String())
	}
}

func TestPing(t *testing.T) {
	client := NewFromGorm(newTestDB(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestIsUniqueViolationOnSQLite(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&testModel{Name: "first", Email: "dup@x.co"}).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	err := db.Create(&testModel{Name: "second", Email: "dup@x.co"}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(errors.New("other"), "") {
		t.Fatal("unexpected unique violation for unrelated error")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil must not be a unique violation")
	}
}

func TestDialectorForRejectsUnknownDriver(t *testing.T) {
	if _, err := dialectorFor(config.DBConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
	if _, err := dialectorFor(config.DBConfig{Driver: "sqlite", DSN: ":memory:"}); err != nil {
		t.Fatalf("unexpected sqlite error: %v", err)
	}
}
