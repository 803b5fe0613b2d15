package db

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/procurement-backend/pkg/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
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

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestDialectorForSelectsDriver(t *testing.T) {
	cfg := config.DBConfig{DSN: "file::memory:"}
	if got := dialectorFor(cfg, true).Name(); got != "sqlite" {
		t.Fatalf("expected sqlite dialector, got %s", got)
	}
	cfg.Driver = "sqlite"
	if got := dialectorFor(cfg, false).Name(); got != "sqlite" {
		t.Fatalf("expected sqlite dialector from driver name, got %s", got)
	}
	cfg = config.DBConfig{DSN: "postgres://u@localhost/db", Driver: "postgres"}
	if got := dialectorFor(cfg, false).Name(); got != "postgres" {
		t.Fatalf("expected postgres dialector, got %s", got)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, true, nil); err == nil {
		t.Fatal("expected missing dsn to fail")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := errors.New(`ERROR: duplicate key value violates unique constraint "ux_target_rates_item_unit"`)
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected generic duplicate detection")
	}
	if !IsUniqueViolation(err, "ux_target_rates_item_unit") {
		t.Fatal("expected constraint match")
	}
	if IsUniqueViolation(err, "other_constraint") || IsUniqueViolation(nil, "") {
		t.Fatal("unexpected match")
	}
}
