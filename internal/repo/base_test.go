package repo

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type keyedRow struct {
	Key   string `gorm:"primaryKey"`
	Value int
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&keyedRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}

	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestCreateOnceSkipsExistingKey(t *testing.T) {
	base := NewBase(newTestDB(t))
	ctx := context.Background()

	created, err := base.CreateOnce(ctx, &keyedRow{Key: "a1", Value: 1}, "key")
	if err != nil || !created {
		t.Fatalf("expected first insert to create, got %v %v", created, err)
	}

	created, err = base.CreateOnce(ctx, &keyedRow{Key: "a1", Value: 2}, "key")
	if err != nil {
		t.Fatalf("expected repeat insert to be tolerated, got %v", err)
	}
	if created {
		t.Fatal("expected repeat insert to be skipped")
	}

	var row keyedRow
	if err := base.DB(ctx).First(&row, "key = ?", "a1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if row.Value != 1 {
		t.Fatalf("expected first write to win, got %d", row.Value)
	}
}

func TestDeleteAll(t *testing.T) {
	base := NewBase(newTestDB(t))
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		if _, err := base.CreateOnce(ctx, &keyedRow{Key: key}, "key"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	deleted, err := base.DeleteAll(ctx, &keyedRow{})
	if err != nil || deleted != 3 {
		t.Fatalf("expected 3 deletions, got %d %v", deleted, err)
	}
}

func TestNilConnection(t *testing.T) {
	var base Base
	if _, err := base.CreateOnce(context.Background(), &keyedRow{Key: "x"}, "key"); err == nil {
		t.Fatal("expected nil connection error")
	}
}
