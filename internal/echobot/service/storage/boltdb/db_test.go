package boltdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kiosk404/echobot/internal/echobot/service/storage"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "echobot.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestKVNamespaces(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	if _, ok, err := db.Get(ctx, "counter", "alice"); ok || err != nil {
		t.Fatalf("Get on missing namespace = %v, %v", ok, err)
	}
	for _, k := range []string{"bob", "alice"} {
		if err := db.Set(ctx, "counter", k, []byte(k+"!")); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if err := db.Set(ctx, "other", "alice", []byte("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok, err := db.Get(ctx, "counter", "alice")
	if err != nil || !ok || string(v) != "alice!" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	keys, err := db.Keys(ctx, "counter")
	if err != nil || len(keys) != 2 || keys[0] != "alice" || keys[1] != "bob" {
		t.Fatalf("Keys = %v, %v", keys, err)
	}

	if err := db.Delete(ctx, "counter", "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := db.Get(ctx, "counter", "alice"); ok {
		t.Error("alice still present")
	}
	ns, err := db.Namespaces()
	if err != nil || len(ns) != 2 {
		t.Errorf("Namespaces = %v, %v", ns, err)
	}
	if err := db.Set(ctx, "", "k", nil); !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("empty namespace err = %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	type score struct {
		Wins   int `json:"wins"`
		Losses int `json:"losses"`
	}
	if err := storage.SetJSON(ctx, db, "guess", "user:1", score{Wins: 3, Losses: 1}); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var got score
	ok, err := storage.GetJSON(ctx, db, "guess", "user:1", &got)
	if err != nil || !ok || got.Wins != 3 || got.Losses != 1 {
		t.Fatalf("GetJSON = %+v, %v, %v", got, ok, err)
	}
	if ok, err := storage.GetJSON(ctx, db, "guess", "user:2", &got); ok || err != nil {
		t.Errorf("missing key = %v, %v", ok, err)
	}
}
