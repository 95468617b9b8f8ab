package bookmarks

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestAddListRemove(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	if err := store.Add(ctx, "user-1", "term-1"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Add(ctx, "user-1", "term-2"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	ids, err := store.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 bookmarks, got %v", ids)
	}

	if err := store.Remove(ctx, "user-1", "term-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	ids, err = store.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "term-2" {
		t.Fatalf("expected [term-2], got %v", ids)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := store.Add(ctx, "user-1", "term-1"); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	ids, err := store.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 bookmark, got %v", ids)
	}
}

func TestBookmarksAreScopedPerUser(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Add(ctx, "user-1", "term-1"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	has, err := store.Has(ctx, "user-2", "term-1")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if has {
		t.Fatalf("user-2 should not see user-1 bookmarks")
	}

	ids, err := store.List(ctx, "user-2")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no bookmarks for user-2, got %v", ids)
	}
}

func TestRemoveAbsentIsNoOp(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	if err := store.Remove(context.Background(), "user-1", "never-added"); err != nil {
		t.Fatalf("Remove of absent bookmark should not fail: %v", err)
	}
}
