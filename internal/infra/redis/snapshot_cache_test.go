package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"quizboard/internal/domain"
)

func TestSnapshotCacheRoundTripsThroughRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	cache := NewSnapshotCache(newClient(mr), time.Minute)

	if _, ok := cache.Get(ctx, "apps/a/quizzes"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	cache.Put(ctx, "apps/a/quizzes", []domain.Quiz{{ID: "q1", Title: "Cells", CreatedBy: "u1"}})
	got, ok := cache.Get(ctx, "apps/a/quizzes")
	if !ok || len(got) != 1 || got[0].ID != "q1" || got[0].Title != "Cells" {
		t.Fatalf("expected cached snapshot, got %+v ok=%v", got, ok)
	}
	if ttl := mr.TTL("quiz:snapshot:apps/a/quizzes"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with at most 10%% jitter, got %v", ttl)
	}

	cache.Invalidate(ctx, "apps/a/quizzes")
	if _, ok := cache.Get(ctx, "apps/a/quizzes"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestSnapshotCacheKeepsEmptyList(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	cache := NewSnapshotCache(newClient(mr), time.Minute)
	cache.Put(ctx, "ns", nil)

	got, ok := cache.Get(ctx, "ns")
	if !ok || len(got) != 0 {
		t.Fatalf("expected cached empty list, got %+v ok=%v", got, ok)
	}
}
