package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStoreFromClient(client, "test:", 0)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return mr, store
}

func TestRedisStore_LoadCreatesDefault(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()

	sess, err := store.Load(ctx, "sess-123")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if sess.ID != "sess-123" {
		t.Errorf("ID mismatch: got %s, want sess-123", sess.ID)
	}
	if sess.Stage != StageUninitiated {
		t.Errorf("Stage mismatch: got %s, want %s", sess.Stage, StageUninitiated)
	}
	if !mr.Exists("test:sess-123") {
		t.Error("default session was not persisted")
	}
	if ttl := mr.TTL("test:sess-123"); ttl != DefaultTTL {
		t.Errorf("TTL mismatch: got %v, want %v", ttl, DefaultTTL)
	}
}

func TestRedisStore_LoadRefreshesTTL(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()

	if _, err := store.Load(ctx, "sess-ttl"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	mr.FastForward(12 * time.Hour)

	if _, err := store.Load(ctx, "sess-ttl"); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if ttl := mr.TTL("test:sess-ttl"); ttl != DefaultTTL {
		t.Errorf("TTL not refreshed: got %v, want %v", ttl, DefaultTTL)
	}
}

func TestRedisStore_ExpiredSessionIsFresh(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "sess-exp", func(s *Session) error {
		s.Stage = StageCollectingTravel
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	mr.FastForward(DefaultTTL + time.Minute)

	sess, err := store.Load(ctx, "sess-exp")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sess.Stage != StageUninitiated {
		t.Errorf("expected fresh session after expiry, got stage %s", sess.Stage)
	}
}

func TestRedisStore_UpdatePersistsMutation(t *testing.T) {
	_, store := setupMiniredis(t)
	ctx := context.Background()

	before := time.Now().UTC()
	sess, err := store.Update(ctx, "sess-upd", func(s *Session) error {
		s.Stage = StageCollectingFamily
		s.Context.Product = ProductFamily
		s.AppendHistory("hello", "hi there")
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if sess.Stage != StageCollectingFamily {
		t.Errorf("returned session stage: got %s, want %s", sess.Stage, StageCollectingFamily)
	}
	if sess.LastActive.Before(before) {
		t.Errorf("LastActive not refreshed: %v", sess.LastActive)
	}

	loaded, err := store.Load(ctx, "sess-upd")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Stage != StageCollectingFamily {
		t.Errorf("persisted stage: got %s, want %s", loaded.Stage, StageCollectingFamily)
	}
	if len(loaded.History) != 2 {
		t.Errorf("persisted history length: got %d, want 2", len(loaded.History))
	}
}

func TestRedisStore_UpdateMutationErrorNotRetried(t *testing.T) {
	_, store := setupMiniredis(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	calls := 0
	_, err := store.Update(ctx, "sess-err", func(s *Session) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected mutation error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("mutation retried %d times, want 1", calls)
	}
}

func TestRedisStore_ConcurrentUpdatesSerialize(t *testing.T) {
	_, store := setupMiniredis(t)
	ctx := context.Background()

	const writers = 5
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "sess-conc", func(s *Session) error {
				s.Context.ErrorCount++
				return nil
			})
			if err != nil {
				t.Errorf("concurrent Update failed: %v", err)
			}
		}()
	}
	wg.Wait()

	sess, err := store.Load(ctx, "sess-conc")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sess.Context.ErrorCount != writers {
		t.Errorf("lost updates: got %d, want %d", sess.Context.ErrorCount, writers)
	}
}

func TestRedisStore_Reset(t *testing.T) {
	_, store := setupMiniredis(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "sess-reset", func(s *Session) error {
		s.Stage = StageReadyToQuote
		s.AppendHistory("msg", "reply")
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	sess, err := store.Reset(ctx, "sess-reset")
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if sess.Stage != StageUninitiated {
		t.Errorf("stage after reset: got %s, want %s", sess.Stage, StageUninitiated)
	}
	if len(sess.History) != 0 {
		t.Errorf("history after reset: got %d entries, want 0", len(sess.History))
	}
}

func TestRedisStore_Closed(t *testing.T) {
	_, store := setupMiniredis(t)
	ctx := context.Background()

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := store.Load(ctx, "x"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
}

func TestSession_HistoryCap(t *testing.T) {
	sess := NewSession("s")
	for i := 0; i < 120; i++ {
		sess.AppendHistory("u", "a")
	}
	if len(sess.History) != 100 {
		t.Errorf("history length: got %d, want 100", len(sess.History))
	}
}
