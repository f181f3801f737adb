package session

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, Session{UserID: 42, Step: StepAwaitingTokenAddress}); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Step != StepAwaitingTokenAddress || got.UpdatedAt == 0 {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := store.Clear(ctx, 42); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Get(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestMemoryStorePutOverwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, Session{UserID: 1, Step: StepAwaitingTokenAddress}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, Session{UserID: 1, Step: StepAwaitingAmount, TokenMint: "Mint1"}); err != nil {
		t.Fatalf("put overwrite: %v", err)
	}

	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Step != StepAwaitingAmount || got.TokenMint != "Mint1" {
		t.Fatalf("overwrite did not take effect: %+v", got)
	}
}

func TestMemoryStoreRejectsInvalidStep(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Put(context.Background(), Session{UserID: 1, Step: "bogus"}); err == nil {
		t.Fatal("expected error for invalid step")
	}
}

func TestMemoryStoreClearIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Clear(context.Background(), 7); err != nil {
		t.Fatalf("clear on empty store: %v", err)
	}
}
