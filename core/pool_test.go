package core

import (
	"context"
	"testing"
)

func TestMemoryPool_ThresholdSufficiency(t *testing.T) {
	pool := NewMemoryPool(3)
	req := DecryptionRequest{Filename: Filename("f"), WitnessHex: "ab", Location: Location{Address: "addr"}}
	id, err := pool.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := pool.Attest(context.Background(), id, 0); err != nil {
		t.Fatalf("attest 0: %v", err)
	}
	if err := pool.Attest(context.Background(), id, 1); err != nil {
		t.Fatalf("attest 1: %v", err)
	}
	if state, _ := pool.State(context.Background(), id); state != RequestCollecting {
		t.Fatalf("expected collecting after 2 attestations, got %s", state)
	}

	if err := pool.Attest(context.Background(), id, 2); err != nil {
		t.Fatalf("attest 2: %v", err)
	}
	state, err := pool.State(context.Background(), id)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state != RequestFulfilled {
		t.Fatalf("expected fulfilled after 3 attestations, got %s", state)
	}

	if err := pool.Attest(context.Background(), id, 3); err != ErrAlreadyFulfilled {
		t.Fatalf("expected ErrAlreadyFulfilled, got %v", err)
	}
}

func TestMemoryPool_DuplicateAttestation(t *testing.T) {
	pool := NewMemoryPool(3)
	req := DecryptionRequest{Filename: Filename("f"), WitnessHex: "ab", Location: Location{Address: "addr"}}
	id, _ := pool.Submit(context.Background(), req)

	if err := pool.Attest(context.Background(), id, 0); err != nil {
		t.Fatalf("attest: %v", err)
	}
	if err := pool.Attest(context.Background(), id, 0); err != ErrAlreadyAttested {
		t.Fatalf("expected ErrAlreadyAttested, got %v", err)
	}
}

func TestMemoryPool_DuplicateSubmit(t *testing.T) {
	pool := NewMemoryPool(3)
	req := DecryptionRequest{Filename: Filename("f"), WitnessHex: "ab", Location: Location{Address: "addr"}}
	if _, err := pool.Submit(context.Background(), req); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := pool.Submit(context.Background(), req); err != ErrRequestAlreadyExists {
		t.Fatalf("expected ErrRequestAlreadyExists, got %v", err)
	}
}

func TestMemoryPool_ListPendingExcludesFulfilled(t *testing.T) {
	pool := NewMemoryPool(1)
	req := DecryptionRequest{Filename: Filename("f"), WitnessHex: "ab", Location: Location{Address: "addr"}}
	id, _ := pool.Submit(context.Background(), req)

	pending, err := pool.ListPending(context.Background())
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected 1 pending request, got %d (err=%v)", len(pending), err)
	}

	if err := pool.Attest(context.Background(), id, 0); err != nil {
		t.Fatalf("attest: %v", err)
	}
	pending, err = pool.ListPending(context.Background())
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected no pending requests once fulfilled, got %d (err=%v)", len(pending), err)
	}
}
