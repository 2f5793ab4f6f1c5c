package core

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestComputeContentID_Deterministic(t *testing.T) {
	a, err := ComputeContentID([]byte("hello"))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	b, err := ComputeContentID([]byte("hello"))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if a != b {
		t.Fatalf("content id not deterministic: %s != %s", a, b)
	}

	c, err := ComputeContentID([]byte("world"))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if a == c {
		t.Fatalf("distinct payloads collided on content id %s", a)
	}
}

func TestBlobStore_PutGet(t *testing.T) {
	dir := t.TempDir()
	bs, err := NewBlobStore(dir, 0, logrus.New())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	data := []byte("ciphertext bytes")
	id, err := bs.Put(data)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !bs.Has(id) {
		t.Fatalf("expected store to report id present")
	}

	got, err := bs.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("roundtrip mismatch: got %q want %q", got, data)
	}
}

func TestBlobStore_GetMissing(t *testing.T) {
	dir := t.TempDir()
	bs, err := NewBlobStore(dir, 0, logrus.New())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := bs.Get(ContentID("bafkqaaa")); err != ErrCiphertextNotFound {
		t.Fatalf("expected ErrCiphertextNotFound, got %v", err)
	}
}

func TestBlobStore_EvictsOldestWhenFull(t *testing.T) {
	dir := t.TempDir()
	bs, err := NewBlobStore(dir, 1, logrus.New())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	first, err := bs.Put([]byte("first"))
	if err != nil {
		t.Fatalf("put first: %v", err)
	}
	if _, err := bs.Put([]byte("second")); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if bs.Has(first) {
		t.Fatalf("expected first entry to be evicted once cache is at capacity")
	}
}
