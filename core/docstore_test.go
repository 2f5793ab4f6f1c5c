package core

import (
	"context"
	"testing"
)

func newTestBlobStore(t *testing.T) *BlobStore {
	t.Helper()
	bs, err := NewBlobStore(t.TempDir(), 0, discardLogger())
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}
	return bs
}

func TestDocumentStore_AddFetchRoundTrip(t *testing.T) {
	ds := NewDocumentStore(NewMemoryDoc(), newTestBlobStore(t))
	ctx := context.Background()

	id, err := ds.Add(ctx, []byte("ciphertext bytes"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := ds.Fetch(ctx, id)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(got) != "ciphertext bytes" {
		t.Fatalf("unexpected fetch result: %q", got)
	}
}

func TestDocumentStore_FetchFallsBackToDoc(t *testing.T) {
	ctx := context.Background()
	doc := NewMemoryDoc()

	// Simulate a different committee member publishing, so this
	// worker's own blob cache never saw a Put for this blob.
	remote := NewDocumentStore(doc, newTestBlobStore(t))
	id, err := remote.Add(ctx, []byte("shared ciphertext"))
	if err != nil {
		t.Fatalf("remote add: %v", err)
	}

	local := NewDocumentStore(doc, newTestBlobStore(t))
	got, err := local.Fetch(ctx, id)
	if err != nil {
		t.Fatalf("local fetch: %v", err)
	}
	if string(got) != "shared ciphertext" {
		t.Fatalf("unexpected fetch result: %q", got)
	}
	// A second fetch should now be served from the now-warm local cache.
	if _, err := local.cache.Get(id); err != nil {
		t.Fatalf("expected fetch to have warmed the local cache: %v", err)
	}
}

func TestDocumentStore_FetchUnknownID(t *testing.T) {
	ds := NewDocumentStore(NewMemoryDoc(), newTestBlobStore(t))
	if _, err := ds.Fetch(context.Background(), ContentID("bafynotreal")); err == nil {
		t.Fatalf("expected error for unknown content id")
	}
}

func TestDocumentStore_RemoveEvictsLocalCache(t *testing.T) {
	ctx := context.Background()
	ds := NewDocumentStore(NewMemoryDoc(), newTestBlobStore(t))
	id, err := ds.Add(ctx, []byte("to be removed"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ds.Remove(ctx, id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ds.cache.Has(id) {
		t.Fatalf("expected local cache to have evicted %s", id)
	}
}
