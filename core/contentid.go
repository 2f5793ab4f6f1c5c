package core

// Content-addressed blob store. Grounded on the teacher's core/storage.go
// diskLRU + CIDv1/multihash wiring — same addressing scheme, trimmed down
// to the local-disk half since fangorn has no IPFS gateway: ciphertext
// blobs are replicated peer-to-peer over the doc layer (docreplica.go),
// not pinned to a remote gateway.

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/sirupsen/logrus"
)

// ContentID is the CIDv1/sha2-256/raw identifier of a blob, the
// "content-addressed identifier" spec §3 assigns to ciphertexts.
type ContentID string

// ComputeContentID derives the content identifier for data without
// storing it.
func ComputeContentID(data []byte) (ContentID, error) {
	digest, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("contentid: hash: %w", err)
	}
	c := cid.NewCidV1(cid.Raw, digest)
	return ContentID(c.String()), nil
}

type cacheEntry struct {
	path string
	at   time.Time
}

const defaultCacheEntries = 10_000

// BlobStore is a local, content-addressed cache of ciphertexts and
// documents keyed by ContentID.
type BlobStore struct {
	mu     sync.Mutex
	dir    string
	max    int
	index  map[ContentID]*cacheEntry
	order  []*cacheEntry
	logger *logrus.Logger
}

// NewBlobStore opens (and creates if absent) a disk-backed blob cache.
func NewBlobStore(dir string, maxEntries int, lg *logrus.Logger) (*BlobStore, error) {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("contentid: create cache dir: %w", err)
	}
	return &BlobStore{
		dir:    dir,
		max:    maxEntries,
		index:  make(map[ContentID]*cacheEntry),
		logger: lg,
	}, nil
}

// Put writes data to the store and returns its content identifier.
func (b *BlobStore) Put(data []byte) (ContentID, error) {
	id, err := ComputeContentID(data)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if ent, ok := b.index[id]; ok {
		ent.at = time.Now()
		return id, nil
	}
	if len(b.index) >= b.max && len(b.order) > 0 {
		oldest := b.order[0]
		_ = os.Remove(oldest.path)
		delete(b.index, ContentID(filepath.Base(oldest.path)))
		b.order = b.order[1:]
	}

	p := filepath.Join(b.dir, string(id))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("contentid: write blob: %w", err)
	}
	ent := &cacheEntry{path: p, at: time.Now()}
	b.index[id] = ent
	b.order = append(b.order, ent)
	b.logger.Debugf("contentid: stored %s (%d bytes)", id, len(data))
	return id, nil
}

// Get fetches a previously-stored blob by content identifier.
func (b *BlobStore) Get(id ContentID) ([]byte, error) {
	b.mu.Lock()
	ent, ok := b.index[id]
	b.mu.Unlock()
	if !ok {
		return nil, ErrCiphertextNotFound
	}
	ent.at = time.Now()
	data, err := os.ReadFile(ent.path)
	if err != nil {
		return nil, fmt.Errorf("contentid: read blob: %w", err)
	}
	return data, nil
}

// Has reports whether id is present without reading its payload.
func (b *BlobStore) Has(id ContentID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.index[id]
	return ok
}

// Evict drops id from the local cache, if present. Best-effort: it never
// reports an error for an already-absent id.
func (b *BlobStore) Evict(id ContentID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ent, ok := b.index[id]
	if !ok {
		return
	}
	_ = os.Remove(ent.path)
	delete(b.index, id)
	for i, e := range b.order {
		if e == ent {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}
