package core

// RequestPool is the worker-facing view of the on-chain request-pool
// contract: where a client submits a DecryptionRequest and where workers
// record their attestations (spec §3, §4.6-4.8).

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// RequestState tracks a DecryptionRequest's progress toward fulfillment.
type RequestState int

const (
	RequestPending RequestState = iota
	RequestCollecting
	RequestFulfilled
)

func (s RequestState) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestCollecting:
		return "collecting"
	case RequestFulfilled:
		return "fulfilled"
	default:
		return "unknown"
	}
}

// ID derives the request's content-addressed identifier: sha2-256 of its
// encoded form, per spec §3.
func (r DecryptionRequest) ID() [32]byte {
	return sha256.Sum256(r.encode())
}

func (r DecryptionRequest) encode() []byte {
	out := make([]byte, 0, len(r.Filename)+len(r.WitnessHex)+len(r.Location.PeerID)+len(r.Location.Address)+8)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(r.Filename)))
	out = append(out, lenBuf[:]...)
	out = append(out, r.Filename...)
	out = append(out, []byte(r.WitnessHex)...)
	out = append(out, []byte(r.Location.PeerID)...)
	out = append(out, []byte(r.Location.Address)...)
	return out
}

var (
	selSubmitRequest = MethodSelector("submit_request(bytes)")
	selAttest        = MethodSelector("attest(bytes32,bytes32)")
	selRequestState  = MethodSelector("request_state(bytes32)")
)

// defaultRequestPoolContract names the contract MemoryLedger-backed
// tests and single-host deployments address by; real deployments pass
// their deployed contract address into NewLedgerPool instead.
const defaultRequestPoolContract = "request_pool"

// RequestPool is the worker-facing contract surface for decryption
// requests.
type RequestPool interface {
	Submit(ctx context.Context, req DecryptionRequest) ([32]byte, error)
	Attest(ctx context.Context, reqID [32]byte, workerIndex uint32) error
	State(ctx context.Context, reqID [32]byte) (RequestState, error)
}

// LedgerPool implements RequestPool against the deployed contract.
type LedgerPool struct {
	ledger   Ledger
	contract string
}

// NewLedgerPool wires a RequestPool to the given chain backend and
// contract address. An empty address falls back to the deployment-local
// default name.
func NewLedgerPool(l Ledger, contract string) *LedgerPool {
	if contract == "" {
		contract = defaultRequestPoolContract
	}
	return &LedgerPool{ledger: l, contract: contract}
}

func (p *LedgerPool) Submit(ctx context.Context, req DecryptionRequest) ([32]byte, error) {
	id := req.ID()
	if _, err := p.ledger.Exec(ctx, p.contract, selSubmitRequest, req.encode()); err != nil {
		return id, fmt.Errorf("%w: %v", ErrRequestAlreadyExists, err)
	}
	return id, nil
}

func (p *LedgerPool) Attest(ctx context.Context, reqID [32]byte, workerIndex uint32) error {
	var idxBuf [32]byte
	binary.BigEndian.PutUint32(idxBuf[28:], workerIndex)
	args := append(append([]byte{}, reqID[:]...), idxBuf[:]...)
	if _, err := p.ledger.Exec(ctx, p.contract, selAttest, args); err != nil {
		return fmt.Errorf("%w: %v", ErrAlreadyAttested, err)
	}
	return nil
}

func (p *LedgerPool) State(ctx context.Context, reqID [32]byte) (RequestState, error) {
	raw, err := p.ledger.Query(ctx, p.contract, selRequestState, reqID[:])
	if err != nil {
		return 0, fmt.Errorf("request pool: query state: %w", err)
	}
	if len(raw) != 1 {
		return 0, fmt.Errorf("request pool: unexpected state encoding (%d bytes)", len(raw))
	}
	return RequestState(raw[0]), nil
}

// MemoryPool is an in-process RequestPool for tests.
type MemoryPool struct {
	requests  map[[32]byte]DecryptionRequest
	states    map[[32]byte]RequestState
	attested  map[[32]byte]map[uint32]bool
	threshold uint32
}

// NewMemoryPool returns an empty in-memory pool that finalizes a
// request once it has collected `threshold` distinct-worker
// attestations (spec §4.5/§6's THRESHOLD).
func NewMemoryPool(threshold uint32) *MemoryPool {
	return &MemoryPool{
		requests:  make(map[[32]byte]DecryptionRequest),
		states:    make(map[[32]byte]RequestState),
		attested:  make(map[[32]byte]map[uint32]bool),
		threshold: threshold,
	}
}

func (m *MemoryPool) Submit(_ context.Context, req DecryptionRequest) ([32]byte, error) {
	id := req.ID()
	if _, ok := m.requests[id]; ok {
		return id, ErrRequestAlreadyExists
	}
	m.requests[id] = req
	m.states[id] = RequestPending
	m.attested[id] = map[uint32]bool{}
	return id, nil
}

func (m *MemoryPool) Attest(_ context.Context, reqID [32]byte, workerIndex uint32) error {
	att, ok := m.attested[reqID]
	if !ok {
		return ErrFilenameNotFound
	}
	if m.states[reqID] == RequestFulfilled {
		return ErrAlreadyFulfilled
	}
	if att[workerIndex] {
		return ErrAlreadyAttested
	}
	att[workerIndex] = true
	if m.states[reqID] == RequestPending {
		m.states[reqID] = RequestCollecting
	}
	if uint32(len(att)) >= m.threshold {
		m.states[reqID] = RequestFulfilled
	}
	return nil
}

func (m *MemoryPool) State(_ context.Context, reqID [32]byte) (RequestState, error) {
	s, ok := m.states[reqID]
	if !ok {
		return 0, ErrFilenameNotFound
	}
	return s, nil
}

// ListPending returns every request not yet fulfilled, satisfying the
// listable interface PoolWatcher polls.
func (m *MemoryPool) ListPending(_ context.Context) ([]DecryptionRequest, error) {
	out := make([]DecryptionRequest, 0, len(m.requests))
	for id, req := range m.requests {
		if m.states[id] != RequestFulfilled {
			out = append(out, req)
		}
	}
	return out, nil
}
