package core

// Ledger is the worker's view of the on-chain predicate-registry and
// request-pool contracts. Spec §3/§6 describe these as Substrate ink!
// contracts reached over RPC; HTTPLedger speaks JSON-RPC to a node the
// way the teacher's cmd/cli Controllers speak to the Synnergy chain.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Ledger abstracts contract calls so gadgets, the intent store and the
// request pool can be tested against MemoryLedger without a live chain.
type Ledger interface {
	// Query performs a read-only contract call.
	Query(ctx context.Context, contract string, selector Selector, args []byte) ([]byte, error)
	// Exec submits a state-changing contract call and returns the
	// transaction's return data once included.
	Exec(ctx context.Context, contract string, selector Selector, args []byte) ([]byte, error)
}

// HTTPLedger implements Ledger over a node's JSON-RPC endpoint.
type HTTPLedger struct {
	endpoint string
	client   *http.Client
	logger   *logrus.Logger
}

// NewHTTPLedger wires a Ledger to a node's RPC endpoint.
func NewHTTPLedger(endpoint string, timeout time.Duration, lg *logrus.Logger) *HTTPLedger {
	return &HTTPLedger{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   lg,
	}
}

type rpcCallRequest struct {
	Contract string `json:"contract"`
	Selector string `json:"selector"`
	Args     []byte `json:"args"`
	Mutating bool   `json:"mutating"`
}

type rpcCallResponse struct {
	Result []byte `json:"result"`
	Error  string `json:"error,omitempty"`
}

func (l *HTTPLedger) call(ctx context.Context, contract string, sel Selector, args []byte, mutating bool) ([]byte, error) {
	reqBody, err := json.Marshal(rpcCallRequest{
		Contract: contract,
		Selector: fmt.Sprintf("%x", sel),
		Args:     args,
		Mutating: mutating,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("ledger: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	defer resp.Body.Close()

	var out rpcCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ledger: decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ledger: contract %s: %s", contract, out.Error)
	}
	return out.Result, nil
}

func (l *HTTPLedger) Query(ctx context.Context, contract string, sel Selector, args []byte) ([]byte, error) {
	return l.call(ctx, contract, sel, args, false)
}

func (l *HTTPLedger) Exec(ctx context.Context, contract string, sel Selector, args []byte) ([]byte, error) {
	l.logger.Debugf("ledger: exec %s on %s", sel, contract)
	return l.call(ctx, contract, sel, args, true)
}

// MemoryLedger is an in-process Ledger stub for tests, grounded on the
// teacher's tests/storage_test.go stubLedger pattern.
type MemoryLedger struct {
	state map[string][]byte
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{state: make(map[string][]byte)}
}

func (m *MemoryLedger) key(contract string, sel Selector) string {
	return contract + ":" + string(sel[:])
}

// Set installs a canned response a test expects Query/Exec to return
// for a given contract+selector pair.
func (m *MemoryLedger) Set(contract string, sel Selector, value []byte) {
	m.state[m.key(contract, sel)] = value
}

func (m *MemoryLedger) Query(_ context.Context, contract string, sel Selector, _ []byte) ([]byte, error) {
	v, ok := m.state[m.key(contract, sel)]
	if !ok {
		return nil, ErrIntentNotFound
	}
	return v, nil
}

func (m *MemoryLedger) Exec(_ context.Context, contract string, sel Selector, args []byte) ([]byte, error) {
	m.state[m.key(contract, sel)] = args
	return args, nil
}
