package core

// EncryptClient is the off-fleet helper an encryptor runs: it reads the
// committee's published Config, calls a worker's /preprocess RPC for
// the current aggregate encryption key, and seals a document locally
// before the caller pins it to the doc layer and registers its intent.
//
// Grounded on original_source/fangorn/src/client/crypto.rs's
// EncryptionClient, translated from its tonic RPC client to a plain
// net/http client against rpc_server.go's /preprocess endpoint.

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// EncryptClient seals plaintext documents against a committee's current
// encryption key.
type EncryptClient struct {
	config       *Config
	nodeEndpoint string
	httpClient   *http.Client
}

// NewEncryptClient loads the committee config from disk and targets the
// given worker's RPC endpoint for preprocessing.
func NewEncryptClient(configPath, nodeEndpoint string) (*EncryptClient, error) {
	hexBytes, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("encrypt client: read config: %w", err)
	}
	raw, err := hex.DecodeString(string(bytes.TrimSpace(hexBytes)))
	if err != nil {
		return nil, fmt.Errorf("encrypt client: decode config hex: %w", err)
	}
	cfg, err := ConfigFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("encrypt client: %w", err)
	}
	return &EncryptClient{
		config:       cfg,
		nodeEndpoint: nodeEndpoint,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Encrypt seals plaintext for the given qualified subset of committee
// slots, producing a Ciphertext ready for BlobStore storage.
func (c *EncryptClient) Encrypt(ctx context.Context, plaintext []byte, subset []uint32, t uint32) (*Ciphertext, error) {
	ek, err := c.fetchEncryptionKey(ctx, subset)
	if err != nil {
		return nil, err
	}
	ct, err := Encrypt(ek, t, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt client: %w", err)
	}
	return ct, nil
}

func (c *EncryptClient) fetchEncryptionKey(ctx context.Context, subset []uint32) (*AggregateKey, error) {
	body, _ := json.Marshal(preprocessRequest{Subset: subset})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.nodeEndpoint+"/preprocess", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("encrypt client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("encrypt client: preprocess: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("encrypt client: preprocess returned %d", resp.StatusCode)
	}

	var out preprocessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("encrypt client: decode preprocess response: %w", err)
	}
	ekBytes, err := hex.DecodeString(out.HexSystemKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt client: decode system key hex: %w", err)
	}
	var ek G1Point
	if _, err := ek.SetBytes(ekBytes); err != nil {
		return nil, fmt.Errorf("encrypt client: malformed system key: %w", err)
	}
	return &AggregateKey{EncryptionKey: ek}, nil
}
