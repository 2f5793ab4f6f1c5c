package core

// DecryptClient is the off-fleet helper a requester runs after submitting
// a DecryptionRequest: it listens on the partial-decryption transport for
// shares, and once threshold+1 have arrived, reconstructs the plaintext.
//
// Grounded on original_source/fangorn/src/client/crypto.rs's
// DecryptionClient, translated from a single aggregate_decrypt RPC call
// (the original's hackathon-era shortcut) into this repo's push-based
// direct-transport model, where shares stream in from committee members.

import (
	"context"
	"fmt"
)

// DecryptClient accumulates partial decryptions for a single ciphertext
// and reconstructs the plaintext once enough have arrived.
type DecryptClient struct {
	threshold uint32
	ct        *Ciphertext
	shares    []PartialDecryption
}

// NewDecryptClient starts a fresh accumulator for ct.
func NewDecryptClient(ct *Ciphertext, threshold uint32) *DecryptClient {
	return &DecryptClient{threshold: threshold, ct: ct}
}

// Submit records one worker's partial decryption. It returns the
// recovered plaintext once threshold+1 distinct shares have arrived,
// and nil otherwise.
func (d *DecryptClient) Submit(share PartialDecryption) ([]byte, error) {
	for _, existing := range d.shares {
		if existing.Index == share.Index {
			return nil, nil // duplicate share, ignore
		}
	}
	d.shares = append(d.shares, share)
	if uint32(len(d.shares)) < d.threshold+1 {
		return nil, nil
	}
	plaintext, err := AggregateDecrypt(d.shares, d.ct, d.threshold)
	if err != nil {
		return nil, fmt.Errorf("decrypt client: %w", err)
	}
	return plaintext, nil
}

// AwaitPlaintext drains transport's inbox until enough shares have
// arrived to recover the plaintext or ctx is cancelled.
func AwaitPlaintext(ctx context.Context, d *DecryptClient, inbox <-chan PartialDecryptionMessage) ([]byte, error) {
	for {
		select {
		case msg := <-inbox:
			var share G2Point
			if _, err := share.SetBytes(msg.ShareBytes); err != nil {
				continue // malformed share from a misbehaving or stale peer
			}
			plaintext, err := d.Submit(PartialDecryption{Index: msg.Index, Share: share})
			if err != nil {
				return nil, err
			}
			if plaintext != nil {
				return plaintext, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
