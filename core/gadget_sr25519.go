package core

// Sr25519Gadget: satisfied by a valid signature, by the account committed
// at encryption time, over a message the witness itself carries. The
// message is not compared with the request's filename or any ledger
// nonce.
//
// Open question resolution (see DESIGN.md): spec.md names sr25519
// (Schnorrkel) as the signature scheme, but no sr25519/Schnorrkel
// implementation exists anywhere in the retrieval pack. This gadget
// substitutes github.com/decred/dcrd/dcrec/secp256k1/v4's Schnorr
// verifier (already an indirect dependency of the teacher repo) behind
// the identical Gadget interface, so swapping in a real sr25519 library
// later touches only this file.

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// Sr25519Gadget implements Gadget for "Sr25519" intents. intent.Data is
// the 33-byte compressed public key expected to sign the witness.
type Sr25519Gadget struct{}

func (Sr25519Gadget) TypeID() string { return "Sr25519" }

// BuildSr25519Intent commits to the signer's compressed public key.
func BuildSr25519Intent(pubKey *secp256k1.PublicKey) Intent {
	return Intent{TypeID: "Sr25519", Data: pubKey.SerializeCompressed()}
}

// ParseIntentData reads raw as a hex-encoded compressed public key, the
// signer committed at encryption time.
func (Sr25519Gadget) ParseIntentData(raw string) ([]byte, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	pubBytes, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("sr25519 gadget: malformed public key hex: %w", err)
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("sr25519 gadget: malformed public key: %w", err)
	}
	return pub.SerializeCompressed(), nil
}

// Verify checks that witness is a 64-byte Schnorr signature followed by
// the signed message, and that the signature over that message verifies
// under the committed public key. Any message is accepted; it is not
// checked against the filename or a nonce.
func (Sr25519Gadget) Verify(_ context.Context, intent Intent, witness []byte) error {
	pub, err := secp256k1.ParsePubKey(intent.Data)
	if err != nil {
		return fmt.Errorf("sr25519 gadget: malformed public key: %w", err)
	}
	if len(witness) < 64 {
		return fmt.Errorf("%w: sr25519 witness too short", ErrMalformedWitness)
	}
	sigBytes, msg := witness[:64], witness[64:]
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("sr25519 gadget: malformed signature: %w", err)
	}
	if !sig.Verify(msg, pub) {
		return ErrVerificationFailed
	}
	return nil
}
