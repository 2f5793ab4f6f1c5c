package core

// Announcement authentication helpers: a BLS key that can sign an
// Announcement and a verifier for such signatures. The committee and doc
// layers do not call them; doc entries are published and applied
// unsigned.
//
// Grounded directly on the teacher's core/security.go Sign/Verify/
// AggregateBLSSigs wiring around github.com/herumi/bls-eth-go-binary;
// fangorn only needs single-signer verification (no multi-sig
// aggregation), so this file keeps the init-and-wrap shape and drops the
// aggregation half.

import (
	"fmt"

	bls "github.com/herumi/bls-eth-go-binary/bls"
)

func init() {
	if err := bls.Init(bls.BLS12_381); err != nil {
		panic(fmt.Errorf("announce_sign: bls init: %w", err))
	}
	bls.SetETHmode(bls.EthModeDraft07)
}

// AnnounceKey is a worker's signing identity for the gossip layer,
// distinct from its STE KeyPair.
type AnnounceKey struct {
	sk bls.SecretKey
	pk bls.PublicKey
}

// NewAnnounceKey derives a fresh signing key.
func NewAnnounceKey() *AnnounceKey {
	var sk bls.SecretKey
	sk.SetByCSPRNG()
	return &AnnounceKey{sk: sk, pk: *sk.GetPublicKey()}
}

// PublicKeyBytes returns the compressed public key, published alongside
// a worker's committee slot so peers can verify its announcements.
func (k *AnnounceKey) PublicKeyBytes() []byte {
	return k.pk.Serialize()
}

// Sign authenticates an Announcement's encoded bytes.
func (k *AnnounceKey) Sign(a Announcement) []byte {
	sig := k.sk.SignByte(a.Encode())
	return sig.Serialize()
}

// VerifyAnnouncement checks a signature produced by Sign against the
// publisher's known public key.
func VerifyAnnouncement(a Announcement, sig, pubKey []byte) (bool, error) {
	var pk bls.PublicKey
	if err := pk.Deserialize(pubKey); err != nil {
		return false, fmt.Errorf("announce_sign: malformed public key: %w", err)
	}
	var s bls.Sign
	if err := s.Deserialize(sig); err != nil {
		return false, fmt.Errorf("announce_sign: malformed signature: %w", err)
	}
	return s.VerifyByte(&pk, a.Encode()), nil
}
