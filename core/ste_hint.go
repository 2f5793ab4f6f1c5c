package core

// A Hint is a single worker's public key under the CRS, indexed by its
// committee slot (spec §3). KeyPair is the corresponding secret material a
// worker holds locally and never publishes.

import "fmt"

// KeyPair is a worker's local secret share and its public hint.
type KeyPair struct {
	Index uint32
	SK    Scalar
	PK    G1Point
}

// RandKeyPair samples a fresh secret share for the given committee slot.
func RandKeyPair(index uint32) (*KeyPair, error) {
	sk, err := RandomScalar()
	if err != nil {
		return nil, fmt.Errorf("ste: sample secret share: %w", err)
	}
	return &KeyPair{Index: index, SK: sk, PK: ScalarMulG1(sk)}, nil
}

// Hint is the published, public half of a KeyPair.
type Hint struct {
	Index uint32
	PK    G1Point
}

// Hint extracts the publishable hint from a key pair.
func (kp *KeyPair) Hint() Hint {
	return Hint{Index: kp.Index, PK: kp.PK}
}

// Bytes serializes the hint's public key in compressed form, the wire
// payload of a TagHint Announcement (spec §4.1).
func (h Hint) Bytes() []byte {
	b := h.PK.Bytes()
	return b[:]
}

// HintFromBytes parses a hint's public-key bytes; the slot index is not
// carried in the payload (it comes from the doc key, the decimal slot
// index per spec §6) so the caller must supply it.
func HintFromBytes(index uint32, raw []byte) (Hint, error) {
	var pk G1Point
	if _, err := pk.SetBytes(raw); err != nil {
		return Hint{}, fmt.Errorf("ste: malformed hint: %w", err)
	}
	return Hint{Index: index, PK: pk}, nil
}
