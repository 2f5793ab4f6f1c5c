package core

// Ciphertext is the payload spec §3 calls out: a pairing-bound envelope
// that only a threshold-qualified set of partial decryptions can open.
// Grounded on the teacher's core/security.go AEAD-adjacent sealing style
// (struct-returning constructors, wrapped errors) and on golang.org/x/crypto
// for the symmetric layer, the same module the teacher already pulls in
// for its signature math.

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// DefaultPolicyT is the policy knob spec §4.9 calls t: a per-ciphertext
// tag carried in Ciphertext.T and its encoding. Decryption does not read
// or check it. Deployments that don't need per-document policy
// differentiation can leave it at the default.
const DefaultPolicyT = 1

// Ciphertext is the wire/storage form of an encrypted document, spec
// §3's Ciphertext{gamma_g2, t, payload}.
type Ciphertext struct {
	GammaG2 G2Point
	T       uint32
	Payload []byte // nonce || AEAD-sealed plaintext
}

// PartialDecryption is a single worker's contribution toward opening a
// Ciphertext, spec §3.
type PartialDecryption struct {
	Index uint32
	Share G2Point
}

// ZeroPartialDecryption returns the identity contribution spec §4.10
// uses to fill slots a worker didn't hear back from before assembling
// the selector-masked aggregate.
func ZeroPartialDecryption(index uint32) PartialDecryption {
	return PartialDecryption{Index: index, Share: G2Point{}}
}

// Encrypt seals msg under the committee's current aggregate encryption
// key. gamma is the SHA2-256 digest of msg mapped onto G2 and bound into
// the ciphertext; it is also the value each worker's PartialDecrypt
// operates on.
func Encrypt(ek *AggregateKey, t uint32, msg []byte) (*Ciphertext, error) {
	digest := sha256Sum(msg)
	gamma, err := HashToCurveG2(digest[:], "encrypt-gamma")
	if err != nil {
		return nil, fmt.Errorf("ste: derive gamma: %w", err)
	}

	shared, err := Pair(ek.EncryptionKey, gamma)
	if err != nil {
		return nil, fmt.Errorf("ste: encapsulate shared secret: %w", err)
	}
	aead, err := aeadFromSharedSecret(shared)
	if err != nil {
		return nil, fmt.Errorf("ste: derive AEAD cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("ste: sample nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, msg, nil)

	payload := make([]byte, 0, len(nonce)+len(sealed))
	payload = append(payload, nonce...)
	payload = append(payload, sealed...)

	return &Ciphertext{GammaG2: gamma, T: t, Payload: payload}, nil
}

// PartialDecrypt produces kp's contribution toward opening ct.
func (kp *KeyPair) PartialDecrypt(ct *Ciphertext) PartialDecryption {
	return PartialDecryption{Index: kp.Index, Share: scalarMulG2Point(ct.GammaG2, kp.SK)}
}

// AggregateDecrypt combines threshold-qualified partial decryptions and
// opens ct. shares must include at least threshold+1 non-zero entries;
// zero-valued shares (see ZeroPartialDecryption) are skipped, which is
// equivalent to weighting a zero share by any Lagrange coefficient.
func AggregateDecrypt(shares []PartialDecryption, ct *Ciphertext, threshold uint32) ([]byte, error) {
	var indices []uint32
	var nonZero []PartialDecryption
	for _, s := range shares {
		if isZeroG2(s.Share) {
			continue
		}
		indices = append(indices, s.Index)
		nonZero = append(nonZero, s)
	}
	if uint32(len(nonZero)) < threshold+1 {
		return nil, fmt.Errorf("ste: only %d non-zero partial decryptions, need threshold+1 (%d)", len(nonZero), threshold+1)
	}

	coeffs := lagrangeAtZero(indices)
	var combined G2Point
	for i, s := range nonZero {
		term := scalarMulG2Point(s.Share, coeffs[i])
		if i == 0 {
			combined = term
		} else {
			combined.Add(&combined, &term)
		}
	}

	g1gen, _ := generators()
	shared, err := Pair(g1gen, combined)
	if err != nil {
		return nil, fmt.Errorf("ste: reconstruct shared secret: %w", err)
	}
	aead, err := aeadFromSharedSecret(shared)
	if err != nil {
		return nil, fmt.Errorf("ste: derive AEAD cipher: %w", err)
	}

	if len(ct.Payload) < aead.NonceSize() {
		return nil, ErrMalformedStatement
	}
	nonce := ct.Payload[:aead.NonceSize()]
	sealed := ct.Payload[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	return plaintext, nil
}

func aeadFromSharedSecret(shared GTElement) (cipher.AEAD, error) {
	raw := shared.Bytes()
	key := sha256Sum(raw[:])
	return chacha20poly1305.New(key[:])
}

func isZeroG2(p G2Point) bool {
	var zero G2Point
	return p.Equal(&zero)
}

// encodeCiphertext serializes a Ciphertext for BlobStore storage:
// gamma_g2 (96 bytes) || t (4 bytes, big-endian) || payload.
func encodeCiphertext(ct *Ciphertext) []byte {
	gamma := ct.GammaG2.Bytes()
	out := make([]byte, 0, 96+4+len(ct.Payload))
	out = append(out, gamma[:]...)
	var tBuf [4]byte
	tBuf[0] = byte(ct.T >> 24)
	tBuf[1] = byte(ct.T >> 16)
	tBuf[2] = byte(ct.T >> 8)
	tBuf[3] = byte(ct.T)
	out = append(out, tBuf[:]...)
	out = append(out, ct.Payload...)
	return out
}

func decodeCiphertext(raw []byte) (*Ciphertext, error) {
	if len(raw) < 96+4 {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrMalformedStatement)
	}
	var gamma G2Point
	var gammaBuf [96]byte
	copy(gammaBuf[:], raw[:96])
	if _, err := gamma.SetBytes(gammaBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: gamma_g2: %v", ErrMalformedStatement, err)
	}
	t := uint32(raw[96])<<24 | uint32(raw[97])<<16 | uint32(raw[98])<<8 | uint32(raw[99])
	payload := make([]byte, len(raw)-100)
	copy(payload, raw[100:])
	return &Ciphertext{GammaG2: gamma, T: t, Payload: payload}, nil
}
