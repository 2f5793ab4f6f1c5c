package core

// Crypto primitives facade. Wraps consensys/gnark-crypto's BLS12-381 group
// arithmetic and pairing so the rest of the worker never imports the
// pairing library directly — every other package talks to G1Point,
// G2Point, Scalar and Pair.
//
// Grounded on the teacher's core/security.go BLS wiring (same curve,
// different library surface: security.go uses herumi for signatures, this
// file uses gnark-crypto for the pairing-based STE math the signature
// library doesn't expose) and on other_examples' gnark-crypto bls12-381
// usage pattern (vedenij-small bls dealer, kysee-zk-chains lightclient).

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Scalar is an element of the BLS12-381 scalar field.
type Scalar = fr.Element

// g1PointByteLen is the fixed length of a compressed BLS12-381 G1 point
// (gnark-crypto's G1Affine.Bytes() encoding: 48 bytes, the standard
// zcash/IETF compressed serialization this curve uses), used to frame
// fixed-width hint entries in SystemPublicKey's wire encoding.
const g1PointByteLen = 48

// G1Point and G2Point alias the pairing library's affine point types so
// callers outside this file never need the gnark-crypto import.
type G1Point = bls12381.G1Affine
type G2Point = bls12381.G2Affine
type GTElement = bls12381.GT

// RandomScalar draws a uniform field element using crypto/rand.
func RandomScalar() (Scalar, error) {
	var s Scalar
	if _, err := s.SetRandom(); err != nil {
		return Scalar{}, fmt.Errorf("random scalar: %w", err)
	}
	return s, nil
}

// ScalarMulG1 computes s*G1Generator.
func ScalarMulG1(s Scalar) G1Point {
	_, _, g1gen, _ := bls12381.Generators()
	var sBig big.Int
	s.BigInt(&sBig)
	var out G1Point
	out.ScalarMultiplication(&g1gen, &sBig)
	return out
}

// ScalarMulG2 computes s*G2Generator.
func ScalarMulG2(s Scalar) G2Point {
	_, _, _, g2gen := bls12381.Generators()
	var sBig big.Int
	s.BigInt(&sBig)
	var out G2Point
	out.ScalarMultiplication(&g2gen, &sBig)
	return out
}

// generators exposes the curve's fixed base points to callers in this
// package without importing gnark-crypto directly.
func generators() (G1Point, G2Point) {
	_, _, g1gen, g2gen := bls12381.Generators()
	return g1gen, g2gen
}

// Pair computes the optimal-ate pairing e(p1, p2).
func Pair(p1 G1Point, p2 G2Point) (GTElement, error) {
	return bls12381.Pair([]G1Point{p1}, []G2Point{p2})
}

// HashToCurveG2 maps msg to a point on G2 using the RFC9380 suite
// gnark-crypto implements, domain-separated by dst. Fangorn uses this to
// bind ciphertext randomness to plaintext (spec §4.9): the domain tag is
// always prefixed with the deployment context "fangorn-v1-".
func HashToCurveG2(msg []byte, dst string) (G2Point, error) {
	full := append([]byte("fangorn-v1-"), []byte(dst)...)
	p, err := bls12381.HashToG2(msg, full)
	if err != nil {
		return G2Point{}, fmt.Errorf("hash to curve G2: %w", err)
	}
	return p, nil
}

// RandomBytes returns n cryptographically random bytes, used for
// password-gadget salts.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func sha256Sum(b []byte) [32]byte {
	return sha256.Sum256(b)
}
