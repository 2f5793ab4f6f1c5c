package core

// SystemPublicKey aggregation. Spec §3: "the aggregation of all
// currently-known hints using the CRS and lag_polys, parameterized by
// threshold k... ek = aggregate(subset, crs, lag_polys) for any subset of
// size k+1."
//
// Implementation note (see DESIGN.md "cryptographic scheme
// simplification"): this repo does not re-derive the quotient-polynomial
// hint structure of the published silent-setup threshold encryption
// constructions. It implements the literal aggregation formula spec.md
// names — Lagrange-at-zero interpolation over a chosen subset of hints —
// which is exact when the contributing secret shares are genuine
// degree-threshold Shamir shares of a common secret. The public surface
// (SystemPublicKey, AggregateKey, PartialDecryption, a threshold-taking
// AggregateDecrypt with no selector vector) is what callers depend on, so
// a fully silent construction can replace it behind that surface.

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
)

// SystemPublicKey is the committee-wide aggregated key. It is immutable;
// WithHint returns an updated copy so concurrent readers never observe a
// partially-updated hint set (spec §5: the state mutex never guards this
// computation directly, only the slice it is computed from).
type SystemPublicKey struct {
	Threshold uint32
	Hints     map[uint32]Hint
}

// NewSystemPublicKey starts an empty aggregation for the given threshold.
func NewSystemPublicKey(threshold uint32) *SystemPublicKey {
	return &SystemPublicKey{Threshold: threshold, Hints: map[uint32]Hint{}}
}

// WithHint returns a new SystemPublicKey with h merged in (last writer
// wins per slot index, matching the doc-layer semantics spec §3 assigns
// to duplicate slot publication).
func (s *SystemPublicKey) WithHint(h Hint) *SystemPublicKey {
	next := &SystemPublicKey{Threshold: s.Threshold, Hints: make(map[uint32]Hint, len(s.Hints)+1)}
	for k, v := range s.Hints {
		next.Hints[k] = v
	}
	next.Hints[h.Index] = h
	return next
}

// SortedIndices returns the currently-known hint slot indices, ascending.
func (s *SystemPublicKey) SortedIndices() []uint32 {
	idx := make([]uint32, 0, len(s.Hints))
	for i := range s.Hints {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a] < idx[b] })
	return idx
}

// Digest hashes the serialized, index-sorted hint set, giving workers a
// cheap way to confirm they converged on the same hint set (spec §8,
// property 6: "all honest workers observe the same system-keys entry").
func (s *SystemPublicKey) Digest() [32]byte {
	buf := make([]byte, 0, len(s.Hints)*52)
	for _, idx := range s.SortedIndices() {
		h := s.Hints[idx]
		b := h.Bytes()
		buf = append(buf, b...)
	}
	return sha256Sum(buf)
}

// Bytes serializes the full known hint set, the wire payload of the
// `sys-keys-` reserved doc entry (spec §6): threshold || count || for
// each hint, sorted by slot: index || compressed pubkey. Republishing the
// whole set (rather than a single precomputed point) lets any recipient
// aggregate an arbitrary subset later, matching spec §3's "ek =
// aggregate(subset, crs, lag_polys) for any subset of size k+1".
func (s *SystemPublicKey) Bytes() []byte {
	idx := s.SortedIndices()
	out := make([]byte, 8, 8+len(idx)*(4+48))
	binary.BigEndian.PutUint32(out[0:4], s.Threshold)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(idx)))
	for _, i := range idx {
		var hdr [4]byte
		binary.BigEndian.PutUint32(hdr[:], i)
		out = append(out, hdr[:]...)
		out = append(out, s.Hints[i].Bytes()...)
	}
	return out
}

// SystemPublicKeyFromBytes is the inverse of Bytes, the decode half of the
// `TagSystemKeys` announcement (spec §4.2).
func SystemPublicKeyFromBytes(raw []byte) (*SystemPublicKey, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("ste: system-keys entry too short")
	}
	threshold := binary.BigEndian.Uint32(raw[0:4])
	count := binary.BigEndian.Uint32(raw[4:8])
	out := NewSystemPublicKey(threshold)
	rest := raw[8:]
	for i := uint32(0); i < count; i++ {
		if len(rest) < 4 {
			return nil, fmt.Errorf("ste: system-keys entry truncated at hint %d", i)
		}
		slot := binary.BigEndian.Uint32(rest[0:4])
		rest = rest[4:]
		pkLen := g1PointByteLen
		if len(rest) < pkLen {
			return nil, fmt.Errorf("ste: system-keys entry truncated at hint %d pubkey", i)
		}
		hint, err := HintFromBytes(slot, rest[:pkLen])
		if err != nil {
			return nil, fmt.Errorf("ste: system-keys entry hint %d: %w", i, err)
		}
		rest = rest[pkLen:]
		out.Hints[slot] = hint
	}
	return out, nil
}

// AggregateKey is the encryption-side key derived from a qualified
// subset of hints, spec §3's "ek".
type AggregateKey struct {
	EncryptionKey G1Point
}

// Aggregate combines the hints at the given slot indices via
// Lagrange-at-zero interpolation, the ek named in spec §3/§4.9. Any
// threshold+1-sized subset of a consistent secret-sharing reconstructs
// the same key.
func (s *SystemPublicKey) Aggregate(subset []uint32) (*AggregateKey, error) {
	if uint32(len(subset)) < s.Threshold+1 {
		return nil, fmt.Errorf("ste: subset of %d hints is below threshold+1 (%d)", len(subset), s.Threshold+1)
	}
	hints := make([]Hint, len(subset))
	for i, idx := range subset {
		h, ok := s.Hints[idx]
		if !ok {
			return nil, fmt.Errorf("ste: hint for slot %d not known locally", idx)
		}
		hints[i] = h
	}
	coeffs := lagrangeAtZero(subset)

	var acc G1Point
	for i, h := range hints {
		term := scalarMulG1Point(h.PK, coeffs[i])
		if i == 0 {
			acc = term
		} else {
			acc.Add(&acc, &term)
		}
	}
	return &AggregateKey{EncryptionKey: acc}, nil
}

// lagrangeAtZero computes, for each index in xs, the Lagrange coefficient
// L_i(0) = prod_{j != i} (-x_j) / (x_i - x_j), the weight that
// reconstructs a degree-(len(xs)-1) polynomial's value at 0 from its
// evaluations at xs.
func lagrangeAtZero(xs []uint32) []Scalar {
	points := make([]Scalar, len(xs))
	for i, x := range xs {
		points[i].SetUint64(uint64(x) + 1) // +1: slots start at 0, and x=0 would coincide with the point 0 being evaluated
	}

	out := make([]Scalar, len(xs))
	for i := range points {
		var num, den Scalar
		num.SetOne()
		den.SetOne()
		for j := range points {
			if i == j {
				continue
			}
			var negXj Scalar
			negXj.Neg(&points[j])
			num.Mul(&num, &negXj)

			var diff Scalar
			diff.Sub(&points[i], &points[j])
			den.Mul(&den, &diff)
		}
		var denInv Scalar
		denInv.Inverse(&den)
		out[i].Mul(&num, &denInv)
	}
	return out
}

func scalarMulG1Point(p G1Point, s Scalar) G1Point {
	var sBig big.Int
	s.BigInt(&sBig)
	var out G1Point
	out.ScalarMultiplication(&p, &sBig)
	return out
}

func scalarMulG2Point(p G2Point, s Scalar) G2Point {
	var sBig big.Int
	s.BigInt(&sBig)
	var out G2Point
	out.ScalarMultiplication(&p, &sBig)
	return out
}
