package core

// Committee-wide silent-setup configuration: the CRS and the Lagrange
// basis polynomials evaluated over it. Immutable after bootstrap — every
// worker must observe byte-identical config bytes (spec §3).

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// CRS is the common reference string for a committee of a fixed size: the
// powers of a random toxic-waste scalar tau, in both pairing groups.
type CRS struct {
	G1Powers []G1Point // tau^0 * G1, tau^1 * G1, ..., tau^(n-1) * G1
	G2Powers []G2Point // tau^0 * G2, ..., tau^(n-1) * G2
}

// Config is the immutable, committee-wide setup material named in spec §3.
type Config struct {
	CRS      CRS
	LagPolys [][]Scalar // LagPolys[i] are the coefficients of the i-th Lagrange basis polynomial
	Size     uint32
}

// RandConfig samples a fresh CRS and Lagrange basis for a committee of the
// given size. Only the bootstrap worker calls this (spec §4.1).
func RandConfig(size uint32) (*Config, error) {
	if size == 0 {
		return nil, fmt.Errorf("ste: config size must be > 0")
	}
	tau, err := RandomScalar()
	if err != nil {
		return nil, fmt.Errorf("ste: sample tau: %w", err)
	}

	g1Powers := make([]G1Point, size)
	g2Powers := make([]G2Point, size)
	power := oneScalar()
	for i := uint32(0); i < size; i++ {
		g1Powers[i] = ScalarMulG1(power)
		g2Powers[i] = ScalarMulG2(power)
		power.Mul(&power, &tau)
	}

	lag := lagrangeBasisCoeffs(size)

	return &Config{
		CRS:      CRS{G1Powers: g1Powers, G2Powers: g2Powers},
		LagPolys: lag,
		Size:     size,
	}, nil
}

func oneScalar() Scalar {
	var s Scalar
	s.SetOne()
	return s
}

// lagrangeBasisCoeffs computes, for each index i in an n-point domain
// {0, 1, ..., n-1}, the coefficients of the Lagrange basis polynomial
// L_i(x) = prod_{j != i} (x - j) / (i - j).
func lagrangeBasisCoeffs(n uint32) [][]Scalar {
	domain := make([]Scalar, n)
	for i := uint32(0); i < n; i++ {
		domain[i].SetUint64(uint64(i))
	}

	out := make([][]Scalar, n)
	for i := uint32(0); i < n; i++ {
		// Numerator polynomial: prod_{j!=i} (x - j), built incrementally.
		num := []Scalar{oneScalar()}
		var denom Scalar
		denom.SetOne()
		for j := uint32(0); j < n; j++ {
			if j == i {
				continue
			}
			num = polyMulLinear(num, domain[j])
			var diff Scalar
			diff.Sub(&domain[i], &domain[j])
			denom.Mul(&denom, &diff)
		}
		var denomInv Scalar
		denomInv.Inverse(&denom)
		for k := range num {
			num[k].Mul(&num[k], &denomInv)
		}
		out[i] = num
	}
	return out
}

// polyMulLinear multiplies poly (lowest-degree-first coefficients) by
// (x - root), returning the new coefficient slice.
func polyMulLinear(poly []Scalar, root Scalar) []Scalar {
	out := make([]Scalar, len(poly)+1)
	var negRoot Scalar
	negRoot.Neg(&root)
	for i, c := range poly {
		var term Scalar
		term.Mul(&c, &negRoot)
		out[i].Add(&out[i], &term)
		out[i+1].Add(&out[i+1], &c)
	}
	return out
}

// EvalPoly evaluates poly (lowest-degree-first) at x.
func EvalPoly(poly []Scalar, x Scalar) Scalar {
	var acc Scalar
	for i := len(poly) - 1; i >= 0; i-- {
		acc.Mul(&acc, &x)
		acc.Add(&acc, &poly[i])
	}
	return acc
}

// Bytes serializes the config as a flat compressed-point byte stream,
// suitable for hex-encoding and persisting to disk per spec §6
// ("Persisted artifacts"). LagPolys are re-derived from Size on load since
// they are a pure function of committee size.
func (c *Config) Bytes() []byte {
	out := make([]byte, 0, 4+len(c.CRS.G1Powers)*48+len(c.CRS.G2Powers)*96)
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], c.Size)
	out = append(out, sizeBuf[:]...)
	for _, p := range c.CRS.G1Powers {
		b := p.Bytes()
		out = append(out, b[:]...)
	}
	for _, p := range c.CRS.G2Powers {
		b := p.Bytes()
		out = append(out, b[:]...)
	}
	return out
}

// ConfigFromBytes is the inverse of Bytes.
func ConfigFromBytes(raw []byte) (*Config, error) {
	if len(raw) < 4 {
		return nil, ErrUnparseableConfig
	}
	size := binary.BigEndian.Uint32(raw[0:4])
	raw = raw[4:]
	want := int(size)*48 + int(size)*96
	if len(raw) != want {
		return nil, ErrUnparseableConfig
	}
	g1 := make([]G1Point, size)
	for i := uint32(0); i < size; i++ {
		var buf [48]byte
		copy(buf[:], raw[:48])
		raw = raw[48:]
		if _, err := g1[i].SetBytes(buf[:]); err != nil {
			return nil, fmt.Errorf("%w: g1 point %d: %v", ErrUnparseableConfig, i, err)
		}
	}
	g2 := make([]G2Point, size)
	for i := uint32(0); i < size; i++ {
		var buf [96]byte
		copy(buf[:], raw[:96])
		raw = raw[96:]
		if _, err := g2[i].SetBytes(buf[:]); err != nil {
			return nil, fmt.Errorf("%w: g2 point %d: %v", ErrUnparseableConfig, i, err)
		}
	}
	return &Config{
		CRS:      CRS{G1Powers: g1, G2Powers: g2},
		LagPolys: lagrangeBasisCoeffs(size),
		Size:     size,
	}, nil
}

// bigFromUint64 is a small helper for building scalars from plain
// committee indices. Nothing in the package calls it.
func bigFromUint64(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
