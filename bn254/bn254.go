// Package bn254 wraps the BN254 pairing-friendly curve operations the
// runtime exposes to guests as bn254_sign and bn254_verify (spec.md §4.2).
// Signing and verification are treated as a black box by the rest of the
// module: a message hashes onto G1, a signature is that point scaled by
// the node's private scalar, and verification is a single pairing check
// against the node's G2 public key — the standard BLS-over-BN254
// construction gnark-crypto's primitives are built for.
package bn254

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// PrivateKey is a BN254 scalar in the scalar field Fr.
type PrivateKey struct {
	scalar fr.Element
}

// NewPrivateKey decodes a raw scalar, as stored in NodeConfig.BN254PrivateKey.
func NewPrivateKey(raw []byte) (*PrivateKey, error) {
	var pk PrivateKey
	pk.scalar.SetBytes(raw)
	return &pk, nil
}

// PublicKey is a point on G2, as stored in NodeConfig.BN254PublicKey.
type PublicKey struct {
	point bn254.G2Affine
}

// NewPublicKey decodes an uncompressed G2 point.
func NewPublicKey(raw []byte) (*PublicKey, error) {
	var pk PublicKey
	if err := pk.point.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("bn254: decode public key: %w", err)
	}
	return &pk, nil
}

// Signature is a point on G1.
type Signature struct {
	point bn254.G1Affine
}

// Bytes returns the signature's uncompressed wire encoding.
func (s Signature) Bytes() []byte {
	return s.point.Marshal()
}

// SignatureFromBytes decodes an uncompressed G1 point produced by Sign.
func SignatureFromBytes(raw []byte) (Signature, error) {
	var s Signature
	if err := s.point.Unmarshal(raw); err != nil {
		return Signature{}, fmt.Errorf("bn254: decode signature: %w", err)
	}
	return s, nil
}

// Sign hashes message onto G1 and scales it by the private scalar.
func Sign(priv *PrivateKey, message []byte) Signature {
	h := mapToG1(message)
	scalar := new(big.Int)
	priv.scalar.BigInt(scalar)

	var sig bn254.G1Affine
	sig.ScalarMultiplication(&h, scalar)
	return Signature{point: sig}
}

// Verify checks that sig is message signed by the holder of pub, via
// e(sig, g2Gen) == e(H(message), pub).
func Verify(pub *PublicKey, message []byte, sig Signature) bool {
	h := mapToG1(message)

	_, _, _, g2Gen := bn254.Generators()

	lhs, err := bn254.Pair([]bn254.G1Affine{sig.point}, []bn254.G2Affine{g2Gen})
	if err != nil {
		return false
	}
	rhs, err := bn254.Pair([]bn254.G1Affine{h}, []bn254.G2Affine{pub.point})
	if err != nil {
		return false
	}
	return lhs.Equal(&rhs)
}

// mapToG1 deterministically maps an arbitrary-length message onto a point
// on the BN254 G1 curve, using a SHA-256-seeded try-and-increment search
// for a valid y coordinate — the conventional hash-to-curve fallback when
// a native hash-to-curve primitive isn't used.
func mapToG1(message []byte) bn254.G1Affine {
	digest := sha256.Sum256(message)
	x := new(big.Int).SetBytes(digest[:])
	modulus := fp.Modulus()
	three := big.NewInt(3)

	x.Mod(x, modulus)
	for {
		ySq := new(big.Int).Exp(x, big.NewInt(3), modulus)
		ySq.Add(ySq, three)
		ySq.Mod(ySq, modulus)

		if y := new(big.Int).ModSqrt(ySq, modulus); y != nil {
			var p bn254.G1Affine
			p.X.SetBigInt(x)
			p.Y.SetBigInt(y)
			return p
		}
		x.Add(x, big.NewInt(1))
		x.Mod(x, modulus)
	}
}
