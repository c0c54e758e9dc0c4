package bn254_test

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oraclebn254 "github.com/oraclehost/runtime/bn254"
)

func newKeypair(t *testing.T, seed int64) (*oraclebn254.PrivateKey, *oraclebn254.PublicKey) {
	t.Helper()

	var scalar fr.Element
	scalar.SetBigInt(big.NewInt(seed))
	var scalarBig big.Int
	scalar.BigInt(&scalarBig)

	priv, err := oraclebn254.NewPrivateKey(scalarBig.Bytes())
	require.NoError(t, err)

	_, _, _, g2Gen := bn254.Generators()
	var pubPoint bn254.G2Affine
	pubPoint.ScalarMultiplication(&g2Gen, &scalarBig)

	pub, err := oraclebn254.NewPublicKey(pubPoint.Marshal())
	require.NoError(t, err)

	return priv, pub
}

// TestSignThenVerifySucceeds is spec.md §8 scenario 6: a signature produced
// by bn254_sign verifies against the signer's own public key.
func TestSignThenVerifySucceeds(t *testing.T) {
	priv, pub := newKeypair(t, 12345)

	message := []byte("oracle-node test vector")
	sig := oraclebn254.Sign(priv, message)

	assert.True(t, oraclebn254.Verify(pub, message, sig))
}

// TestVerifyRejectsWrongMessage is spec.md §8 scenario 7: a signature does
// not verify against a message it was not produced for.
func TestVerifyRejectsWrongMessage(t *testing.T) {
	priv, pub := newKeypair(t, 99)

	sig := oraclebn254.Sign(priv, []byte("original message"))

	assert.False(t, oraclebn254.Verify(pub, []byte("tampered message"), sig))
}

// TestVerifyRejectsWrongKey confirms cross-key forgery fails.
func TestVerifyRejectsWrongKey(t *testing.T) {
	priv1, _ := newKeypair(t, 1)
	_, pub2 := newKeypair(t, 2)

	message := []byte("shared message")
	sig := oraclebn254.Sign(priv1, message)

	assert.False(t, oraclebn254.Verify(pub2, message, sig))
}

// TestSignatureBytesRoundTrip confirms Signature.Bytes/SignatureFromBytes
// round-trips, the encoding bn254_sign's two-phase copy-out relies on.
func TestSignatureBytesRoundTrip(t *testing.T) {
	priv, pub := newKeypair(t, 7)
	sig := oraclebn254.Sign(priv, []byte("round trip"))

	decoded, err := oraclebn254.SignatureFromBytes(sig.Bytes())
	require.NoError(t, err)

	assert.True(t, oraclebn254.Verify(pub, []byte("round trip"), decoded))
}
