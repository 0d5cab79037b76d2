package encryption

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *PaillierPrivateKey {
	t.Helper()
	key, err := GeneratePaillierKey(rand.Reader, 64)
	require.NoError(t, err)
	return key
}

func TestPaillierRoundTrip(t *testing.T) {
	key := testKey(t)
	scheme := NewPaillierDecryptor(key, 14)

	for _, m := range []int64{0, 1, 258, 4095} {
		nonce, err := scheme.GenerateNonce()
		require.NoError(t, err)

		c, err := scheme.Encrypt(big.NewInt(m), nonce)
		require.NoError(t, err)

		got, err := scheme.Decrypt(c)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Cmp(big.NewInt(m)), "m=%d", m)
	}
}

func TestPaillierHomomorphism(t *testing.T) {
	key := testKey(t)
	scheme := NewPaillierDecryptor(key, 14)

	v1, v2 := big.NewInt(257), big.NewInt(4100)
	r1, err := scheme.GenerateNonce()
	require.NoError(t, err)
	r2, err := scheme.GenerateNonce()
	require.NoError(t, err)

	c1, err := scheme.Encrypt(v1, r1)
	require.NoError(t, err)
	c2, err := scheme.Encrypt(v2, r2)
	require.NoError(t, err)

	sum, err := scheme.Combine(c1, c2)
	require.NoError(t, err)

	got, err := scheme.Decrypt(sum)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Cmp(big.NewInt(257+4100)))
}

func TestPaillierCombineAlgebra(t *testing.T) {
	key := testKey(t)
	scheme := NewPaillierDecryptor(key, 14)

	encrypt := func(v int64) []byte {
		nonce, err := scheme.GenerateNonce()
		require.NoError(t, err)
		c, err := scheme.Encrypt(big.NewInt(v), nonce)
		require.NoError(t, err)
		return c
	}
	decrypt := func(c []byte) int64 {
		m, err := scheme.Decrypt(c)
		require.NoError(t, err)
		return m.Int64()
	}

	a, b, c := encrypt(3), encrypt(5), encrypt(7)

	ab, err := scheme.Combine(a, b)
	require.NoError(t, err)
	abc1, err := scheme.Combine(ab, c)
	require.NoError(t, err)

	bc, err := scheme.Combine(b, c)
	require.NoError(t, err)
	abc2, err := scheme.Combine(a, bc)
	require.NoError(t, err)

	ba, err := scheme.Combine(b, a)
	require.NoError(t, err)

	assert.Equal(t, int64(15), decrypt(abc1), "left fold")
	assert.Equal(t, int64(15), decrypt(abc2), "right fold")
	assert.Equal(t, decrypt(ab), decrypt(ba), "commutativity")
}

func TestPaillierNonceHiding(t *testing.T) {
	key := testKey(t)
	scheme := NewPaillier(&key.PublicKey, 14)

	m := big.NewInt(42)
	r1, err := scheme.GenerateNonce()
	require.NoError(t, err)
	r2, err := scheme.GenerateNonce()
	require.NoError(t, err)
	require.NotEqual(t, 0, r1.Cmp(r2))

	c1, err := scheme.Encrypt(m, r1)
	require.NoError(t, err)
	c2, err := scheme.Encrypt(m, r2)
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)

	// Deterministic given the same nonce.
	c3, err := scheme.Encrypt(m, r1)
	require.NoError(t, err)
	assert.Equal(t, c1, c3)
}

func TestPaillierEncryptTextbookForm(t *testing.T) {
	key := testKey(t)
	scheme := NewPaillier(&key.PublicKey, 14)

	m := big.NewInt(258)
	nonce, err := scheme.GenerateNonce()
	require.NoError(t, err)

	c, err := scheme.Encrypt(m, nonce)
	require.NoError(t, err)

	// c = (N+1)^m * r^N mod N^2.
	want := new(big.Int).Exp(new(big.Int).Add(key.N, one), m, key.NSquared)
	want.Mul(want, new(big.Int).Exp(nonce, key.N, key.NSquared))
	want.Mod(want, key.NSquared)
	assert.Equal(t, want.Bytes(), c)
}

func TestPaillierWellFormed(t *testing.T) {
	key := testKey(t)
	scheme := NewPaillierDecryptor(key, 14)

	nonce, err := scheme.GenerateNonce()
	require.NoError(t, err)
	c, err := scheme.Encrypt(big.NewInt(9), nonce)
	require.NoError(t, err)
	assert.True(t, scheme.IsWellFormed(c))

	assert.False(t, scheme.IsWellFormed(nil), "empty value")
	assert.False(t, scheme.IsWellFormed(key.NSquared.Bytes()), "outside the range")
	assert.False(t, scheme.IsWellFormed(new(big.Int).Mul(key.N, big.NewInt(3)).Bytes()),
		"shares a factor with N")
}

func TestPaillierEncryptBounds(t *testing.T) {
	key := testKey(t)
	scheme := NewPaillier(&key.PublicKey, 14)

	nonce, err := scheme.GenerateNonce()
	require.NoError(t, err)

	_, err = scheme.Encrypt(new(big.Int).Set(key.N), nonce)
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = scheme.Encrypt(big.NewInt(-1), nonce)
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = scheme.Encrypt(big.NewInt(1), big.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidNonce)

	_, err = scheme.Encrypt(big.NewInt(1), new(big.Int).Set(key.N))
	assert.ErrorIs(t, err, ErrInvalidNonce)
}

func TestPaillierDecryptErrors(t *testing.T) {
	key := testKey(t)

	public := NewPaillier(&key.PublicKey, 14)
	nonce, err := public.GenerateNonce()
	require.NoError(t, err)
	c, err := public.Encrypt(big.NewInt(1), nonce)
	require.NoError(t, err)

	_, err = public.Decrypt(c)
	assert.ErrorIs(t, err, ErrPrivateKeyMissing)

	decryptor := NewPaillierDecryptor(key, 14)
	_, err = decryptor.Decrypt(key.NSquared.Bytes())
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestPaillierCombineRejectsMalformed(t *testing.T) {
	key := testKey(t)
	scheme := NewPaillierDecryptor(key, 14)

	nonce, err := scheme.GenerateNonce()
	require.NoError(t, err)
	c, err := scheme.Encrypt(big.NewInt(1), nonce)
	require.NoError(t, err)

	_, err = scheme.Combine(c, key.N.Bytes())
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}
