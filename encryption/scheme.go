package encryption

import (
	"errors"
	"math/big"
)

var (
	// ErrMalformedCiphertext reports a value outside the cipher space. The
	// offending ciphertext is dropped by callers; processing continues.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")

	// ErrDecryption reports a ciphertext the private key cannot open. Fatal
	// for the combiner run that hits it.
	ErrDecryption = errors.New("decryption failed")

	// ErrPrivateKeyMissing reports a decrypt attempt on a scheme built from
	// the public key alone.
	ErrPrivateKeyMissing = errors.New("private key not set")

	// ErrMessageTooLong reports a plaintext beyond the message-space bound.
	ErrMessageTooLong = errors.New("plaintext exceeds message space")

	// ErrInvalidNonce reports a nonce outside the multiplicative group.
	ErrInvalidNonce = errors.New("invalid encryption nonce")
)

// HomomorphicScheme is the algebraic surface the protocol is built on. One
// concrete scheme is selected per deployment; every role talks to it through
// this interface only. Ciphertexts are opaque immutable byte slices; Combine
// returns a fresh ciphertext and never mutates its operands.
type HomomorphicScheme interface {
	// Name identifies the scheme for logs and diagnostics.
	Name() string

	// MessageBits is the plaintext capacity in bits. Election parameters are
	// validated against it before any encryption happens.
	MessageBits() int

	// GenerateNonce draws fresh encryption randomness at the configured
	// width. A nonce is used for exactly one encryption and then discarded.
	GenerateNonce() (*big.Int, error)

	// Encrypt is deterministic given (plaintext, nonce); distinct nonces
	// yield distinct ciphertexts for the same plaintext.
	Encrypt(m, nonce *big.Int) ([]byte, error)

	// Combine is associative and commutative, and the result decrypts to the
	// sum of the operand plaintexts while that sum fits the message space.
	Combine(a, b []byte) ([]byte, error)

	// Decrypt requires the authority private key. It fails with ErrDecryption
	// when the ciphertext is not a member of the cipher space.
	Decrypt(c []byte) (*big.Int, error)

	// IsWellFormed checks structural membership of the cipher space without
	// the private key.
	IsWellFormed(c []byte) bool
}
