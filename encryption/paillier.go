package encryption

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/roasbeef/go-go-gadget-paillier"
)

var one = big.NewInt(1)

// NewPaillierPublicKey derives the working values from a bare modulus, which
// is how casters and validators receive the key.
func NewPaillierPublicKey(n *big.Int) *paillier.PublicKey {
	modulus := new(big.Int).Set(n)
	return &paillier.PublicKey{
		N:        modulus,
		G:        new(big.Int).Add(modulus, one),
		NSquared: new(big.Int).Mul(modulus, modulus),
	}
}

// PaillierPrivateKey opens ciphertexts produced under the matching public
// key. It exists only inside the authority and the combiner role, and is
// carried as (phi, mu) so it can be rebuilt from transported prime factors.
type PaillierPrivateKey struct {
	paillier.PublicKey
	phi *big.Int // (p-1)(q-1)
	mu  *big.Int // phi^-1 mod N
}

// GeneratePaillierKey produces an authority key pair with a modulus of the
// given bit length. Key custody is the authority's problem; this exists so the
// combiner role and the tests have a key to hold.
func GeneratePaillierKey(random io.Reader, bits int) (*PaillierPrivateKey, error) {
	p, err := rand.Prime(random, bits/2)
	if err != nil {
		return nil, fmt.Errorf("generating p: %w", err)
	}
	q, err := rand.Prime(random, bits/2)
	if err != nil {
		return nil, fmt.Errorf("generating q: %w", err)
	}
	if p.Cmp(q) == 0 {
		return nil, fmt.Errorf("degenerate key: p == q")
	}
	return NewPaillierKeyFromFactors(p, q)
}

// NewPaillierKeyFromFactors rebuilds the authority key from its prime factors,
// the form in which the combiner operator receives it.
func NewPaillierKeyFromFactors(p, q *big.Int) (*PaillierPrivateKey, error) {
	if p == nil || q == nil || p.Sign() <= 0 || q.Sign() <= 0 || p.Cmp(q) == 0 {
		return nil, fmt.Errorf("invalid key factors")
	}
	n := new(big.Int).Mul(p, q)
	phi := new(big.Int).Mul(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))
	mu := new(big.Int).ModInverse(phi, n)
	if mu == nil {
		return nil, fmt.Errorf("phi not invertible mod N: factors not coprime primes")
	}
	return &PaillierPrivateKey{
		PublicKey: *NewPaillierPublicKey(n),
		phi:       phi,
		mu:        mu,
	}, nil
}

// Paillier implements HomomorphicScheme over the group modulo N². The
// homomorphic combine is ciphertext multiplication, which decrypts to
// plaintext addition. Encryption and combining delegate to the Paillier
// library; this type adds the nonce policy, the membership checks and the
// factor-built decryption path around it.
type Paillier struct {
	pub            *paillier.PublicKey
	priv           *PaillierPrivateKey // nil outside the combiner role
	randomnessBits int
}

// NewPaillier builds the encrypting side of the scheme from the public
// modulus. Decrypt on the result fails with ErrPrivateKeyMissing.
func NewPaillier(pub *paillier.PublicKey, randomnessBits int) *Paillier {
	return &Paillier{pub: pub, randomnessBits: randomnessBits}
}

// NewPaillierDecryptor builds the scheme with the authority private key, for
// the combiner role only.
func NewPaillierDecryptor(priv *PaillierPrivateKey, randomnessBits int) *Paillier {
	return &Paillier{pub: &priv.PublicKey, priv: priv, randomnessBits: randomnessBits}
}

func (s *Paillier) Name() string {
	return fmt.Sprintf("Paillier-%d", s.pub.N.BitLen())
}

// MessageBits leaves one bit of headroom below N so every message compares
// strictly smaller than the modulus.
func (s *Paillier) MessageBits() int {
	return s.pub.N.BitLen() - 1
}

// GenerateNonce draws a prime of the configured width. A prime below both key
// factors is coprime to N, which keeps the nonce inside the multiplicative
// group without inspecting the factorization.
func (s *Paillier) GenerateNonce() (*big.Int, error) {
	r, err := rand.Prime(rand.Reader, s.randomnessBits)
	if err != nil {
		return nil, fmt.Errorf("drawing nonce: %w", err)
	}
	return r, nil
}

// Encrypt computes g^m * r^N mod N² under the caller-supplied nonce. The
// nonce must be a unit mod N; the message must sit below the modulus.
func (s *Paillier) Encrypt(m, nonce *big.Int) ([]byte, error) {
	if m == nil || m.Sign() < 0 || m.Cmp(s.pub.N) >= 0 {
		return nil, ErrMessageTooLong
	}
	if nonce == nil || nonce.Sign() <= 0 || nonce.Cmp(s.pub.N) >= 0 {
		return nil, ErrInvalidNonce
	}
	if new(big.Int).GCD(nil, nil, nonce, s.pub.N).Cmp(one) != 0 {
		return nil, fmt.Errorf("%w: not invertible mod N", ErrInvalidNonce)
	}

	c, err := paillier.EncryptWithNonce(s.pub, nonce, m.Bytes())
	if err != nil {
		return nil, fmt.Errorf("encrypting: %w", err)
	}
	return c.Bytes(), nil
}

// Combine multiplies two ciphertexts mod N². Either operand failing the
// membership check surfaces as ErrMalformedCiphertext.
func (s *Paillier) Combine(a, b []byte) ([]byte, error) {
	if _, err := s.parse(a); err != nil {
		return nil, err
	}
	if _, err := s.parse(b); err != nil {
		return nil, err
	}
	return paillier.AddCipher(s.pub, a, b), nil
}

// Decrypt recovers m = L(c^phi mod N²) * phi^-1 mod N. The library ties its
// own decryptor to keys it generated itself, so the factor-built authority
// key decrypts here.
func (s *Paillier) Decrypt(c []byte) (*big.Int, error) {
	if s.priv == nil {
		return nil, ErrPrivateKeyMissing
	}
	ci, err := s.parse(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	u := new(big.Int).Exp(ci, s.priv.phi, s.pub.NSquared)
	u.Sub(u, one)
	u.Div(u, s.pub.N) // L(x) = (x-1)/N
	u.Mul(u, s.priv.mu)
	u.Mod(u, s.pub.N)
	return u, nil
}

// IsWellFormed accepts c with 0 < c < N² and gcd(c, N) = 1. A ciphertext
// sharing a factor with N cannot come from a unit nonce and would break the
// homomorphic fold.
func (s *Paillier) IsWellFormed(c []byte) bool {
	_, err := s.parse(c)
	return err == nil
}

func (s *Paillier) parse(c []byte) (*big.Int, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrMalformedCiphertext)
	}
	ci := new(big.Int).SetBytes(c)
	if ci.Sign() <= 0 || ci.Cmp(s.pub.NSquared) >= 0 {
		return nil, fmt.Errorf("%w: outside [1, N^2)", ErrMalformedCiphertext)
	}
	if new(big.Int).GCD(nil, nil, ci, s.pub.N).Cmp(one) != 0 {
		return nil, fmt.Errorf("%w: shares a factor with N", ErrMalformedCiphertext)
	}
	return ci, nil
}
