package encryption

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
)

// ElGamalKey is a key pair for exponential ElGamal over the quadratic-residue
// subgroup of a safe prime. X is nil on the encrypting side.
type ElGamalKey struct {
	P *big.Int // safe prime, P = 2Q+1
	Q *big.Int // subgroup order
	G *big.Int // subgroup generator
	Y *big.Int // G^X mod P
	X *big.Int // private exponent, authority only
}

// Public strips the private exponent.
func (k *ElGamalKey) Public() *ElGamalKey {
	return &ElGamalKey{P: k.P, Q: k.Q, G: k.G, Y: k.Y}
}

// GenerateElGamalKey produces a key over a fresh safe-prime group. Intended
// for small test deployments; safe-prime search is slow at production widths.
func GenerateElGamalKey(random io.Reader, bits int) (*ElGamalKey, error) {
	for {
		q, err := rand.Prime(random, bits-1)
		if err != nil {
			return nil, fmt.Errorf("generating group order: %w", err)
		}
		p := new(big.Int).Lsh(q, 1)
		p.Add(p, one)
		if !p.ProbablyPrime(20) {
			continue
		}

		// 4 generates the quadratic residues of a safe-prime group.
		g := big.NewInt(4)
		x, err := rand.Int(random, new(big.Int).Sub(q, one))
		if err != nil {
			return nil, fmt.Errorf("generating private exponent: %w", err)
		}
		x.Add(x, one)

		return &ElGamalKey{
			P: p,
			Q: q,
			G: g,
			Y: new(big.Int).Exp(g, x, p),
			X: x,
		}, nil
	}
}

// elgamalCiphertext is the wire form of one ciphertext pair.
type elgamalCiphertext struct {
	C1 []byte `json:"c1"`
	C2 []byte `json:"c2"`
}

// ExpElGamal implements HomomorphicScheme with votes in the exponent:
// Encrypt(m, r) = (G^r, G^m * Y^r) mod P. Componentwise multiplication of
// pairs adds the exponents, and decryption finishes with a bounded discrete
// log, which caps the usable message width.
type ExpElGamal struct {
	key            *ElGamalKey
	messageBits    int
	randomnessBits int
}

// NewExpElGamal wires the scheme for a given key. messageBits bounds the
// discrete-log search on decryption and therefore the packed tally width.
func NewExpElGamal(key *ElGamalKey, messageBits, randomnessBits int) *ExpElGamal {
	return &ExpElGamal{key: key, messageBits: messageBits, randomnessBits: randomnessBits}
}

func (s *ExpElGamal) Name() string {
	return fmt.Sprintf("ExpElGamal-%d", s.key.P.BitLen())
}

func (s *ExpElGamal) MessageBits() int {
	return s.messageBits
}

func (s *ExpElGamal) GenerateNonce() (*big.Int, error) {
	r, err := rand.Prime(rand.Reader, s.randomnessBits)
	if err != nil {
		return nil, fmt.Errorf("drawing nonce: %w", err)
	}
	return r, nil
}

func (s *ExpElGamal) Encrypt(m, nonce *big.Int) ([]byte, error) {
	if m == nil || m.Sign() < 0 || m.BitLen() > s.messageBits {
		return nil, ErrMessageTooLong
	}
	if nonce == nil || nonce.Sign() <= 0 || nonce.Cmp(s.key.Q) >= 0 {
		return nil, ErrInvalidNonce
	}

	c1 := new(big.Int).Exp(s.key.G, nonce, s.key.P)
	c2 := new(big.Int).Exp(s.key.G, m, s.key.P)
	c2.Mul(c2, new(big.Int).Exp(s.key.Y, nonce, s.key.P))
	c2.Mod(c2, s.key.P)

	return json.Marshal(elgamalCiphertext{C1: c1.Bytes(), C2: c2.Bytes()})
}

func (s *ExpElGamal) Combine(a, b []byte) ([]byte, error) {
	a1, a2, err := s.parse(a)
	if err != nil {
		return nil, err
	}
	b1, b2, err := s.parse(b)
	if err != nil {
		return nil, err
	}

	c1 := new(big.Int).Mul(a1, b1)
	c1.Mod(c1, s.key.P)
	c2 := new(big.Int).Mul(a2, b2)
	c2.Mod(c2, s.key.P)

	return json.Marshal(elgamalCiphertext{C1: c1.Bytes(), C2: c2.Bytes()})
}

func (s *ExpElGamal) Decrypt(c []byte) (*big.Int, error) {
	if s.key.X == nil {
		return nil, ErrPrivateKeyMissing
	}
	c1, c2, err := s.parse(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	shared := new(big.Int).Exp(c1, s.key.X, s.key.P)
	inv := new(big.Int).ModInverse(shared, s.key.P)
	if inv == nil {
		return nil, fmt.Errorf("%w: shared secret not invertible", ErrDecryption)
	}
	gm := inv.Mul(c2, inv)
	gm.Mod(gm, s.key.P)

	// Bounded linear discrete log. The message space is small by construction,
	// so a scan up to 2^messageBits suffices.
	acc := big.NewInt(1)
	bound := new(big.Int).Lsh(one, uint(s.messageBits))
	for m := big.NewInt(0); m.Cmp(bound) < 0; m.Add(m, one) {
		if acc.Cmp(gm) == 0 {
			return new(big.Int).Set(m), nil
		}
		acc.Mul(acc, s.key.G)
		acc.Mod(acc, s.key.P)
	}
	return nil, fmt.Errorf("%w: plaintext outside message space", ErrDecryption)
}

// IsWellFormed checks both components lie in (0, P) and in the prime-order
// subgroup, which is exactly membership of the cipher space.
func (s *ExpElGamal) IsWellFormed(c []byte) bool {
	_, _, err := s.parse(c)
	return err == nil
}

func (s *ExpElGamal) parse(c []byte) (*big.Int, *big.Int, error) {
	var ct elgamalCiphertext
	if err := json.Unmarshal(c, &ct); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	c1 := new(big.Int).SetBytes(ct.C1)
	c2 := new(big.Int).SetBytes(ct.C2)
	for _, ci := range []*big.Int{c1, c2} {
		if ci.Sign() <= 0 || ci.Cmp(s.key.P) >= 0 {
			return nil, nil, fmt.Errorf("%w: component outside (0, P)", ErrMalformedCiphertext)
		}
		if new(big.Int).Exp(ci, s.key.Q, s.key.P).Cmp(one) != 0 {
			return nil, nil, fmt.Errorf("%w: component outside the subgroup", ErrMalformedCiphertext)
		}
	}
	return c1, c2, nil
}
