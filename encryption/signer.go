package encryption

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes the concatenation of its arguments. Used for ledger
// chaining and share attestation digests.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Signer attests locality shares with the locality's ECDSA key so the
// validator can tie a remote share to a registered locality. It carries no
// election secrets.
type Signer struct{}

func NewSigner() *Signer {
	return &Signer{}
}

// GenerateKeyPair issues a fresh locality key.
func (s *Signer) GenerateKeyPair() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// Sign produces a recoverable signature over the Keccak digest of data.
func (s *Signer) Sign(data []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, errors.New("signing key not set")
	}
	return crypto.Sign(Keccak256(data), privateKey)
}

// Verify reports whether signature over data recovers to publicKey.
func (s *Signer) Verify(data, signature, publicKey []byte) bool {
	if len(signature) == 0 || len(publicKey) == 0 {
		return false
	}
	recovered, err := crypto.SigToPub(Keccak256(data), signature)
	if err != nil {
		return false
	}
	return string(crypto.FromECDSAPub(recovered)) == string(publicKey)
}

// MarshalPublicKey serializes a locality public key for registry storage.
func (s *Signer) MarshalPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return crypto.FromECDSAPub(pub)
}
