package models

import (
	"encoding/binary"
	"math/big"
)

// The types below are the phase-boundary messages of the protocol. Each role
// consumes the previous phase's message and emits the next one; how a message
// travels between role instances (typed in by an operator, handed over a
// channel in tests) is the relay's concern, not theirs.

// Ballot is one caster's encrypted vote, exchanged inside a locality.
type Ballot struct {
	ID         string `json:"id"`
	LocalityID string `json:"locality_id"`
	Ciphertext []byte `json:"ciphertext"`
	Timestamp  int64  `json:"timestamp"`
}

// CasterOutput is the end of phase 1: one locality's homomorphic product over
// its well-formed ballots, attested by the locality key when one is present.
type CasterOutput struct {
	ID         string `json:"id"`
	LocalityID string `json:"locality_id"`
	Product    []byte `json:"product"`
	Ballots    int    `json:"ballots"`
	Timestamp  int64  `json:"timestamp"`
	Signature  []byte `json:"signature,omitempty"`
	SignerKey  []byte `json:"signer_key,omitempty"`
}

// SigningBytes is the portion of the share covered by the attestation
// signature. Each field is length-prefixed so distinct (locality, product)
// pairs never serialize to the same bytes.
func (o CasterOutput) SigningBytes() []byte {
	buf := make([]byte, 0, 8+len(o.LocalityID)+len(o.Product))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(o.LocalityID)))
	buf = append(buf, o.LocalityID...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(o.Product)))
	buf = append(buf, o.Product...)
	return buf
}

// ValidatorOutput is the end of phase 2: the remote shares that survived
// validation, plus how many were dropped.
type ValidatorOutput struct {
	Accepted  []CasterOutput `json:"accepted"`
	Rejected  int            `json:"rejected"`
	Timestamp int64          `json:"timestamp"`
}

// CombinerOutput is the end of phase 3: the decrypted aggregate (diagnostic)
// and the per-candidate tally (final result).
type CombinerOutput struct {
	Plaintext *big.Int `json:"plaintext"`
	Tally     []uint64 `json:"tally"`
	Timestamp int64    `json:"timestamp"`
}
