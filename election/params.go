package election

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"
)

var (
	// ErrInvalidParameters reports a configuration whose packed tally cannot fit
	// the scheme's message space. Fatal: a run started with such parameters would
	// corrupt the tally silently.
	ErrInvalidParameters = errors.New("invalid election parameters")

	// ErrInvalidCandidate reports a candidate index outside [0, CandidateCount).
	ErrInvalidCandidate = errors.New("candidate index out of range")
)

// SlotOrder fixes the mapping between candidate index and slot position inside
// the packed plaintext. It must be identical for encoding and decoding within
// one election.
type SlotOrder int

const (
	// OrderAscending assigns candidate 0 the least significant slot, so slot
	// significance grows with the candidate index.
	OrderAscending SlotOrder = iota

	// OrderDescending assigns candidate 0 the most significant slot.
	OrderDescending
)

func (o SlotOrder) String() string {
	if o == OrderDescending {
		return "descending"
	}
	return "ascending"
}

// Parameters is the immutable configuration of one election. It is constructed
// once and passed by value into every component; nothing in this package reads
// process-wide state.
type Parameters struct {
	// N is the authority's public modulus. It selects the concrete cipher
	// space and bounds the plaintext message space.
	N *big.Int

	// VoterCount is the maximum number of votes per election. It only sizes
	// the per-candidate counters.
	VoterCount int

	CandidateCount int

	// RandomnessBits is the width of the per-vote encryption nonce.
	RandomnessBits int

	Order SlotOrder
}

// BitsPerCandidate is the width of one candidate's counter slot:
// floor(log2(VoterCount)). A slot therefore holds counts 0..VoterCount-1 and a
// candidate reaching VoterCount votes aliases back to 0. That aliasing is the
// accepted parameter tradeoff of the scheme, not something this package
// corrects.
func (p Parameters) BitsPerCandidate() int {
	if p.VoterCount < 2 {
		return 1
	}
	return bits.Len(uint(p.VoterCount)) - 1
}

// MessageBits is the total width of the packed tally.
func (p Parameters) MessageBits() int {
	return p.CandidateCount * p.BitsPerCandidate()
}

// Validate fails fast on configurations the scheme cannot carry. schemeBits is
// the plaintext capacity of the selected cipher space.
func (p Parameters) Validate(schemeBits int) error {
	if p.N == nil || p.N.Sign() <= 0 {
		return fmt.Errorf("%w: missing public modulus", ErrInvalidParameters)
	}
	if p.VoterCount < 1 {
		return fmt.Errorf("%w: voter count %d", ErrInvalidParameters, p.VoterCount)
	}
	if p.CandidateCount < 1 {
		return fmt.Errorf("%w: candidate count %d", ErrInvalidParameters, p.CandidateCount)
	}
	if p.RandomnessBits < 2 {
		return fmt.Errorf("%w: randomness width %d bits", ErrInvalidParameters, p.RandomnessBits)
	}
	if p.MessageBits() > schemeBits {
		return fmt.Errorf("%w: %d candidates at %d bits exceed the %d-bit message space",
			ErrInvalidParameters, p.CandidateCount, p.BitsPerCandidate(), schemeBits)
	}
	return nil
}

// position maps a candidate index to its slot position under the configured
// order. The caller guarantees idx is in range.
func (p Parameters) position(idx int) int {
	if p.Order == OrderDescending {
		return p.CandidateCount - 1 - idx
	}
	return idx
}
