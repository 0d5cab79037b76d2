package election

import (
	"fmt"
	"math/big"
)

// Codec maps candidate choices to packed plaintext integers and aggregate
// plaintexts back to per-candidate counts. Both directions apply the same slot
// order from the Parameters.
type Codec struct {
	params Parameters
}

func NewCodec(params Parameters) *Codec {
	return &Codec{params: params}
}

// EncodeVote returns the plaintext for a single vote: value 1 in the chosen
// candidate's slot, every other bit zero.
func (c *Codec) EncodeVote(candidateIndex int) (*big.Int, error) {
	if candidateIndex < 0 || candidateIndex >= c.params.CandidateCount {
		return nil, fmt.Errorf("%w: %d (have %d candidates)",
			ErrInvalidCandidate, candidateIndex, c.params.CandidateCount)
	}
	shift := uint(c.params.BitsPerCandidate() * c.params.position(candidateIndex))
	return new(big.Int).Lsh(big.NewInt(1), shift), nil
}

// DecodeTally extracts each candidate's count from an aggregate plaintext.
// Counts that overflowed their slot during aggregation arrive here already
// aliased; no carry correction is attempted.
func (c *Codec) DecodeTally(m *big.Int) []uint64 {
	width := uint(c.params.BitsPerCandidate())
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), width), big.NewInt(1))

	tally := make([]uint64, c.params.CandidateCount)
	slot := new(big.Int)
	for i := range tally {
		shift := width * uint(c.params.position(i))
		slot.Rsh(m, shift)
		slot.And(slot, mask)
		tally[i] = slot.Uint64()
	}
	return tally
}

// IsSingleVote reports whether m encodes exactly one cast vote: a single slot
// holding 1 with every other bit zero. Equivalently, m is a power of two whose
// exponent sits on a slot boundary inside the message range.
func (c *Codec) IsSingleVote(m *big.Int) bool {
	if m == nil || m.Sign() <= 0 {
		return false
	}
	// Power-of-two check: m & (m-1) == 0.
	tmp := new(big.Int).Sub(m, big.NewInt(1))
	if tmp.And(tmp, m).Sign() != 0 {
		return false
	}
	bit := m.BitLen() - 1
	width := c.params.BitsPerCandidate()
	if bit%width != 0 {
		return false
	}
	return bit/width < c.params.CandidateCount
}
