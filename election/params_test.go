package election

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitsPerCandidate(t *testing.T) {
	cases := []struct {
		voters int
		want   int
	}{
		{1, 1},
		{2, 1},
		{4, 2},
		{16, 4},
		{17, 4},
		{31, 4},
		{32, 5},
	}
	for _, tc := range cases {
		p := Parameters{VoterCount: tc.voters}
		assert.Equal(t, tc.want, p.BitsPerCandidate(), "voters=%d", tc.voters)
	}
}

func TestValidate(t *testing.T) {
	valid := Parameters{
		N:              big.NewInt(1 << 40),
		VoterCount:     16,
		CandidateCount: 3,
		RandomnessBits: 14,
	}
	assert.NoError(t, valid.Validate(27))

	// 3 candidates * 4 bits = 12 bits of packed tally.
	assert.ErrorIs(t, valid.Validate(11), ErrInvalidParameters)

	missing := valid
	missing.N = nil
	assert.ErrorIs(t, missing.Validate(27), ErrInvalidParameters)

	noVoters := valid
	noVoters.VoterCount = 0
	assert.ErrorIs(t, noVoters.Validate(27), ErrInvalidParameters)

	noCandidates := valid
	noCandidates.CandidateCount = 0
	assert.ErrorIs(t, noCandidates.Validate(27), ErrInvalidParameters)

	thinNonce := valid
	thinNonce.RandomnessBits = 1
	assert.ErrorIs(t, thinNonce.Validate(27), ErrInvalidParameters)
}

func TestSlotOrderString(t *testing.T) {
	assert.Equal(t, "ascending", OrderAscending.String())
	assert.Equal(t, "descending", OrderDescending.String())
}
