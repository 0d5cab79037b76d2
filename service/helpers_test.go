package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"voting-protocol/election"
	"voting-protocol/encryption"
	"voting-protocol/logging"
	"voting-protocol/models"
)

// testFixture is the reference election everything in this package tests
// against: 16 voters, 3 candidates, 4-bit slots, ascending slot order.
type testFixture struct {
	params    election.Parameters
	key       *encryption.PaillierPrivateKey
	scheme    *encryption.Paillier // public side
	decryptor *encryption.Paillier // authority side
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()

	key, err := encryption.GeneratePaillierKey(rand.Reader, 64)
	require.NoError(t, err)

	params := election.Parameters{
		N:              key.N,
		VoterCount:     16,
		CandidateCount: 3,
		RandomnessBits: 14,
		Order:          election.OrderAscending,
	}

	return &testFixture{
		params:    params,
		key:       key,
		scheme:    encryption.NewPaillier(&key.PublicKey, params.RandomnessBits),
		decryptor: encryption.NewPaillierDecryptor(key, params.RandomnessBits),
	}
}

func (f *testFixture) newCaster(t *testing.T, localityID string) *Caster {
	t.Helper()
	caster, err := NewCaster(localityID, f.params, f.scheme, NewElectionSession(sessionWindow), logging.Nop())
	require.NoError(t, err)
	return caster
}

// singleVoteShare produces a remote locality's product containing exactly one
// vote for the given candidate.
func (f *testFixture) singleVoteShare(t *testing.T, localityID string, candidate int) *models.CasterOutput {
	t.Helper()
	caster := f.newCaster(t, localityID)
	_, err := caster.Cast(candidate)
	require.NoError(t, err)
	share, err := caster.Aggregate(nil)
	require.NoError(t, err)
	return share
}
