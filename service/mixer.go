package service

import (
	"crypto/rand"
	"math/big"

	"voting-protocol/models"
)

// Mixer shuffles collected ballots before they are folded. The fold itself is
// order-independent, but the audit ledger records ballots in processing order,
// so mixing keeps arrival order out of the persisted trail.
type Mixer struct{}

func NewMixer() *Mixer {
	return &Mixer{}
}

// Shuffle returns a Fisher-Yates permutation of ballots; the input slice is
// left untouched.
func (mx *Mixer) Shuffle(ballots []models.Ballot) []models.Ballot {
	shuffled := make([]models.Ballot, len(ballots))
	copy(shuffled, ballots)

	for i := len(shuffled) - 1; i > 0; i-- {
		j, _ := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		shuffled[i], shuffled[j.Int64()] = shuffled[j.Int64()], shuffled[i]
	}
	return shuffled
}
