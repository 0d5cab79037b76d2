package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voting-protocol/logging"
	"voting-protocol/models"
)

func newTestCombiner(t *testing.T, f *testFixture) *Combiner {
	t.Helper()
	combiner, err := NewCombiner(f.params, f.decryptor, logging.Nop())
	require.NoError(t, err)
	return combiner
}

func TestCombinerLocalOnly(t *testing.T) {
	f := newFixture(t)
	local := f.singleVoteShare(t, "west", 2)

	out, err := newTestCombiner(t, f).Tally(*local, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<8), out.Plaintext.Int64())
	assert.Equal(t, []uint64{0, 0, 1}, out.Tally)
}

func TestCombinerFoldsRemoteShares(t *testing.T) {
	f := newFixture(t)
	local := f.singleVoteShare(t, "west", 0)
	east := f.singleVoteShare(t, "east", 1)
	north := f.singleVoteShare(t, "north", 1)

	out, err := newTestCombiner(t, f).Tally(*local, []models.CasterOutput{*east, *north})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 0}, out.Tally)
}

func TestCombinerDecryptionFailureIsFatal(t *testing.T) {
	f := newFixture(t)

	outside := models.CasterOutput{LocalityID: "west", Product: f.key.NSquared.Bytes()}
	_, err := newTestCombiner(t, f).Tally(outside, nil)
	assert.Error(t, err)
}

func TestCombinerRunsOnce(t *testing.T) {
	f := newFixture(t)
	local := f.singleVoteShare(t, "west", 0)
	combiner := newTestCombiner(t, f)

	_, err := combiner.Tally(*local, nil)
	require.NoError(t, err)
	_, err = combiner.Tally(*local, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}
