package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voting-protocol/encryption"
	"voting-protocol/logging"
	"voting-protocol/models"
	"voting-protocol/registry"
)

func newTestValidator(t *testing.T, f *testFixture) *Validator {
	t.Helper()
	check := NewTrialDecryptValidator(f.params, f.decryptor)
	validator, err := NewValidator(f.params, f.scheme, check, logging.Nop())
	require.NoError(t, err)
	return validator
}

func TestValidatorAcceptsSingleVoteShare(t *testing.T) {
	f := newFixture(t)
	validator := newTestValidator(t, f)

	share := f.singleVoteShare(t, "east", 2)
	out, err := validator.Filter([]models.CasterOutput{*share})
	require.NoError(t, err)

	require.Len(t, out.Accepted, 1)
	assert.Equal(t, 0, out.Rejected)
	assert.Equal(t, share.ID, out.Accepted[0].ID)
}

func TestValidatorRejectsMultiVoteShare(t *testing.T) {
	f := newFixture(t)
	validator := newTestValidator(t, f)

	// Two ballots folded into one share: more than one vote's worth of mass.
	aggregator := f.newCaster(t, "east")
	_, err := aggregator.Cast(0)
	require.NoError(t, err)
	peer := f.newCaster(t, "east")
	ballot, err := peer.Cast(0)
	require.NoError(t, err)
	share, err := aggregator.Aggregate([]models.Ballot{*ballot})
	require.NoError(t, err)

	out, err := validator.Filter([]models.CasterOutput{*share})
	require.NoError(t, err)
	assert.Empty(t, out.Accepted)
	assert.Equal(t, 1, out.Rejected)
}

func TestValidatorRejectsMalformedShare(t *testing.T) {
	f := newFixture(t)
	validator := newTestValidator(t, f)

	malformed := models.CasterOutput{ID: "bad", LocalityID: "east", Product: f.key.N.Bytes()}
	out, err := validator.Filter([]models.CasterOutput{malformed})
	require.NoError(t, err)
	assert.Empty(t, out.Accepted)
	assert.Equal(t, 1, out.Rejected)
}

func TestValidatorEmptyInput(t *testing.T) {
	f := newFixture(t)
	validator := newTestValidator(t, f)

	out, err := validator.Filter(nil)
	require.NoError(t, err)
	assert.Empty(t, out.Accepted)
	assert.Equal(t, 0, out.Rejected)
}

func TestValidatorRunsOnce(t *testing.T) {
	f := newFixture(t)
	validator := newTestValidator(t, f)

	_, err := validator.Filter(nil)
	require.NoError(t, err)
	_, err = validator.Filter(nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestValidatorRejectionKeepsLocalityEligible(t *testing.T) {
	f := newFixture(t)

	reg, err := registry.NewFileRegistry(registry.RegistryConfig{})
	require.NoError(t, err)

	key, err := encryption.NewSigner().GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, reg.Register(&registry.LocalityDetails{
		LocalityID: "east",
		PublicKey:  encryption.NewSigner().MarshalPublicKey(&key.PublicKey),
	}))

	// A signed two-vote share from "east": fails the single-vote check.
	multi := f.newCaster(t, "east")
	multi.SetLocalityKey(key)
	_, err = multi.Cast(0)
	require.NoError(t, err)
	peer := f.newCaster(t, "east")
	ballot, err := peer.Cast(0)
	require.NoError(t, err)
	overweight, err := multi.Aggregate([]models.Ballot{*ballot})
	require.NoError(t, err)

	// A signed valid share from the same locality, later in the batch.
	valid := f.newCaster(t, "east")
	valid.SetLocalityKey(key)
	_, err = valid.Cast(1)
	require.NoError(t, err)
	good, err := valid.Aggregate(nil)
	require.NoError(t, err)

	// And a replay of the valid share after the locality is in.
	replay := *good

	validator := newTestValidator(t, f)
	validator.SetRegistry(reg)

	out, err := validator.Filter([]models.CasterOutput{*overweight, *good, replay})
	require.NoError(t, err)
	require.Len(t, out.Accepted, 1)
	assert.Equal(t, good.ID, out.Accepted[0].ID)
	assert.Equal(t, 2, out.Rejected)
}

func TestValidatorAttestationChecks(t *testing.T) {
	f := newFixture(t)

	reg, err := registry.NewFileRegistry(registry.RegistryConfig{})
	require.NoError(t, err)

	// A registered locality with an attested share.
	east := f.newCaster(t, "east")
	key, err := east.signer.GenerateKeyPair()
	require.NoError(t, err)
	east.SetLocalityKey(key)
	require.NoError(t, reg.Register(&registry.LocalityDetails{
		LocalityID: "east",
		PublicKey:  east.signer.MarshalPublicKey(&key.PublicKey),
	}))

	_, err = east.Cast(1)
	require.NoError(t, err)
	attested, err := east.Aggregate(nil)
	require.NoError(t, err)

	// An unregistered locality and an unsigned copy.
	stray := f.singleVoteShare(t, "nowhere", 0)
	unsigned := *attested
	unsigned.Signature = nil

	validator := newTestValidator(t, f)
	validator.SetRegistry(reg)

	out, err := validator.Filter([]models.CasterOutput{*attested, *stray, unsigned})
	require.NoError(t, err)
	require.Len(t, out.Accepted, 1)
	assert.Equal(t, "east", out.Accepted[0].LocalityID)
	// The stray locality is unknown; the unsigned copy is both unverifiable
	// and a duplicate of an already-included locality.
	assert.Equal(t, 2, out.Rejected)
}
