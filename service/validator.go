package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"voting-protocol/election"
	"voting-protocol/encryption"
	"voting-protocol/models"
	"voting-protocol/registry"
)

// ErrRejectedShare reports a remote share that failed the single-vote check.
// Rejected shares are dropped, never fatal.
var ErrRejectedShare = errors.New("share rejected")

// ShareValidator is the pluggable single-vote predicate. Whether it trial
// decrypts with a key of its own or verifies an attached proof is an
// implementation choice; the validator role only needs accept (nil) or a
// reason to drop.
type ShareValidator interface {
	Validate(share models.CasterOutput) error
}

// ShareValidatorFunc adapts a function to the ShareValidator capability.
type ShareValidatorFunc func(share models.CasterOutput) error

func (f ShareValidatorFunc) Validate(share models.CasterOutput) error {
	return f(share)
}

// TrialDecryptValidator implements the single-vote check by decrypting the
// share and testing the plaintext's shape. It holds a decrypting scheme,
// which makes the validator a semi-trusted party in this configuration.
type TrialDecryptValidator struct {
	codec  *election.Codec
	scheme encryption.HomomorphicScheme
}

func NewTrialDecryptValidator(params election.Parameters, scheme encryption.HomomorphicScheme) *TrialDecryptValidator {
	return &TrialDecryptValidator{codec: election.NewCodec(params), scheme: scheme}
}

func (v *TrialDecryptValidator) Validate(share models.CasterOutput) error {
	m, err := v.scheme.Decrypt(share.Product)
	if err != nil {
		return fmt.Errorf("%w: trial decryption failed: %v", ErrRejectedShare, err)
	}
	if !v.codec.IsSingleVote(m) {
		return fmt.Errorf("%w: plaintext is not a single vote", ErrRejectedShare)
	}
	return nil
}

// Validator is the phase-2 role: a pure filter over remote locality shares.
// It combines nothing; it only decides which shares may enter the aggregate.
type Validator struct {
	scheme  encryption.HomomorphicScheme
	check   ShareValidator
	signer  *encryption.Signer
	reg     registry.LocalityRegistry
	metrics *PhaseMetrics
	log     *zap.SugaredLogger
	done    bool
}

func NewValidator(params election.Parameters, scheme encryption.HomomorphicScheme,
	check ShareValidator, log *zap.SugaredLogger) (*Validator, error) {

	if err := params.Validate(scheme.MessageBits()); err != nil {
		return nil, err
	}
	return &Validator{
		scheme: scheme,
		check:  check,
		signer: encryption.NewSigner(),
		log:    log,
	}, nil
}

// SetRegistry arms attestation checks: with a registry present, every share
// must carry a signature from a registered locality, and each locality is
// admitted once.
func (v *Validator) SetRegistry(reg registry.LocalityRegistry) {
	v.reg = reg
}

func (v *Validator) SetMetrics(m *PhaseMetrics) {
	v.metrics = m
}

// Filter runs the single validation pass. Every share is judged
// independently; rejects are logged and dropped.
func (v *Validator) Filter(shares []models.CasterOutput) (*models.ValidatorOutput, error) {
	if v.done {
		return nil, fmt.Errorf("%w: validator already ran", ErrInvalidState)
	}
	v.done = true
	started := time.Now()

	out := &models.ValidatorOutput{Timestamp: time.Now().Unix()}
	for _, share := range shares {
		if err := v.admit(share); err != nil {
			v.log.Warnw("dropping share", "share", share.ID, "locality", share.LocalityID, "reason", err)
			out.Rejected++
			continue
		}
		out.Accepted = append(out.Accepted, share)
	}

	v.metrics.RecordValidate(time.Since(started))
	v.log.Infow("share validation done", "accepted", len(out.Accepted), "rejected", out.Rejected)
	return out, nil
}

func (v *Validator) admit(share models.CasterOutput) error {
	if !v.scheme.IsWellFormed(share.Product) {
		return encryption.ErrMalformedCiphertext
	}

	if v.reg != nil {
		details, err := v.reg.Details(share.LocalityID)
		if err != nil {
			return err
		}
		if !v.signer.Verify(share.SigningBytes(), share.Signature, details.PublicKey) {
			return fmt.Errorf("%w: attestation does not verify", ErrRejectedShare)
		}
	}

	if err := v.check.Validate(share); err != nil {
		return err
	}

	// The locality is marked included only once its share has passed every
	// check, so a rejected share never consumes the locality's slot.
	if v.reg != nil {
		return v.reg.MarkIncluded(share.LocalityID)
	}
	return nil
}
