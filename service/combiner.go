package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"voting-protocol/election"
	"voting-protocol/encryption"
	"voting-protocol/models"
)

// Combiner is the phase-3 role: it folds the local product with every
// accepted remote share, decrypts the aggregate with the authority key and
// decodes the tally. It is the only role constructed with a decrypting
// scheme.
type Combiner struct {
	codec   *election.Codec
	scheme  encryption.HomomorphicScheme
	metrics *PhaseMetrics
	log     *zap.SugaredLogger
	done    bool
}

func NewCombiner(params election.Parameters, scheme encryption.HomomorphicScheme,
	log *zap.SugaredLogger) (*Combiner, error) {

	if err := params.Validate(scheme.MessageBits()); err != nil {
		return nil, err
	}
	return &Combiner{
		codec:  election.NewCodec(params),
		scheme: scheme,
		log:    log,
	}, nil
}

func (cb *Combiner) SetMetrics(m *PhaseMetrics) {
	cb.metrics = m
}

// Tally runs the single combining pass: prod(c) = combine(Mul(c), cMi...),
// then decrypt and decode. A decryption failure is fatal for the run and
// surfaces to the caller.
func (cb *Combiner) Tally(local models.CasterOutput, accepted []models.CasterOutput) (*models.CombinerOutput, error) {
	if cb.done {
		return nil, fmt.Errorf("%w: combiner already ran", ErrInvalidState)
	}
	cb.done = true
	started := time.Now()

	product := local.Product
	for _, share := range accepted {
		combined, err := cb.scheme.Combine(product, share.Product)
		if err != nil {
			return nil, fmt.Errorf("failed to fold share from %s: %w", share.LocalityID, err)
		}
		product = combined
	}

	plaintext, err := cb.scheme.Decrypt(product)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt aggregate: %w", err)
	}

	out := &models.CombinerOutput{
		Plaintext: plaintext,
		Tally:     cb.codec.DecodeTally(plaintext),
		Timestamp: time.Now().Unix(),
	}

	cb.metrics.RecordCombine(time.Since(started))
	cb.log.Infow("tally decoded", "shares", len(accepted)+1, "plaintext", plaintext.String(), "tally", out.Tally)
	return out, nil
}
