package service

import (
	"fmt"

	"go.uber.org/zap"

	"voting-protocol/election"
	"voting-protocol/encryption"
	"voting-protocol/models"
	"voting-protocol/relay"
)

// Pipeline wires the three roles over relay channels for a single-process
// election: every caster in the locality feeds its ballot into the ballot
// channel, the aggregating caster folds them, the validator filters whatever
// remote shares exist, and the combiner tallies. Production deployments run
// the roles as separate processes with an operator relaying values; the
// channel abstraction keeps the phase handoffs identical either way.
type Pipeline struct {
	params    election.Parameters
	scheme    encryption.HomomorphicScheme // public side, casters
	decryptor encryption.HomomorphicScheme // authority side, combiner
	check     ShareValidator
	log       *zap.SugaredLogger
}

func NewPipeline(params election.Parameters, scheme, decryptor encryption.HomomorphicScheme,
	check ShareValidator, log *zap.SugaredLogger) *Pipeline {

	return &Pipeline{
		params:    params,
		scheme:    scheme,
		decryptor: decryptor,
		check:     check,
		log:       log,
	}
}

// Run executes one election for a single locality plus optional remote
// shares, and returns the combiner's output.
func (p *Pipeline) Run(localityID string, choices []int, remote []models.CasterOutput) (*models.CombinerOutput, error) {
	if len(choices) == 0 {
		return nil, fmt.Errorf("no choices to cast")
	}
	session := NewElectionSession(sessionWindow)
	ballotCh := relay.NewMemory(len(choices))
	shareCh := relay.NewMemory(1)

	// Phase 1: each choice is cast by its own caster instance; the first one
	// doubles as the locality's aggregator.
	casters := make([]*Caster, len(choices))
	for i, choice := range choices {
		caster, err := NewCaster(localityID, p.params, p.scheme, session, p.log)
		if err != nil {
			return nil, err
		}
		casters[i] = caster

		ballot, err := caster.Cast(choice)
		if err != nil {
			return nil, fmt.Errorf("caster %d: %w", i, err)
		}
		if err := ballotCh.Send(*ballot); err != nil {
			return nil, err
		}
	}

	peers := make([]models.Ballot, 0, len(choices))
	for range choices {
		v, err := ballotCh.Receive()
		if err != nil {
			return nil, err
		}
		peers = append(peers, v.(models.Ballot))
	}

	local, err := casters[0].Aggregate(peers)
	if err != nil {
		return nil, fmt.Errorf("aggregating locality %s: %w", localityID, err)
	}
	if err := shareCh.Send(*local); err != nil {
		return nil, err
	}

	// Phase 2: only genuinely remote shares pass through the validator; the
	// local product is not itself vote-limited.
	validator, err := NewValidator(p.params, p.scheme, p.check, p.log)
	if err != nil {
		return nil, err
	}
	filtered, err := validator.Filter(remote)
	if err != nil {
		return nil, err
	}

	// Phase 3.
	combiner, err := NewCombiner(p.params, p.decryptor, p.log)
	if err != nil {
		return nil, err
	}
	v, err := shareCh.Receive()
	if err != nil {
		return nil, err
	}
	out, err := combiner.Tally(v.(models.CasterOutput), filtered.Accepted)
	if err != nil {
		return nil, err
	}
	return out, nil
}
