package service

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voting-protocol/election"
	"voting-protocol/encryption"
	"voting-protocol/models"
)

// ErrInvalidState reports a role step invoked out of order. The roles are
// single-pass state machines; every step runs exactly once.
var ErrInvalidState = errors.New("role step out of order")

// ErrSessionClosed reports a cast attempted after the session ended.
var ErrSessionClosed = errors.New("voting session has ended")

type casterState int

const (
	casterAwaitChoice casterState = iota
	casterAwaitPeers
	casterDone
)

// Caster is the phase-1 role: it encrypts one vote and folds its locality's
// ballots into the locality product Mul(c). The nonce drawn for encryption
// never leaves Cast's stack frame.
type Caster struct {
	localityID string
	params     election.Parameters
	codec      *election.Codec
	scheme     encryption.HomomorphicScheme
	session    *ElectionSession
	signer     *encryption.Signer
	mixer      *Mixer
	metrics    *PhaseMetrics
	log        *zap.SugaredLogger

	localityKey *ecdsa.PrivateKey
	state       casterState
	own         *models.Ballot
}

// NewCaster validates the parameters against the scheme's message space and
// wires the role. The capacity check happens here so a misconfigured election
// dies before the first ballot exists.
func NewCaster(localityID string, params election.Parameters, scheme encryption.HomomorphicScheme,
	session *ElectionSession, log *zap.SugaredLogger) (*Caster, error) {

	if err := params.Validate(scheme.MessageBits()); err != nil {
		return nil, err
	}
	return &Caster{
		localityID: localityID,
		params:     params,
		codec:      election.NewCodec(params),
		scheme:     scheme,
		session:    session,
		signer:     encryption.NewSigner(),
		mixer:      NewMixer(),
		log:        log,
	}, nil
}

// SetLocalityKey arms share attestation. Must be called before Aggregate.
func (c *Caster) SetLocalityKey(key *ecdsa.PrivateKey) {
	c.localityKey = key
}

func (c *Caster) SetMetrics(m *PhaseMetrics) {
	c.metrics = m
}

// Cast encodes and encrypts the chosen candidate under a fresh nonce and
// emits the ballot to be exchanged with the locality's peers. An out-of-range
// choice is recoverable: the caster stays in the awaiting-choice state so the
// collaborator can re-prompt.
func (c *Caster) Cast(choice int) (*models.Ballot, error) {
	if c.state != casterAwaitChoice {
		return nil, fmt.Errorf("%w: vote already cast", ErrInvalidState)
	}
	if c.session != nil && !c.session.IsActive() {
		return nil, ErrSessionClosed
	}

	m, err := c.codec.EncodeVote(choice)
	if err != nil {
		return nil, err
	}

	nonce, err := c.scheme.GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to draw nonce: %w", err)
	}

	ciphertext, err := c.scheme.Encrypt(m, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt vote: %w", err)
	}

	ballot := &models.Ballot{
		ID:         uuid.New().String(),
		LocalityID: c.localityID,
		Ciphertext: ciphertext,
		Timestamp:  time.Now().Unix(),
	}
	c.own = ballot
	c.state = casterAwaitPeers

	c.log.Infow("vote cast", "locality", c.localityID, "ballot", ballot.ID, "scheme", c.scheme.Name())
	return ballot, nil
}

// Aggregate folds the locality's ballots, own included, into Mul(c). Peers
// failing the well-formedness check are dropped and the fold continues with
// the remainder; a locality left with nothing yields an encryption of zero.
func (c *Caster) Aggregate(peers []models.Ballot) (*models.CasterOutput, error) {
	if c.state != casterAwaitPeers {
		return nil, fmt.Errorf("%w: cast a vote before aggregating", ErrInvalidState)
	}
	started := time.Now()

	ballots := make([]models.Ballot, 0, len(peers)+1)
	ballots = append(ballots, *c.own)
	for _, peer := range peers {
		if peer.ID == c.own.ID {
			continue
		}
		ballots = append(ballots, peer)
	}
	ballots = c.mixer.Shuffle(ballots)

	var product []byte
	included := 0
	for _, ballot := range ballots {
		if !c.scheme.IsWellFormed(ballot.Ciphertext) {
			c.log.Warnw("dropping malformed ballot", "ballot", ballot.ID, "locality", ballot.LocalityID)
			continue
		}
		if product == nil {
			product = ballot.Ciphertext
		} else {
			combined, err := c.scheme.Combine(product, ballot.Ciphertext)
			if err != nil {
				return nil, fmt.Errorf("failed to fold ballot %s: %w", ballot.ID, err)
			}
			product = combined
		}
		included++
	}

	if included == 0 {
		identity, err := c.encryptZero()
		if err != nil {
			return nil, err
		}
		product = identity
	}

	out := &models.CasterOutput{
		ID:         uuid.New().String(),
		LocalityID: c.localityID,
		Product:    product,
		Ballots:    included,
		Timestamp:  time.Now().Unix(),
	}

	if c.localityKey != nil {
		signature, err := c.signer.Sign(out.SigningBytes(), c.localityKey)
		if err != nil {
			return nil, fmt.Errorf("failed to attest share: %w", err)
		}
		out.Signature = signature
		out.SignerKey = c.signer.MarshalPublicKey(&c.localityKey.PublicKey)
	}

	c.state = casterDone
	c.metrics.RecordCast(time.Since(started))
	c.log.Infow("locality product ready", "locality", c.localityID,
		"ballots", included, "dropped", len(ballots)-included)
	return out, nil
}

func (c *Caster) encryptZero() ([]byte, error) {
	nonce, err := c.scheme.GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to draw nonce: %w", err)
	}
	identity, err := c.scheme.Encrypt(big.NewInt(0), nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt identity: %w", err)
	}
	return identity, nil
}

// Done reports whether the caster has completed its single pass.
func (c *Caster) Done() bool {
	return c.state == casterDone
}
