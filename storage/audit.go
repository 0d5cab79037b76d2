package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"voting-protocol/models"
)

// Ledger is the persisted form of one phase's record chain.
type Ledger struct {
	Records []*models.Record `json:"records"`
}

// AuditStore appends phase messages to hash-chained ledgers kept as JSON
// files, one per phase. Writes are atomic (write-then-rename) so a crashed
// run never leaves a torn ledger behind.
type AuditStore struct {
	basePath string
	mu       sync.RWMutex
	ledgers  map[string]*Ledger
}

// Phase names used by the role runners.
const (
	PhaseBallots = "ballots"
	PhaseShares  = "shares"
	PhaseTally   = "tally"
)

func NewAuditStore(basePath string) (*AuditStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	store := &AuditStore{
		basePath: basePath,
		ledgers:  make(map[string]*Ledger),
	}

	for _, phase := range []string{PhaseBallots, PhaseShares, PhaseTally} {
		ledger, err := store.loadLedgerFile(phase)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s ledger: %w", phase, err)
		}
		store.ledgers[phase] = ledger
	}

	return store, nil
}

// Append freezes one phase message into the ledger and persists the chain.
func (s *AuditStore) Append(phase string, data []byte) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, exists := s.ledgers[phase]
	if !exists {
		ledger = &Ledger{}
		s.ledgers[phase] = ledger
	}

	var prevHash []byte
	if n := len(ledger.Records); n > 0 {
		prevHash = ledger.Records[n-1].Hash
	}

	record := models.NewRecord(uint64(len(ledger.Records)), phase, data, prevHash)
	ledger.Records = append(ledger.Records, record)

	if err := s.saveLedgerFile(phase, ledger); err != nil {
		return nil, err
	}
	return record, nil
}

// Load returns a copy of the phase ledger.
func (s *AuditStore) Load(phase string) []*models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger, exists := s.ledgers[phase]
	if !exists {
		return nil
	}
	records := make([]*models.Record, len(ledger.Records))
	copy(records, ledger.Records)
	return records
}

// Verify checks the hash chain of one phase ledger.
func (s *AuditStore) Verify(phase string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger, exists := s.ledgers[phase]
	if !exists {
		return true
	}
	return models.ValidateLedger(ledger.Records)
}

func (s *AuditStore) ledgerPath(phase string) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s_ledger.json", phase))
}

func (s *AuditStore) loadLedgerFile(phase string) (*Ledger, error) {
	data, err := os.ReadFile(s.ledgerPath(phase))
	if err != nil {
		if os.IsNotExist(err) {
			return &Ledger{}, nil
		}
		return nil, err
	}

	var ledger Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger: %w", err)
	}
	return &ledger, nil
}

func (s *AuditStore) saveLedgerFile(phase string, ledger *Ledger) error {
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	path := s.ledgerPath(phase)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save ledger file: %w", err)
	}
	return nil
}
