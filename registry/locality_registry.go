package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	ErrUnknownLocality   = errors.New("locality not registered")
	ErrDuplicateShare    = errors.New("locality share already included")
	ErrAlreadyRegistered = errors.New("locality already registered")
)

// LocalityRegistry knows which localities may contribute shares to the global
// aggregate and which ones already have. The validator consults it before a
// remote share enters the tally.
type LocalityRegistry interface {
	Register(details *LocalityDetails) error
	Details(localityID string) (*LocalityDetails, error)
	MarkIncluded(localityID string) error
	List() []*LocalityDetails
}

// LocalityDetails describes one registered locality.
type LocalityDetails struct {
	LocalityID   string    `json:"locality_id"`
	PublicKey    []byte    `json:"public_key"`
	RegisteredAt time.Time `json:"registered_at"`
	Included     bool      `json:"included"`
}

// FileRegistry implements LocalityRegistry backed by a JSON file.
type FileRegistry struct {
	localities map[string]*LocalityDetails
	mu         sync.RWMutex
	config     RegistryConfig
}

type RegistryConfig struct {
	FilePath string `json:"file_path"`
	AutoSave bool   `json:"auto_save"`
}

func NewFileRegistry(config RegistryConfig) (*FileRegistry, error) {
	r := &FileRegistry{
		localities: make(map[string]*LocalityDetails),
		config:     config,
	}

	if config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := r.load(); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *FileRegistry) Register(details *LocalityDetails) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if details.LocalityID == "" {
		return errors.New("empty locality id")
	}
	if _, exists := r.localities[details.LocalityID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, details.LocalityID)
	}

	stored := *details
	if stored.RegisteredAt.IsZero() {
		stored.RegisteredAt = time.Now()
	}
	r.localities[details.LocalityID] = &stored

	return r.autoSave()
}

func (r *FileRegistry) Details(localityID string) (*LocalityDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	details, exists := r.localities[localityID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLocality, localityID)
	}
	copied := *details
	return &copied, nil
}

// MarkIncluded records that a locality's share entered the aggregate, so a
// replayed share from the same locality is rejected.
func (r *FileRegistry) MarkIncluded(localityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	details, exists := r.localities[localityID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownLocality, localityID)
	}
	if details.Included {
		return fmt.Errorf("%w: %s", ErrDuplicateShare, localityID)
	}
	details.Included = true

	return r.autoSave()
}

func (r *FileRegistry) List() []*LocalityDetails {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*LocalityDetails, 0, len(r.localities))
	for _, details := range r.localities {
		copied := *details
		list = append(list, &copied)
	}
	return list
}

func (r *FileRegistry) load() error {
	data, err := os.ReadFile(r.config.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read registry file: %w", err)
	}

	var stored struct {
		Localities []*LocalityDetails `json:"localities"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal registry: %w", err)
	}

	for _, details := range stored.Localities {
		r.localities[details.LocalityID] = details
	}
	return nil
}

func (r *FileRegistry) autoSave() error {
	if !r.config.AutoSave || r.config.FilePath == "" {
		return nil
	}

	stored := struct {
		Localities []*LocalityDetails `json:"localities"`
	}{}
	for _, details := range r.localities {
		stored.Localities = append(stored.Localities, details)
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.WriteFile(r.config.FilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
