// Package profile manages brand profiles and their product catalogs. All
// profiles live in a single JSON file that is written atomically.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nborup/skribent/internal/apperr"
	"github.com/nborup/skribent/internal/models"
)

type fileData struct {
	Profiles []models.Profile `json:"profiles"`
	Current  string           `json:"current_profile"`
}

// Store is a file-backed profile collection. All mutations rewrite the
// whole file atomically; the in-memory copy is the source of truth between
// writes.
type Store struct {
	path string

	mu   sync.RWMutex
	data fileData
}

// NewStore loads (or initializes) the profile file at path.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("profile: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// First run: an empty store is fine.
	default:
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	return s, nil
}

// persist writes the current state atomically. Caller holds mu.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("profile: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("profile: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".profiles-tmp-*")
	if err != nil {
		return fmt.Errorf("profile: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("profile: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("profile: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("profile: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("profile: rename temp: %w", err)
	}
	return nil
}

// find returns the index of the profile with the given name, or -1.
// Caller holds mu. Names compare case-insensitively.
func (s *Store) find(name string) int {
	for i, p := range s.data.Profiles {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

// List returns all profiles.
func (s *Store) List() []models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Profile, len(s.data.Profiles))
	copy(out, s.data.Profiles)
	return out
}

// Get returns a profile by name.
func (s *Store) Get(name string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.find(name)
	if i < 0 {
		return models.Profile{}, apperr.ErrNotFound
	}
	return s.data.Profiles[i], nil
}

// Create adds a new profile. Names are unique case-insensitively.
func (s *Store) Create(p models.Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: profile name is required", apperr.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(p.Name) >= 0 {
		return apperr.ErrAlreadyExists
	}
	s.data.Profiles = append(s.data.Profiles, p)
	return s.persist()
}

// Update replaces the profile named name. Renaming onto another existing
// profile is rejected.
func (s *Store) Update(name string, p models.Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: profile name is required", apperr.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(name)
	if i < 0 {
		return apperr.ErrNotFound
	}
	if !strings.EqualFold(name, p.Name) && s.find(p.Name) >= 0 {
		return apperr.ErrAlreadyExists
	}
	s.data.Profiles[i] = p
	if strings.EqualFold(s.data.Current, name) {
		s.data.Current = p.Name
	}
	return s.persist()
}

// Delete removes a profile. Deleting the current profile clears the
// selection.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(name)
	if i < 0 {
		return apperr.ErrNotFound
	}
	s.data.Profiles = append(s.data.Profiles[:i], s.data.Profiles[i+1:]...)
	if strings.EqualFold(s.data.Current, name) {
		s.data.Current = ""
	}
	return s.persist()
}

// Select marks a profile as the current one.
func (s *Store) Select(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(name)
	if i < 0 {
		return apperr.ErrNotFound
	}
	s.data.Current = s.data.Profiles[i].Name
	return s.persist()
}

// Current returns the selected profile, or ErrNoProfile when none is
// selected.
func (s *Store) Current() (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.Current == "" {
		return models.Profile{}, apperr.ErrNoProfile
	}
	i := s.find(s.data.Current)
	if i < 0 {
		return models.Profile{}, apperr.ErrNoProfile
	}
	return s.data.Profiles[i], nil
}

// AddProduct appends a product to a profile's catalog. Product names are
// unique within the profile, compared case-insensitively.
func (s *Store) AddProduct(profileName string, p models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: product name is required", apperr.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(profileName)
	if i < 0 {
		return apperr.ErrNotFound
	}
	for _, existing := range s.data.Profiles[i].Products {
		if strings.EqualFold(existing.Name, p.Name) {
			return apperr.ErrAlreadyExists
		}
	}
	s.data.Profiles[i].Products = append(s.data.Profiles[i].Products, p)
	return s.persist()
}

// UpdateProduct replaces the product at idx in a profile's catalog.
func (s *Store) UpdateProduct(profileName string, idx int, p models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: product name is required", apperr.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(profileName)
	if i < 0 {
		return apperr.ErrNotFound
	}
	products := s.data.Profiles[i].Products
	if idx < 0 || idx >= len(products) {
		return fmt.Errorf("%w: product index %d out of range", apperr.ErrInvalid, idx)
	}
	for j, existing := range products {
		if j != idx && strings.EqualFold(existing.Name, p.Name) {
			return apperr.ErrAlreadyExists
		}
	}
	products[idx] = p
	return s.persist()
}

// DeleteProduct removes the product at idx from a profile's catalog.
func (s *Store) DeleteProduct(profileName string, idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(profileName)
	if i < 0 {
		return apperr.ErrNotFound
	}
	products := s.data.Profiles[i].Products
	if idx < 0 || idx >= len(products) {
		return fmt.Errorf("%w: product index %d out of range", apperr.ErrInvalid, idx)
	}
	s.data.Profiles[i].Products = append(products[:idx], products[idx+1:]...)
	return s.persist()
}

// Export returns a profile serialized for download.
func (s *Store) Export(name string) ([]byte, error) {
	p, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("profile: export: %w", err)
	}
	return append(data, '\n'), nil
}

// Import parses a serialized profile and adds it, deduplicating the name
// with a numeric suffix when it collides.
func (s *Store) Import(data []byte) (models.Profile, error) {
	var p models.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return models.Profile{}, fmt.Errorf("%w: malformed profile file", apperr.ErrInvalid)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Profile{}, fmt.Errorf("%w: profile name is required", apperr.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	base := p.Name
	for n := 2; s.find(p.Name) >= 0; n++ {
		p.Name = fmt.Sprintf("%s (%d)", base, n)
	}
	s.data.Profiles = append(s.data.Profiles, p)
	if err := s.persist(); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}
