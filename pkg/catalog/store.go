package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/greenscout/scout-engine/internal/utils"
)

// Store persists the whole product collection at once
type Store interface {
	Load() ([]Product, error)
	Save(products []Product) error
}

// MemoryStore keeps the collection in memory
type MemoryStore struct {
	mu       sync.Mutex
	products []Product
}

// NewMemoryStore creates a memory store seeded with products
func NewMemoryStore(products ...Product) *MemoryStore {
	s := &MemoryStore{}
	for _, p := range products {
		s.products = append(s.products, p.Clone())
	}
	return s
}

func (s *MemoryStore) Load() ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.products), nil
}

func (s *MemoryStore) Save(products []Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = cloneAll(products)
	return nil
}

// FileStore keeps the collection in a JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the JSON file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

type catalogFile struct {
	Products []Product `json:"products"`
}

// Load reads the collection. A missing file is an empty catalog.
func (s *FileStore) Load() ([]Product, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return file.Products, nil
}

// Save writes the collection to a temporary file and renames it into place
func (s *FileStore) Save(products []Product) error {
	if err := utils.EnsureDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	data, err := json.MarshalIndent(catalogFile{Products: products}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace catalog file: %w", err)
	}
	return nil
}

func cloneAll(ps []Product) []Product {
	if ps == nil {
		return nil
	}
	out := make([]Product, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}
