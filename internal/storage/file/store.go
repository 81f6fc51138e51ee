// Package file implements the account store as one JSON document per
// account under a data directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sirosfoundation/go-fiscal/internal/storage"
)

const suffix = ".json"

// Store implements storage.AccountStore on the local filesystem.
// Documents are named {apiKey}.json.
type Store struct {
	dir string

	// mu serializes writers so the CNPJ uniqueness scan and the write are atomic
	mu sync.RWMutex
}

// NewStore creates the data directory if needed and returns a store on it
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// path maps an API key to its document. Keys that are not UUIDs never
// reach the filesystem.
func (s *Store) path(apiKey string) (string, bool) {
	id, err := uuid.Parse(apiKey)
	if err != nil || id.String() != strings.ToLower(apiKey) {
		return "", false
	}
	return filepath.Join(s.dir, id.String()+suffix), true
}

func (s *Store) Close(ctx context.Context) error { return nil }

// Ping checks the data directory is still reachable
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, account *storage.Account) error {
	p, ok := s.path(account.APIKey)
	if !ok {
		return fmt.Errorf("invalid api key %q", account.APIKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(p); err == nil {
		return fmt.Errorf("%w: api key", storage.ErrAccountExists)
	}
	if _, err := s.findByCNPJ(account.Metadata.CNPJ); err == nil {
		return fmt.Errorf("%w: cnpj %s", storage.ErrAccountExists, account.Metadata.CNPJ)
	} else if !errors.Is(err, storage.ErrAccountNotFound) {
		return err
	}
	return s.write(p, account)
}

func (s *Store) GetAccount(ctx context.Context, apiKey string) (*storage.Account, error) {
	p, ok := s.path(apiKey)
	if !ok {
		return nil, storage.ErrAccountNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return read(p)
}

func (s *Store) GetAccountByCNPJ(ctx context.Context, cnpj string) (*storage.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByCNPJ(cnpj)
}

func (s *Store) findByCNPJ(cnpj string) (*storage.Account, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		a, err := read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			// unreadable documents are skipped rather than failing every lookup
			continue
		}
		if a.Metadata.CNPJ == cnpj {
			return a, nil
		}
	}
	return nil, storage.ErrAccountNotFound
}

func (s *Store) UpdateAccount(ctx context.Context, account *storage.Account) error {
	p, ok := s.path(account.APIKey)
	if !ok {
		return storage.ErrAccountNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return storage.ErrAccountNotFound
	}
	if other, err := s.findByCNPJ(account.Metadata.CNPJ); err == nil && other.APIKey != account.APIKey {
		return fmt.Errorf("%w: cnpj %s", storage.ErrAccountExists, account.Metadata.CNPJ)
	}
	return s.write(p, account)
}

func (s *Store) DeleteAccount(ctx context.Context, apiKey string) error {
	p, ok := s.path(apiKey)
	if !ok {
		return storage.ErrAccountNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return storage.ErrAccountNotFound
	}
	return err
}

func (s *Store) AccountExists(ctx context.Context, apiKey string) (bool, error) {
	p, ok := s.path(apiKey)
	if !ok {
		return false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// write replaces the document through a temporary file and rename, so
// readers never observe a partial document.
func (s *Store) write(p string, account *storage.Account) error {
	data, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding account: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".account-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing account: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing account: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("writing account: %w", err)
	}
	return os.Rename(tmp.Name(), p)
}

func read(p string) (*storage.Account, error) {
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading account: %w", err)
	}
	var a storage.Account
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding account %s: %w", filepath.Base(p), err)
	}
	return &a, nil
}

var _ storage.AccountStore = (*Store)(nil)
