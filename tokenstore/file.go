package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/token"
)

// FileStore keeps the pair in a JSON file with the fixed keys "access" and "refresh". The file
// is re-read on every Load so separate processes sharing it see each other's writes.
type FileStore struct {
	path       string
	passphrase string

	mu sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file store. A non-empty passphrase encrypts the file at rest.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("[tokenstore NewFileStore] %w: credentials file path is required", errors.ErrInvalidConfig)
	}
	return &FileStore{path: path, passphrase: passphrase}, nil
}

// Path returns the credentials file location.
func (s *FileStore) Path() string {
	return s.path
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, pair token.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(pair)
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (token.Pair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair, err := s.loadLocked()
	if err != nil {
		return token.Pair{}, false, err
	}
	return pair, !pair.IsZero(), nil
}

// SetAccess implements Store.
func (s *FileStore) SetAccess(_ context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, err := s.loadLocked()
	if err != nil {
		return err
	}
	pair.Access = access
	return s.persistLocked(pair)
}

// Clear implements Store.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "[tokenstore FileStore.Clear] remove credentials file")
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) loadLocked() (token.Pair, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return token.Pair{}, nil
		}
		return token.Pair{}, errors.Wrapf(err, "[tokenstore FileStore.loadLocked] read credentials file")
	}
	if len(b) == 0 {
		return token.Pair{}, nil
	}

	if isSealed(b) {
		if s.passphrase == "" {
			return token.Pair{}, errors.New("[tokenstore FileStore.loadLocked] credentials file is encrypted but no passphrase is configured")
		}
		if b, err = open(s.passphrase, b); err != nil {
			return token.Pair{}, err
		}
	}

	var decoded map[string]string
	if err := json.Unmarshal(b, &decoded); err != nil {
		return token.Pair{}, errors.Wrapf(err, "[tokenstore FileStore.loadLocked] decode credentials file")
	}
	return token.Pair{Access: decoded[AccessKey], Refresh: decoded[RefreshKey]}, nil
}

// persistLocked writes to a temporary file and renames it over the old one so readers never
// see a partially written pair.
func (s *FileStore) persistLocked(pair token.Pair) error {
	b, err := json.MarshalIndent(map[string]string{
		AccessKey:  pair.Access,
		RefreshKey: pair.Refresh,
	}, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "[tokenstore FileStore.persistLocked] encode credentials file")
	}
	if s.passphrase != "" {
		if b, err = seal(s.passphrase, b); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "[tokenstore FileStore.persistLocked] mkdir credentials dir")
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return errors.Wrapf(err, "[tokenstore FileStore.persistLocked] create temp credentials file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "[tokenstore FileStore.persistLocked] write credentials file")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "[tokenstore FileStore.persistLocked] chmod credentials file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "[tokenstore FileStore.persistLocked] close credentials file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Wrapf(err, "[tokenstore FileStore.persistLocked] replace credentials file")
	}
	return nil
}
