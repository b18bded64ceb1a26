package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/saaw-digital/giveaway-service/internal/model"
)

// FileStore persists the ledger as a single JSON object on local disk, one
// record per normalized code. The file is created lazily on first save.
type FileStore struct {
	path string
}

// NewFileStore creates a file store for the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the ledger file. A missing file is not an error and returns an
// empty map; unparseable contents return ErrCorrupt so real duplicates are
// never silently un-detected.
func (s *FileStore) Load(_ context.Context) (map[string]model.LedgerEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.LedgerEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read ledger file %s: %w", s.path, err)
	}

	entries := map[string]model.LedgerEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}

	return entries, nil
}

// Save writes the full ledger back to disk, creating the data directory if
// needed. The write is synchronous; it replaces the previous contents.
func (s *FileStore) Save(_ context.Context, entries map[string]model.LedgerEntry) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ledger directory %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger file %s: %w", s.path, err)
	}

	return nil
}
