package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"kick-analyzer/internal/models"

	"github.com/google/uuid"
)

// FileStore keeps session records in a JSON file
type FileStore struct {
	filePath string
	records  []*models.SessionRecord
	mu       sync.RWMutex
	maxAge   time.Duration
}

// NewFileStore opens (or creates) the session file under dataDir. Records
// older than maxAge are dropped on load; zero keeps everything.
func NewFileStore(dataDir string, maxAge time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &FileStore{
		filePath: filepath.Join(dataDir, "sessions.json"),
		maxAge:   maxAge,
	}

	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load session data: %w", err)
	}

	store.cleanup()

	return store, nil
}

func (fs *FileStore) Save(ctx context.Context, record *models.SessionRecord) (*models.SessionRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("record cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	saved := *record
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.RecordedAt.IsZero() {
		saved.RecordedAt = time.Now()
	}

	fs.records = append(fs.records, &saved)
	if err := fs.save(); err != nil {
		fs.records = fs.records[:len(fs.records)-1]
		return nil, err
	}

	out := saved
	return &out, nil
}

func (fs *FileStore) GetRecent(ctx context.Context, limit int) ([]*models.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	sorted := make([]*models.SessionRecord, len(fs.records))
	copy(sorted, fs.records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.After(sorted[j].RecordedAt)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]*models.SessionRecord, len(sorted))
	for i, r := range sorted {
		c := *r
		out[i] = &c
	}
	return out, nil
}

// Count returns the number of stored records
func (fs *FileStore) Count() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.records)
}

// cleanup removes records older than maxAge
func (fs *FileStore) cleanup() {
	if fs.maxAge <= 0 {
		return
	}
	cutoff := time.Now().Add(-fs.maxAge)

	kept := fs.records[:0]
	for _, r := range fs.records {
		if !r.RecordedAt.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	fs.records = kept
}

// load reads the session records from the JSON file
func (fs *FileStore) load() error {
	file, err := os.Open(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist yet, start empty
			return nil
		}
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&fs.records); err != nil {
		return fmt.Errorf("failed to decode session data: %w", err)
	}
	return nil
}

// save writes the records through a temp file so a crash never truncates the store
func (fs *FileStore) save() error {
	tmp := fs.filePath + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fs.records); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode session data: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	return os.Rename(tmp, fs.filePath)
}
