package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"pocketdex/pkg/types"
)

// MaxEntries caps the local history; the oldest entry is evicted when a new
// one would exceed it. History is a display aid, not an accounting record.
const MaxEntries = 50

// Log is an append-only, size-capped transaction history persisted as JSON
type Log struct {
	filePath string
	mu       sync.RWMutex
	records  []*types.TxRecord
}

type logFile struct {
	Records []*types.TxRecord `json:"records"`
}

// NewLog opens or creates a history log at filePath
func NewLog(filePath string) (*Log, error) {
	l := &Log{filePath: filePath}

	if err := l.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
	}

	return l, nil
}

func (l *Log) load() error {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return err
	}

	var lf logFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}

	l.records = lf.Records
	if len(l.records) > MaxEntries {
		l.records = l.records[len(l.records)-MaxEntries:]
	}
	return nil
}

func (l *Log) save() error {
	data, err := json.MarshalIndent(logFile{Records: l.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(l.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := l.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	if err := os.Rename(tempFile, l.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Append records a transaction. The record gets an ID and timestamp if it
// has none, and the oldest entry is evicted once the cap is reached.
func (l *Log) Append(record *types.TxRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	l.records = append(l.records, record)
	if len(l.records) > MaxEntries {
		l.records = l.records[len(l.records)-MaxEntries:]
	}

	return l.save()
}

// UpdateStatus sets the status (and optionally the hash) of an existing
// record by ID
func (l *Log) UpdateStatus(id string, status types.TxStatus, hash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.records {
		if r.ID == id {
			r.Status = status
			if hash != "" {
				r.Hash = hash
			}
			return l.save()
		}
	}

	return fmt.Errorf("history record '%s' not found", id)
}

// List returns all records, newest first
func (l *Log) List() []*types.TxRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*types.TxRecord, len(l.records))
	for i, r := range l.records {
		out[len(l.records)-1-i] = r
	}
	return out
}

// Len returns the number of stored records
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
