// Package journal persists decision cycle records as timestamped JSON files.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cropagent/pkg/agent"
)

// Writer persists cycle records to a directory, one JSON file per cycle. It
// implements agent.Recorder.
type Writer struct {
	dir   string
	mu    sync.Mutex
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer rooted at dir, creating the
// directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = "journal"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: create directory %s: %w", dir, err)
	}
	return &Writer{dir: dir, nowFn: time.Now}, nil
}

// RecordCycle writes one cycle record to a timestamped JSON file.
func (w *Writer) RecordCycle(_ context.Context, rec agent.CycleRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn().UTC()
	}

	w.mu.Lock()
	w.seq++
	seq := w.seq
	w.mu.Unlock()

	name := fmt.Sprintf("cycle_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), seq)
	path := filepath.Join(w.dir, name)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("journal: encode cycle record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("journal: write cycle record: %w", err)
	}
	return nil
}
