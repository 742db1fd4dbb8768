package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger appends submission entries to a hash-chained JSONL file.
type Logger struct {
	mu   sync.Mutex
	path string
	last Entry // Seq and Hash of the newest entry; zero before the first
	now  func() time.Time
}

// NewLogger opens or creates an audit log at path and resumes its chain
// from the newest readable entry.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	l := &Logger{path: path, now: time.Now}
	l.last.Hash = genesisHash()

	entries, _ := readEntries(path)
	if n := len(entries); n > 0 {
		l.last = entries[n-1].Entry
	}
	return l, nil
}

// Log appends an entry for rec.
func (l *Logger) Log(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := rec.entry(l.last.Seq+1, l.last.Hash, l.now())
	if err := appendLine(l.path, e); err != nil {
		return err
	}
	l.last = e
	return nil
}

// Path returns the audit log file path.
func (l *Logger) Path() string { return l.path }
