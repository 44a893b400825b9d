package runlog

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// genesis is the prev_hash of the first run.
var genesis = func() string {
	h := sha256.Sum256([]byte("auditsum-genesis"))
	return hex.EncodeToString(h[:])
}()

// Logger appends runs to a hash-chained JSONL history.
type Logger struct {
	mu   sync.Mutex
	path string
	last Entry // zero before the first run
}

// NewLogger opens the history at path, creating its directory, and picks up
// the chain from the last readable entry.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	l := &Logger{path: path}
	err := scan(path, func(_ int, line []byte) error {
		var e Entry
		if json.Unmarshal(line, &e) == nil {
			l.last = e
		}
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return l, nil
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// Log chains e onto the history and appends it. Seq, Time, PrevHash and Hash
// are filled in, RunID when empty, and Duration from d in milliseconds.
func (l *Logger) Log(e Entry, d time.Duration) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.RunID == "" {
		e.RunID = NewRunID()
	}
	e.Seq = l.last.Seq + 1
	e.Time = time.Now().UTC()
	e.PrevHash = l.prevHash()
	e.Duration = float64(d.Microseconds()) / 1000
	if err := e.check(); err != nil {
		return e, fmt.Errorf("history entry: %w", err)
	}
	e.Hash = e.digest()

	data, err := json.Marshal(e)
	if err != nil {
		return e, fmt.Errorf("marshal history entry: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return e, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return e, fmt.Errorf("write history entry: %w", err)
	}
	l.last = e
	return e, nil
}

// Path returns the history file path.
func (l *Logger) Path() string {
	return l.path
}

func (l *Logger) prevHash() string {
	if l.last.Seq == 0 {
		return genesis
	}
	return l.last.Hash
}

// scan calls fn for each non-empty line of the history with its 1-based
// line number.
func scan(path string, fn func(n int, line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for n := 1; ; n++ {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			line = line[:len(line)-1]
		}
		if len(line) > 0 {
			if ferr := fn(n, line); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
	}
}
