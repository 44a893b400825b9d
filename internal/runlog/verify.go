package runlog

import (
	"encoding/json"
	"fmt"
)

// Verify walks the history and returns the first broken link: a line that is
// not JSON, a sequence gap, a prev_hash or hash mismatch, or an entry whose
// run fields are inconsistent. An empty history is valid.
func Verify(path string) error {
	prev := Entry{Hash: genesis}
	return scan(path, func(n int, line []byte) error {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", n, err)
		}
		if e.Seq != prev.Seq+1 {
			return fmt.Errorf("line %d: run %d follows run %d", n, e.Seq, prev.Seq)
		}
		if e.PrevHash != prev.Hash {
			return fmt.Errorf("line %d: run %d: prev_hash mismatch: want %s, got %s", n, e.Seq, short(prev.Hash), short(e.PrevHash))
		}
		if got := e.digest(); e.Hash != got {
			return fmt.Errorf("line %d: run %d: hash mismatch: want %s, got %s", n, e.Seq, short(got), short(e.Hash))
		}
		if err := e.check(); err != nil {
			return fmt.Errorf("line %d: run %d: %w", n, e.Seq, err)
		}
		prev = e
		return nil
	})
}

// Tail returns up to the last n readable entries, oldest first. n < 0 means
// all of them.
func Tail(path string, n int) ([]Entry, error) {
	var entries []Entry
	err := scan(path, func(_ int, line []byte) error {
		var e Entry
		if json.Unmarshal(line, &e) != nil {
			return nil
		}
		entries = append(entries, e)
		if n >= 0 && len(entries) > n {
			entries = entries[1:]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func short(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "..."
}
