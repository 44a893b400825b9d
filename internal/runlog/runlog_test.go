package runlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func logRuns(t *testing.T, l *Logger, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := l.Log(Entry{
			Source:   "/var/log/audit/audit.log",
			Format:   "yaml",
			Lines:    10 + i,
			Records:  10 + i,
			Subjects: 3,
		}, time.Duration(i)*time.Millisecond)
		if err != nil {
			t.Fatalf("log entry %d: %v", i, err)
		}
	}
}

func TestLogAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logRuns(t, logger, 5)

	if err := Verify(path); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestLogFillsChainFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	e, err := logger.Log(Entry{Source: "-", Format: "json", ExitCode: 1, Error: "boom"}, 1500*time.Microsecond)
	if err != nil {
		t.Fatal(err)
	}
	if e.Seq != 1 {
		t.Errorf("seq = %d, want 1", e.Seq)
	}
	if e.PrevHash != genesis {
		t.Errorf("prev_hash = %q, want genesis", e.PrevHash)
	}
	if len(e.RunID) != 36 {
		t.Errorf("run id = %q, want a uuid", e.RunID)
	}
	if e.Duration != 1.5 {
		t.Errorf("duration = %v, want 1.5", e.Duration)
	}
	if e.Hash != e.digest() {
		t.Error("hash does not match entry")
	}
	if logger.Path() != path {
		t.Errorf("path = %q", logger.Path())
	}
}

func TestLogKeepsRunID(t *testing.T) {
	logger, err := NewLogger(filepath.Join(t.TempDir(), "history.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	id := NewRunID()
	e, err := logger.Log(Entry{RunID: id}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if e.RunID != id {
		t.Errorf("run id = %q, want %q", e.RunID, id)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logRuns(t, logger, 3)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), `"records":11`, `"records":99`, 1)
	if tampered == string(data) {
		t.Fatal("tamper target not found")
	}
	if err := os.WriteFile(path, []byte(tampered), 0600); err != nil {
		t.Fatal(err)
	}

	err = Verify(path)
	if err == nil || !strings.Contains(err.Error(), "line 2: run 2: hash mismatch") {
		t.Fatalf("verify = %v, want hash mismatch on line 2", err)
	}
}

func TestVerifyDetectsSequenceGap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logRuns(t, logger, 5)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.SplitAfter(string(data), "\n")
	newData := []byte(strings.Join(append(lines[:2], lines[3:]...), ""))
	if err := os.WriteFile(path, newData, 0600); err != nil {
		t.Fatal(err)
	}

	err = Verify(path)
	if err == nil || !strings.Contains(err.Error(), "line 3: run 4 follows run 2") {
		t.Fatalf("verify = %v, want sequence gap at line 3", err)
	}
}

func TestVerifyEmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	if err := os.WriteFile(path, []byte{}, 0600); err != nil {
		t.Fatal(err)
	}
	if err := Verify(path); err != nil {
		t.Fatalf("empty history should be valid: %v", err)
	}
}

func TestVerifyMissingFile(t *testing.T) {
	if err := Verify(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("expected error for missing history")
	}
}

func TestLoggerResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	logger1, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logRuns(t, logger1, 2)

	logger2, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logRuns(t, logger2, 1)

	if err := Verify(path); err != nil {
		t.Fatalf("chain should be valid after restart: %v", err)
	}

	entries, err := Tail(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[2].Seq != 3 {
		t.Errorf("expected seq 3, got %d", entries[2].Seq)
	}
}

func TestTailLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logRuns(t, logger, 4)

	entries, err := Tail(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Seq != 3 || entries[1].Seq != 4 {
		t.Errorf("tail(2) = %+v", entries)
	}
}

// appendRaw chains entries onto path as-is, bypassing Log's checks.
func appendRaw(t *testing.T, path string, entries ...Entry) {
	t.Helper()
	prev := genesis
	var seq uint64
	if last, err := Tail(path, 1); err == nil && len(last) == 1 {
		prev, seq = last[0].Hash, last[0].Seq
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, e := range entries {
		seq++
		e.Seq, e.PrevHash = seq, prev
		e.Hash = e.digest()
		data, err := json.Marshal(e)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			t.Fatal(err)
		}
		prev = e.Hash
	}
}

func TestVerifyChecksRunFields(t *testing.T) {
	ok := Entry{RunID: NewRunID(), Source: "-", Format: "yaml", Lines: 3, Records: 2, Filtered: 1, Subjects: 1}
	tests := []struct {
		name   string
		modify func(e *Entry)
		want   string
	}{
		{"bad run id", func(e *Entry) { e.RunID = "run-7" }, "run id"},
		{"success with error", func(e *Entry) { e.Error = "boom" }, "successful run carries an error"},
		{"failure without error", func(e *Entry) { e.ExitCode = 1 }, "exit code 1 without an error"},
		{"records exceed lines", func(e *Entry) { e.Records = 5 }, "from 3 lines"},
		{"subjects exceed records", func(e *Entry) { e.Subjects = 4 }, "4 subjects from 2 records"},
		{"negative duration", func(e *Entry) { e.Duration = -1 }, "negative duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history.jsonl")
			bad := ok
			tt.modify(&bad)
			appendRaw(t, path, ok, bad)

			err := Verify(path)
			if err == nil || !strings.Contains(err.Error(), "line 2: run 2: "+tt.want) {
				t.Fatalf("verify = %v, want %q on line 2", err, tt.want)
			}
		})
	}
}

func TestLogRejectsInconsistentRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := logger.Log(Entry{ExitCode: 1}, 0); err == nil {
		t.Fatal("expected error for failed run without message")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("rejected entry was written: %v", err)
	}
	logRuns(t, logger, 1)
	if err := Verify(path); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logRuns(t, logger, 1)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{not json\n")
	f.Close()

	if err := Verify(path); err == nil || !strings.Contains(err.Error(), "line 2: invalid JSON") {
		t.Fatalf("verify = %v, want invalid JSON on line 2", err)
	}
}
