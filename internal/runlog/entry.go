package runlog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry records one auditsum run.
type Entry struct {
	Seq           uint64    `json:"seq"`
	RunID         string    `json:"run_id"`
	Time          time.Time `json:"ts"`
	PrevHash      string    `json:"prev_hash"`
	Source        string    `json:"source"`                 // input paths, "-" for stdin, "mcp" for tool calls
	Format        string    `json:"format"`                 // report format
	InputFormat   string    `json:"input_format,omitempty"` // raw or journal
	Strict        bool      `json:"strict,omitempty"`
	Filter        string    `json:"filter,omitempty"`
	Lines         int       `json:"lines"`
	Records       int       `json:"records"`
	Filtered      int       `json:"filtered,omitempty"`
	Subjects      int       `json:"subjects"`
	SkippedTokens int       `json:"skipped_tokens,omitempty"`
	ExitCode      int       `json:"exit_code"`
	Error         string    `json:"error,omitempty"`
	Duration      float64   `json:"duration_ms"`
	Hash          string    `json:"hash"`
}

// digest is sha256 over the previous hash followed by the entry's JSON with
// Hash cleared.
func (e Entry) digest() string {
	e.Hash = ""
	data, _ := json.Marshal(e)
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// check reports an entry that could not describe a real run.
func (e Entry) check() error {
	if _, err := uuid.Parse(e.RunID); err != nil {
		return fmt.Errorf("run id %q: %w", e.RunID, err)
	}
	switch {
	case e.ExitCode == 0 && e.Error != "":
		return errors.New("successful run carries an error")
	case e.ExitCode != 0 && e.Error == "":
		return fmt.Errorf("exit code %d without an error", e.ExitCode)
	case e.Lines < 0 || e.Records < 0 || e.Filtered < 0 || e.Subjects < 0 || e.SkippedTokens < 0:
		return errors.New("negative count")
	case e.Records+e.Filtered > e.Lines:
		return fmt.Errorf("%d records and %d filtered from %d lines", e.Records, e.Filtered, e.Lines)
	case e.Subjects > e.Records:
		return fmt.Errorf("%d subjects from %d records", e.Subjects, e.Records)
	case e.Duration < 0:
		return errors.New("negative duration")
	}
	return nil
}
