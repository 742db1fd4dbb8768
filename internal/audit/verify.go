package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// line is one decoded log line and its 1-based position.
type line struct {
	Entry
	N   int
	Err error // decode failure; Entry is zero when set
}

func readEntries(path string) ([]line, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	var out []line
	for i, raw := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		l := line{N: i + 1}
		if err := json.Unmarshal(raw, &l.Entry); err != nil {
			l.Entry, l.Err = Entry{}, err
		}
		out = append(out, l)
	}
	return out, nil
}

func appendLine(path string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// short abbreviates a hash for error messages. Hashes read from a damaged
// log may be any length.
func short(h string) string {
	if len(h) <= 16 {
		return fmt.Sprintf("%q", h)
	}
	return h[:16] + "..."
}

// Verify walks the log and reports the first entry that breaks the
// sequence, the hash chain or the submission schema. An empty log is valid.
func Verify(path string) error {
	entries, err := readEntries(path)
	if err != nil {
		return err
	}
	prev := Entry{Hash: genesisHash()}
	for _, l := range entries {
		e := l.Entry
		switch {
		case l.Err != nil:
			return fmt.Errorf("line %d: invalid JSON: %w", l.N, l.Err)
		case e.Seq != prev.Seq+1:
			return fmt.Errorf("line %d: sequence gap: expected %d, got %d", l.N, prev.Seq+1, e.Seq)
		case e.PrevHash != prev.Hash:
			return fmt.Errorf("line %d: prev_hash mismatch: expected %s, got %s", l.N, short(prev.Hash), short(e.PrevHash))
		}
		if want := e.digest(); e.Hash != want {
			return fmt.Errorf("line %d: hash mismatch: expected %s, got %s", l.N, short(want), short(e.Hash))
		}
		if err := e.validate(); err != nil {
			return fmt.Errorf("line %d: %w", l.N, err)
		}
		prev = e
	}
	return nil
}

// Tail returns the last n decodable entries from the audit log.
func Tail(path string, n int) ([]Entry, error) {
	lines, err := readEntries(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, l := range lines {
		if l.Err == nil {
			entries = append(entries, l.Entry)
		}
	}
	n = max(n, 0)
	if n < len(entries) {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
