package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Outcomes lists the outcome values a submission entry may carry.
var Outcomes = []string{"ok", "remote-error", "io-error", "error"}

// Entry represents a single audit log record: one pipeline submission.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"ts"`
	PrevHash string    `json:"prev_hash"`
	Session  string    `json:"session"`          // workspace session id
	Image    string    `json:"image,omitempty"`  // source path, if submitted from disk
	Commands []string  `json:"commands"`         // engine command of each step, in order
	Steps    int       `json:"steps"`            // len(Commands)
	Endpoint string    `json:"endpoint"`         // engine URL
	Outcome  string    `json:"outcome"`          // one of Outcomes
	Status   int       `json:"status,omitempty"` // engine HTTP status, when one arrived
	Error    string    `json:"error,omitempty"`  // error message if failed
	Bytes    int       `json:"bytes,omitempty"`  // size of the processed image
	Duration float64   `json:"duration_ms"`      // round trip in milliseconds
	Hash     string    `json:"hash"`             // SHA-256 of this entry (with hash field empty)
}

// Record carries the caller-supplied fields of an Entry.
type Record struct {
	Session  string
	Image    string
	Commands []string
	Endpoint string
	Outcome  string
	Status   int
	Error    string
	Bytes    int
	Duration time.Duration
}

func (r Record) entry(seq uint64, prev string, now time.Time) Entry {
	e := Entry{
		Seq:      seq,
		Time:     now.UTC(),
		PrevHash: prev,
		Session:  r.Session,
		Image:    r.Image,
		Commands: r.Commands,
		Steps:    len(r.Commands),
		Endpoint: r.Endpoint,
		Outcome:  r.Outcome,
		Status:   r.Status,
		Error:    r.Error,
		Bytes:    r.Bytes,
		Duration: float64(r.Duration.Microseconds()) / 1000.0,
	}
	if e.Commands == nil {
		e.Commands = []string{}
	}
	e.Hash = e.digest()
	return e
}

// digest hashes e with its Hash field cleared.
func (e Entry) digest() string {
	e.Hash = ""
	data, _ := json.Marshal(e)
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// validate checks the fields a submission entry must agree on.
func (e Entry) validate() error {
	if e.Steps != len(e.Commands) {
		return fmt.Errorf("steps is %d but %d commands are listed", e.Steps, len(e.Commands))
	}
	if !slices.Contains(Outcomes, e.Outcome) {
		return fmt.Errorf("unknown outcome %q", e.Outcome)
	}
	return nil
}

func genesisHash() string {
	h := sha256.Sum256([]byte("imgpipe-genesis"))
	return hex.EncodeToString(h[:])
}
