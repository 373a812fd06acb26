package signal

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"breakoutengine/pkg/types"
)

// deadLetterRecord is the NDJSON shape written for a signal that
// exhausted retries or hit a permanent sink failure (§4.7, §7
// DeliveryFault).
type deadLetterRecord struct {
	ID        string       `json:"id"`
	Sink      string       `json:"sink"`
	Outcome   Outcome      `json:"outcome"`
	Message   string       `json:"message"`
	Signal    types.Signal `json:"signal"`
	WrittenAt time.Time    `json:"written_at"`
}

// DeadLetterWriter appends undeliverable signals to an NDJSON file for
// manual inspection/replay.
type DeadLetterWriter struct {
	mu   sync.Mutex
	path string
}

// NewDeadLetterWriter constructs a DeadLetterWriter backed by path.
func NewDeadLetterWriter(path string) *DeadLetterWriter {
	return &DeadLetterWriter{path: path}
}

// Write appends one dead-letter record.
func (d *DeadLetterWriter) Write(s types.Signal, sinkName string, result DeliveryResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := deadLetterRecord{
		ID:        uuid.NewString(),
		Sink:      sinkName,
		Outcome:   result.Outcome,
		Message:   result.Message,
		Signal:    s,
		WrittenAt: time.Now().UTC(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open dead letter file: %w", err)
	}
	defer f.Close()

	_, err = f.Write(append(data, '\n'))
	return err
}
