package signal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"breakoutengine/pkg/types"
)

// FileSink appends each signal to a file, one JSON object per line
// (NDJSON) or as elements of a single top-level array, with optional
// size-based rotation to a timestamped suffix. Per §4.7/§5, writes take
// an exclusive OS-level file lock so multiple engine instances (or a
// dashboard tailing the file) can't corrupt it.
type FileSink struct {
	mu          sync.Mutex
	path        string
	format      string // "ndjson" | "array"
	rotateBytes int64
	logger      *slog.Logger
}

// NewFileSink constructs a FileSink. format must be "ndjson" or
// "array"; rotateBytes <= 0 disables rotation.
func NewFileSink(path, format string, rotateBytes int64, logger *slog.Logger) *FileSink {
	if format != "array" {
		format = "ndjson"
	}
	return &FileSink{path: path, format: format, rotateBytes: rotateBytes, logger: logger.With("component", "signal-file-sink")}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) HealthCheck() bool {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (s *FileSink) Deliver(signals []types.Signal) []DeliveryResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]DeliveryResult, len(signals))

	if err := s.rotateIfNeeded(); err != nil {
		s.logger.Error("rotation check failed", "error", err)
		for i := range out {
			out[i] = DeliveryResult{Outcome: OutcomeRetryable, Message: err.Error()}
		}
		return out
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		for i := range out {
			out[i] = DeliveryResult{Outcome: OutcomeRetryable, Message: err.Error()}
		}
		return out
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		for i := range out {
			out[i] = DeliveryResult{Outcome: OutcomeRetryable, Message: err.Error()}
		}
		return out
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	for i, sig := range signals {
		if err := s.writeOne(f, sig); err != nil {
			out[i] = DeliveryResult{Outcome: OutcomeRetryable, Message: err.Error()}
			continue
		}
		out[i] = DeliveryResult{Outcome: OutcomeSuccess}
	}
	return out
}

func (s *FileSink) writeOne(f *os.File, sig types.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	if s.format == "array" {
		return writeArrayElement(f, data)
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// writeArrayElement rewrites the file as a JSON array with the new
// element appended. Used only for the "array" format; NDJSON avoids
// this rewrite cost entirely, which is why it's the default.
func writeArrayElement(f *os.File, elem []byte) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}

	var existing []json.RawMessage
	if info.Size() > 0 {
		if _, err := f.Seek(0, 0); err != nil {
			return err
		}
		if err := json.NewDecoder(f).Decode(&existing); err != nil {
			existing = nil
		}
	}
	existing = append(existing, elem)

	out, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err = f.Write(out)
	return err
}

// rotateIfNeeded renames the current file to a timestamped suffix once
// it clears rotateBytes. A zero or negative rotateBytes disables this.
func (s *FileSink) rotateIfNeeded() error {
	if s.rotateBytes <= 0 {
		return nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < s.rotateBytes {
		return nil
	}
	suffix := time.Now().UTC().Format("20060102T150405")
	return os.Rename(s.path, fmt.Sprintf("%s.%s", s.path, suffix))
}
