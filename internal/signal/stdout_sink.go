package signal

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"breakoutengine/pkg/types"
)

// StdoutSink writes each signal as a single NDJSON line to the
// configured writer (os.Stdout in production). It never fails
// permanently — a write error is reported retryable since the next
// attempt may hit a writer that recovers (e.g. a piped process
// restarting downstream).
type StdoutSink struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

// NewStdoutSink constructs a StdoutSink writing to w.
func NewStdoutSink(w io.Writer, logger *slog.Logger) *StdoutSink {
	return &StdoutSink{w: w, logger: logger.With("component", "signal-stdout-sink")}
}

func (s *StdoutSink) Name() string { return "stdout" }

func (s *StdoutSink) HealthCheck() bool { return s.w != nil }

func (s *StdoutSink) Deliver(signals []types.Signal) []DeliveryResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]DeliveryResult, len(signals))
	enc := json.NewEncoder(s.w)
	for i, sig := range signals {
		if err := enc.Encode(sig); err != nil {
			out[i] = DeliveryResult{Outcome: OutcomeRetryable, Message: err.Error()}
			continue
		}
		out[i] = DeliveryResult{Outcome: OutcomeSuccess}
	}
	return out
}
