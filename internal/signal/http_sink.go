package signal

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"breakoutengine/pkg/types"
)

// HTTPSink POSTs each signal as JSON to a configured webhook URL,
// mirroring the retry condition the reference REST client uses for
// exchange calls: 5xx and network errors are retryable, 4xx is
// permanent (§4.7, §6 Sink interface).
type HTTPSink struct {
	client *resty.Client
	url    string
	logger *slog.Logger
}

// NewHTTPSink constructs an HTTPSink. The resty client here is bare
// (no built-in retry loop) because the Emitter already owns the
// retry/backoff policy across all sinks uniformly; no retry condition
// is registered on the client.
func NewHTTPSink(url string, timeout time.Duration, logger *slog.Logger) *HTTPSink {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &HTTPSink{client: client, url: url, logger: logger.With("component", "signal-http-sink")}
}

func (s *HTTPSink) Name() string { return "http" }

// HealthCheck issues a HEAD request to the webhook URL and reports
// whether it responded with a status below 500.
func (s *HTTPSink) HealthCheck() bool {
	resp, err := s.client.R().Head(s.url)
	return err == nil && resp.StatusCode() < 500
}

func (s *HTTPSink) Deliver(signals []types.Signal) []DeliveryResult {
	out := make([]DeliveryResult, len(signals))
	for i, sig := range signals {
		resp, err := s.client.R().SetBody(sig).Post(s.url)
		switch {
		case err != nil:
			out[i] = DeliveryResult{Outcome: OutcomeRetryable, Message: err.Error()}
		case resp.StatusCode() >= 500:
			out[i] = DeliveryResult{Outcome: OutcomeRetryable, Message: resp.String()}
		case resp.StatusCode() >= 400:
			out[i] = DeliveryResult{Outcome: OutcomePermanent, Message: resp.String()}
		case resp.StatusCode() >= 200 && resp.StatusCode() < 300:
			out[i] = DeliveryResult{Outcome: OutcomeSuccess}
		default:
			out[i] = DeliveryResult{Outcome: OutcomeRetryable, Message: http.StatusText(resp.StatusCode())}
		}
	}
	return out
}
