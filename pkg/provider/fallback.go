package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ExecuteWithFallback runs a request with the hub's retry and failover
// policy: the requested backend first, then each policy backend in order,
// up to MaxRetries+1 attempts per backend with RetryDelay between attempts
// on the same backend. A non-recoverable fault skips straight to the next
// backend. The first success wins; exhaustion returns the last fault
// augmented with every attempt made.
func (h *Hub) ExecuteWithFallback(ctx context.Context, req Request) (*Response, *Fault) {
	var (
		last     *Fault
		attempts []Attempt
	)

	for i, key := range h.traversal(req.Backend) {
		attempt := req
		attempt.Backend = key

		if i > 0 && h.metrics != nil {
			h.metrics.ProviderFallbacksTotal.Inc()
		}

		for try := 0; try <= h.policy.MaxRetries; try++ {
			if try > 0 {
				if fault := h.waitRetry(ctx); fault != nil {
					last = fault
					attempts = append(attempts, Attempt{Backend: key, Fault: fault})
					return nil, exhausted(last, attempts)
				}
			}

			resp, fault := h.Execute(ctx, attempt)
			if fault == nil {
				return resp, nil
			}

			last = fault
			attempts = append(attempts, Attempt{Backend: key, Fault: fault})

			if !fault.Recoverable {
				log.Debug().Str("backend", key).Str("fault", string(fault.Kind)).
					Msg("Non-recoverable fault, moving to next backend")
				break
			}
		}
	}

	return nil, exhausted(last, attempts)
}

// StreamWithFallback follows the same backend and retry traversal as
// ExecuteWithFallback but returns a chunk stream. Once a stream is
// established it short-circuits; failures inside the stream surface as
// error chunks.
func (h *Hub) StreamWithFallback(ctx context.Context, req Request) (<-chan Chunk, *Fault) {
	var (
		last     *Fault
		attempts []Attempt
	)

	for i, key := range h.traversal(req.Backend) {
		attempt := req
		attempt.Backend = key

		if i > 0 && h.metrics != nil {
			h.metrics.ProviderFallbacksTotal.Inc()
		}

		for try := 0; try <= h.policy.MaxRetries; try++ {
			if try > 0 {
				if fault := h.waitRetry(ctx); fault != nil {
					last = fault
					attempts = append(attempts, Attempt{Backend: key, Fault: fault})
					return nil, exhausted(last, attempts)
				}
			}

			stream, fault := h.Stream(ctx, attempt)
			if fault == nil {
				return stream, nil
			}

			last = fault
			attempts = append(attempts, Attempt{Backend: key, Fault: fault})

			if !fault.Recoverable {
				break
			}
		}
	}

	return nil, exhausted(last, attempts)
}

// traversal yields the requested backend followed by the policy backends,
// skipping keys already in the list.
func (h *Hub) traversal(requested string) []string {
	keys := []string{requested}
	for _, key := range h.policy.Backends {
		if contains(keys, key) {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// waitRetry sleeps the configured delay between same-backend retries,
// returning a fault if the context is cancelled mid-delay.
func (h *Hub) waitRetry(ctx context.Context) *Fault {
	if h.policy.RetryDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(h.policy.RetryDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return Classify(ctx.Err())
	}
}

func exhausted(last *Fault, attempts []Attempt) *Fault {
	if last == nil {
		last = NewFault(FaultProviderError, "no backends available")
	}
	out := *last
	out.Attempts = attempts
	return &out
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
