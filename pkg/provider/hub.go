// Package provider implements the backend registry and fallback hub that
// executes generation requests against interchangeable text-generation
// backends with retry, failover, and per-backend statistics.
package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inkwell-ai/inkwell/internal/metrics"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultTemperature = 0.7
)

// Options configures a Hub.
type Options struct {
	// Timeout bounds each backend call. Zero means the default.
	Timeout time.Duration

	// DefaultTemperature applies when a request carries none.
	DefaultTemperature float64

	// Policy drives the *WithFallback entry points.
	Policy FallbackPolicy

	// Stats receives per-backend counters. When nil a fresh store is
	// created.
	Stats *StatisticsStore

	// Metrics is optional prometheus instrumentation.
	Metrics *metrics.Metrics
}

// Hub routes requests to registered backends. Registration order is
// preserved; registering an existing key overwrites the backend but keeps
// its original position.
type Hub struct {
	backends map[string]Backend
	order    []string

	stats   *StatisticsStore
	metrics *metrics.Metrics
	timeout time.Duration
	temp    float64
	policy  FallbackPolicy
}

// NewHub creates a hub with the given options.
func NewHub(opts Options) *Hub {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.DefaultTemperature <= 0 {
		opts.DefaultTemperature = defaultTemperature
	}
	if opts.Stats == nil {
		opts.Stats = NewStatisticsStore()
	}

	return &Hub{
		backends: make(map[string]Backend),
		stats:    opts.Stats,
		metrics:  opts.Metrics,
		timeout:  opts.Timeout,
		temp:     opts.DefaultTemperature,
		policy:   opts.Policy,
	}
}

// Register adds or replaces a backend. Registration must happen before any
// request naming the key.
func (h *Hub) Register(b Backend) {
	key := b.Key()
	if _, exists := h.backends[key]; !exists {
		h.order = append(h.order, key)
	}
	h.backends[key] = b

	log.Debug().Str("backend", key).Str("model", b.Model()).Msg("Backend registered")
}

// Keys returns registered backend keys in registration order.
func (h *Hub) Keys() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Statistics returns accumulated backend counters, optionally filtered to
// one backend key.
func (h *Hub) Statistics(backend string) []BackendStatistics {
	return h.stats.Snapshot(backend)
}

// Execute runs a request against its named backend, bounded by the hub
// timeout. Failures are classified into faults and counted.
func (h *Hub) Execute(ctx context.Context, req Request) (*Response, *Fault) {
	backend, fault := h.resolve(req.Backend)
	if fault != nil {
		h.recordFailure(req.Backend, 0, fault)
		return nil, fault
	}

	prepared := h.prepare(req)
	start := time.Now()

	type result struct {
		resp *Response
		err  error
	}
	done := make(chan result, 1)
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		resp, err := backend.Execute(callCtx, prepared)
		done <- result{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		elapsed := time.Since(start)
		if res.err != nil {
			fault := Classify(res.err)
			h.recordFailure(req.Backend, elapsed, fault)
			return nil, fault
		}
		h.recordSuccess(req.Backend, elapsed, res.resp.Usage)
		return res.resp, nil
	case <-time.After(h.timeout):
		fault := NewFault(FaultTimeout, fmt.Sprintf("backend %q did not answer within %s", req.Backend, h.timeout))
		h.recordFailure(req.Backend, time.Since(start), fault)
		return nil, fault
	case <-ctx.Done():
		fault := Classify(ctx.Err())
		h.recordFailure(req.Backend, time.Since(start), fault)
		return nil, fault
	}
}

// Stream opens a chunk stream against the named backend. A failure after
// the stream is established still counts as a failed request.
func (h *Hub) Stream(ctx context.Context, req Request) (<-chan Chunk, *Fault) {
	backend, fault := h.resolve(req.Backend)
	if fault != nil {
		h.recordFailure(req.Backend, 0, fault)
		return nil, fault
	}

	prepared := h.prepare(req)
	start := time.Now()

	src, err := backend.Stream(ctx, prepared)
	if err != nil {
		fault := Classify(err)
		h.recordFailure(req.Backend, time.Since(start), fault)
		return nil, fault
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		var streamErr error
		for chunk := range src {
			if chunk.Err != nil {
				streamErr = chunk.Err
			}
			out <- chunk
		}
		elapsed := time.Since(start)
		if streamErr != nil {
			h.recordFailure(req.Backend, elapsed, Classify(streamErr))
			return
		}
		h.recordSuccess(req.Backend, elapsed, nil)
	}()

	return out, nil
}

// resolve looks up a backend and verifies it is configured.
func (h *Hub) resolve(key string) (Backend, *Fault) {
	backend, ok := h.backends[key]
	if !ok {
		return nil, NewFault(FaultProviderNotFound, fmt.Sprintf("backend %q is not registered", key))
	}
	if !backend.IsConfigured() {
		return nil, NewFault(FaultProviderNotConfigured, fmt.Sprintf("backend %q has no credentials configured", key))
	}
	return backend, nil
}

// prepare applies the default temperature and folds the template context
// into the prompt.
func (h *Hub) prepare(req Request) Request {
	if req.Temperature <= 0 {
		req.Temperature = h.temp
	}
	req.Prompt = buildPrompt(req)
	req.Context = nil
	return req
}

// buildPrompt prefixes the raw prompt with bracketed context markers in a
// fixed order: persona, template, point instructions, mode.
func buildPrompt(req Request) string {
	var sb strings.Builder

	if tc := req.Context; tc != nil {
		if tc.PersonaID != "" {
			sb.WriteString(fmt.Sprintf("[persona: %s", tc.PersonaID))
			if tc.PersonaTone != "" {
				sb.WriteString(fmt.Sprintf(" tone=%s", tc.PersonaTone))
			}
			if tc.PersonaAudience != "" {
				sb.WriteString(fmt.Sprintf(" audience=%s", tc.PersonaAudience))
			}
			sb.WriteString("]\n")
		}
		if tc.TemplateID != "" {
			sb.WriteString(fmt.Sprintf("[template: %s]\n", tc.TemplateID))
		}
		if len(tc.Points) > 0 {
			points := make([]PointInstruction, len(tc.Points))
			copy(points, tc.Points)
			sort.SliceStable(points, func(i, j int) bool {
				return points[i].Priority < points[j].Priority
			})
			for _, p := range points {
				sb.WriteString(fmt.Sprintf("- %s (priority %d): %s\n", p.ID, p.Priority, p.Instructions))
			}
		}
	}
	if req.Mode != "" {
		sb.WriteString(fmt.Sprintf("[mode: %s]\n", req.Mode))
	}

	sb.WriteString(req.Prompt)
	return sb.String()
}

func (h *Hub) recordSuccess(backend string, elapsed time.Duration, usage *Usage) {
	h.stats.RecordSuccess(backend, elapsed, usage)
	if h.metrics != nil {
		h.metrics.ProviderRequestsTotal.WithLabelValues(backend, "success").Inc()
		h.metrics.ProviderRequestDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
	}
}

func (h *Hub) recordFailure(backend string, elapsed time.Duration, fault *Fault) {
	h.stats.RecordFailure(backend, elapsed)
	if h.metrics != nil {
		h.metrics.ProviderRequestsTotal.WithLabelValues(backend, "failure").Inc()
		h.metrics.ProviderRequestDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
	}

	log.Debug().
		Str("backend", backend).
		Str("fault", string(fault.Kind)).
		Bool("recoverable", fault.Recoverable).
		Msg("Backend request failed")
}
