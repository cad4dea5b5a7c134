// Package delivery sends payloads to a webhook and keeps a record of every
// attempt.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"bookbuddy/internal/logging"
	"bookbuddy/internal/model"
	"bookbuddy/internal/payload"
	"bookbuddy/internal/webhook"
)

// Step is a progress checkpoint. It exists for operator feedback only.
type Step int

const (
	StepBuild Step = iota
	StepTransfer
	StepAwait
	StepComplete
)

// Percent maps the step to the progress bar position.
func (s Step) Percent() int {
	switch s {
	case StepBuild:
		return 10
	case StepTransfer:
		return 30
	case StepAwait:
		return 80
	default:
		return 100
	}
}

func (s Step) String() string {
	switch s {
	case StepBuild:
		return "Preparing payload..."
	case StepTransfer:
		return "Sending to webhook..."
	case StepAwait:
		return "Processing response..."
	default:
		return "Complete"
	}
}

// ProgressFunc receives checkpoints in order.
type ProgressFunc func(Step)

// Store persists delivery attempts beyond the in-memory history.
type Store interface {
	Create(ctx context.Context, d *model.Delivery) (*model.Delivery, error)
}

// Orchestrator performs single-attempt deliveries.
type Orchestrator struct {
	poster  webhook.Poster
	budget  time.Duration
	store   Store
	metrics *Metrics
	log     logging.Logger
	now     func() time.Time
}

type Option func(*Orchestrator)

func WithStore(s Store) Option { return func(o *Orchestrator) { o.store = s } }

func WithMetrics(m *Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

func WithLogger(l logging.Logger) Option { return func(o *Orchestrator) { o.log = l } }

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// NewOrchestrator builds an orchestrator around poster. Each attempt is
// bounded by budget; zero leaves the bound to the poster.
func NewOrchestrator(poster webhook.Poster, budget time.Duration, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		poster: poster,
		budget: budget,
		log:    logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBudget returns a copy of o that bounds attempts by d instead.
func (o *Orchestrator) WithBudget(d time.Duration) *Orchestrator {
	cp := *o
	cp.budget = d
	return &cp
}

// Submit makes exactly one attempt to deliver p to destination and records
// the outcome in h. Only an invalid destination or an unencodable payload is
// returned as an error; in that case nothing is sent or recorded.
func (o *Orchestrator) Submit(ctx context.Context, h *History, p *payload.Payload, destination string, progress ProgressFunc) (Outcome, error) {
	if progress == nil {
		progress = func(Step) {}
	}
	if err := webhook.ValidateURL(destination); err != nil {
		return Outcome{}, err
	}

	progress(StepBuild)
	p.Stamp(o.now())
	body, err := p.Marshal()
	if err != nil {
		return Outcome{}, fmt.Errorf("encode payload: %w", err)
	}

	progress(StepTransfer)
	start := time.Now()
	resp, err := o.post(ctx, destination, body)
	took := time.Since(start)
	progress(StepAwait)

	var out Outcome
	switch {
	case errors.Is(err, webhook.ErrInvalidURL):
		return Outcome{}, err
	case err != nil:
		out = transportFailure(err, o.timeout().String())
	case resp.StatusCode == http.StatusOK:
		out = delivered(resp.StatusCode, resp.Body)
	default:
		out = nonSuccess(resp.StatusCode, resp.Body)
	}
	out.PayloadSize = len(body)

	o.record(ctx, h, p, destination, out)
	o.metrics.observe(out, took)
	progress(StepComplete)
	return out, nil
}

// timeout is the bound an attempt actually ran under: the budget, or the
// poster's own timeout when there is no budget.
func (o *Orchestrator) timeout() time.Duration {
	if o.budget > 0 {
		return o.budget
	}
	if t, ok := o.poster.(interface{ Timeout() time.Duration }); ok {
		return t.Timeout()
	}
	return webhook.DefaultTimeout
}

func (o *Orchestrator) post(ctx context.Context, destination string, body []byte) (webhook.Response, error) {
	if o.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.budget)
		defer cancel()
	}
	return o.poster.Post(ctx, destination, body)
}

// AutoSubmit delivers p right after a capture stops when autoSend is on. It
// returns sent=false without touching the network otherwise.
func (o *Orchestrator) AutoSubmit(ctx context.Context, h *History, p *payload.Payload, destination string, autoSend bool) (out Outcome, sent bool, err error) {
	if !autoSend {
		return Outcome{}, false, nil
	}
	out, err = o.Submit(ctx, h, p, destination, nil)
	if err != nil {
		return Outcome{}, false, err
	}
	return out, true, nil
}

func (o *Orchestrator) record(ctx context.Context, h *History, p *payload.Payload, destination string, out Outcome) {
	rec := Record{
		Timestamp:   o.now(),
		Source:      string(p.Source),
		Success:     out.Delivered,
		Response:    out.Excerpt,
		PayloadSize: out.PayloadSize,
	}
	if out.StatusCode != 0 {
		code := out.StatusCode
		rec.StatusCode = &code
	}
	if out.Failure != nil {
		rec.Error = out.Failure.Message
	}
	if h != nil {
		h.Add(rec)
	}

	log := o.log.With("source", rec.Source, "success", rec.Success, "payload_size", rec.PayloadSize)
	if out.Failure != nil {
		log.Warn(ctx, "webhook_delivery_failed", "reason", string(out.Failure.Kind), "status", out.StatusCode)
	} else {
		log.Info(ctx, "webhook_delivery_succeeded", "status", out.StatusCode)
	}

	if o.store == nil || h == nil {
		return
	}
	d := &model.Delivery{
		ID:              uuid.NewString(),
		SessionID:       h.Owner(),
		Source:          rec.Source,
		Destination:     destination,
		Success:         rec.Success,
		StatusCode:      rec.StatusCode,
		ResponseExcerpt: rec.Response,
		Error:           rec.Error,
		PayloadSize:     rec.PayloadSize,
		CreatedAt:       rec.Timestamp.UTC(),
	}
	// The attempt already happened; a failed write must not change its outcome.
	if _, err := o.store.Create(context.WithoutCancel(ctx), d); err != nil {
		log.Error(ctx, "delivery_log_write_failed", "error", err.Error())
	}
}
