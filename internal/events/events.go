// AngelaMos | 2026
// events.go

package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tonymphomilanzi/microbid/internal/metrics"
)

type Type string

const (
	EscrowCreated         Type = "escrow.created"
	EscrowFunded          Type = "escrow.funded"
	EscrowVerified        Type = "escrow.verified"
	EscrowDisputed        Type = "escrow.disputed"
	SubscriptionStarted   Type = "subscription.started"
	SubscriptionSubmitted Type = "subscription.submitted"
	SubscriptionActivated Type = "subscription.activated"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func New(typ Type, payload any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher hands committed domain events to downstream collaborators
// (notifications, analytics). Publishing never participates in the
// transaction that produced the event.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Emit publishes after commit. Failures are logged and counted, never
// returned, because the state change they describe is already durable.
func Emit(ctx context.Context, publisher Publisher, event Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		metrics.PublishFailed(string(event.Type))
		slog.WarnContext(ctx, "event publish failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
	}
}

type logPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher is the fallback when no broker is configured.
func NewLogPublisher(logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &logPublisher{logger: logger}
}

func (p *logPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "domain event",
		"event_id", event.ID,
		"event_type", event.Type,
	)
	return nil
}

func (p *logPublisher) Close() error {
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error {
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) OfType(typ Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
