// AngelaMos | 2026
// service.go

package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/tonymphomilanzi/microbid/internal/core"
)

// PlanLimitsProvider resolves the monthly allowances of the plan a user is
// currently on.
type PlanLimitsProvider interface {
	LimitsForUser(ctx context.Context, userID string) (Limits, error)
}

// TxStoreFactory binds a Store to an open transaction. Only stores that live
// in the same database as the guarded rows can provide one.
type TxStoreFactory func(tx core.DBTX) Store

type Service struct {
	store    Store
	limiter  *Limiter
	plans    PlanLimitsProvider
	clock    core.Clock
	location *time.Location
	txStore  TxStoreFactory
}

type Option func(*Service)

func WithClock(clock core.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

func WithTxStore(factory TxStoreFactory) Option {
	return func(s *Service) { s.txStore = factory }
}

func NewService(store Store, plans PlanLimitsProvider, opts ...Option) *Service {
	s := &Service{
		store:    store,
		limiter:  NewLimiter(store),
		plans:    plans,
		clock:    core.SystemClock{},
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CurrentMonthKey() string {
	return MonthKey(s.clock.Now(), s.location)
}

// Reserve consumes one unit of resource against the user's plan for the
// current month.
func (s *Service) Reserve(ctx context.Context, userID string, resource Resource) error {
	return s.reserve(ctx, s.limiter, userID, resource)
}

// ReserveInTx is Reserve bound to tx when the store supports it, so a failed
// insert later in the transaction also releases the reservation. Otherwise
// it falls back to the shared store.
func (s *Service) ReserveInTx(
	ctx context.Context,
	tx core.DBTX,
	userID string,
	resource Resource,
) error {
	limiter := s.limiter
	if s.txStore != nil && tx != nil {
		limiter = NewLimiter(s.txStore(tx))
	}
	return s.reserve(ctx, limiter, userID, resource)
}

func (s *Service) reserve(
	ctx context.Context,
	limiter *Limiter,
	userID string,
	resource Resource,
) error {
	if userID == "" {
		return fmt.Errorf("reserve quota: %w", core.ErrUnauthorized)
	}

	limits, err := s.plans.LimitsForUser(ctx, userID)
	if err != nil {
		return err
	}

	return limiter.CheckAndIncrement(
		ctx,
		userID,
		s.CurrentMonthKey(),
		resource,
		limits.For(resource),
	)
}

type ResourceUsage struct {
	Used      int64  `json:"used"`
	Limit     int    `json:"limit"`
	Unlimited bool   `json:"unlimited"`
	Remaining *int64 `json:"remaining,omitempty"`
}

type UsageSummary struct {
	UserID    string                     `json:"user_id"`
	MonthKey  string                     `json:"month_key"`
	Resources map[Resource]ResourceUsage `json:"resources"`
}

func (s *Service) Usage(ctx context.Context, userID string) (*UsageSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("usage: %w", core.ErrUnauthorized)
	}

	limits, err := s.plans.LimitsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	monthKey := s.CurrentMonthKey()
	counter, err := s.store.Get(ctx, userID, monthKey)
	if err != nil {
		return nil, err
	}

	summary := &UsageSummary{
		UserID:    userID,
		MonthKey:  monthKey,
		Resources: make(map[Resource]ResourceUsage, len(resourceColumns)),
	}

	for resource := range resourceColumns {
		limit := int(limits.For(resource))
		usage := ResourceUsage{
			Used:      counter.Used(resource),
			Limit:     limit,
			Unlimited: limit < 0,
		}
		if limit >= 0 {
			remaining := max(int64(limit)-usage.Used, 0)
			usage.Remaining = &remaining
		}
		summary.Resources[resource] = usage
	}

	return summary, nil
}
