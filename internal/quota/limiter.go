// AngelaMos | 2026
// limiter.go

package quota

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/metrics"
)

// Store persists monthly usage counters. IncrementIfBelow must be a single
// atomic compare-and-increment at the storage layer: two concurrent callers
// must never both observe limit-1 and both succeed.
type Store interface {
	EnsureCounter(ctx context.Context, userID, monthKey string) error
	IncrementIfBelow(
		ctx context.Context,
		userID, monthKey string,
		resource Resource,
		limit int64,
	) (bool, error)
	Get(ctx context.Context, userID, monthKey string) (*Counter, error)
}

type Limiter struct {
	store Store
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// CheckAndIncrement consumes one unit of resource for the month or fails
// with a QuotaExceeded error. A negative limit is unlimited and touches
// nothing; zero, NaN and +Inf are never permitted.
func (l *Limiter) CheckAndIncrement(
	ctx context.Context,
	userID, monthKey string,
	resource Resource,
	limit float64,
) error {
	if !resource.Valid() {
		return core.InvalidInputError(fmt.Sprintf("unknown quota resource %q", resource))
	}

	if limit < 0 {
		metrics.QuotaCheck(string(resource), "unlimited")
		return nil
	}

	if math.IsNaN(limit) || math.IsInf(limit, 0) || limit <= 0 {
		metrics.QuotaCheck(string(resource), "denied")
		return core.QuotaExceededError(string(resource), limit)
	}

	if err := l.store.EnsureCounter(ctx, userID, monthKey); err != nil {
		return fmt.Errorf("ensure usage counter: %w", err)
	}

	ok, err := l.store.IncrementIfBelow(ctx, userID, monthKey, resource, ceilLimit(limit))
	if err != nil {
		return fmt.Errorf("increment usage counter: %w", err)
	}

	if !ok {
		metrics.QuotaCheck(string(resource), "denied")
		slog.InfoContext(ctx, "quota exhausted",
			"user_id", userID,
			"month_key", monthKey,
			"resource", resource,
			"limit", limit,
		)
		return core.QuotaExceededError(string(resource), limit)
	}

	metrics.QuotaCheck(string(resource), "allowed")
	return nil
}

// ceilLimit turns a fractional limit into the integer bound with the same
// meaning for integer counters: v < 2.5 holds exactly when v < 3.
func ceilLimit(limit float64) int64 {
	if limit >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Ceil(limit))
}
