// AngelaMos | 2026
// service_test.go

package quota

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/middleware"
)

type staticPlans map[string]Limits

func (p staticPlans) LimitsForUser(_ context.Context, userID string) (Limits, error) {
	limits, ok := p[userID]
	if !ok {
		return Limits{}, core.NotFoundError("user")
	}
	return limits, nil
}

func intPtr(v int) *int { return &v }

func newTestService(now time.Time) *Service {
	plans := staticPlans{
		"free":  {ListingsPerMonth: intPtr(2), ConversationsPerMonth: intPtr(5)},
		"vip":   UnlimitedLimits(),
		"muted": {ListingsPerMonth: intPtr(3)},
	}
	return NewService(
		NewMemoryStore(),
		plans,
		WithClock(core.ClockFunc(func() time.Time { return now })),
	)
}

func TestServiceReserveUsesPlanLimits(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))

	require.NoError(t, svc.Reserve(ctx, "free", ResourceListings))
	require.NoError(t, svc.Reserve(ctx, "free", ResourceListings))

	err := svc.Reserve(ctx, "free", ResourceListings)
	assert.Equal(t, core.KindQuotaExceeded, core.KindOf(err))

	for range 10 {
		require.NoError(t, svc.Reserve(ctx, "vip", ResourceListings))
	}

	err = svc.Reserve(ctx, "muted", ResourceConversations)
	assert.Equal(t, core.KindQuotaExceeded, core.KindOf(err))

	err = svc.Reserve(ctx, "ghost", ResourceListings)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))

	err = svc.Reserve(ctx, "", ResourceListings)
	assert.Equal(t, core.KindUnauthenticated, core.KindOf(err))
}

func TestServiceUsageSummary(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))

	require.NoError(t, svc.Reserve(ctx, "free", ResourceConversations))

	summary, err := svc.Usage(ctx, "free")
	require.NoError(t, err)
	assert.Equal(t, "2026-10", summary.MonthKey)

	conv := summary.Resources[ResourceConversations]
	assert.Equal(t, int64(1), conv.Used)
	assert.Equal(t, 5, conv.Limit)
	require.NotNil(t, conv.Remaining)
	assert.Equal(t, int64(4), *conv.Remaining)

	vip, err := svc.Usage(ctx, "vip")
	require.NoError(t, err)
	assert.True(t, vip.Resources[ResourceListings].Unlimited)
	assert.Nil(t, vip.Resources[ResourceListings].Remaining)
}

func TestServiceReserveInTxUsesBoundStore(t *testing.T) {
	ctx := context.Background()
	bound := NewMemoryStore()
	svc := NewService(
		NewMemoryStore(),
		staticPlans{"free": {ListingsPerMonth: intPtr(1)}},
		WithTxStore(func(core.DBTX) Store { return bound }),
	)

	require.NoError(t, svc.ReserveInTx(ctx, nil, "free", ResourceListings))
	require.NoError(t, svc.ReserveInTx(ctx, fakeTx{}, "free", ResourceListings))

	counter, err := bound.Get(ctx, "free", svc.CurrentMonthKey())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counter.ListingsCreated)
}

type fakeTx struct{ core.DBTX }

func TestHandlerReserveAndUsage(t *testing.T) {
	svc := newTestService(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))
	h := NewHandler(svc)

	asFree := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: "free", Tier: "FREE"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	r := chi.NewRouter()
	h.RegisterRoutes(r, asFree)

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusForbidden} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/usage/listings/reserve", nil))
		assert.Equal(t, want, rec.Code, "attempt %d", i+1)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/usage/widgets/reserve", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/usage/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data UsageSummary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(2), body.Data.Resources[ResourceListings].Used)
}
