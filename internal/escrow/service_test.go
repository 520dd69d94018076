// AngelaMos | 2026
// service_test.go

package escrow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/events"
	"github.com/tonymphomilanzi/microbid/internal/fee"
	"github.com/tonymphomilanzi/microbid/internal/listing"
	"github.com/tonymphomilanzi/microbid/internal/user"
)

const (
	buyerID    = "buyer"
	sellerID   = "seller"
	adminID    = "admin"
	strangerID = "stranger"
	listingID  = "2b1f6c1e-8a3c-4c55-9d0e-6d1f5a3b7c90"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

type fixture struct {
	world    *world
	svc      *Service
	recorder *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	w := newWorld()
	w.users[buyerID] = user.User{ID: buyerID, Role: user.RoleUser, Tier: user.TierFree}
	w.users[sellerID] = user.User{ID: sellerID, Role: user.RoleUser, Tier: user.TierVIP}
	w.users[adminID] = user.User{ID: adminID, Role: user.RoleAdmin, Tier: user.TierFree}
	w.users[strangerID] = user.User{ID: strangerID, Role: user.RoleUser, Tier: user.TierPro}
	w.listings[listingID] = listing.Listing{
		ID:         listingID,
		SellerID:   sellerID,
		Title:      "Cooking channel",
		Platform:   "X",
		PriceCents: 100000,
		Status:     listing.StatusActive,
	}

	rec := &events.Recorder{}
	svc := NewService(
		w.stores(false),
		w,
		fee.DefaultPolicy(),
		WithClock(core.ClockFunc(func() time.Time { return fixedNow })),
		WithPublisher(rec),
	)

	return &fixture{world: w, svc: svc, recorder: rec}
}

func (f *fixture) create(t *testing.T) *Escrow {
	t.Helper()

	e, err := f.svc.Create(context.Background(), CreateInput{
		ListingID: listingID,
		BuyerID:   buyerID,
		Method:    MethodBankTransfer,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) fund(t *testing.T, e *Escrow, target Status) {
	t.Helper()

	_, err := f.svc.RecordFunding(context.Background(), e.ID, buyerID, target)
	require.NoError(t, err)
}

func TestCreateLocksFeeQuote(t *testing.T) {
	f := newFixture(t)

	e := f.create(t)

	assert.Equal(t, StatusInitiated, e.Status)
	assert.Equal(t, int64(100000), e.PriceCents)
	assert.Equal(t, 450, e.FeeBps)
	assert.Equal(t, int64(4500), e.FeeCents)
	assert.Equal(t, int64(104500), e.TotalChargeCents)
	assert.Equal(t, int64(800), e.MinFeeCents)
	require.Len(t, e.Discounts, 2)
	assert.Equal(t, fee.DiscountOver700, e.Discounts[0].Code)
	assert.Equal(t, fee.DiscountSellerVIP, e.Discounts[1].Code)
	assert.Equal(t, ProviderManualBank, e.Provider)
	assert.True(t, strings.HasPrefix(e.ProviderRef, "ESC-"))
	assert.Len(t, e.ProviderRef, 12)
	assert.Nil(t, e.FundedAt)

	require.Len(t, f.recorder.OfType(events.EscrowCreated), 1)
}

func TestTotalStaysLockedAfterPolicyChange(t *testing.T) {
	f := newFixture(t)
	e := f.create(t)

	steeper := fee.DefaultPolicy()
	steeper.MinBps = 700
	steeper.MinFeeCents = 50000
	repriced := NewService(f.world.stores(false), f.world, steeper)

	got, err := repriced.Get(context.Background(), e.ID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, e.TotalChargeCents, got.TotalChargeCents)
	assert.Equal(t, e.FeeCents, got.FeeCents)

	_, err = repriced.RecordFunding(context.Background(), e.ID, buyerID, StatusFeePaid)
	require.NoError(t, err)
	assert.Equal(t, int64(104500), f.world.escrow(e.ID).TotalChargeCents)
}

func TestCreateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("buyer is seller", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, CreateInput{ListingID: listingID, BuyerID: sellerID, Method: MethodCrypto})
		assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
	})

	t.Run("listing not active", func(t *testing.T) {
		f := newFixture(t)
		l := f.world.listings[listingID]
		l.Status = listing.StatusInactive
		f.world.listings[listingID] = l

		_, err := f.svc.Create(ctx, CreateInput{ListingID: listingID, BuyerID: buyerID, Method: MethodCrypto})
		assert.Equal(t, core.KindInvalidState, core.KindOf(err))
	})

	t.Run("missing listing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, CreateInput{ListingID: "missing", BuyerID: buyerID, Method: MethodCrypto})
		assert.Equal(t, core.KindNotFound, core.KindOf(err))
	})

	t.Run("unknown method", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, CreateInput{ListingID: listingID, BuyerID: buyerID, Method: "cash"})
		assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
	})

	t.Run("anonymous", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, CreateInput{ListingID: listingID, Method: MethodCrypto})
		assert.Equal(t, core.KindUnauthenticated, core.KindOf(err))
	})
}

func TestVerifyFromInitiatedIsInvalidState(t *testing.T) {
	f := newFixture(t)
	e := f.create(t)

	_, err := f.svc.Verify(context.Background(), e.ID, adminID)
	require.Error(t, err)
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))

	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "INITIATED", appErr.Details["current_status"])
	assert.Equal(t, "VERIFIED", appErr.Details["attempted"])

	assert.Equal(t, StatusInitiated, f.world.escrow(e.ID).Status)
	assert.Zero(t, f.world.purchaseCount())
}

func TestVerifySettlesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.create(t)
	f.fund(t, e, StatusFeePaid)

	verified, err := f.svc.Verify(ctx, e.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, verified.Status)
	require.NotNil(t, verified.FundedAt)
	assert.Equal(t, fixedNow, *verified.FundedAt)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, adminID, *verified.VerifiedBy)

	assert.Equal(t, listing.StatusSold, f.world.listing(listingID).Status)
	assert.Equal(t, 1, f.world.purchaseCount())
	assert.Equal(t, 1, f.world.user(buyerID).CompletedDealsCount)
	assert.Equal(t, 1, f.world.user(sellerID).CompletedDealsCount)

	again, err := f.svc.Verify(ctx, e.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, again.Status)
	assert.Equal(t, 1, f.world.purchaseCount())
	assert.Equal(t, 1, f.world.user(buyerID).CompletedDealsCount)
	assert.Equal(t, listing.StatusSold, f.world.listing(listingID).Status)

	assert.Len(t, f.recorder.OfType(events.EscrowVerified), 1)
}

func TestVerifyFromFullyPaidKeepsFundedAt(t *testing.T) {
	f := newFixture(t)
	e := f.create(t)
	f.fund(t, e, StatusFeePaid)
	f.fund(t, e, StatusFullyPaid)

	funded := f.world.escrow(e.ID).FundedAt
	require.NotNil(t, funded)

	verified, err := f.svc.Verify(context.Background(), e.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, *funded, *verified.FundedAt)
}

func TestConcurrentVerifyCreatesOnePurchase(t *testing.T) {
	f := newFixture(t)
	e := f.create(t)
	f.fund(t, e, StatusFeePaid)
	f.fund(t, e, StatusFullyPaid)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Verify(context.Background(), e.ID, adminID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.world.purchaseCount())
	assert.Equal(t, 1, f.world.user(sellerID).CompletedDealsCount)
	assert.Equal(t, 1, f.world.user(buyerID).CompletedDealsCount)
	assert.Equal(t, StatusVerified, f.world.escrow(e.ID).Status)
	assert.Len(t, f.recorder.OfType(events.EscrowVerified), 1)
}

func TestVerifyRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	e := f.create(t)
	f.fund(t, e, StatusFeePaid)

	f.world.failDeals = errors.New("connection reset by peer")

	_, err := f.svc.Verify(context.Background(), e.ID, adminID)
	require.Error(t, err)
	assert.Equal(t, core.KindInfrastructure, core.KindOf(err))

	assert.Equal(t, StatusFeePaid, f.world.escrow(e.ID).Status)
	assert.Nil(t, f.world.escrow(e.ID).VerifiedAt)
	assert.Equal(t, listing.StatusActive, f.world.listing(listingID).Status)
	assert.Zero(t, f.world.purchaseCount())
	assert.Empty(t, f.recorder.OfType(events.EscrowVerified))
}

func TestVerifyRechecksListing(t *testing.T) {
	f := newFixture(t)
	e := f.create(t)
	f.fund(t, e, StatusFeePaid)

	f.world.mu.Lock()
	l := f.world.listings[listingID]
	l.Status = listing.StatusInactive
	f.world.listings[listingID] = l
	f.world.mu.Unlock()

	_, err := f.svc.Verify(context.Background(), e.ID, adminID)
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))
	assert.Equal(t, StatusFeePaid, f.world.escrow(e.ID).Status)
}

func TestVerifyRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	e := f.create(t)
	f.fund(t, e, StatusFeePaid)

	for _, caller := range []string{buyerID, strangerID, "ghost"} {
		_, err := f.svc.Verify(context.Background(), e.ID, caller)
		assert.Equal(t, core.KindUnauthorized, core.KindOf(err), caller)
	}
	assert.Equal(t, StatusFeePaid, f.world.escrow(e.ID).Status)
}

func TestVerifyMissingEscrow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Verify(context.Background(), "missing", adminID)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestSubmitProof(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.create(t)

	first, err := f.svc.SubmitProof(ctx, e.ID, buyerID, ProofInput{Kind: ProofReceipt, Note: "paid at branch"})
	require.NoError(t, err)
	require.Len(t, first.Proofs, 1)
	assert.Equal(t, StatusInitiated, first.Status)

	second, err := f.svc.SubmitProof(ctx, e.ID, buyerID, ProofInput{Kind: ProofScreenshot, URL: "https://cdn.example.com/p.png"})
	require.NoError(t, err)
	require.Len(t, second.Proofs, 2)
	assert.Equal(t, first.Proofs[0].ID, second.Proofs[0].ID)
	require.NotNil(t, second.Proofs[1].URL)

	_, err = f.svc.SubmitProof(ctx, e.ID, sellerID, ProofInput{Kind: ProofReceipt, Note: "x"})
	assert.Equal(t, core.KindUnauthorized, core.KindOf(err))

	_, err = f.svc.SubmitProof(ctx, e.ID, buyerID, ProofInput{Kind: ProofReceipt, Note: "   "})
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = f.svc.SubmitProof(ctx, e.ID, buyerID, ProofInput{Kind: "SELFIE", Note: "x"})
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	_, err = f.svc.Dispute(ctx, e.ID, adminID, "buyer claims double charge")
	require.NoError(t, err)

	_, err = f.svc.SubmitProof(ctx, e.ID, buyerID, ProofInput{Kind: ProofReceipt, Note: "late"})
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))
}

func TestRecordFundingMovesForwardOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.create(t)

	_, err := f.svc.RecordFunding(ctx, e.ID, buyerID, StatusFullyPaid)
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))

	got, err := f.svc.RecordFunding(ctx, e.ID, buyerID, StatusFeePaid)
	require.NoError(t, err)
	assert.Equal(t, StatusFeePaid, got.Status)
	assert.Nil(t, got.FundedAt)

	got, err = f.svc.RecordFunding(ctx, e.ID, adminID, StatusFeePaid)
	require.NoError(t, err)
	assert.Equal(t, StatusFeePaid, got.Status)
	assert.Len(t, f.recorder.OfType(events.EscrowFunded), 1)

	_, err = f.svc.RecordFunding(ctx, e.ID, strangerID, StatusFullyPaid)
	assert.Equal(t, core.KindUnauthorized, core.KindOf(err))

	_, err = f.svc.RecordFunding(ctx, e.ID, buyerID, StatusVerified)
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	got, err = f.svc.RecordFunding(ctx, e.ID, buyerID, StatusFullyPaid)
	require.NoError(t, err)
	require.NotNil(t, got.FundedAt)
	assert.Equal(t, fixedNow, *got.FundedAt)

	_, err = f.svc.RecordFunding(ctx, e.ID, buyerID, StatusFeePaid)
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))
}

func TestDispute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.create(t)

	_, err := f.svc.Dispute(ctx, e.ID, buyerID, "scam")
	assert.Equal(t, core.KindUnauthorized, core.KindOf(err))

	_, err = f.svc.Dispute(ctx, e.ID, adminID, "  ")
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))

	disputed, err := f.svc.Dispute(ctx, e.ID, adminID, "seller unreachable")
	require.NoError(t, err)
	assert.Equal(t, StatusDisputed, disputed.Status)
	require.NotNil(t, disputed.DisputeReason)

	_, err = f.svc.Dispute(ctx, e.ID, adminID, "again")
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))

	_, err = f.svc.Verify(ctx, e.ID, adminID)
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))

	_, err = f.svc.RecordFunding(ctx, e.ID, buyerID, StatusFeePaid)
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))
}

func TestDisputeAfterVerifyIsInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.create(t)
	f.fund(t, e, StatusFeePaid)

	_, err := f.svc.Verify(ctx, e.ID, adminID)
	require.NoError(t, err)

	_, err = f.svc.Dispute(ctx, e.ID, adminID, "too late")
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))
}

func TestGetVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.create(t)

	for _, viewer := range []string{buyerID, sellerID, adminID} {
		got, err := f.svc.Get(ctx, e.ID, viewer)
		require.NoError(t, err, viewer)
		assert.Equal(t, e.TotalChargeCents, got.TotalChargeCents)
	}

	_, err := f.svc.Get(ctx, e.ID, strangerID)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestListPendingVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.create(t)

	pending, err := f.svc.ListPendingVerification(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	f.fund(t, e, StatusFeePaid)

	pending, err = f.svc.ListPendingVerification(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, e.ID, pending[0].ID)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusInitiated.CanTransitionTo(StatusFeePaid))
	assert.False(t, StatusInitiated.CanTransitionTo(StatusFullyPaid))
	assert.False(t, StatusInitiated.CanTransitionTo(StatusVerified))
	assert.True(t, StatusFeePaid.CanTransitionTo(StatusVerified))
	assert.True(t, StatusFullyPaid.CanTransitionTo(StatusDisputed))
	assert.False(t, StatusFullyPaid.CanTransitionTo(StatusFeePaid))

	for _, s := range []Status{StatusVerified, StatusDisputed} {
		assert.True(t, s.Terminal())
		for _, next := range []Status{StatusInitiated, StatusFeePaid, StatusFullyPaid, StatusVerified, StatusDisputed} {
			assert.False(t, s.CanTransitionTo(next))
		}
	}
}
