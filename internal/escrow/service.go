// AngelaMos | 2026
// service.go

package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/events"
	"github.com/tonymphomilanzi/microbid/internal/fee"
	"github.com/tonymphomilanzi/microbid/internal/listing"
	"github.com/tonymphomilanzi/microbid/internal/metrics"
	"github.com/tonymphomilanzi/microbid/internal/user"
)

const (
	entityName        = "escrow"
	defaultQueueLimit = 100
)

type Service struct {
	stores    Stores
	uow       UnitOfWork
	policy    fee.Policy
	clock     core.Clock
	publisher events.Publisher
}

type Option func(*Service)

func WithClock(clock core.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// NewService takes the non-transactional stores for reads and a unit of
// work for every mutation.
func NewService(stores Stores, uow UnitOfWork, policy fee.Policy, opts ...Option) *Service {
	s := &Service{
		stores: stores,
		uow:    uow,
		policy: policy,
		clock:  core.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	ListingID string
	BuyerID   string
	Method    Method
}

// Create prices the listing for this buyer and seller and locks price, fee
// and total into a new INITIATED escrow.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Escrow, error) {
	if in.BuyerID == "" {
		return nil, fmt.Errorf("create escrow: %w", core.ErrUnauthorized)
	}

	provider, ok := ProviderFor(in.Method)
	if !ok {
		return nil, core.InvalidInputError(fmt.Sprintf("unsupported payment method %q", in.Method))
	}

	var created *Escrow
	err := s.uow.Within(ctx, func(st Stores) error {
		l, err := st.Listings.GetByID(ctx, in.ListingID)
		if err != nil {
			return notFoundAs(err, "listing")
		}

		if !l.IsActive() {
			return core.InvalidStateError("listing", string(l.Status), "ESCROW").
				WithDetail("listing_id", l.ID)
		}
		if l.SellerID == in.BuyerID {
			return core.InvalidInputError("buyer cannot purchase their own listing")
		}

		buyer, err := st.Users.GetByID(ctx, in.BuyerID)
		if err != nil {
			return notFoundAs(err, "buyer")
		}
		seller, err := st.Users.GetByID(ctx, l.SellerID)
		if err != nil {
			return notFoundAs(err, "seller")
		}

		quote := s.policy.Compute(fee.Input{
			PriceCents:           l.PriceCents,
			Platform:             l.Platform,
			BuyerTier:            buyer.Tier,
			SellerTier:           seller.Tier,
			BuyerCompletedDeals:  buyer.CompletedDealsCount,
			SellerCompletedDeals: seller.CompletedDealsCount,
		})
		metrics.FeeComputed(quote.FeeCents == quote.MinFeeCents)

		e := &Escrow{
			ID:               uuid.New().String(),
			ListingID:        l.ID,
			BuyerID:          buyer.ID,
			SellerID:         seller.ID,
			PriceCents:       l.PriceCents,
			FeeBps:           quote.FeeBps,
			FeeCents:         quote.FeeCents,
			MinFeeCents:      quote.MinFeeCents,
			TotalChargeCents: quote.TotalChargeCents(l.PriceCents),
			Discounts:        Discounts(quote.Discounts),
			Status:           StatusInitiated,
			Method:           in.Method,
			Provider:         provider,
			ProviderRef:      newProviderRef(),
		}

		if err := st.Escrows.Create(ctx, e); err != nil {
			return err
		}

		created = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(entityName, string(StatusInitiated))
	slog.InfoContext(ctx, "escrow created",
		"escrow_id", created.ID,
		"listing_id", created.ListingID,
		"buyer_id", created.BuyerID,
		"total_charge_cents", created.TotalChargeCents,
	)
	events.Emit(ctx, s.publisher, events.New(events.EscrowCreated, eventPayload(created)))

	return created, nil
}

// Get is visible to the two parties and to admins.
func (s *Service) Get(ctx context.Context, id, viewerID string) (*Escrow, error) {
	e, err := s.stores.Escrows.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "escrow")
	}

	if !e.IsParty(viewerID) {
		if err := s.requireAdmin(ctx, s.stores.Users, viewerID); err != nil {
			return nil, core.NotFoundError("escrow")
		}
	}

	proofs, err := s.stores.Escrows.ListProofs(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	e.Proofs = proofs

	return e, nil
}

type ProofInput struct {
	Kind ProofKind
	Note string
	URL  string
}

// SubmitProof appends evidence of payment. It never changes status.
func (s *Service) SubmitProof(
	ctx context.Context,
	escrowID, buyerID string,
	in ProofInput,
) (*Escrow, error) {
	note := strings.TrimSpace(in.Note)
	url := strings.TrimSpace(in.URL)

	if !in.Kind.Valid() {
		return nil, core.InvalidInputError(fmt.Sprintf("invalid proof kind %q", in.Kind))
	}
	if note == "" && url == "" {
		return nil, core.InvalidInputError("proof requires a note or a url")
	}

	var updated *Escrow
	err := s.uow.Within(ctx, func(st Stores) error {
		e, err := st.Escrows.GetByIDForUpdate(ctx, escrowID)
		if err != nil {
			return notFoundAs(err, "escrow")
		}

		if e.BuyerID != buyerID {
			return core.ForbiddenError("only the buyer can submit payment proof")
		}
		if e.Status.Terminal() {
			return core.InvalidStateError(entityName, string(e.Status), "PROOF_SUBMITTED")
		}

		proof := &Proof{
			ID:          uuid.New().String(),
			EscrowID:    e.ID,
			SubmittedBy: buyerID,
			Kind:        in.Kind,
			Note:        optional(note),
			URL:         optional(url),
		}
		if err := st.Escrows.AppendProof(ctx, proof); err != nil {
			return err
		}

		proofs, err := st.Escrows.ListProofs(ctx, e.ID)
		if err != nil {
			return err
		}
		e.Proofs = proofs

		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "payment proof submitted",
		"escrow_id", updated.ID,
		"proofs", len(updated.Proofs),
	)

	return updated, nil
}

// RecordFunding applies a funding report from the payment-instructions
// flow. It walks INITIATED -> FEE_PAID -> FULLY_PAID one edge at a time;
// repeating the current status is a no-op.
func (s *Service) RecordFunding(
	ctx context.Context,
	escrowID, actorID string,
	target Status,
) (*Escrow, error) {
	if target != StatusFeePaid && target != StatusFullyPaid {
		return nil, core.InvalidInputError(fmt.Sprintf("funding status must be %s or %s", StatusFeePaid, StatusFullyPaid))
	}

	var (
		result  *Escrow
		changed bool
	)
	err := s.uow.Within(ctx, func(st Stores) error {
		e, err := st.Escrows.GetByIDForUpdate(ctx, escrowID)
		if err != nil {
			return notFoundAs(err, "escrow")
		}

		if e.BuyerID != actorID {
			if err := s.requireAdmin(ctx, st.Users, actorID); err != nil {
				return err
			}
		}

		if e.Status == target {
			result = e
			return nil
		}
		if !e.Status.CanTransitionTo(target) {
			return core.InvalidStateError(entityName, string(e.Status), string(target))
		}

		e.Status = target
		if target == StatusFullyPaid && e.FundedAt == nil {
			now := s.clock.Now()
			e.FundedAt = &now
		}
		if err := st.Escrows.UpdateStatus(ctx, e); err != nil {
			return err
		}

		result, changed = e, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		metrics.Transition(entityName, string(target))
		slog.InfoContext(ctx, "escrow funding recorded",
			"escrow_id", result.ID,
			"to", target,
			"actor_id", actorID,
		)
		events.Emit(ctx, s.publisher, events.New(events.EscrowFunded, eventPayload(result)))
	}

	return result, nil
}

// Verify is the only path to VERIFIED. In one transaction it marks the
// escrow verified, writes the single settlement record, flips the listing
// to SOLD and credits both parties with a completed deal. Verifying an
// already verified escrow returns it unchanged.
func (s *Service) Verify(ctx context.Context, escrowID, adminID string) (*Escrow, error) {
	ctx, span := core.StartSpan(ctx, "escrow.verify",
		attribute.String("escrow.id", escrowID),
		attribute.String("admin.id", adminID),
	)
	defer span.End()

	if err := s.requireAdmin(ctx, s.stores.Users, adminID); err != nil {
		return nil, err
	}

	var (
		result  *Escrow
		from    Status
		settled bool
	)
	err := s.uow.Within(ctx, func(st Stores) error {
		e, err := st.Escrows.GetByIDForUpdate(ctx, escrowID)
		if err != nil {
			return notFoundAs(err, "escrow")
		}

		if e.Status == StatusVerified {
			result = e
			return nil
		}
		if !e.Status.AwaitingVerification() {
			return core.InvalidStateError(entityName, string(e.Status), string(StatusVerified))
		}

		l, err := st.Listings.GetByIDForUpdate(ctx, e.ListingID)
		if err != nil {
			return notFoundAs(err, "listing")
		}
		if !l.IsActive() {
			return core.InvalidStateError("listing", string(l.Status), string(listing.StatusSold)).
				WithDetail("listing_id", l.ID)
		}

		now := s.clock.Now()
		from = e.Status
		e.Status = StatusVerified
		if e.FundedAt == nil {
			e.FundedAt = &now
		}
		e.VerifiedBy = &adminID
		e.VerifiedAt = &now

		if err := st.Escrows.UpdateStatus(ctx, e); err != nil {
			return err
		}

		created, err := st.Purchases.CreateIfAbsent(ctx, &Purchase{
			ID:         uuid.New().String(),
			EscrowID:   e.ID,
			ListingID:  e.ListingID,
			BuyerID:    e.BuyerID,
			SellerID:   e.SellerID,
			PriceCents: e.PriceCents,
		})
		if err != nil {
			return err
		}

		if created {
			if err := st.Listings.MarkSold(ctx, e.ListingID); err != nil {
				return err
			}
			if err := st.Users.IncrementCompletedDeals(ctx, e.BuyerID, e.SellerID); err != nil {
				return err
			}
		}

		result, settled = e, created
		return nil
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	if from == "" {
		core.AddSpanEvent(ctx, "escrow.already_verified")
		return result, nil
	}

	core.AddSpanEvent(ctx, "escrow.verified",
		attribute.String("from", string(from)),
		attribute.Bool("settled", settled),
	)
	metrics.Transition(entityName, string(StatusVerified))
	if settled {
		metrics.Settled(result.TotalChargeCents)
	}
	slog.InfoContext(ctx, "escrow verified",
		"escrow_id", result.ID,
		"from", from,
		"to", StatusVerified,
		"admin_id", adminID,
	)
	events.Emit(ctx, s.publisher, events.New(events.EscrowVerified, eventPayload(result)))

	return result, nil
}

// Dispute parks a non-terminal escrow in DISPUTED. Resolution happens
// outside this service.
func (s *Service) Dispute(ctx context.Context, escrowID, adminID, reason string) (*Escrow, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, core.InvalidInputError("dispute reason is required")
	}

	if err := s.requireAdmin(ctx, s.stores.Users, adminID); err != nil {
		return nil, err
	}

	var (
		result *Escrow
		from   Status
	)
	err := s.uow.Within(ctx, func(st Stores) error {
		e, err := st.Escrows.GetByIDForUpdate(ctx, escrowID)
		if err != nil {
			return notFoundAs(err, "escrow")
		}
		if !e.Status.CanTransitionTo(StatusDisputed) {
			return core.InvalidStateError(entityName, string(e.Status), string(StatusDisputed))
		}

		from = e.Status
		e.Status = StatusDisputed
		e.DisputeReason = &reason
		if err := st.Escrows.UpdateStatus(ctx, e); err != nil {
			return err
		}

		result = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(entityName, string(StatusDisputed))
	slog.InfoContext(ctx, "escrow disputed",
		"escrow_id", result.ID,
		"from", from,
		"admin_id", adminID,
	)
	events.Emit(ctx, s.publisher, events.New(events.EscrowDisputed, eventPayload(result)))

	return result, nil
}

// ListPendingVerification returns escrows an admin can verify, oldest first.
func (s *Service) ListPendingVerification(ctx context.Context, limit int) ([]Escrow, error) {
	if limit <= 0 || limit > defaultQueueLimit {
		limit = defaultQueueLimit
	}
	return s.stores.Escrows.ListByStatus(ctx, []Status{StatusFeePaid, StatusFullyPaid}, limit)
}

func (s *Service) requireAdmin(ctx context.Context, users user.Repository, userID string) error {
	if userID == "" {
		return fmt.Errorf("admin check: %w", core.ErrUnauthorized)
	}

	u, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.AdminRequiredError()
		}
		return err
	}
	if !u.IsAdmin() {
		return core.AdminRequiredError()
	}
	return nil
}

func notFoundAs(err error, resource string) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NotFoundError(resource)
	}
	return err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newProviderRef() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ESC-" + strings.ToUpper(id[:8])
}

type escrowEvent struct {
	EscrowID         string    `json:"escrow_id"`
	ListingID        string    `json:"listing_id"`
	BuyerID          string    `json:"buyer_id"`
	SellerID         string    `json:"seller_id"`
	Status           Status    `json:"status"`
	TotalChargeCents int64     `json:"total_charge_cents"`
	ProviderRef      string    `json:"provider_ref"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func eventPayload(e *Escrow) escrowEvent {
	return escrowEvent{
		EscrowID:         e.ID,
		ListingID:        e.ListingID,
		BuyerID:          e.BuyerID,
		SellerID:         e.SellerID,
		Status:           e.Status,
		TotalChargeCents: e.TotalChargeCents,
		ProviderRef:      e.ProviderRef,
		UpdatedAt:        e.UpdatedAt,
	}
}
