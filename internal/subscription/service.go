// AngelaMos | 2026
// service.go

package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/events"
	"github.com/tonymphomilanzi/microbid/internal/metrics"
	"github.com/tonymphomilanzi/microbid/internal/quota"
	"github.com/tonymphomilanzi/microbid/internal/user"
)

const (
	entityName        = "subscription_payment"
	defaultQueueLimit = 100
)

type Service struct {
	stores    Stores
	uow       UnitOfWork
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

func NewService(stores Stores, uow UnitOfWork, opts ...Option) *Service {
	s := &Service{
		stores: stores,
		uow:    uow,
		clock:  core.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	return s.stores.Plans.ListActive(ctx)
}

// LimitsForUser resolves the allowances of the plan named after the user's
// tier. Admins are unlimited; a tier without a plan row permits nothing.
func (s *Service) LimitsForUser(ctx context.Context, userID string) (quota.Limits, error) {
	u, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return quota.Limits{}, notFoundAs(err, "user")
	}

	if u.Tier == user.TierAdmin {
		return quota.UnlimitedLimits(), nil
	}

	plan, err := s.stores.Plans.GetByName(ctx, u.Tier)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return quota.Limits{}, nil
		}
		return quota.Limits{}, err
	}

	return plan.Limits(), nil
}

// StartPayment opens an INITIATED payment for an upgrade and locks its
// total from the plan's price for its billing type.
func (s *Service) StartPayment(
	ctx context.Context,
	userID, planName string,
	method Method,
) (*Payment, error) {
	if userID == "" {
		return nil, fmt.Errorf("start payment: %w", core.ErrUnauthorized)
	}
	if !method.Valid() {
		return nil, core.InvalidInputError(fmt.Sprintf("unsupported payment method %q", method))
	}

	name := user.Tier(strings.ToUpper(strings.TrimSpace(planName)))
	if name == user.TierFree {
		return nil, core.InvalidInputError("the FREE plan cannot be purchased")
	}

	var created *Payment
	err := s.uow.Within(ctx, func(st Stores) error {
		u, err := st.Users.GetByID(ctx, userID)
		if err != nil {
			return notFoundAs(err, "user")
		}
		if u.Tier == user.TierAdmin {
			return core.InvalidInputError("admin accounts cannot purchase a plan")
		}

		plan, err := st.Plans.GetByName(ctx, name)
		if err != nil {
			return notFoundAs(err, "plan")
		}

		if plan.BillingType == BillingFree {
			return core.InvalidInputError("the FREE plan cannot be purchased")
		}
		if !plan.IsActive {
			return core.InvalidInputError(fmt.Sprintf("plan %s is not available", plan.Name))
		}
		if plan.Name == u.Tier {
			return core.InvalidInputError(fmt.Sprintf("already on the %s plan", plan.Name)).
				WithDetail("current_tier", string(u.Tier))
		}

		price, err := plan.PriceCents()
		if err != nil {
			return err
		}

		p := &Payment{
			ID:               uuid.New().String(),
			UserID:           u.ID,
			PlanID:           plan.ID,
			PlanName:         plan.Name,
			Method:           method,
			TotalChargeCents: price,
			Status:           StatusInitiated,
		}
		if err := st.Payments.Create(ctx, p); err != nil {
			return err
		}

		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(entityName, string(StatusInitiated))
	slog.InfoContext(ctx, "subscription payment started",
		"payment_id", created.ID,
		"user_id", created.UserID,
		"plan", created.PlanName,
		"total_charge_cents", created.TotalChargeCents,
	)
	events.Emit(ctx, s.publisher, events.New(events.SubscriptionStarted, eventPayload(created)))

	return created, nil
}

type SubmitInput struct {
	Reference string
	ProofURL  string
	Note      string
}

// SubmitPayment attaches the user's transfer reference and moves the
// payment to SUBMITTED.
func (s *Service) SubmitPayment(
	ctx context.Context,
	paymentID, userID string,
	in SubmitInput,
) (*Payment, error) {
	reference := strings.TrimSpace(in.Reference)
	if reference == "" {
		return nil, core.InvalidInputError("reference is required")
	}

	var result *Payment
	err := s.uow.Within(ctx, func(st Stores) error {
		p, err := st.Payments.GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			return notFoundAs(err, "subscription payment")
		}

		if p.UserID != userID {
			return core.NotFoundError("subscription payment")
		}
		if !p.Status.CanTransitionTo(StatusSubmitted) {
			return core.InvalidStateError(entityName, string(p.Status), string(StatusSubmitted))
		}

		now := s.clock.Now()
		p.Status = StatusSubmitted
		p.Reference = &reference
		p.ProofURL = optional(strings.TrimSpace(in.ProofURL))
		p.Note = optional(strings.TrimSpace(in.Note))
		p.SubmittedAt = &now

		if err := st.Payments.Update(ctx, p); err != nil {
			return err
		}

		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(entityName, string(StatusSubmitted))
	slog.InfoContext(ctx, "subscription payment submitted",
		"payment_id", result.ID,
		"from", StatusInitiated,
		"to", StatusSubmitted,
	)
	events.Emit(ctx, s.publisher, events.New(events.SubscriptionSubmitted, eventPayload(result)))

	return result, nil
}

// VerifyPayment activates the plan: the payment becomes VERIFIED and the
// user's tier becomes the plan name in one transaction. A second call on a
// verified payment returns it without touching the tier again.
func (s *Service) VerifyPayment(ctx context.Context, paymentID, adminID string) (*Payment, error) {
	ctx, span := core.StartSpan(ctx, "subscription.verify",
		attribute.String("payment.id", paymentID),
		attribute.String("admin.id", adminID),
	)
	defer span.End()

	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	var (
		result *Payment
		from   Status
	)
	err := s.uow.Within(ctx, func(st Stores) error {
		p, err := st.Payments.GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			return notFoundAs(err, "subscription payment")
		}

		if p.Status == StatusVerified {
			result = p
			return nil
		}
		if !p.Status.CanTransitionTo(StatusVerified) {
			return core.InvalidStateError(entityName, string(p.Status), string(StatusVerified))
		}

		plan, err := st.Plans.GetByID(ctx, p.PlanID)
		if err != nil {
			return notFoundAs(err, "plan")
		}

		payer, err := st.Users.GetByID(ctx, p.UserID)
		if err != nil {
			return notFoundAs(err, "user")
		}
		// ADMIN is never replaced by a purchased tier.
		if payer.Tier == user.TierAdmin {
			return core.InvalidStateError(entityName, string(p.Status), string(StatusVerified)).
				WithDetail("current_tier", string(payer.Tier))
		}

		if err := st.Users.UpdateTier(ctx, p.UserID, plan.Name); err != nil {
			return notFoundAs(err, "user")
		}

		now := s.clock.Now()
		from = p.Status
		p.Status = StatusVerified
		p.VerifiedBy = &adminID
		p.VerifiedAt = &now

		if err := st.Payments.Update(ctx, p); err != nil {
			return err
		}

		result = p
		return nil
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	if from == "" {
		core.AddSpanEvent(ctx, "subscription.already_verified")
		return result, nil
	}

	core.AddSpanEvent(ctx, "subscription.activated", attribute.String("plan", string(result.PlanName)))
	metrics.Transition(entityName, string(StatusVerified))
	slog.InfoContext(ctx, "subscription activated",
		"payment_id", result.ID,
		"user_id", result.UserID,
		"plan", result.PlanName,
		"from", from,
		"admin_id", adminID,
	)
	events.Emit(ctx, s.publisher, events.New(events.SubscriptionActivated, eventPayload(result)))

	return result, nil
}

// Get returns a payment to its owner or an admin.
func (s *Service) Get(ctx context.Context, paymentID, viewerID string) (*Payment, error) {
	p, err := s.stores.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundAs(err, "subscription payment")
	}

	if p.UserID != viewerID {
		if err := s.requireAdmin(ctx, viewerID); err != nil {
			return nil, core.NotFoundError("subscription payment")
		}
	}
	return p, nil
}

// ListPendingVerification returns payments an admin can verify, oldest first.
func (s *Service) ListPendingVerification(ctx context.Context, limit int) ([]Payment, error) {
	if limit <= 0 || limit > defaultQueueLimit {
		limit = defaultQueueLimit
	}
	return s.stores.Payments.ListByStatus(ctx, []Status{StatusInitiated, StatusSubmitted}, limit)
}

func (s *Service) requireAdmin(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("admin check: %w", core.ErrUnauthorized)
	}

	u, err := s.stores.Users.GetByID(ctx, userID)
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

type paymentEvent struct {
	PaymentID        string    `json:"payment_id"`
	UserID           string    `json:"user_id"`
	Plan             user.Tier `json:"plan"`
	Status           Status    `json:"status"`
	TotalChargeCents int64     `json:"total_charge_cents"`
}

func eventPayload(p *Payment) paymentEvent {
	return paymentEvent{
		PaymentID:        p.ID,
		UserID:           p.UserID,
		Plan:             p.PlanName,
		Status:           p.Status,
		TotalChargeCents: p.TotalChargeCents,
	}
}
