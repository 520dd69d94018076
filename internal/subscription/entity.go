// AngelaMos | 2026
// entity.go

package subscription

import (
	"fmt"
	"time"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/quota"
	"github.com/tonymphomilanzi/microbid/internal/user"
)

type BillingType string

const (
	BillingFree     BillingType = "FREE"
	BillingMonthly  BillingType = "MONTHLY"
	BillingLifetime BillingType = "LIFETIME"
)

type Plan struct {
	ID                    string      `db:"id"`
	Name                  user.Tier   `db:"name"`
	BillingType           BillingType `db:"billing_type"`
	MonthlyPriceCents     *int64      `db:"monthly_price_cents"`
	OneTimePriceCents     *int64      `db:"one_time_price_cents"`
	ListingsPerMonth      *int        `db:"listings_per_month"`
	ConversationsPerMonth *int        `db:"conversations_per_month"`
	IsActive              bool        `db:"is_active"`
	SortOrder             int         `db:"sort_order"`
	CreatedAt             time.Time   `db:"created_at"`
	UpdatedAt             time.Time   `db:"updated_at"`
}

func (p *Plan) Limits() quota.Limits {
	return quota.Limits{
		ListingsPerMonth:      p.ListingsPerMonth,
		ConversationsPerMonth: p.ConversationsPerMonth,
	}
}

// PriceCents is what one payment for the plan costs. Free plans and plans
// missing the price for their billing type cannot be bought.
func (p *Plan) PriceCents() (int64, error) {
	var price *int64
	switch p.BillingType {
	case BillingMonthly:
		price = p.MonthlyPriceCents
	case BillingLifetime:
		price = p.OneTimePriceCents
	default:
		return 0, core.InvalidInputError(fmt.Sprintf("plan %s is not purchasable", p.Name))
	}

	if price == nil || *price < 0 {
		return 0, core.InvalidInputError(fmt.Sprintf("plan %s has no %s price", p.Name, p.BillingType))
	}
	return *price, nil
}

type Method string

const (
	MethodBankTransfer Method = "bank_transfer"
	MethodMobileMoney  Method = "mobile_money"
	MethodCrypto       Method = "crypto"
)

func (m Method) Valid() bool {
	switch m {
	case MethodBankTransfer, MethodMobileMoney, MethodCrypto:
		return true
	}
	return false
}

type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusSubmitted Status = "SUBMITTED"
	StatusVerified  Status = "VERIFIED"
)

// Admins may verify straight from INITIATED when the transfer shows up
// before the user submits a reference.
var transitions = map[Status][]Status{
	StatusInitiated: {StatusSubmitted, StatusVerified},
	StatusSubmitted: {StatusVerified},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Payment struct {
	ID               string     `db:"id"`
	UserID           string     `db:"user_id"`
	PlanID           string     `db:"plan_id"`
	PlanName         user.Tier  `db:"plan_name"`
	Method           Method     `db:"method"`
	TotalChargeCents int64      `db:"total_charge_cents"`
	Status           Status     `db:"status"`
	Reference        *string    `db:"reference"`
	ProofURL         *string    `db:"proof_url"`
	Note             *string    `db:"note"`
	SubmittedAt      *time.Time `db:"submitted_at"`
	VerifiedBy       *string    `db:"verified_by"`
	VerifiedAt       *time.Time `db:"verified_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}
