// AngelaMos | 2026
// entity.go

package escrow

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/tonymphomilanzi/microbid/internal/fee"
)

type Method string

const (
	MethodBankTransfer Method = "bank_transfer"
	MethodMobileMoney  Method = "mobile_money"
	MethodCrypto       Method = "crypto"
)

type Provider string

const (
	ProviderManualBank        Provider = "MANUAL_BANK"
	ProviderManualMobileMoney Provider = "MANUAL_MOBILE_MONEY"
	ProviderManualCrypto      Provider = "MANUAL_CRYPTO"
)

// ProviderFor maps a checkout method to the manual settlement channel that
// handles it. ok is false for unknown methods.
func ProviderFor(method Method) (Provider, bool) {
	switch method {
	case MethodBankTransfer:
		return ProviderManualBank, true
	case MethodMobileMoney:
		return ProviderManualMobileMoney, true
	case MethodCrypto:
		return ProviderManualCrypto, true
	}
	return "", false
}

// Discounts is the audit trail of the fee computation, stored as JSON.
type Discounts []fee.Discount

func (d Discounts) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d)
}

func (d *Discounts) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("discounts: unsupported column type")
	}
	return json.Unmarshal(raw, d)
}

type Escrow struct {
	ID               string     `db:"id"`
	ListingID        string     `db:"listing_id"`
	BuyerID          string     `db:"buyer_id"`
	SellerID         string     `db:"seller_id"`
	PriceCents       int64      `db:"price_cents"`
	FeeBps           int        `db:"fee_bps"`
	FeeCents         int64      `db:"fee_cents"`
	MinFeeCents      int64      `db:"min_fee_cents"`
	TotalChargeCents int64      `db:"total_charge_cents"`
	Discounts        Discounts  `db:"fee_discounts"`
	Status           Status     `db:"status"`
	Method           Method     `db:"method"`
	Provider         Provider   `db:"provider"`
	ProviderRef      string     `db:"provider_ref"`
	FundedAt         *time.Time `db:"funded_at"`
	VerifiedBy       *string    `db:"verified_by"`
	VerifiedAt       *time.Time `db:"verified_at"`
	DisputeReason    *string    `db:"dispute_reason"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`

	Proofs []Proof `db:"-"`
}

func (e *Escrow) IsParty(userID string) bool {
	return userID != "" && (userID == e.BuyerID || userID == e.SellerID)
}

type ProofKind string

const (
	ProofScreenshot ProofKind = "SCREENSHOT"
	ProofReceipt    ProofKind = "RECEIPT"
	ProofReference  ProofKind = "REFERENCE"
	ProofOther      ProofKind = "OTHER"
)

func (k ProofKind) Valid() bool {
	switch k {
	case ProofScreenshot, ProofReceipt, ProofReference, ProofOther:
		return true
	}
	return false
}

// Proof is immutable once stored.
type Proof struct {
	ID          string    `db:"id"`
	EscrowID    string    `db:"escrow_id"`
	SubmittedBy string    `db:"submitted_by"`
	Kind        ProofKind `db:"kind"`
	Note        *string   `db:"note"`
	URL         *string   `db:"url"`
	CreatedAt   time.Time `db:"created_at"`
}

// Purchase is the settlement record. At most one exists per escrow.
type Purchase struct {
	ID         string    `db:"id"`
	EscrowID   string    `db:"escrow_id"`
	ListingID  string    `db:"listing_id"`
	BuyerID    string    `db:"buyer_id"`
	SellerID   string    `db:"seller_id"`
	PriceCents int64     `db:"price_cents"`
	CreatedAt  time.Time `db:"created_at"`
}
