// AngelaMos | 2026
// policy.go

package fee

import (
	"fmt"
	"strings"

	"github.com/tonymphomilanzi/microbid/internal/config"
)

// MaxPriceCents bounds every price accepted for quoting or listing, keeping
// price plus fee well inside int64.
const MaxPriceCents int64 = 100_000_000_000

// Policy is the fee schedule in effect. A computed Result is a snapshot of
// the policy at that moment; changing the policy never touches stored fees.
type Policy struct {
	BaseBps int
	MinBps  int

	LargePriceCents       int64
	LargePriceDiscountBps int

	SellerProDiscountBps int
	SellerVIPDiscountBps int
	BuyerProDiscountBps  int
	BuyerVIPDiscountBps  int

	DealsThreshold         int
	BuyerDealsDiscountBps  int
	SellerDealsDiscountBps int

	MinFeeCents            int64
	ReducedMinFeeCents     int64
	ReducedMinFeePlatforms []string
}

func DefaultPolicy() Policy {
	return Policy{
		BaseBps:                800,
		MinBps:                 350,
		LargePriceCents:        70000,
		LargePriceDiscountBps:  200,
		SellerProDiscountBps:   100,
		SellerVIPDiscountBps:   150,
		BuyerProDiscountBps:    150,
		BuyerVIPDiscountBps:    200,
		DealsThreshold:         3,
		BuyerDealsDiscountBps:  50,
		SellerDealsDiscountBps: 50,
		MinFeeCents:            800,
		ReducedMinFeeCents:     300,
		ReducedMinFeePlatforms: []string{"youtube", "telegram"},
	}
}

func PolicyFromConfig(cfg config.FeeConfig) Policy {
	return Policy{
		BaseBps:                cfg.BaseBps,
		MinBps:                 cfg.MinBps,
		LargePriceCents:        cfg.LargePriceCents,
		LargePriceDiscountBps:  cfg.LargePriceDiscountBps,
		SellerProDiscountBps:   cfg.SellerProDiscountBps,
		SellerVIPDiscountBps:   cfg.SellerVIPDiscountBps,
		BuyerProDiscountBps:    cfg.BuyerProDiscountBps,
		BuyerVIPDiscountBps:    cfg.BuyerVIPDiscountBps,
		DealsThreshold:         cfg.DealsThreshold,
		BuyerDealsDiscountBps:  cfg.BuyerDealsDiscountBps,
		SellerDealsDiscountBps: cfg.SellerDealsDiscountBps,
		MinFeeCents:            cfg.MinFeeCents,
		ReducedMinFeeCents:     cfg.ReducedMinFeeCents,
		ReducedMinFeePlatforms: cfg.ReducedMinFeePlatforms,
	}
}

func (p Policy) Validate() error {
	if p.MinBps <= 0 || p.MinBps > p.BaseBps {
		return fmt.Errorf("fee policy: min bps %d outside (0, %d]", p.MinBps, p.BaseBps)
	}
	if p.MinFeeCents < 0 || p.ReducedMinFeeCents < 0 {
		return fmt.Errorf("fee policy: negative minimum fee")
	}
	return nil
}

// MinFeeFor returns the fee floor for a listing platform. Unknown platforms
// fall into the generic bucket.
func (p Policy) MinFeeFor(platform string) int64 {
	platform = strings.TrimSpace(platform)
	for _, reduced := range p.ReducedMinFeePlatforms {
		if strings.EqualFold(platform, reduced) {
			return p.ReducedMinFeeCents
		}
	}
	return p.MinFeeCents
}

func (p Policy) bps(code DiscountCode) int {
	switch code {
	case DiscountOver700:
		return p.LargePriceDiscountBps
	case DiscountSellerPro:
		return p.SellerProDiscountBps
	case DiscountSellerVIP:
		return p.SellerVIPDiscountBps
	case DiscountBuyerPro:
		return p.BuyerProDiscountBps
	case DiscountBuyerVIP:
		return p.BuyerVIPDiscountBps
	case DiscountBuyerDeals:
		return p.BuyerDealsDiscountBps
	case DiscountSellerDeals:
		return p.SellerDealsDiscountBps
	}
	return 0
}
