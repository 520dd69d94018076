// AngelaMos | 2026
// calculator.go

package fee

import (
	"github.com/tonymphomilanzi/microbid/internal/user"
)

type DiscountCode string

const (
	DiscountOver700     DiscountCode = "OVER_700"
	DiscountSellerPro   DiscountCode = "SELLER_PRO"
	DiscountSellerVIP   DiscountCode = "SELLER_VIP"
	DiscountBuyerPro    DiscountCode = "BUYER_PRO"
	DiscountBuyerVIP    DiscountCode = "BUYER_VIP"
	DiscountBuyerDeals  DiscountCode = "BUYER_3_PLUS_DEALS"
	DiscountSellerDeals DiscountCode = "SELLER_3_PLUS_DEALS"
)

type Discount struct {
	Code DiscountCode `json:"code"`
	Bps  int          `json:"bps"`
}

type Input struct {
	PriceCents           int64
	Platform             string
	BuyerTier            user.Tier
	SellerTier           user.Tier
	BuyerCompletedDeals  int
	SellerCompletedDeals int
}

type Result struct {
	FeeBps      int        `json:"fee_bps"`
	FeePercent  float64    `json:"fee_percent"`
	FeeCents    int64      `json:"fee_cents"`
	MinFeeCents int64      `json:"min_fee_cents"`
	Discounts   []Discount `json:"discounts"`
}

// TotalChargeCents is what the buyer pays: price plus fee.
func (r Result) TotalChargeCents(priceCents int64) int64 {
	return priceCents + r.FeeCents
}

// ComputeServiceFee prices a sale with the default schedule.
func ComputeServiceFee(in Input) Result {
	return DefaultPolicy().Compute(in)
}

// Compute is pure and total. A negative price is a caller bug and must be
// rejected before this point.
func (p Policy) Compute(in Input) Result {
	buyerTier := user.ParseTier(string(in.BuyerTier))
	sellerTier := user.ParseTier(string(in.SellerTier))

	var codes []DiscountCode

	if in.PriceCents > p.LargePriceCents {
		codes = append(codes, DiscountOver700)
	}

	switch sellerTier {
	case user.TierPro:
		codes = append(codes, DiscountSellerPro)
	case user.TierVIP:
		codes = append(codes, DiscountSellerVIP)
	}

	switch buyerTier {
	case user.TierPro:
		codes = append(codes, DiscountBuyerPro)
	case user.TierVIP:
		codes = append(codes, DiscountBuyerVIP)
	}

	if in.BuyerCompletedDeals >= p.DealsThreshold {
		codes = append(codes, DiscountBuyerDeals)
	}

	if in.SellerCompletedDeals >= p.DealsThreshold {
		codes = append(codes, DiscountSellerDeals)
	}

	discounts := make([]Discount, 0, len(codes))
	totalDiscount := 0
	for _, code := range codes {
		bps := p.bps(code)
		discounts = append(discounts, Discount{Code: code, Bps: bps})
		totalDiscount += bps
	}

	feeBps := clamp(p.BaseBps-totalDiscount, p.MinBps, p.BaseBps)
	minFee := p.MinFeeFor(in.Platform)

	feeCents := roundBps(in.PriceCents, feeBps)
	if feeCents < minFee {
		feeCents = minFee
	}

	return Result{
		FeeBps:      feeBps,
		FeePercent:  float64(feeBps) / 100,
		FeeCents:    feeCents,
		MinFeeCents: minFee,
		Discounts:   discounts,
	}
}

// roundBps is price*bps/10000 rounded half up, exact in integers. The
// price is split at 10000 so the product never leaves int64.
func roundBps(priceCents int64, bps int) int64 {
	whole, rest := priceCents/10000, priceCents%10000
	return whole*int64(bps) + (rest*int64(bps)+5000)/10000
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
