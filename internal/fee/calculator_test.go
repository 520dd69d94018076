// AngelaMos | 2026
// calculator_test.go

package fee

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonymphomilanzi/microbid/internal/user"
)

func TestComputeServiceFee_LargePriceVIPSeller(t *testing.T) {
	got := ComputeServiceFee(Input{
		PriceCents: 100000,
		Platform:   "X",
		BuyerTier:  user.TierFree,
		SellerTier: user.TierVIP,
	})

	assert.Equal(t, []Discount{
		{Code: DiscountOver700, Bps: 200},
		{Code: DiscountSellerVIP, Bps: 150},
	}, got.Discounts)
	assert.Equal(t, 450, got.FeeBps)
	assert.InDelta(t, 4.5, got.FeePercent, 1e-9)
	assert.Equal(t, int64(800), got.MinFeeCents)
	assert.Equal(t, int64(4500), got.FeeCents)
}

func TestComputeServiceFee_MinimumFloorBinds(t *testing.T) {
	got := ComputeServiceFee(Input{
		PriceCents: 1000,
		Platform:   "YouTube",
		BuyerTier:  user.TierFree,
		SellerTier: user.TierFree,
	})

	assert.Empty(t, got.Discounts)
	assert.Equal(t, 800, got.FeeBps)
	assert.Equal(t, int64(300), got.MinFeeCents)
	assert.Equal(t, int64(300), got.FeeCents)
}

func TestComputeServiceFee_PlatformIsCaseInsensitive(t *testing.T) {
	for _, platform := range []string{"telegram", "TELEGRAM", " Telegram ", "youtube"} {
		got := ComputeServiceFee(Input{PriceCents: 0, Platform: platform})
		assert.Equal(t, int64(300), got.MinFeeCents, platform)
	}

	got := ComputeServiceFee(Input{PriceCents: 0, Platform: "instagram"})
	assert.Equal(t, int64(800), got.MinFeeCents)
	assert.Equal(t, int64(800), got.FeeCents)
}

func TestComputeServiceFee_ClampsOnceAfterSumming(t *testing.T) {
	// 200 + 150 + 200 + 50 + 50 = 650 off 800 would be 150; clamped to 350.
	got := ComputeServiceFee(Input{
		PriceCents:           200000,
		Platform:             "telegram",
		BuyerTier:            user.TierVIP,
		SellerTier:           user.TierVIP,
		BuyerCompletedDeals:  3,
		SellerCompletedDeals: 10,
	})

	assert.Len(t, got.Discounts, 5)
	assert.Equal(t, 350, got.FeeBps)
	assert.Equal(t, int64(7000), got.FeeCents)
}

func TestComputeServiceFee_ProTiersAndDeals(t *testing.T) {
	got := ComputeServiceFee(Input{
		PriceCents:           50000,
		Platform:             "tiktok",
		BuyerTier:            user.TierPro,
		SellerTier:           user.TierPro,
		BuyerCompletedDeals:  2,
		SellerCompletedDeals: 3,
	})

	assert.Equal(t, []Discount{
		{Code: DiscountSellerPro, Bps: 100},
		{Code: DiscountBuyerPro, Bps: 150},
		{Code: DiscountSellerDeals, Bps: 50},
	}, got.Discounts)
	assert.Equal(t, 500, got.FeeBps)
	assert.Equal(t, int64(2500), got.FeeCents)
}

func TestComputeServiceFee_ThresholdIsStrict(t *testing.T) {
	got := ComputeServiceFee(Input{PriceCents: 70000, Platform: "x"})
	assert.Empty(t, got.Discounts)
	assert.Equal(t, int64(5600), got.FeeCents)

	got = ComputeServiceFee(Input{PriceCents: 70001, Platform: "x"})
	assert.Equal(t, []Discount{{Code: DiscountOver700, Bps: 200}}, got.Discounts)
}

func TestComputeServiceFee_UnknownTierIsFree(t *testing.T) {
	got := ComputeServiceFee(Input{
		PriceCents: 10000,
		Platform:   "x",
		BuyerTier:  user.Tier("platinum"),
		SellerTier: "",
	})

	assert.Empty(t, got.Discounts)
	assert.Equal(t, 800, got.FeeBps)
}

func TestComputeServiceFee_AdminTierGetsNoDiscount(t *testing.T) {
	got := ComputeServiceFee(Input{
		PriceCents: 10000,
		Platform:   "x",
		BuyerTier:  user.TierAdmin,
		SellerTier: user.TierAdmin,
	})

	assert.Empty(t, got.Discounts)
}

func TestRoundBpsHalfUp(t *testing.T) {
	// 12345 * 450 / 10000 = 555.525 -> 556
	assert.Equal(t, int64(556), roundBps(12345, 450))
	// 10010 * 350 / 10000 = 350.35 -> 350
	assert.Equal(t, int64(350), roundBps(10010, 350))
	// 1 * 5000 / 10000 = 0.5 -> 1
	assert.Equal(t, int64(1), roundBps(1, 5000))
	assert.Equal(t, int64(0), roundBps(0, 800))
}

func TestComputeServiceFee_HugePriceKeepsExactFee(t *testing.T) {
	got := ComputeServiceFee(Input{PriceCents: 20_000_000_000_000_000, Platform: "X"})

	assert.Equal(t, 600, got.FeeBps)
	assert.Equal(t, int64(1_200_000_000_000_000), got.FeeCents)

	// 9223372036854775807 * 800 / 10000 = 737869762948382064.56
	assert.Equal(t, int64(737869762948382065), roundBps(math.MaxInt64, 800))
}

func TestComputeServiceFee_Invariants(t *testing.T) {
	tiers := []user.Tier{user.TierFree, user.TierPro, user.TierVIP, user.TierAdmin}
	platforms := []string{"YouTube", "Telegram", "Instagram", ""}
	prices := []int64{0, 1, 999, 70000, 70001, 123457, 5_000_000}
	policy := DefaultPolicy()

	for _, price := range prices {
		for _, platform := range platforms {
			for _, bt := range tiers {
				for _, st := range tiers {
					for _, deals := range []int{0, 3} {
						got := policy.Compute(Input{
							PriceCents:           price,
							Platform:             platform,
							BuyerTier:            bt,
							SellerTier:           st,
							BuyerCompletedDeals:  deals,
							SellerCompletedDeals: deals,
						})

						assert.GreaterOrEqual(t, got.FeeBps, 350)
						assert.LessOrEqual(t, got.FeeBps, 800)
						assert.GreaterOrEqual(t, got.FeeCents, policy.MinFeeFor(platform))
						assert.Equal(t, got.MinFeeCents, policy.MinFeeFor(platform))
					}
				}
			}
		}
	}
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.MinBps = 900
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.ReducedMinFeeCents = -1
	assert.Error(t, p.Validate())
}
