package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateLineInclusive(t *testing.T) {
	// 10 units at Rs 10.00, 12% GST included in the price.
	res := CalculateLine(dec("10.00"), 10, dec("12"), PricingInclusive, decimal.Zero)

	require.True(t, res.Taxable.Equal(dec("89.29")), "taxable %s", res.Taxable)
	require.True(t, res.TotalTax().Equal(dec("10.71")), "tax %s", res.TotalTax())
	require.True(t, res.Total.Equal(dec("100.00")), "total %s", res.Total)
	require.True(t, res.CGST.Add(res.SGST).Equal(res.TotalTax()))
}

func TestCalculateLineExclusive(t *testing.T) {
	res := CalculateLine(dec("50.00"), 4, dec("18"), PricingExclusive, decimal.Zero)

	require.True(t, res.Taxable.Equal(dec("200.00")))
	require.True(t, res.TotalTax().Equal(dec("36.00")))
	require.True(t, res.CGST.Equal(dec("18.00")))
	require.True(t, res.SGST.Equal(dec("18.00")))
	require.True(t, res.Total.Equal(dec("236.00")))
}

func TestCalculateLineZeroRate(t *testing.T) {
	for _, mode := range []PricingMode{PricingInclusive, PricingExclusive} {
		res := CalculateLine(dec("25.50"), 2, decimal.Zero, mode, decimal.Zero)
		require.True(t, res.TotalTax().IsZero(), "mode %s", mode)
		require.True(t, res.Taxable.Equal(dec("51.00")))
		require.True(t, res.Total.Equal(dec("51.00")))
	}
}

func TestCalculateLineDiscountClampsToZero(t *testing.T) {
	res := CalculateLine(dec("10.00"), 1, dec("12"), PricingExclusive, dec("25.00"))

	require.True(t, res.Taxable.IsZero())
	require.True(t, res.TotalTax().IsZero())
	require.True(t, res.Total.IsZero())
}

func TestCalculateLineSplitsTaxEvenly(t *testing.T) {
	// 333.33 at 5% exclusive: tax 16.6665 -> 16.67; halves must sum back.
	res := CalculateLine(dec("333.33"), 1, dec("5"), PricingExclusive, decimal.Zero)

	require.True(t, res.TotalTax().Equal(dec("16.67")))
	require.True(t, res.CGST.Equal(dec("8.33")))
	require.True(t, res.SGST.Equal(dec("8.34")))
}

func TestCalculateDiscount(t *testing.T) {
	require.True(t, CalculateDiscount(dec("200.00"), DiscountPercent, dec("10")).Equal(dec("20.00")))
	require.True(t, CalculateDiscount(dec("200.00"), DiscountFlat, dec("50")).Equal(dec("50.00")))
	// No discount kind ever exceeds the amount it applies to.
	require.True(t, CalculateDiscount(dec("30.00"), DiscountFlat, dec("50")).Equal(dec("30.00")))
	require.True(t, CalculateDiscount(dec("100.00"), DiscountPercent, dec("150")).Equal(dec("100.00")))
	require.True(t, CalculateDiscount(dec("200.00"), DiscountNone, dec("50")).IsZero())
}

func TestCalculateBillDiscountCannotGoNegative(t *testing.T) {
	line := CalculateLine(dec("100.00"), 1, dec("0"), PricingInclusive, decimal.Zero)

	res := CalculateBill([]LineResult{line}, DiscountPercent, dec("150"))

	require.True(t, res.Discount.Equal(dec("100.00")))
	require.True(t, res.GrandTotal.IsZero(), "grand %s", res.GrandTotal)
	require.True(t, res.FinalAmount.IsZero())
	require.True(t, res.RoundOff.IsZero())
}

func TestCalculateBillRoundOffIdentity(t *testing.T) {
	lines := []LineResult{
		CalculateLine(dec("10.00"), 10, dec("12"), PricingInclusive, decimal.Zero),
		CalculateLine(dec("33.50"), 3, dec("5"), PricingExclusive, decimal.Zero),
	}

	res := CalculateBill(lines, DiscountPercent, dec("5"))

	require.True(t, res.GrandTotal.Add(res.RoundOff).Equal(res.FinalAmount),
		"grand %s + roundoff %s != final %s", res.GrandTotal, res.RoundOff, res.FinalAmount)
	require.True(t, res.FinalAmount.Equal(RoundRupee(res.GrandTotal)))
	require.True(t, res.RoundOff.Abs().LessThanOrEqual(dec("0.50")))
}

func TestCalculateBillDiscountAppliesToLineTotals(t *testing.T) {
	// The bill discount applies to the sum of line totals, not to the
	// pre-tax subtotal, even when lines carried their own discounts.
	line := CalculateLine(dec("100.00"), 1, dec("12"), PricingExclusive, dec("10.00"))
	require.True(t, line.Total.Equal(dec("100.80")))

	res := CalculateBill([]LineResult{line}, DiscountPercent, dec("10"))

	require.True(t, res.Discount.Equal(dec("10.08")))
	require.True(t, res.GrandTotal.Equal(dec("90.72")))
	require.True(t, res.FinalAmount.Equal(dec("91")))
	require.True(t, res.RoundOff.Equal(dec("0.28")))
}

func TestCalculateBillNoDiscount(t *testing.T) {
	res := CalculateBill([]LineResult{
		CalculateLine(dec("10.00"), 10, dec("12"), PricingInclusive, decimal.Zero),
	}, DiscountNone, decimal.Zero)

	require.True(t, res.Discount.IsZero())
	require.True(t, res.GrandTotal.Equal(dec("100.00")))
	require.True(t, res.FinalAmount.Equal(dec("100")))
	require.True(t, res.RoundOff.IsZero())
}
