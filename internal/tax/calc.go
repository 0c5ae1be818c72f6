// Package tax computes line and bill totals for GST retail sales. It is
// the only place in the codebase allowed to round monetary values: every
// output is rounded here (half-up, two decimals; bill totals to the whole
// rupee) and callers must never re-round or re-derive amounts.
package tax

import (
	"github.com/shopspring/decimal"
)

// PricingMode states whether a batch price already contains GST.
type PricingMode string

const (
	// PricingInclusive means the stored unit price contains tax; the
	// taxable value is back-computed.
	PricingInclusive PricingMode = "INCLUSIVE"
	// PricingExclusive means tax is added on top of the stored price.
	PricingExclusive PricingMode = "EXCLUSIVE"
)

// DiscountKind selects how a discount value is interpreted.
type DiscountKind string

const (
	DiscountNone    DiscountKind = ""
	DiscountPercent DiscountKind = "PERCENT"
	DiscountFlat    DiscountKind = "FLAT"
)

var hundred = decimal.NewFromInt(100)

// LineResult is the tax breakdown for one bill line. All fields are
// rounded to two decimals.
type LineResult struct {
	Taxable decimal.Decimal
	CGST    decimal.Decimal
	SGST    decimal.Decimal
	Total   decimal.Decimal
}

// TotalTax returns CGST + SGST.
func (r LineResult) TotalTax() decimal.Decimal {
	return r.CGST.Add(r.SGST)
}

// BillResult aggregates line results with the bill-level discount and the
// round-off to the payable whole-rupee amount.
type BillResult struct {
	Subtotal    decimal.Decimal // sum of taxable values
	TotalCGST   decimal.Decimal
	TotalSGST   decimal.Decimal
	ItemsTotal  decimal.Decimal // sum of line totals before bill discount
	Discount    decimal.Decimal // bill-level discount amount
	GrandTotal  decimal.Decimal // items total minus bill discount
	RoundOff    decimal.Decimal // FinalAmount - GrandTotal, signed
	FinalAmount decimal.Decimal // whole-rupee payable amount
}

// Round2 rounds a monetary value to two decimals, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundRupee rounds to the nearest whole currency unit.
func RoundRupee(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// CalculateLine computes the tax breakdown for quantity units of a batch
// priced at unitPrice under the given pricing mode, after subtracting
// discount from the gross amount. The caller guarantees quantity > 0; a
// discount larger than the gross amount clamps the line to zero rather
// than producing a negative total.
//
// Tax splits evenly into CGST and SGST halves. The SGST half absorbs the
// odd paisa so that CGST + SGST always equals the rounded total tax.
func CalculateLine(unitPrice decimal.Decimal, quantity int64, ratePercent decimal.Decimal, mode PricingMode, discount decimal.Decimal) LineResult {
	gross := unitPrice.Mul(decimal.NewFromInt(quantity))
	net := gross.Sub(discount)
	if net.IsNegative() {
		net = decimal.Zero
	}

	var taxable, totalTax, total decimal.Decimal
	switch {
	case ratePercent.IsZero():
		taxable = net
		totalTax = decimal.Zero
		total = net
	case mode == PricingInclusive:
		taxable = net.Mul(hundred).Div(hundred.Add(ratePercent))
		totalTax = net.Sub(taxable)
		total = net
	default:
		taxable = net
		totalTax = taxable.Mul(ratePercent).Div(hundred)
		total = taxable.Add(totalTax)
	}

	roundedTax := Round2(totalTax)
	cgst := Round2(totalTax.Div(decimal.NewFromInt(2)))
	sgst := roundedTax.Sub(cgst)

	return LineResult{
		Taxable: Round2(taxable),
		CGST:    cgst,
		SGST:    sgst,
		Total:   Round2(total),
	}
}

// CalculateDiscount resolves a discount specification against an amount.
// The discount never exceeds the amount it applies to, whatever the
// kind, so a discounted total cannot go negative; an unset kind always
// yields zero.
func CalculateDiscount(amount decimal.Decimal, kind DiscountKind, value decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch kind {
	case DiscountPercent:
		discount = amount.Mul(value).Div(hundred)
	case DiscountFlat:
		discount = value
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(amount) {
		discount = amount
	}
	return Round2(discount)
}

// CalculateBill sums already-rounded line results and applies the
// bill-level discount to the sum of line totals, then rounds the grand
// total to the nearest rupee. The identity
// FinalAmount == GrandTotal + RoundOff holds exactly.
func CalculateBill(lines []LineResult, discountKind DiscountKind, discountValue decimal.Decimal) BillResult {
	var subtotal, cgst, sgst, itemsTotal decimal.Decimal
	for _, line := range lines {
		subtotal = subtotal.Add(line.Taxable)
		cgst = cgst.Add(line.CGST)
		sgst = sgst.Add(line.SGST)
		itemsTotal = itemsTotal.Add(line.Total)
	}

	discount := CalculateDiscount(itemsTotal, discountKind, discountValue)
	grand := Round2(itemsTotal.Sub(discount))
	final := RoundRupee(grand)

	return BillResult{
		Subtotal:    Round2(subtotal),
		TotalCGST:   Round2(cgst),
		TotalSGST:   Round2(sgst),
		ItemsTotal:  Round2(itemsTotal),
		Discount:    discount,
		GrandTotal:  grand,
		RoundOff:    final.Sub(grand),
		FinalAmount: final,
	}
}
