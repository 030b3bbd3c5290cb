package pricing

import "github.com/shopspring/decimal"

// InvoiceAmounts is the full monetary breakdown of an invoice, in minor
// units. It satisfies:
//
//	Taxable == Subtotal - Discount
//	Total   == Taxable + IVA - Retention
type InvoiceAmounts struct {
	Subtotal  int64
	Discount  int64
	Taxable   int64
	IVA       int64
	Retention int64
	Total     int64
}

// ComputeInvoiceAmounts derives the invoice breakdown from a subtotal and
// discount. It is pure and idempotent: the same inputs always produce the
// same breakdown.
func ComputeInvoiceAmounts(subtotal, discount int64, ivaRate, retentionRate decimal.Decimal) (InvoiceAmounts, error) {
	if subtotal <= 0 || discount < 0 || discount > subtotal {
		return InvoiceAmounts{}, ErrInvalidAmount
	}

	taxable := subtotal - discount
	taxes := ComputeTaxes(taxable, ivaRate, ClampRetention(retentionRate))
	return InvoiceAmounts{
		Subtotal:  subtotal,
		Discount:  discount,
		Taxable:   taxable,
		IVA:       taxes.IVA,
		Retention: taxes.Retention,
		Total:     taxable + taxes.IVA - taxes.Retention,
	}, nil
}
