package orders

import "math"

// DefaultIvaRate is the es-AR general IVA rate used when a document carries
// no rate of its own.
const DefaultIvaRate = 0.21

// Totals are the three authoritative amounts of an order or invoice.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	IvaTotal float64 `json:"iva_total"`
	Total    float64 `json:"total"`
}

// DiscountKind selects how a discount's raw value is interpreted.
type DiscountKind string

const (
	DiscountFlatAmount   DiscountKind = "flat_amount"
	DiscountPercentOfIva DiscountKind = "percent_of_iva"
)

// Discount describes a commercial discount applied at invoicing time.
type Discount struct {
	Kind     DiscountKind `json:"kind" validate:"required,oneof=flat_amount percent_of_iva"`
	RawValue float64      `json:"raw_value"`
}

// EditedField names which of the three totals a manual edit touched.
type EditedField string

const (
	FieldSubtotal EditedField = "subtotal"
	FieldIva      EditedField = "iva"
	FieldTotal    EditedField = "total"
)

// num coerces NaN and infinities to zero so a bad input never poisons a
// running sum.
func num(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampPercent(v float64) float64 {
	v = num(v)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ComputeLine derives the net subtotal and IVA amount of a single line.
// The line discount reduces the IVA base.
func ComputeLine(quantity int, unitPrice, discountPercent, ivaPercent float64) (subtotal, ivaAmount float64) {
	if quantity < 0 {
		quantity = 0
	}
	gross := float64(quantity) * num(unitPrice)
	subtotal = roundTo2(gross * (1 - clampPercent(discountPercent)/100))
	ivaAmount = roundTo2(subtotal * clampPercent(ivaPercent) / 100)
	return subtotal, ivaAmount
}

// ComputeTotals sums line amounts into order totals. The invariant
// Total == Subtotal + IvaTotal holds for every input.
func ComputeTotals(lines []OrderLine) Totals {
	var t Totals
	for _, l := range lines {
		t.Subtotal += num(l.Subtotal)
		t.IvaTotal += num(l.IvaAmount)
	}
	t.Subtotal = roundTo2(t.Subtotal)
	t.IvaTotal = roundTo2(t.IvaTotal)
	t.Total = roundTo2(t.Subtotal + t.IvaTotal)
	return t
}

// ApplyDiscount computes the effective discount amount for the given totals.
// A flat discount never exceeds the document total, so the displayed total
// cannot go negative. A percentage discount is taken against the IVA total.
func ApplyDiscount(d Discount, t Totals) float64 {
	switch d.Kind {
	case DiscountFlatAmount:
		raw := num(d.RawValue)
		if raw < 0 {
			return 0
		}
		if raw > t.Total {
			return roundTo2(t.Total)
		}
		return roundTo2(raw)
	case DiscountPercentOfIva:
		return roundTo2(t.IvaTotal * clampPercent(d.RawValue) / 100)
	default:
		return 0
	}
}

// Reconcile recomputes the remaining totals after one of them was edited by
// hand. Editing the subtotal re-derives IVA at the default rate; editing the
// IVA keeps the subtotal; editing the total preserves the previous IVA share
// of the total, falling back to the default rate when there was no previous
// total to take a share from.
func Reconcile(prev Totals, field EditedField, value float64) Totals {
	value = num(value)
	next := prev
	switch field {
	case FieldSubtotal:
		next.Subtotal = roundTo2(value)
		next.IvaTotal = roundTo2(next.Subtotal * DefaultIvaRate)
		next.Total = roundTo2(next.Subtotal + next.IvaTotal)
	case FieldIva:
		next.IvaTotal = roundTo2(value)
		next.Total = roundTo2(next.Subtotal + next.IvaTotal)
	case FieldTotal:
		next.Total = roundTo2(value)
		ratio := DefaultIvaRate / (1 + DefaultIvaRate)
		if prev.Total != 0 {
			ratio = num(prev.IvaTotal / prev.Total)
		}
		next.IvaTotal = roundTo2(next.Total * ratio)
		next.Subtotal = roundTo2(next.Total - next.IvaTotal)
	}
	return next
}
