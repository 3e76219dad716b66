package orders

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(qty int, price, disc, iva float64) OrderLine {
	sub, ivaAmt := ComputeLine(qty, price, disc, iva)
	return OrderLine{
		Quantity:        qty,
		UnitPrice:       price,
		DiscountPercent: disc,
		IvaPercent:      iva,
		Subtotal:        sub,
		IvaAmount:       ivaAmt,
	}
}

func TestComputeTotalsWorkedExample(t *testing.T) {
	lines := []OrderLine{
		line(2, 100, 0, 21),
		line(1, 50, 10, 21),
	}

	got := ComputeTotals(lines)

	assert.Equal(t, 245.0, got.Subtotal)
	assert.Equal(t, 51.45, got.IvaTotal)
	assert.Equal(t, 296.45, got.Total)
}

func TestComputeTotalsInvariant(t *testing.T) {
	cases := [][]OrderLine{
		nil,
		{line(1, 0, 0, 21)},
		{line(3, 33.33, 0, 21), line(7, 19.99, 5, 10.5)},
		{line(1, 100, 100, 21)},
		{line(250, 1.01, 12.5, 21), line(1, 0.01, 0, 21), line(9, 87.3, 99, 27)},
	}
	for _, lines := range cases {
		got := ComputeTotals(lines)
		assert.InDelta(t, got.Total, got.Subtotal+got.IvaTotal, 0.005)
		assert.GreaterOrEqual(t, got.Subtotal, 0.0)
	}
}

func TestComputeTotalsSanitizesBadNumbers(t *testing.T) {
	lines := []OrderLine{
		{Subtotal: math.NaN(), IvaAmount: math.Inf(1)},
		{Subtotal: 100, IvaAmount: 21},
	}

	got := ComputeTotals(lines)

	assert.Equal(t, Totals{Subtotal: 100, IvaTotal: 21, Total: 121}, got)
}

func TestComputeLineClampsDiscount(t *testing.T) {
	sub, iva := ComputeLine(2, 100, 150, 21)
	assert.Equal(t, 0.0, sub)
	assert.Equal(t, 0.0, iva)

	sub, iva = ComputeLine(2, 100, -10, 21)
	assert.Equal(t, 200.0, sub)
	assert.Equal(t, 42.0, iva)
}

func TestApplyDiscountFlatNeverExceedsTotal(t *testing.T) {
	totals := Totals{Subtotal: 245, IvaTotal: 51.45, Total: 296.45}

	computed := ApplyDiscount(Discount{Kind: DiscountFlatAmount, RawValue: 500}, totals)

	assert.Equal(t, 296.45, computed)
	assert.Equal(t, 0.0, roundTo2(totals.Total-computed))
}

func TestApplyDiscountFlat(t *testing.T) {
	totals := Totals{Subtotal: 100, IvaTotal: 21, Total: 121}

	assert.Equal(t, 50.0, ApplyDiscount(Discount{Kind: DiscountFlatAmount, RawValue: 50}, totals))
	assert.Equal(t, 0.0, ApplyDiscount(Discount{Kind: DiscountFlatAmount, RawValue: -5}, totals))
	assert.Equal(t, 0.0, ApplyDiscount(Discount{Kind: DiscountFlatAmount, RawValue: math.NaN()}, totals))
}

func TestApplyDiscountPercentOfIvaBounds(t *testing.T) {
	totals := Totals{Subtotal: 245, IvaTotal: 51.45, Total: 296.45}

	for _, raw := range []float64{0, 1, 10, 50, 99, 100} {
		computed := ApplyDiscount(Discount{Kind: DiscountPercentOfIva, RawValue: raw}, totals)
		assert.GreaterOrEqual(t, computed, 0.0)
		assert.LessOrEqual(t, computed, totals.IvaTotal)
	}

	assert.Equal(t, 51.45, ApplyDiscount(Discount{Kind: DiscountPercentOfIva, RawValue: 130}, totals))
	assert.Equal(t, 25.73, ApplyDiscount(Discount{Kind: DiscountPercentOfIva, RawValue: 50.01}, totals))
}

func TestReconcileSubtotalEdited(t *testing.T) {
	got := Reconcile(Totals{Subtotal: 100, IvaTotal: 21, Total: 121}, FieldSubtotal, 300)

	assert.Equal(t, Totals{Subtotal: 300, IvaTotal: 63, Total: 363}, got)
}

func TestReconcileIvaEdited(t *testing.T) {
	got := Reconcile(Totals{Subtotal: 100, IvaTotal: 21, Total: 121}, FieldIva, 10)

	assert.Equal(t, Totals{Subtotal: 100, IvaTotal: 10, Total: 110}, got)
}

func TestReconcileTotalEditedKeepsRatio(t *testing.T) {
	got := Reconcile(Totals{Subtotal: 100, IvaTotal: 21, Total: 121}, FieldTotal, 242)

	assert.Equal(t, 42.0, got.IvaTotal)
	assert.Equal(t, 200.0, got.Subtotal)
	assert.Equal(t, 242.0, got.Total)
}

func TestReconcileTotalEditedZeroPrevFallsBack(t *testing.T) {
	got := Reconcile(Totals{}, FieldTotal, 121)

	require.Equal(t, 121.0, got.Total)
	assert.Equal(t, 21.0, got.IvaTotal)
	assert.Equal(t, 100.0, got.Subtotal)
}

func TestReconcileSanitizesInput(t *testing.T) {
	got := Reconcile(Totals{Subtotal: 100, IvaTotal: 21, Total: 121}, FieldSubtotal, math.NaN())

	assert.Equal(t, Totals{}, got)
}
