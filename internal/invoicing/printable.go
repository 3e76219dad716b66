package invoicing

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var esAR = message.NewPrinter(language.MustParse("es-AR"))

// FormatAmount renders a monetary amount with es-AR separators, e.g.
// 1234.5 becomes "$ 1.234,50".
func FormatAmount(v float64) string {
	return esAR.Sprintf("$ %v", number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// Printable renders a plain-text invoice summary for the print dialog. The
// SPA takes care of the PDF layout; this is the text fallback.
func Printable(inv *Invoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FACTURA %s\n", inv.Number)
	fmt.Fprintf(&b, "Pedido: %s\n", inv.OrderDocNumber)
	fmt.Fprintf(&b, "Cliente: %s (CUIT %s)\n", inv.ClientName, inv.ClientCUIT)
	fmt.Fprintf(&b, "Estado: %s\n", inv.Status)
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "Subtotal:  %s\n", FormatAmount(inv.Subtotal))
	fmt.Fprintf(&b, "IVA:       %s\n", FormatAmount(inv.IvaTotal))
	fmt.Fprintf(&b, "Total:     %s\n", FormatAmount(inv.Total))
	if inv.DiscountAmount > 0 {
		fmt.Fprintf(&b, "Descuento: %s\n", FormatAmount(inv.DiscountAmount))
	}
	fmt.Fprintf(&b, "A pagar:   %s\n", FormatAmount(inv.FinalTotal))
	if inv.CAE != "" {
		fmt.Fprintf(&b, "CAE: %s", inv.CAE)
		if inv.CAEDueDate != nil {
			fmt.Fprintf(&b, " (vto. %s)", inv.CAEDueDate.Format("02/01/2006"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
