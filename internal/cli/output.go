package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"kasir/internal/money"
	"kasir/internal/posapi"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func rp(v float64) string {
	return money.FormatRupiah(v)
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02/01/2006 15:04")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// parseAmount reads a rupiah amount the way cashiers type it: "50000",
// "50.000", "Rp 50.000" or "12.500,50".
func parseAmount(s string) (float64, error) {
	clean := strings.ToLower(strings.TrimSpace(s))
	clean = strings.TrimPrefix(clean, "rp")
	clean = strings.TrimSpace(clean)
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("jumlah tidak valid: %q", s)
	}
	return v, nil
}

// parseQuantity accepts a decimal comma ("1,5") as well as a dot.
func parseQuantity(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("jumlah barang tidak valid: %q", s)
	}
	return v, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("ID tidak valid: %q", s)
	}
	return id, nil
}

func writeVariants(w io.Writer, variants []posapi.Variant) {
	if len(variants) == 0 {
		fmt.Fprintln(w, "- (tidak ada produk)")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPRODUK\tSTOK\tHARGA\tRESELLER")
	for _, v := range variants {
		stock := "-"
		if v.TrackStock {
			stock = formatQty(v.Stock.Float()) + " " + v.Unit
			if v.IsLowStock() {
				stock += " !"
			}
		}
		reseller := "-"
		if v.ResellerPrice > 0 {
			reseller = rp(v.ResellerPrice.Float())
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", v.ID, v.DisplayName(), strings.TrimSpace(stock), rp(v.NormalPrice.Float()), reseller)
	}
	_ = tw.Flush()
}

func writeTransactions(w io.Writer, txs []posapi.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "- (tidak ada transaksi)")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNOMOR\tWAKTU\tITEM\tTOTAL\tCATATAN")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			tx.ID, tx.Number, formatTime(tx.CreatedAt), len(tx.DetailItems),
			rp(tx.TotalAfterDiscount.Float()), orDash(tx.Notes))
	}
	_ = tw.Flush()
}

func writeKPI(w io.Writer, label string, kpi posapi.KPI, asMoney bool) {
	value := formatQty(kpi.Value.Float())
	if asMoney {
		value = rp(kpi.Value.Float())
	}
	trend := strings.TrimSpace(kpi.TrendText)
	if trend == "" {
		trend = fmt.Sprintf("%+.1f%%", kpi.Trend)
	}
	fmt.Fprintf(w, "%s\t%s\t%s\n", label, value, trend)
}
