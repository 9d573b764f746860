package receipt_test

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"kasir/internal/posapi"
	"kasir/internal/receipt"
	"kasir/internal/session"

	"github.com/stretchr/testify/require"
)

func sale() posapi.Transaction {
	return posapi.Transaction{
		Number:             "TRX-20261018-0007",
		Cashier:            session.User{Username: "kasir1"},
		Total:              46000,
		Discount:           1000,
		TotalAfterDiscount: 45000,
		Paid:               50000,
		Change:             5000,
		PaymentMethod:      posapi.PaymentCash,
		CreatedAt:          time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local),
		DetailItems: []posapi.TransactionDetail{
			{
				Variant:  posapi.Variant{ProductName: "Minyak Goreng Sawit Kemasan Ekonomis", Name: "2L"},
				Quantity: 1,
				Price:    35000,
				Subtotal: 35000,
			},
			{
				Variant:  posapi.Variant{ProductName: "Sabun"},
				Quantity: 2.5,
				Price:    4400,
				Subtotal: 11000,
			},
		},
	}
}

func TestRender(t *testing.T) {
	var b strings.Builder
	store := posapi.StoreInfo{Name: "Toko Maju", Address: "Jl. Melati 3", ReceiptFooter: "Terima kasih\nSelamat belanja kembali"}
	require.NoError(t, receipt.Render(&b, store, sale()))

	out := b.String()
	for _, l := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		require.LessOrEqual(t, utf8.RuneCountInString(l), receipt.Width, "line %q", l)
	}
	require.Contains(t, out, "Toko Maju")
	require.Contains(t, out, "No: TRX-20261018-0007")
	require.Contains(t, out, "Kasir: kasir1")
	require.Contains(t, out, "Tgl: 18/10/2026 09:30")
	require.Contains(t, out, "  2.5 x Rp 4.400")
	require.Contains(t, out, "Diskon:")
	require.Contains(t, out, "-Rp 1.000")
	require.Contains(t, out, "Rp 45.000")
	require.Contains(t, out, "Kembali:")
	require.Contains(t, out, "Selamat belanja kembali")
	require.NotContains(t, out, "Telp")
}

func TestRenderDefaultsFooter(t *testing.T) {
	tx := sale()
	tx.Discount = 0
	var b strings.Builder
	require.NoError(t, receipt.Render(&b, posapi.StoreInfo{Name: "Toko"}, tx))
	require.Contains(t, b.String(), "Terima kasih")
	require.NotContains(t, b.String(), "Diskon:")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("paper jam")
}

func TestRenderReportsWriteError(t *testing.T) {
	err := receipt.Render(failingWriter{}, posapi.StoreInfo{Name: "Toko"}, sale())
	require.EqualError(t, err, "paper jam")
}
