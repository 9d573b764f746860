// Package receipt renders a completed sale as a fixed-width text receipt.
package receipt

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"kasir/internal/money"
	"kasir/internal/posapi"
)

// Width fits 58mm thermal paper.
const Width = 32

type writer struct {
	w   io.Writer
	err error
}

func (p *writer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

func (p *writer) center(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	n := utf8.RuneCountInString(s)
	if n >= Width {
		p.line(truncate(s, Width))
		return
	}
	p.line(strings.Repeat(" ", (Width-n)/2) + s)
}

// pair writes left and right on one line, cutting left to make room.
func (p *writer) pair(left, right string) {
	room := Width - utf8.RuneCountInString(right) - 1
	if room < 1 {
		p.line(left)
		p.line(right)
		return
	}
	left = truncate(left, room)
	gap := Width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	p.line(left + strings.Repeat(" ", gap) + right)
}

func (p *writer) rule() {
	p.line(strings.Repeat("-", Width))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func quantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func Render(w io.Writer, store posapi.StoreInfo, tx posapi.Transaction) error {
	p := &writer{w: w}

	p.center(store.Name)
	p.center(store.Address)
	p.center(store.Phone)
	p.rule()

	p.line("No: " + tx.Number)
	if tx.Cashier.Username != "" {
		p.line("Kasir: " + tx.Cashier.Username)
	}
	if !tx.CreatedAt.IsZero() {
		p.line("Tgl: " + tx.CreatedAt.Local().Format("02/01/2006 15:04"))
	}
	p.rule()

	for _, item := range tx.DetailItems {
		p.pair(item.Variant.DisplayName(), money.FormatRupiah(item.Subtotal.Float()))
		p.line(fmt.Sprintf("  %s x %s", quantity(item.Quantity.Float()), money.FormatRupiah(item.Price.Float())))
	}
	p.rule()

	if tx.Discount > 0 {
		p.pair("Subtotal:", money.FormatRupiah(tx.Total.Float()))
		p.pair("Diskon:", money.FormatRupiah(-tx.Discount.Float()))
	}
	p.pair("Total:", money.FormatRupiah(tx.TotalAfterDiscount.Float()))
	p.pair("Bayar:", money.FormatRupiah(tx.Paid.Float()))
	p.pair("Kembali:", money.FormatRupiah(tx.Change.Float()))
	if tx.PaymentMethod != "" {
		p.pair("Metode:", tx.PaymentMethod)
	}
	p.rule()

	footer := store.ReceiptFooter
	if strings.TrimSpace(footer) == "" {
		footer = "Terima kasih"
	}
	for _, l := range strings.Split(footer, "\n") {
		p.center(l)
	}
	return p.err
}
