package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"kasir/internal/cart"
	"kasir/internal/posapi"
	"kasir/internal/pricing"
	"kasir/internal/receipt"

	"go.uber.org/zap"
)

const productPageSize = 20

func cartCommands() []command {
	return []command{
		{name: "products", aliases: []string{"produk", "cari"}, usage: "products [--semua] [--nonaktif] [kata kunci]", summary: "Cari produk", needsLogin: true, run: runProducts},
		{name: "add", aliases: []string{"tambah"}, usage: "add <id|sku|nama>", summary: "Tambah satu barang ke keranjang", needsLogin: true, run: runAdd},
		{name: "qty", usage: "qty <id> <jumlah>", summary: "Ubah jumlah barang (0 menghapus)", run: runQty},
		{name: "inc", usage: "inc <id> [n]", summary: "Tambah jumlah barang", run: adjustBy(1)},
		{name: "dec", usage: "dec <id> [n]", summary: "Kurangi jumlah barang", run: adjustBy(-1)},
		{name: "rm", aliases: []string{"hapus"}, usage: "rm <id>", summary: "Hapus barang dari keranjang", run: runRemove},
		{name: "cart", aliases: []string{"keranjang"}, usage: "cart", summary: "Tampilkan keranjang", run: runCart},
		{name: "clear", usage: "clear", summary: "Kosongkan keranjang", run: runClear},
		{name: "reseller", usage: "reseller on|off", summary: "Harga reseller untuk keranjang", run: runReseller},
		{name: "hold", aliases: []string{"tahan"}, usage: "hold [catatan]", summary: "Tahan transaksi", needsLogin: true, run: runHold},
		{name: "held", aliases: []string{"ditahan"}, usage: "held | held rm <id>", summary: "Daftar / hapus transaksi ditahan", needsLogin: true, run: runHeld},
		{name: "resume", aliases: []string{"lanjut"}, usage: "resume <id>", summary: "Lanjutkan transaksi ditahan", needsLogin: true, run: runResume},
		{name: "pay", aliases: []string{"bayar"}, usage: "pay <tunai|qris|debit> <jumlah|pas> [diskon]", summary: "Bayar dan cetak struk", needsLogin: true, run: runPay},
		{name: "receipt", aliases: []string{"struk"}, usage: "receipt [id]", summary: "Cetak ulang struk", needsLogin: true, run: runReceipt},
		{name: "history", aliases: []string{"riwayat"}, usage: "history [yyyy-mm-dd] [yyyy-mm-dd]", summary: "Riwayat transaksi", needsLogin: true, run: runTransactionHistory},
	}
}

func runProducts(ctx context.Context, s *shell, args []string) error {
	var all bool
	var words []string
	filter := posapi.VariantFilter{}
	for _, arg := range args {
		switch arg {
		case "--semua", "--all":
			all = true
		case "--nonaktif", "--inactive":
			filter.IncludeInactive = true
		default:
			words = append(words, arg)
		}
	}
	filter.Search = strings.Join(words, " ")

	if all {
		variants, err := s.client.AllVariants(ctx, filter)
		if err != nil {
			return err
		}
		return s.emit(variants, func(w io.Writer) {
			writeVariants(w, variants)
			fmt.Fprintf(w, "%d produk.\n", len(variants))
		})
	}

	filter.PageSize = productPageSize
	page, err := s.client.ListVariants(ctx, filter)
	if err != nil {
		return err
	}
	return s.emit(page, func(w io.Writer) {
		writeVariants(w, page.Results)
		if page.Count > len(page.Results) {
			fmt.Fprintf(w, "(%d dari %d produk, persempit pencarian)\n", len(page.Results), page.Count)
		}
	})
}

// findVariant resolves a cashier's reference to exactly one variant: an ID,
// an exact SKU or a search that has a single hit.
func (s *shell) findVariant(ctx context.Context, ref string) (posapi.Variant, error) {
	if id, err := strconv.Atoi(ref); err == nil && id > 0 {
		v, err := s.client.GetVariant(ctx, id)
		if err != nil {
			return posapi.Variant{}, err
		}
		if !v.Active {
			return posapi.Variant{}, fmt.Errorf("produk %s tidak aktif", v.DisplayName())
		}
		return v, nil
	}

	page, err := s.client.ListVariants(ctx, posapi.VariantFilter{ListFilter: posapi.ListFilter{Search: ref, PageSize: productPageSize}})
	if err != nil {
		return posapi.Variant{}, err
	}
	for _, v := range page.Results {
		if strings.EqualFold(v.SKU, ref) {
			return v, nil
		}
	}
	switch len(page.Results) {
	case 0:
		return posapi.Variant{}, fmt.Errorf("produk %q tidak ditemukan", ref)
	case 1:
		return page.Results[0], nil
	default:
		writeVariants(s.out, page.Results)
		return posapi.Variant{}, fmt.Errorf("%d produk cocok dengan %q, pilih dengan ID", page.Count, ref)
	}
}

func runAdd(ctx context.Context, s *shell, args []string) error {
	if len(args) == 0 {
		return errors.New("pemakaian: add <id|sku|nama>")
	}
	v, err := s.findVariant(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	s.cart.Add(v)
	fmt.Fprintf(s.out, "+ %s\n", v.DisplayName())
	return writeCartSummary(s)
}

func lineArgs(args []string, usage string) (int, []string, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("pemakaian: %s", usage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return 0, nil, err
	}
	return id, args[1:], nil
}

func runQty(_ context.Context, s *shell, args []string) error {
	id, rest, err := lineArgs(args, "qty <id> <jumlah>")
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("pemakaian: qty <id> <jumlah>")
	}
	qty, err := parseQuantity(rest[0])
	if err != nil {
		return err
	}
	if err := s.cart.SetQuantity(id, qty); err != nil {
		return err
	}
	return writeCartSummary(s)
}

func adjustBy(sign float64) func(context.Context, *shell, []string) error {
	return func(_ context.Context, s *shell, args []string) error {
		id, rest, err := lineArgs(args, "inc|dec <id> [n]")
		if err != nil {
			return err
		}
		step := 1.0
		if len(rest) > 0 {
			if step, err = parseQuantity(rest[0]); err != nil {
				return err
			}
		}
		if err := s.cart.Adjust(id, sign*step); err != nil {
			return err
		}
		return writeCartSummary(s)
	}
}

func runRemove(_ context.Context, s *shell, args []string) error {
	id, _, err := lineArgs(args, "rm <id>")
	if err != nil {
		return err
	}
	if err := s.cart.Remove(id); err != nil {
		return err
	}
	return writeCartSummary(s)
}

func runClear(_ context.Context, s *shell, _ []string) error {
	s.cart.Clear()
	fmt.Fprintln(s.out, "Keranjang dikosongkan.")
	return nil
}

func runReseller(_ context.Context, s *shell, args []string) error {
	if len(args) != 1 {
		return errors.New("pemakaian: reseller on|off")
	}
	switch strings.ToLower(args[0]) {
	case "on", "ya":
		s.cart.SetCustomerClass(pricing.Reseller)
	case "off", "tidak":
		s.cart.SetCustomerClass(pricing.Normal)
	default:
		return errors.New("pemakaian: reseller on|off")
	}
	return writeCartSummary(s)
}

type cartView struct {
	CustomerClass pricing.CustomerClass `json:"customer_class"`
	ResumingID    int                   `json:"resuming_transaction_id,omitempty"`
	Lines         []cartLineView        `json:"lines"`
	Total         float64               `json:"total"`
}

type cartLineView struct {
	VariantID int     `json:"variant_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

func viewCart(c *cart.Cart) cartView {
	class := c.CustomerClass()
	view := cartView{CustomerClass: class, ResumingID: c.ResumingID(), Total: c.Total()}
	for _, l := range c.Lines() {
		view.Lines = append(view.Lines, cartLineView{
			VariantID: l.Variant.ID,
			Name:      l.Variant.DisplayName(),
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice(class),
			Subtotal:  l.Subtotal(class),
		})
	}
	return view
}

func runCart(_ context.Context, s *shell, _ []string) error {
	view := viewCart(s.cart)
	return s.emit(view, func(w io.Writer) {
		if len(view.Lines) == 0 {
			fmt.Fprintln(w, "Keranjang kosong.")
			return
		}
		tw := newTable(w)
		fmt.Fprintln(tw, "ID\tBARANG\tJUMLAH\tHARGA\tSUBTOTAL")
		for _, l := range view.Lines {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", l.VariantID, l.Name, formatQty(l.Quantity), rp(l.UnitPrice), rp(l.Subtotal))
		}
		_ = tw.Flush()
		writeCartFooter(w, view)
	})
}

func writeCartFooter(w io.Writer, view cartView) {
	label := "Biasa"
	if view.CustomerClass == pricing.Reseller {
		label = "Reseller"
	}
	fmt.Fprintf(w, "Total: %s (pelanggan %s)\n", rp(view.Total), label)
	if view.ResumingID != 0 {
		fmt.Fprintf(w, "Melanjutkan transaksi ditahan #%d\n", view.ResumingID)
	}
}

func writeCartSummary(s *shell) error {
	if s.opts.JSON {
		return runCart(context.Background(), s, nil)
	}
	if s.cart.Empty() {
		fmt.Fprintln(s.out, "Keranjang kosong.")
		return nil
	}
	writeCartFooter(s.out, viewCart(s.cart))
	return nil
}

func runHold(ctx context.Context, s *shell, args []string) error {
	if s.cart.Empty() {
		return posapi.ErrEmptyCart
	}
	req := s.cart.HoldRequest(strings.Join(args, " "))

	var tx posapi.Transaction
	var err error
	if id := s.cart.ResumingID(); id != 0 {
		tx, err = s.client.UpdateHeldTransaction(ctx, id, req)
	} else {
		tx, err = s.client.HoldTransaction(ctx, req)
	}
	if err != nil {
		return err
	}
	s.cart.Clear()
	return s.emit(tx, func(w io.Writer) {
		fmt.Fprintf(w, "Transaksi ditahan: #%d %s\n", tx.ID, tx.Number)
	})
}

func runHeld(ctx context.Context, s *shell, args []string) error {
	if len(args) > 0 {
		if len(args) != 2 || (args[0] != "rm" && args[0] != "hapus") {
			return errors.New("pemakaian: held | held rm <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := s.client.DeleteHeldTransaction(ctx, id); err != nil {
			return err
		}
		if s.cart.ResumingID() == id {
			s.cart.Clear()
		}
		fmt.Fprintf(s.out, "Transaksi ditahan #%d dihapus.\n", id)
		return nil
	}

	txs, err := s.client.ListHeldTransactions(ctx)
	if err != nil {
		return err
	}
	return s.emit(txs, func(w io.Writer) {
		writeTransactions(w, txs)
	})
}

func runResume(ctx context.Context, s *shell, args []string) error {
	id, _, err := lineArgs(args, "resume <id>")
	if err != nil {
		return err
	}
	tx, err := s.client.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if !s.cart.Empty() && s.cart.ResumingID() != id {
		fmt.Fprintln(s.out, "Isi keranjang sebelumnya diganti.")
	}
	if err := s.cart.Resume(tx); err != nil {
		return err
	}
	return runCart(ctx, s, nil)
}

func parsePaymentMethod(s string) (string, error) {
	switch strings.ToLower(s) {
	case "tunai", "cash":
		return posapi.PaymentCash, nil
	case "qris":
		return posapi.PaymentQRIS, nil
	case "debit", "kartu":
		return posapi.PaymentDebit, nil
	default:
		return "", fmt.Errorf("metode pembayaran tidak dikenal: %s (tunai, qris, debit)", s)
	}
}

func runPay(ctx context.Context, s *shell, args []string) error {
	if s.cart.Empty() {
		return posapi.ErrEmptyCart
	}
	if len(args) < 2 || len(args) > 3 {
		return errors.New("pemakaian: pay <tunai|qris|debit> <jumlah|pas> [diskon]")
	}
	method, err := parsePaymentMethod(args[0])
	if err != nil {
		return err
	}
	var discount float64
	if len(args) == 3 {
		if discount, err = parseAmount(args[2]); err != nil {
			return err
		}
	}
	due := s.cart.Total() - discount
	if due < 0 {
		return errors.New("diskon melebihi total belanja")
	}

	paid := due
	if strings.ToLower(args[1]) != "pas" {
		if paid, err = parseAmount(args[1]); err != nil {
			return err
		}
	}
	if paid < due {
		return fmt.Errorf("jumlah bayar kurang %s", rp(due-paid))
	}

	req := s.cart.CheckoutRequest(method, paid, discount)
	var tx posapi.Transaction
	if id := s.cart.ResumingID(); id != 0 {
		// The server pays the held lines, so edits made since resuming are
		// saved first.
		if _, err = s.client.UpdateHeldTransaction(ctx, id, s.cart.HoldRequest("")); err != nil {
			return err
		}
		tx, err = s.client.ResumeTransaction(ctx, id, req)
	} else {
		tx, err = s.client.Checkout(ctx, req)
	}
	if err != nil {
		return err
	}

	s.logger.Info("sale completed",
		zap.Int("transaction_id", tx.ID),
		zap.String("number", tx.Number),
		zap.Float64("total", tx.TotalAfterDiscount.Float()),
	)
	s.cart.Clear()
	s.lastSale = &tx
	return s.printReceipt(ctx, tx)
}

func (s *shell) printReceipt(ctx context.Context, tx posapi.Transaction) error {
	if s.opts.JSON {
		return s.emit(tx, nil)
	}
	store, err := s.client.StoreInfo(ctx)
	if err != nil {
		s.logger.Warn("store info unavailable for receipt", zap.Error(err))
	}
	fmt.Fprintln(s.out)
	return receipt.Render(s.out, store, tx)
}

func runReceipt(ctx context.Context, s *shell, args []string) error {
	if len(args) == 0 {
		if s.lastSale == nil {
			return errors.New("belum ada transaksi pada sesi ini")
		}
		return s.printReceipt(ctx, *s.lastSale)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	tx, err := s.client.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	return s.printReceipt(ctx, tx)
}

func runTransactionHistory(ctx context.Context, s *shell, args []string) error {
	period, err := resolvePeriod(strings.Join(args, " "))
	if err != nil {
		return err
	}
	page, err := s.client.ListTransactions(ctx, posapi.TransactionFilter{
		Status: posapi.StatusDone,
		From:   period.From,
		To:     period.To,
	})
	if err != nil {
		return err
	}
	return s.emit(page, func(w io.Writer) {
		writeTransactions(w, page.Results)
		fmt.Fprintf(w, "%d transaksi, penjualan %s (%s)\n", page.Summary.Count, rp(page.Summary.TotalSales.Float()), period.Label)
	})
}
