package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"kasir/internal/money"
	"kasir/internal/posapi"
)

func backOfficeCommands() []command {
	return []command{
		{name: "stock", aliases: []string{"stok"}, usage: "stock in <id> <jumlah> [harga beli] | stock out <id> <jumlah> <rusak|hilang|internal|retur> [catatan]", summary: "Stok masuk / keluar", needsLogin: true, run: runStock},
		{name: "opname", usage: "opname <id> <jumlah fisik>", summary: "Stok opname satu produk", needsLogin: true, run: runOpname},
		{name: "stockhistory", aliases: []string{"mutasi"}, usage: "stockhistory [id]", summary: "Riwayat mutasi stok", needsLogin: true, run: runStockHistory},
		{name: "lowstock", aliases: []string{"stokrendah"}, usage: "lowstock", summary: "Produk dengan stok rendah", needsLogin: true, run: runLowStock},
		{name: "kasbon", usage: "kasbon [hutang|piutang] | kasbon bayar <id> <jumlah> [catatan] | kasbon tambah <id> <jumlah> | kasbon piutang-baru <nama> <jumlah> | kasbon hutang-baru <pemasok-id> <jumlah> [jatuh tempo] | kasbon ubah <id> <jumlah> [jatuh tempo|-] | kasbon riwayat <id>", summary: "Hutang dan piutang", needsLogin: true, run: runKasbon},
		{name: "simpanan", usage: "simpanan [cari] | simpanan setor <nama> <jumlah> | simpanan tarik <id> <jumlah> | simpanan ubah <id> kolom=nilai... | simpanan riwayat <id>", summary: "Simpanan pelanggan", needsLogin: true, run: runSavings},
		{name: "dashboard", usage: "dashboard [today|week|month]", summary: "Ringkasan penjualan", needsLogin: true, run: runDashboard},
		{name: "bestsellers", aliases: []string{"terlaris"}, usage: "bestsellers", summary: "Produk terlaris 7 hari terakhir", needsLogin: true, run: runBestSellers},
		{name: "activity", aliases: []string{"aktivitas"}, usage: "activity", summary: "Aktivitas terbaru", needsLogin: true, run: runActivity},
		{name: "report", aliases: []string{"laporan"}, usage: "report cashflow|profitloss [periode]", summary: "Laporan arus kas / laba rugi", needsLogin: true, run: runReport},
		{name: "store", aliases: []string{"toko"}, usage: "store | store set kolom=nilai...", summary: "Info toko", needsLogin: true, run: runStore},
	}
}

var stockOutReasons = map[string]string{
	"rusak":    posapi.ReasonDamaged,
	"hilang":   posapi.ReasonLost,
	"internal": posapi.ReasonInternal,
	"retur":    posapi.ReasonReturn,
}

func runStock(ctx context.Context, s *shell, args []string) error {
	if len(args) < 3 {
		return errors.New("pemakaian: stock in <id> <jumlah> [harga beli] | stock out <id> <jumlah> <alasan> [catatan]")
	}
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	qty, err := parseQuantity(args[2])
	if err != nil {
		return err
	}
	item := posapi.StockItem{VariantID: id, Quantity: qty}

	var reason string
	switch strings.ToLower(args[0]) {
	case "in", "masuk":
		reason = posapi.ReasonPurchase
		if len(args) > 3 {
			if item.PurchasePrice, err = parseAmount(args[3]); err != nil {
				return err
			}
		}
	case "out", "keluar":
		if len(args) < 4 {
			return errors.New("alasan stok keluar wajib: rusak, hilang, internal, retur")
		}
		var ok bool
		if reason, ok = stockOutReasons[strings.ToLower(args[3])]; !ok {
			return fmt.Errorf("alasan tidak dikenal: %s", args[3])
		}
		item.Notes = strings.Join(args[4:], " ")
	default:
		return fmt.Errorf("arah stok tidak dikenal: %s (in/out)", args[0])
	}

	if err := s.client.ManageStock(ctx, posapi.StockAdjustment{Items: []posapi.StockItem{item}, Reason: reason}); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Stok diperbarui (%s %s).\n", reason, formatQty(qty))
	return nil
}

func runOpname(ctx context.Context, s *shell, args []string) error {
	if len(args) != 2 {
		return errors.New("pemakaian: opname <id> <jumlah fisik>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	count, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	if count < 0 {
		return errors.New("jumlah fisik tidak boleh negatif")
	}
	if err := s.client.StockOpname(ctx, []posapi.OpnameItem{{VariantID: id, PhysicalCount: count}}); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Stok opname disimpan.")
	return nil
}

func runStockHistory(ctx context.Context, s *shell, args []string) error {
	filter := posapi.StockHistoryFilter{}
	if len(args) > 0 {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		filter.VariantID = id
	}
	page, err := s.client.StockHistory(ctx, filter)
	if err != nil {
		return err
	}
	return s.emit(page, func(w io.Writer) {
		if len(page.Results) == 0 {
			fmt.Fprintln(w, "- (tidak ada mutasi)")
			return
		}
		tw := newTable(w)
		fmt.Fprintln(tw, "WAKTU\tPRODUK\tPERUBAHAN\tSTOK AKHIR\tALASAN\tOLEH\tCATATAN")
		for _, m := range page.Results {
			fmt.Fprintf(tw, "%s\t%s\t%+g\t%s\t%s\t%s\t%s\n",
				formatTime(m.CreatedAt), m.ProductName, m.QuantityChange.Float(), formatQty(m.StockAfter.Float()),
				orDash(m.ReasonDisplay), orDash(m.UserName), orDash(m.Notes))
		}
		_ = tw.Flush()
	})
}

func runLowStock(ctx context.Context, s *shell, _ []string) error {
	page, err := s.client.LowStock(ctx, posapi.ListFilter{PageSize: productPageSize})
	if err != nil {
		return err
	}
	return s.emit(page, func(w io.Writer) {
		writeVariants(w, page.Results)
		fmt.Fprintf(w, "%d produk perlu diisi ulang.\n", page.Count)
	})
}

func parseKasbonType(s string) (string, bool) {
	switch strings.ToLower(s) {
	case "hutang":
		return posapi.KasbonHutang, true
	case "piutang":
		return posapi.KasbonPiutang, true
	}
	return "", false
}

func runKasbon(ctx context.Context, s *shell, args []string) error {
	if len(args) == 0 {
		return listKasbon(ctx, s, "")
	}
	if tipe, ok := parseKasbonType(args[0]); ok {
		return listKasbon(ctx, s, tipe)
	}

	sub, rest := strings.ToLower(args[0]), args[1:]
	switch sub {
	case "bayar":
		if len(rest) < 2 {
			return errors.New("pemakaian: kasbon bayar <id> <jumlah> [catatan]")
		}
		id, amount, err := idAndAmount(rest)
		if err != nil {
			return err
		}
		payment := posapi.KasbonPayment{KasbonID: id, Amount: amount, Notes: strings.Join(rest[2:], " ")}
		if err := s.client.PayKasbon(ctx, payment); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Pembayaran %s dicatat.\n", rp(amount))
		return nil
	case "tambah":
		if len(rest) != 2 {
			return errors.New("pemakaian: kasbon tambah <id> <jumlah>")
		}
		id, amount, err := idAndAmount(rest)
		if err != nil {
			return err
		}
		k, err := s.client.AddKasbonAmount(ctx, id, amount)
		if err != nil {
			return err
		}
		return s.emit(k, func(w io.Writer) {
			fmt.Fprintf(w, "Sisa tagihan %s: %s\n", k.Counterparty(), rp(k.Outstanding.Float()))
		})
	case "piutang-baru":
		if len(rest) < 2 {
			return errors.New("pemakaian: kasbon piutang-baru <nama> <jumlah>")
		}
		amount, err := parseAmount(rest[len(rest)-1])
		if err != nil {
			return err
		}
		name := strings.Join(rest[:len(rest)-1], " ")
		k, err := s.client.CreatePiutang(ctx, posapi.CreatePiutangRequest{CustomerName: name, Total: amount})
		if err != nil {
			return err
		}
		return s.emit(k, func(w io.Writer) {
			fmt.Fprintf(w, "Piutang #%d untuk %s sebesar %s dicatat.\n", k.ID, k.Counterparty(), rp(k.InitialTotal.Float()))
		})
	case "hutang-baru":
		if len(rest) < 2 || len(rest) > 3 {
			return errors.New("pemakaian: kasbon hutang-baru <pemasok-id> <jumlah> [yyyy-mm-dd]")
		}
		supplierID, amount, err := idAndAmount(rest)
		if err != nil {
			return err
		}
		req := posapi.CreateHutangRequest{SupplierID: supplierID, Total: amount}
		if len(rest) == 3 {
			if req.DueDate, err = parseDueDate(rest[2]); err != nil {
				return err
			}
		}
		k, err := s.client.CreateHutang(ctx, req)
		if err != nil {
			return err
		}
		return s.emit(k, func(w io.Writer) {
			fmt.Fprintf(w, "Hutang #%d ke %s sebesar %s dicatat.\n", k.ID, k.Counterparty(), rp(k.InitialTotal.Float()))
		})
	case "ubah":
		if len(rest) < 2 || len(rest) > 3 {
			return errors.New("pemakaian: kasbon ubah <id> <jumlah> [yyyy-mm-dd|-]")
		}
		id, amount, err := idAndAmount(rest)
		if err != nil {
			return err
		}
		update := posapi.KasbonUpdate{Total: amount}
		if len(rest) == 3 && rest[2] != "-" {
			due, err := parseDueDate(rest[2])
			if err != nil {
				return err
			}
			update.DueDate = &due
		}
		k, err := s.client.UpdateKasbon(ctx, id, update)
		if err != nil {
			return err
		}
		return s.emit(k, func(w io.Writer) {
			fmt.Fprintf(w, "Kasbon #%d: total %s, jatuh tempo %s\n", k.ID, rp(k.InitialTotal.Float()), orDash(k.DueDate))
		})
	case "riwayat":
		if len(rest) != 1 {
			return errors.New("pemakaian: kasbon riwayat <id>")
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		entries, err := s.client.KasbonHistory(ctx, id)
		if err != nil {
			return err
		}
		return s.emit(entries, func(w io.Writer) {
			tw := newTable(w)
			fmt.Fprintln(tw, "TANGGAL\tKETERANGAN\tMASUK\tKELUAR")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", formatTime(e.Date), e.Description, rp(e.In.Float()), rp(e.Out.Float()))
			}
			_ = tw.Flush()
		})
	default:
		return fmt.Errorf("sub-perintah kasbon tidak dikenal: %s", args[0])
	}
}

func listKasbon(ctx context.Context, s *shell, tipe string) error {
	open := false
	page, err := s.client.ListKasbon(ctx, posapi.KasbonFilter{Type: tipe, Settled: &open})
	if err != nil {
		return err
	}
	summary, err := s.client.KasbonSummary(ctx, tipe)
	if err != nil {
		return err
	}

	result := struct {
		Summary posapi.KasbonSummary `json:"summary"`
		Items   []posapi.Kasbon      `json:"items"`
		Count   int                  `json:"count"`
	}{summary, page.Results, page.Count}

	return s.emit(result, func(w io.Writer) {
		tw := newTable(w)
		fmt.Fprintln(tw, "ID\tJENIS\tNAMA\tTOTAL\tDIBAYAR\tSISA\tJATUH TEMPO")
		for _, k := range page.Results {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", k.ID, k.Type, k.Counterparty(),
				rp(k.InitialTotal.Float()), rp(k.TotalPaid.Float()), rp(k.Outstanding.Float()), orDash(k.DueDate))
		}
		_ = tw.Flush()
		fmt.Fprintf(w, "Belum lunas: %d, sisa tagihan %s\n", page.Count, rp(summary.Outstanding.Float()))
	})
}

// parseDueDate checks a yyyy-mm-dd date and returns it unchanged.
func parseDueDate(s string) (string, error) {
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return "", fmt.Errorf("tanggal jatuh tempo tidak valid: %q (yyyy-mm-dd)", s)
	}
	return s, nil
}

func idAndAmount(args []string) (int, float64, error) {
	id, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return 0, 0, err
	}
	return id, amount, nil
}

func runSavings(ctx context.Context, s *shell, args []string) error {
	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}

	switch sub {
	case "setor":
		if len(args) < 3 {
			return errors.New("pemakaian: simpanan setor <nama> <jumlah>")
		}
		amount, err := parseAmount(args[len(args)-1])
		if err != nil {
			return err
		}
		name := strings.Join(args[1:len(args)-1], " ")
		if err := s.client.Deposit(ctx, posapi.DepositRequest{CustomerName: name, Amount: amount}); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Setoran %s untuk %s dicatat.\n", rp(amount), name)
		return nil
	case "tarik":
		if len(args) != 3 {
			return errors.New("pemakaian: simpanan tarik <id> <jumlah>")
		}
		id, amount, err := idAndAmount(args[1:])
		if err != nil {
			return err
		}
		if err := s.client.Withdraw(ctx, posapi.WithdrawRequest{CustomerID: id, Amount: amount}); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Penarikan %s dicatat.\n", rp(amount))
		return nil
	case "ubah":
		if len(args) < 3 {
			return errors.New("pemakaian: simpanan ubah <id> nama=<nama> telepon=<nomor> alamat=<alamat>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		fields, err := parseFields(args[2:], "nama", "telepon", "alamat")
		if err != nil {
			return err
		}
		c, err := s.client.UpdateCustomer(ctx, id, posapi.CustomerUpdate{
			Name:    fields["nama"],
			Phone:   fields["telepon"],
			Address: fields["alamat"],
		})
		if err != nil {
			return err
		}
		return s.emit(c, func(w io.Writer) {
			fmt.Fprintf(w, "Pelanggan #%d %s diperbarui.\n", c.ID, c.Name)
		})
	case "riwayat":
		if len(args) != 2 {
			return errors.New("pemakaian: simpanan riwayat <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		page, err := s.client.SavingsHistory(ctx, id, 0)
		if err != nil {
			return err
		}
		return s.emit(page, func(w io.Writer) {
			tw := newTable(w)
			fmt.Fprintln(tw, "WAKTU\tJENIS\tJUMLAH\tSALDO\tKETERANGAN")
			for _, e := range page.Results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", formatTime(e.CreatedAt), e.Type, rp(e.Amount.Float()), rp(e.BalanceAfter.Float()), orDash(e.Notes))
			}
			_ = tw.Flush()
		})
	}

	summary, err := s.client.SavingsSummary(ctx)
	if err != nil {
		return err
	}
	customers, err := s.client.ListCustomers(ctx, posapi.ListFilter{Search: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	result := struct {
		Summary   posapi.SavingsSummary `json:"summary"`
		Customers []posapi.Customer     `json:"customers"`
	}{summary, customers.Results}

	return s.emit(result, func(w io.Writer) {
		tw := newTable(w)
		fmt.Fprintln(tw, "ID\tNAMA\tTELEPON\tSALDO")
		for _, c := range customers.Results {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Name, orDash(c.Phone), rp(c.Balance.Float()))
		}
		_ = tw.Flush()
		fmt.Fprintf(w, "Total simpanan aktif %s dari %d pelanggan\n", rp(summary.TotalActive.Float()), summary.CustomerCount)
	})
}

func runDashboard(ctx context.Context, s *shell, args []string) error {
	rangeArg := ""
	if len(args) > 0 {
		rangeArg = strings.ToLower(args[0])
	}
	r, err := posapi.ParseDashboardRange(rangeArg)
	if err != nil {
		return err
	}
	stats, err := s.client.DashboardStats(ctx, r)
	if err != nil {
		return err
	}
	return s.emit(stats, func(w io.Writer) {
		tw := newTable(w)
		writeKPI(tw, "Pendapatan", stats.Revenue, true)
		writeKPI(tw, "Transaksi", stats.TotalTransactions, false)
		writeKPI(tw, "Barang terjual", stats.ItemsSold, false)
		writeKPI(tw, "Stok rendah", stats.LowStockItems, false)
		_ = tw.Flush()
		if len(stats.RecentActivities) > 0 {
			fmt.Fprintln(w, "\nAktivitas terbaru:")
			writeActivities(w, stats.RecentActivities)
		}
	})
}

func runBestSellers(ctx context.Context, s *shell, _ []string) error {
	variants, err := s.client.BestSellers(ctx)
	if err != nil {
		return err
	}
	return s.emit(variants, func(w io.Writer) {
		writeVariants(w, variants)
	})
}

func runActivity(ctx context.Context, s *shell, _ []string) error {
	activities, err := s.client.RecentActivity(ctx)
	if err != nil {
		return err
	}
	return s.emit(activities, func(w io.Writer) {
		writeActivities(w, activities)
	})
}

func writeActivities(w io.Writer, activities []posapi.Activity) {
	if len(activities) == 0 {
		fmt.Fprintln(w, "- (belum ada aktivitas)")
		return
	}
	for _, a := range activities {
		fmt.Fprintf(w, "- %s %s: %s\n", formatTime(a.Timestamp), a.User, a.Description)
	}
}

func runReport(ctx context.Context, s *shell, args []string) error {
	if len(args) == 0 {
		return errors.New("pemakaian: report cashflow|profitloss [periode]")
	}
	period, err := resolvePeriod(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	switch strings.ToLower(args[0]) {
	case "cashflow", "aruskas":
		report, err := s.client.CashFlow(ctx, period.Period())
		if err != nil {
			return err
		}
		return s.emit(report, func(w io.Writer) {
			fmt.Fprintf(w, "Arus kas %s\n", period.Label)
			tw := newTable(w)
			writeMoneyRow(tw, "Penjualan tunai", report.Details.CashSales)
			writeMoneyRow(tw, "Pembayaran piutang", report.Details.PiutangPayments)
			writeMoneyRow(tw, "Pembayaran hutang", report.Details.HutangPayments)
			writeMoneyRow(tw, "Pengeluaran", report.Details.Expenses)
			writeMoneyRow(tw, "Kas masuk", report.TotalCashIn)
			writeMoneyRow(tw, "Kas keluar", report.TotalCashOut)
			writeMoneyRow(tw, "Arus kas bersih", report.NetCashFlow)
			_ = tw.Flush()
		})
	case "profitloss", "labarugi":
		report, err := s.client.ProfitLoss(ctx, period.Period())
		if err != nil {
			return err
		}
		return s.emit(report, func(w io.Writer) {
			fmt.Fprintf(w, "Laba rugi %s\n", period.Label)
			tw := newTable(w)
			writeMoneyRow(tw, "Penjualan kotor", report.GrossSales)
			writeMoneyRow(tw, "HPP", report.COGS)
			writeMoneyRow(tw, "Laba kotor", report.GrossProfit)
			writeMoneyRow(tw, "Biaya operasional", report.OperationalExpenses)
			writeMoneyRow(tw, "Laba bersih", report.NetProfit)
			_ = tw.Flush()
			for _, e := range report.ExpenseDetails {
				fmt.Fprintf(w, "- %s %s: %s\n", e.Date, e.Description, rp(e.Amount.Float()))
			}
		})
	default:
		return fmt.Errorf("laporan tidak dikenal: %s (cashflow, profitloss)", args[0])
	}
}

func writeMoneyRow(w io.Writer, label string, v money.Amount) {
	fmt.Fprintf(w, "%s\t%s\n", label, rp(v.Float()))
}

func runStore(ctx context.Context, s *shell, args []string) error {
	info, err := s.client.StoreInfo(ctx)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		if strings.ToLower(args[0]) != "set" || len(args) < 2 {
			return errors.New("pemakaian: store set nama=<nama> alamat=<alamat> telepon=<nomor> footer=<teks>")
		}
		fields, err := parseFields(args[1:], "nama", "alamat", "telepon", "footer")
		if err != nil {
			return err
		}
		for key, value := range fields {
			switch key {
			case "nama":
				info.Name = value
			case "alamat":
				info.Address = value
			case "telepon":
				info.Phone = value
			case "footer":
				info.ReceiptFooter = value
			}
		}
		if info, err = s.client.UpdateStoreInfo(ctx, info); err != nil {
			return err
		}
		if !s.opts.JSON {
			fmt.Fprintln(s.out, "Info toko disimpan.")
		}
	}
	return s.emit(info, func(w io.Writer) {
		tw := newTable(w)
		fmt.Fprintf(tw, "Nama\t%s\n", info.Name)
		fmt.Fprintf(tw, "Alamat\t%s\n", orDash(info.Address))
		fmt.Fprintf(tw, "Telepon\t%s\n", orDash(info.Phone))
		fmt.Fprintf(tw, "Footer struk\t%s\n", orDash(info.ReceiptFooter))
		_ = tw.Flush()
	})
}
