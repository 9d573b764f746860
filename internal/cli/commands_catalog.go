package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"kasir/internal/posapi"
	"kasir/internal/session"
)

func catalogCommands() []command {
	return []command{
		{name: "product", usage: "product add nama=<nama> kategori=<id> varian=<nama> harga=<jumlah> [kolom=nilai...]", summary: "Produk baru dengan varian pertama", needsLogin: true, run: runProduct},
		{name: "variant", aliases: []string{"varian"}, usage: "variant add <produk-id> varian=<nama> harga=<jumlah> | variant edit <id> kolom=nilai... | variant rm|on <id>", summary: "Kelola varian produk", needsLogin: true, run: runVariant},
		{name: "price", aliases: []string{"grosir"}, usage: "price <id> | price set <id> <min> <total> | price rm <id> <min> | price clear <id>", summary: "Harga grosir per jumlah", needsLogin: true, run: runPrice},
		{name: "categories", aliases: []string{"kategori"}, usage: "categories | categories add <nama> | categories rename <id> <nama> | categories rm <id>", summary: "Kategori produk", needsLogin: true, run: runCategories},
		{name: "suppliers", aliases: []string{"pemasok"}, usage: "suppliers [cari] | suppliers add|edit [<id>] kolom=nilai... | suppliers rm <id>", summary: "Pemasok", needsLogin: true, run: runSuppliers},
		{name: "barcode", usage: "barcode <kode>", summary: "Cari data produk dari barcode", needsLogin: true, run: runBarcode},
		{name: "users", aliases: []string{"pengguna"}, usage: "users | users add <username> <password> [admin|kasir] | users role <id> <admin|kasir> | users rm <id>", summary: "Kelola pengguna (admin)", needsLogin: true, run: runUsers},
	}
}

// parseFields reads key=value arguments. Keys are case-insensitive and must
// be one of allowed.
func parseFields(args []string, allowed ...string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("argumen %q harus berbentuk kolom=nilai", arg)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		known := false
		for _, a := range allowed {
			if a == key {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("kolom tidak dikenal: %s (pilihan: %s)", key, strings.Join(allowed, ", "))
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields, nil
}

var variantKeys = []string{"varian", "sku", "stok", "satuan", "beli", "min", "lacak", "pemasok", "harga", "reseller"}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "ya", "y", "on", "true", "1":
		return true, nil
	case "tidak", "t", "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("nilai %q bukan ya/tidak", s)
}

// applyVariantFields writes the recognised keys of fields onto f. "-"
// clears the reseller price and the supplier.
func applyVariantFields(f *posapi.VariantFields, fields map[string]string) error {
	for key, value := range fields {
		var err error
		switch key {
		case "varian":
			f.Name = value
		case "sku":
			f.SKU = value
		case "satuan":
			f.Unit = value
		case "stok":
			f.Stock, err = parseQuantity(value)
		case "min":
			f.LowStockThreshold, err = parseQuantity(value)
		case "beli":
			f.PurchasePrice, err = parseAmount(value)
		case "harga":
			f.NormalPrice, err = parseAmount(value)
		case "reseller":
			if value == "-" {
				f.ResellerPrice = nil
				continue
			}
			var price float64
			if price, err = parseAmount(value); err == nil {
				f.ResellerPrice = &price
			}
		case "lacak":
			f.TrackStock, err = parseYesNo(value)
		case "pemasok":
			if value == "-" {
				f.SupplierID = nil
				continue
			}
			var id int
			if id, err = parseID(value); err == nil {
				f.SupplierID = &id
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func runProduct(ctx context.Context, s *shell, args []string) error {
	if len(args) < 2 || strings.ToLower(args[0]) != "add" {
		return errors.New("pemakaian: product add nama=<nama> kategori=<id> varian=<nama> harga=<jumlah> [sku= stok= satuan= beli= min= lacak= pemasok= reseller=]")
	}
	fields, err := parseFields(args[1:], append([]string{"nama", "kategori"}, variantKeys...)...)
	if err != nil {
		return err
	}
	p := posapi.NewProduct{
		Name:         fields["nama"],
		FirstVariant: posapi.VariantFields{TrackStock: true},
	}
	if raw, ok := fields["kategori"]; ok {
		if p.CategoryID, err = parseID(raw); err != nil {
			return err
		}
	}
	delete(fields, "nama")
	delete(fields, "kategori")
	if err := applyVariantFields(&p.FirstVariant, fields); err != nil {
		return err
	}
	if p.FirstVariant.Name == "" {
		p.FirstVariant.Name = p.Name
	}

	created, err := s.client.CreateProduct(ctx, p)
	if err != nil {
		return err
	}
	return s.emit(created, func(w io.Writer) {
		fmt.Fprintf(w, "Produk #%d %s dibuat di kategori %s.\n", created.ID, created.Name, orDash(created.Category.Name))
		writeVariants(w, created.Variants)
	})
}

func runVariant(ctx context.Context, s *shell, args []string) error {
	const usage = "pemakaian: variant add <produk-id> varian=<nama> harga=<jumlah> | variant edit <id> kolom=nilai... | variant rm|on <id>"
	if len(args) < 2 {
		return errors.New(usage)
	}
	id, err := parseID(args[1])
	if err != nil {
		return err
	}

	switch strings.ToLower(args[0]) {
	case "add", "tambah":
		fields, err := parseFields(args[2:], variantKeys...)
		if err != nil {
			return err
		}
		nv := posapi.NewVariant{ProductID: id, VariantFields: posapi.VariantFields{TrackStock: true}}
		if err := applyVariantFields(&nv.VariantFields, fields); err != nil {
			return err
		}
		v, err := s.client.AddVariant(ctx, nv)
		if err != nil {
			return err
		}
		return s.emit(v, func(w io.Writer) {
			fmt.Fprintf(w, "Varian #%d %s ditambahkan.\n", v.ID, v.Name)
		})
	case "edit", "ubah":
		fields, err := parseFields(args[2:], variantKeys...)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return errors.New("tidak ada kolom yang diubah")
		}
		current, err := s.client.GetVariant(ctx, id)
		if err != nil {
			return err
		}
		u := current.Update()
		if err := applyVariantFields(&u.VariantFields, fields); err != nil {
			return err
		}
		v, err := s.client.UpdateVariant(ctx, id, u)
		if err != nil {
			return err
		}
		return s.emit(v, func(w io.Writer) {
			fmt.Fprintf(w, "Varian #%d diperbarui.\n", v.ID)
			writeVariants(w, []posapi.Variant{v})
		})
	case "rm", "hapus", "off":
		if err := s.client.DeactivateVariant(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Varian #%d dinonaktifkan.\n", id)
		return nil
	case "on", "aktifkan":
		if err := s.client.ReactivateVariant(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Varian #%d diaktifkan kembali.\n", id)
		return nil
	default:
		return errors.New(usage)
	}
}

func runPrice(ctx context.Context, s *shell, args []string) error {
	const usage = "pemakaian: price <id> | price set <id> <min> <total> | price rm <id> <min> | price clear <id>"
	if len(args) == 0 {
		return errors.New(usage)
	}
	sub := strings.ToLower(args[0])
	if _, err := parseID(sub); err == nil {
		sub, args = "show", append([]string{"show"}, args...)
	}
	if len(args) < 2 {
		return errors.New(usage)
	}
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	v, err := s.client.GetVariant(ctx, id)
	if err != nil {
		return err
	}
	if sub == "show" {
		return s.emit(v.PriceRules, func(w io.Writer) {
			writePriceRules(w, v)
		})
	}

	u := v.Update()
	switch sub {
	case "set":
		if len(args) != 4 {
			return errors.New(usage)
		}
		minQty, err := parseQuantity(args[2])
		if err != nil {
			return err
		}
		total, err := parseAmount(args[3])
		if err != nil {
			return err
		}
		u.SetPriceRule(minQty, total)
	case "rm", "hapus":
		if len(args) != 3 {
			return errors.New(usage)
		}
		minQty, err := parseQuantity(args[2])
		if err != nil {
			return err
		}
		if !u.RemovePriceRule(minQty) {
			return fmt.Errorf("tidak ada harga grosir untuk %s %s", formatQty(minQty), orDash(v.Unit))
		}
	case "clear":
		u.PriceRules = nil
	default:
		return errors.New(usage)
	}

	updated, err := s.client.UpdateVariant(ctx, id, u)
	if err != nil {
		return err
	}
	return s.emit(updated.PriceRules, func(w io.Writer) {
		writePriceRules(w, updated)
	})
}

func writePriceRules(w io.Writer, v posapi.Variant) {
	fmt.Fprintf(w, "%s, harga normal %s\n", v.DisplayName(), rp(v.NormalPrice.Float()))
	if len(v.PriceRules) == 0 {
		fmt.Fprintln(w, "- (tidak ada harga grosir)")
		return
	}
	rules := append([]posapi.PriceRule(nil), v.PriceRules...)
	sort.Slice(rules, func(i, j int) bool { return rules[i].MinQuantity < rules[j].MinQuantity })
	tw := newTable(w)
	fmt.Fprintln(tw, "MIN\tTOTAL\tPER SATUAN")
	for _, r := range rules {
		per := r.TotalPrice.Float() / r.MinQuantity.Float()
		fmt.Fprintf(tw, "%s\t%s\t%s\n", formatQty(r.MinQuantity.Float()), rp(r.TotalPrice.Float()), rp(per))
	}
	_ = tw.Flush()
}

func runCategories(ctx context.Context, s *shell, args []string) error {
	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}
	switch sub {
	case "":
		categories, err := s.client.ListCategories(ctx)
		if err != nil {
			return err
		}
		return s.emit(categories, func(w io.Writer) {
			tw := newTable(w)
			fmt.Fprintln(tw, "ID\tKATEGORI")
			for _, c := range categories {
				fmt.Fprintf(tw, "%d\t%s\n", c.ID, c.Name)
			}
			_ = tw.Flush()
		})
	case "add", "tambah":
		c, err := s.client.CreateCategory(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		return s.emit(c, func(w io.Writer) {
			fmt.Fprintf(w, "Kategori #%d %s dibuat.\n", c.ID, c.Name)
		})
	case "rename", "ubah":
		if len(args) < 3 {
			return errors.New("pemakaian: categories rename <id> <nama>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		c, err := s.client.RenameCategory(ctx, id, strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		return s.emit(c, func(w io.Writer) {
			fmt.Fprintf(w, "Kategori #%d sekarang %s.\n", c.ID, c.Name)
		})
	case "rm", "hapus":
		if len(args) != 2 {
			return errors.New("pemakaian: categories rm <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := s.client.DeleteCategory(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Kategori #%d dihapus.\n", id)
		return nil
	default:
		return fmt.Errorf("sub-perintah kategori tidak dikenal: %s", args[0])
	}
}

var supplierKeys = []string{"nama", "kontak", "telepon", "alamat"}

func applySupplierFields(sup *posapi.Supplier, fields map[string]string) {
	for key, value := range fields {
		switch key {
		case "nama":
			sup.Name = value
		case "kontak":
			sup.ContactPerson = value
		case "telepon":
			sup.Phone = value
		case "alamat":
			sup.Address = value
		}
	}
}

func runSuppliers(ctx context.Context, s *shell, args []string) error {
	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}
	switch sub {
	case "add", "tambah":
		fields, err := parseFields(args[1:], supplierKeys...)
		if err != nil {
			return err
		}
		var sup posapi.Supplier
		applySupplierFields(&sup, fields)
		created, err := s.client.CreateSupplier(ctx, sup)
		if err != nil {
			return err
		}
		return s.emit(created, func(w io.Writer) {
			fmt.Fprintf(w, "Pemasok #%d %s dibuat.\n", created.ID, created.Name)
		})
	case "edit", "ubah":
		if len(args) < 3 {
			return errors.New("pemakaian: suppliers edit <id> kolom=nilai...")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		fields, err := parseFields(args[2:], supplierKeys...)
		if err != nil {
			return err
		}
		sup, err := s.client.GetSupplier(ctx, id)
		if err != nil {
			return err
		}
		applySupplierFields(&sup, fields)
		updated, err := s.client.UpdateSupplier(ctx, id, sup)
		if err != nil {
			return err
		}
		return s.emit(updated, func(w io.Writer) {
			fmt.Fprintf(w, "Pemasok #%d diperbarui.\n", id)
		})
	case "rm", "hapus":
		if len(args) != 2 {
			return errors.New("pemakaian: suppliers rm <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := s.client.DeleteSupplier(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Pemasok #%d dihapus.\n", id)
		return nil
	}

	page, err := s.client.ListSuppliers(ctx, posapi.ListFilter{Search: strings.Join(args, " "), PageSize: productPageSize})
	if err != nil {
		return err
	}
	return s.emit(page, func(w io.Writer) {
		tw := newTable(w)
		fmt.Fprintln(tw, "ID\tPEMASOK\tKONTAK\tTELEPON")
		for _, sup := range page.Results {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", sup.ID, sup.Name, orDash(sup.ContactPerson), orDash(sup.Phone))
		}
		_ = tw.Flush()
		if page.Count > len(page.Results) {
			fmt.Fprintf(w, "(%d dari %d pemasok)\n", len(page.Results), page.Count)
		}
	})
}

func runBarcode(ctx context.Context, s *shell, args []string) error {
	if len(args) != 1 {
		return errors.New("pemakaian: barcode <kode>")
	}
	p, err := s.client.LookupBarcode(ctx, args[0])
	if err != nil {
		return err
	}
	return s.emit(p, func(w io.Writer) {
		tw := newTable(w)
		fmt.Fprintf(tw, "Produk\t%s\n", orDash(p.ProductName))
		fmt.Fprintf(tw, "Varian\t%s\n", orDash(p.VariantName))
		fmt.Fprintf(tw, "SKU\t%s\n", orDash(p.SKU))
		fmt.Fprintf(tw, "Kategori\t%s\n", orDash(p.Category))
		fmt.Fprintf(tw, "Pemasok\t%s\n", orDash(p.Supplier))
		_ = tw.Flush()
	})
}

func runUsers(ctx context.Context, s *shell, args []string) error {
	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}
	switch sub {
	case "":
		users, err := s.client.ListUsers(ctx)
		if err != nil {
			return err
		}
		return s.emit(users, func(w io.Writer) {
			writeUsers(w, users)
		})
	case "add", "tambah":
		if len(args) < 3 || len(args) > 4 {
			return errors.New("pemakaian: users add <username> <password> [admin|kasir]")
		}
		nu := posapi.NewUser{Username: args[1], Password: args[2]}
		if len(args) == 4 {
			nu.Role = strings.ToLower(args[3])
		}
		u, err := s.client.CreateUser(ctx, nu)
		if err != nil {
			return err
		}
		return s.emit(u, func(w io.Writer) {
			fmt.Fprintf(w, "Pengguna #%d %s (%s) dibuat.\n", u.ID, u.Username, u.Role)
		})
	case "role", "peran":
		if len(args) != 3 {
			return errors.New("pemakaian: users role <id> <admin|kasir>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		u, err := s.client.SetUserRole(ctx, id, strings.ToLower(args[2]))
		if err != nil {
			return err
		}
		return s.emit(u, func(w io.Writer) {
			fmt.Fprintf(w, "%s sekarang %s.\n", u.Username, u.Role)
		})
	case "rm", "hapus":
		if len(args) != 2 {
			return errors.New("pemakaian: users rm <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := s.client.DeleteUser(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Pengguna #%d dihapus.\n", id)
		return nil
	default:
		return fmt.Errorf("sub-perintah pengguna tidak dikenal: %s", args[0])
	}
}

func writeUsers(w io.Writer, users []session.User) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tUSERNAME\tNAMA\tPERAN")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Username, orDash(strings.TrimSpace(u.FirstName+" "+u.LastName)), u.Role)
	}
	_ = tw.Flush()
}
