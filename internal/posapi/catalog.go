package posapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// VariantFields are the editable columns of a variant, shared by product
// creation, variant creation and variant edits.
type VariantFields struct {
	Name              string   `json:"nama_varian"`
	SKU               string   `json:"sku,omitempty"`
	Stock             float64  `json:"stok"`
	Unit              string   `json:"satuan,omitempty"`
	PurchasePrice     float64  `json:"purchase_price"`
	LowStockThreshold float64  `json:"peringatan_stok_rendah"`
	TrackStock        bool     `json:"lacak_stok"`
	SupplierID        *int     `json:"pemasok"`
	NormalPrice       float64  `json:"harga_jual_normal"`
	ResellerPrice     *float64 `json:"harga_jual_reseller"`
}

func (f VariantFields) validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return errors.New("variant name is required")
	}
	if f.NormalPrice <= 0 {
		return errors.New("normal price must be positive")
	}
	if f.ResellerPrice != nil && *f.ResellerPrice < 0 {
		return errors.New("reseller price must not be negative")
	}
	if f.Stock < 0 || f.PurchasePrice < 0 || f.LowStockThreshold < 0 {
		return errors.New("stock and purchase price must not be negative")
	}
	return nil
}

// PriceRuleInput is a quantity break as the variant edit endpoint takes it.
type PriceRuleInput struct {
	MinQuantity float64 `json:"jumlah_minimal"`
	TotalPrice  float64 `json:"harga_total_khusus"`
}

type NewProduct struct {
	Name         string        `json:"nama_produk"`
	CategoryID   int           `json:"kategori"`
	FirstVariant VariantFields `json:"varian_pertama"`
}

type NewVariant struct {
	ProductID int `json:"produk_induk"`
	VariantFields
}

// VariantUpdate replaces a variant's fields and its whole set of price
// rules: rules left out are deleted by the server.
type VariantUpdate struct {
	VariantFields
	PriceRules []PriceRuleInput `json:"aturan_harga"`
}

type Product struct {
	ID       int       `json:"id"`
	Name     string    `json:"nama_produk"`
	Category Category  `json:"kategori"`
	Variants []Variant `json:"varian"`
}

// Fields returns v's editable columns, the starting point of an edit.
func (v Variant) Fields() VariantFields {
	f := VariantFields{
		Name:              v.Name,
		SKU:               v.SKU,
		Stock:             v.Stock.Float(),
		Unit:              v.Unit,
		PurchasePrice:     v.PurchasePrice.Float(),
		LowStockThreshold: v.LowStockThreshold.Float(),
		TrackStock:        v.TrackStock,
		SupplierID:        v.SupplierID,
		NormalPrice:       v.NormalPrice.Float(),
	}
	if v.ResellerPrice > 0 {
		reseller := v.ResellerPrice.Float()
		f.ResellerPrice = &reseller
	}
	return f
}

// Update returns an update that keeps every current value and price rule.
func (v Variant) Update() VariantUpdate {
	rules := make([]PriceRuleInput, 0, len(v.PriceRules))
	for _, r := range v.PriceRules {
		rules = append(rules, PriceRuleInput{MinQuantity: r.MinQuantity.Float(), TotalPrice: r.TotalPrice.Float()})
	}
	return VariantUpdate{VariantFields: v.Fields(), PriceRules: rules}
}

// SetPriceRule adds a break for minQty units or replaces the existing one.
func (u *VariantUpdate) SetPriceRule(minQty, total float64) {
	for i, r := range u.PriceRules {
		if r.MinQuantity == minQty {
			u.PriceRules[i].TotalPrice = total
			return
		}
	}
	u.PriceRules = append(u.PriceRules, PriceRuleInput{MinQuantity: minQty, TotalPrice: total})
	sort.Slice(u.PriceRules, func(i, j int) bool { return u.PriceRules[i].MinQuantity < u.PriceRules[j].MinQuantity })
}

// RemovePriceRule reports whether a break for minQty existed.
func (u *VariantUpdate) RemovePriceRule(minQty float64) bool {
	for i, r := range u.PriceRules {
		if r.MinQuantity == minQty {
			u.PriceRules = append(u.PriceRules[:i], u.PriceRules[i+1:]...)
			return true
		}
	}
	return false
}

func (u VariantUpdate) validate() error {
	if err := u.VariantFields.validate(); err != nil {
		return err
	}
	seen := map[float64]bool{}
	for _, r := range u.PriceRules {
		if r.MinQuantity <= 0 || r.TotalPrice <= 0 {
			return fmt.Errorf("price rule for %g units needs a positive quantity and total", r.MinQuantity)
		}
		if seen[r.MinQuantity] {
			return fmt.Errorf("duplicate price rule for %g units", r.MinQuantity)
		}
		seen[r.MinQuantity] = true
	}
	return nil
}

// CreateProduct creates a product together with its first variant.
func (c *Client) CreateProduct(ctx context.Context, p NewProduct) (Product, error) {
	if strings.TrimSpace(p.Name) == "" {
		return Product{}, errors.New("product name is required")
	}
	if p.CategoryID <= 0 {
		return Product{}, errors.New("category is required")
	}
	if err := p.FirstVariant.validate(); err != nil {
		return Product{}, err
	}
	var created Product
	if err := c.post(ctx, "/products/produk/", p, &created); err != nil {
		return Product{}, err
	}
	return created, nil
}

func (c *Client) AddVariant(ctx context.Context, v NewVariant) (Variant, error) {
	if v.ProductID <= 0 {
		return Variant{}, errors.New("product is required")
	}
	if err := v.validate(); err != nil {
		return Variant{}, err
	}
	var created Variant
	if err := c.post(ctx, "/products/varian-produk/", v, &created); err != nil {
		return Variant{}, err
	}
	return created, nil
}

func (c *Client) UpdateVariant(ctx context.Context, id int, u VariantUpdate) (Variant, error) {
	if err := u.validate(); err != nil {
		return Variant{}, err
	}
	if u.PriceRules == nil {
		u.PriceRules = []PriceRuleInput{}
	}
	var updated Variant
	if err := c.put(ctx, fmt.Sprintf("/products/varian-produk/%d/", id), u, &updated); err != nil {
		return Variant{}, err
	}
	return updated, nil
}

// DeactivateVariant hides a variant from the cashier. The server keeps the
// row for sales history; ReactivateVariant undoes it.
func (c *Client) DeactivateVariant(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/products/varian-produk/%d/", id))
}

func (c *Client) RenameCategory(ctx context.Context, id int, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, errors.New("category name is required")
	}
	var updated Category
	if err := c.patch(ctx, fmt.Sprintf("/products/kategori/%d/", id), map[string]string{"nama_kategori": name}, &updated); err != nil {
		return Category{}, err
	}
	return updated, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/products/kategori/%d/", id))
}

func (c *Client) GetSupplier(ctx context.Context, id int) (Supplier, error) {
	var s Supplier
	if err := c.get(ctx, fmt.Sprintf("/products/pemasok/%d/", id), nil, &s); err != nil {
		return Supplier{}, err
	}
	return s, nil
}

func (c *Client) UpdateSupplier(ctx context.Context, id int, s Supplier) (Supplier, error) {
	if strings.TrimSpace(s.Name) == "" {
		return Supplier{}, errors.New("supplier name is required")
	}
	s.ID = 0
	var updated Supplier
	if err := c.put(ctx, fmt.Sprintf("/products/pemasok/%d/", id), s, &updated); err != nil {
		return Supplier{}, err
	}
	return updated, nil
}

func (c *Client) DeleteSupplier(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/products/pemasok/%d/", id))
}
