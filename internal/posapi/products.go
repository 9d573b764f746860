package posapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type VariantFilter struct {
	ListFilter
	CategoryID int
	SupplierID int
	Favorites  bool
	// IncludeInactive also lists variants hidden from the cashier.
	IncludeInactive bool
}

func (f VariantFilter) query() map[string]string {
	q := f.ListFilter.query()
	if f.CategoryID > 0 {
		q["produk_induk__kategori"] = strconv.Itoa(f.CategoryID)
	}
	if f.SupplierID > 0 {
		q["pemasok"] = strconv.Itoa(f.SupplierID)
	}
	if f.Favorites {
		q["is_favorit"] = "true"
	}
	if f.IncludeInactive {
		q["status"] = "all"
	}
	return q
}

func (c *Client) ListVariants(ctx context.Context, filter VariantFilter) (Page[Variant], error) {
	var page Page[Variant]
	if err := c.get(ctx, "/products/varian-produk/", filter.query(), &page); err != nil {
		return Page[Variant]{}, err
	}
	return page, nil
}

// allPageSize is the page size used when walking a whole list.
const allPageSize = 100

// AllVariants walks every page of the variant list.
func (c *Client) AllVariants(ctx context.Context, filter VariantFilter) ([]Variant, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = allPageSize
	}
	filter.Page = 1

	var variants []Variant
	for {
		page, err := c.ListVariants(ctx, filter)
		if err != nil {
			return nil, err
		}
		variants = append(variants, page.Results...)
		if !page.HasNext() {
			break
		}
		filter.Page++
	}
	return variants, nil
}

func (c *Client) GetVariant(ctx context.Context, id int) (Variant, error) {
	var v Variant
	if err := c.get(ctx, fmt.Sprintf("/products/varian-produk/%d/", id), nil, &v); err != nil {
		return Variant{}, err
	}
	return v, nil
}

func (c *Client) ReactivateVariant(ctx context.Context, id int) error {
	return c.post(ctx, fmt.Sprintf("/products/varian-produk/%d/reactivate/", id), nil, nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.get(ctx, "/products/kategori/", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) CreateCategory(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, errors.New("category name is required")
	}
	var created Category
	if err := c.post(ctx, "/products/kategori/", map[string]string{"nama_kategori": name}, &created); err != nil {
		return Category{}, err
	}
	return created, nil
}

func (c *Client) ListSuppliers(ctx context.Context, filter ListFilter) (Page[Supplier], error) {
	var page Page[Supplier]
	if err := c.get(ctx, "/products/pemasok/", filter.query(), &page); err != nil {
		return Page[Supplier]{}, err
	}
	return page, nil
}

func (c *Client) CreateSupplier(ctx context.Context, s Supplier) (Supplier, error) {
	if strings.TrimSpace(s.Name) == "" {
		return Supplier{}, errors.New("supplier name is required")
	}
	var created Supplier
	if err := c.post(ctx, "/products/pemasok/", s, &created); err != nil {
		return Supplier{}, err
	}
	return created, nil
}

// LookupBarcode asks the API's external product database for barcode.
func (c *Client) LookupBarcode(ctx context.Context, barcode string) (BarcodeProduct, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return BarcodeProduct{}, errors.New("barcode is required")
	}
	var product BarcodeProduct
	if err := c.get(ctx, "/products/lookup-barcode/", map[string]string{"barcode": barcode}, &product); err != nil {
		return BarcodeProduct{}, err
	}
	return product, nil
}

func (c *Client) LowStock(ctx context.Context, filter ListFilter) (Page[Variant], error) {
	var page Page[Variant]
	if err := c.get(ctx, "/products/laporan/stok-rendah/", filter.query(), &page); err != nil {
		return Page[Variant]{}, err
	}
	return page, nil
}

func (c *Client) LowStockCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/products/laporan/stok-rendah/count/", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) BestSellers(ctx context.Context) ([]Variant, error) {
	var variants []Variant
	if err := c.get(ctx, "/products/laporan/produk-terlaris/", nil, &variants); err != nil {
		return nil, err
	}
	return variants, nil
}
