package posapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type KasbonFilter struct {
	ListFilter
	Type string
	// Settled filters on lunas when non-nil.
	Settled *bool
}

func (c *Client) ListKasbon(ctx context.Context, filter KasbonFilter) (Page[Kasbon], error) {
	q := filter.ListFilter.query()
	if filter.Type != "" {
		q["tipe"] = filter.Type
	}
	if filter.Settled != nil {
		q["lunas"] = strconv.FormatBool(*filter.Settled)
	}
	var page Page[Kasbon]
	if err := c.get(ctx, "/transactions/hutang-piutang/", q, &page); err != nil {
		return Page[Kasbon]{}, err
	}
	return page, nil
}

func (c *Client) KasbonSummary(ctx context.Context, kasbonType string) (KasbonSummary, error) {
	var q map[string]string
	if kasbonType != "" {
		q = map[string]string{"tipe": kasbonType}
	}
	var summary KasbonSummary
	if err := c.get(ctx, "/transactions/hutang-piutang-summary/", q, &summary); err != nil {
		return KasbonSummary{}, err
	}
	return summary, nil
}

func (c *Client) CreatePiutang(ctx context.Context, req CreatePiutangRequest) (Kasbon, error) {
	if strings.TrimSpace(req.CustomerName) == "" {
		return Kasbon{}, errors.New("customer name is required")
	}
	if req.Total <= 0 {
		return Kasbon{}, errors.New("amount must be positive")
	}
	var k Kasbon
	if err := c.post(ctx, "/transactions/hutang-piutang/create-piutang/", req, &k); err != nil {
		return Kasbon{}, err
	}
	return k, nil
}

func (c *Client) CreateHutang(ctx context.Context, req CreateHutangRequest) (Kasbon, error) {
	if req.SupplierID <= 0 {
		return Kasbon{}, errors.New("supplier is required")
	}
	if req.Total <= 0 {
		return Kasbon{}, errors.New("amount must be positive")
	}
	var k Kasbon
	if err := c.post(ctx, "/transactions/hutang-piutang/create-hutang/", req, &k); err != nil {
		return Kasbon{}, err
	}
	return k, nil
}

// AddKasbonAmount increases the outstanding balance of an existing kasbon.
func (c *Client) AddKasbonAmount(ctx context.Context, id int, amount float64) (Kasbon, error) {
	if amount <= 0 {
		return Kasbon{}, errors.New("amount must be positive")
	}
	var k Kasbon
	path := fmt.Sprintf("/transactions/hutang-piutang/%d/add_amount/", id)
	if err := c.post(ctx, path, map[string]float64{"amount_to_add": amount}, &k); err != nil {
		return Kasbon{}, err
	}
	return k, nil
}

func (c *Client) PayKasbon(ctx context.Context, payment KasbonPayment) error {
	if payment.KasbonID <= 0 {
		return errors.New("kasbon id is required")
	}
	if payment.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	return c.post(ctx, "/transactions/pembayaran/", payment, nil)
}

func (c *Client) KasbonHistory(ctx context.Context, id int) ([]KasbonHistoryEntry, error) {
	var entries []KasbonHistoryEntry
	q := map[string]string{"kasbon_id": strconv.Itoa(id)}
	if err := c.get(ctx, "/transactions/kasbon-history/", q, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// KasbonUpdate corrects the opening amount and due date of a kasbon. A nil
// DueDate clears it.
type KasbonUpdate struct {
	Total   float64 `json:"total_awal"`
	DueDate *string `json:"tanggal_jatuh_tempo"`
}

func (c *Client) UpdateKasbon(ctx context.Context, id int, u KasbonUpdate) (Kasbon, error) {
	if u.Total <= 0 {
		return Kasbon{}, errors.New("amount must be positive")
	}
	var k Kasbon
	if err := c.patch(ctx, fmt.Sprintf("/transactions/hutang-piutang/%d/", id), u, &k); err != nil {
		return Kasbon{}, err
	}
	return k, nil
}
