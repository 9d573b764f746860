package posapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

func (c *Client) ListCustomers(ctx context.Context, filter ListFilter) (Page[Customer], error) {
	var page Page[Customer]
	if err := c.get(ctx, "/transactions/pelanggan/", filter.query(), &page); err != nil {
		return Page[Customer]{}, err
	}
	return page, nil
}

func (c *Client) SavingsSummary(ctx context.Context) (SavingsSummary, error) {
	var summary SavingsSummary
	if err := c.get(ctx, "/transactions/simpanan-summary/", nil, &summary); err != nil {
		return SavingsSummary{}, err
	}
	return summary, nil
}

// Deposit credits a customer's savings, creating the customer by name when
// it does not exist yet.
func (c *Client) Deposit(ctx context.Context, req DepositRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return errors.New("customer name is required")
	}
	if req.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	return c.post(ctx, "/transactions/setoran-simpanan/", req, nil)
}

func (c *Client) Withdraw(ctx context.Context, req WithdrawRequest) error {
	if req.CustomerID <= 0 {
		return errors.New("customer id is required")
	}
	if req.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	return c.post(ctx, "/transactions/penarikan-simpanan/", req, nil)
}

func (c *Client) SavingsHistory(ctx context.Context, customerID int, page int) (Page[SavingsEntry], error) {
	q := map[string]string{"pelanggan": strconv.Itoa(customerID)}
	if page > 0 {
		q["page"] = strconv.Itoa(page)
	}
	var entries Page[SavingsEntry]
	if err := c.get(ctx, "/transactions/riwayat-simpanan/", q, &entries); err != nil {
		return Page[SavingsEntry]{}, err
	}
	return entries, nil
}

// CustomerUpdate carries only the fields to change.
type CustomerUpdate struct {
	Name    string `json:"nama_pelanggan,omitempty"`
	Phone   string `json:"nomor_telepon,omitempty"`
	Address string `json:"alamat,omitempty"`
}

func (c *Client) UpdateCustomer(ctx context.Context, id int, u CustomerUpdate) (Customer, error) {
	if u == (CustomerUpdate{}) {
		return Customer{}, errors.New("nothing to update")
	}
	var updated Customer
	if err := c.patch(ctx, "/transactions/pelanggan/"+strconv.Itoa(id)+"/", u, &updated); err != nil {
		return Customer{}, err
	}
	return updated, nil
}
