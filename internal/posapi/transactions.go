package posapi

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const transactionsPath = "/transactions/transaksi/"

func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (Transaction, error) {
	if len(req.DetailItems) == 0 {
		return Transaction{}, ErrEmptyCart
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = PaymentCash
	}
	var tx Transaction
	if err := c.post(ctx, transactionsPath, req, &tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// HoldTransaction parks a cart on the server under status Ditahan.
func (c *Client) HoldTransaction(ctx context.Context, req HoldRequest) (Transaction, error) {
	if len(req.DetailItems) == 0 {
		return Transaction{}, ErrEmptyCart
	}
	var tx Transaction
	if err := c.post(ctx, transactionsPath+"hold_transaction/", req, &tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// UpdateHeldTransaction replaces the lines of a held transaction.
func (c *Client) UpdateHeldTransaction(ctx context.Context, id int, req HoldRequest) (Transaction, error) {
	if len(req.DetailItems) == 0 {
		return Transaction{}, ErrEmptyCart
	}
	var tx Transaction
	if err := c.patch(ctx, fmt.Sprintf("%s%d/update_held_transaction/", transactionsPath, id), req, &tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// ResumeTransaction pays a held transaction. Stock is deducted at this
// point, not when the cart was held.
func (c *Client) ResumeTransaction(ctx context.Context, id int, req CheckoutRequest) (Transaction, error) {
	if id <= 0 {
		return Transaction{}, errors.New("held transaction id is required")
	}
	if len(req.DetailItems) == 0 {
		return Transaction{}, ErrEmptyCart
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = PaymentCash
	}
	var tx Transaction
	if err := c.post(ctx, fmt.Sprintf("%s%d/resume_transaction/", transactionsPath, id), req, &tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func (c *Client) GetTransaction(ctx context.Context, id int) (Transaction, error) {
	var tx Transaction
	if err := c.get(ctx, fmt.Sprintf("%s%d/", transactionsPath, id), nil, &tx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

type TransactionFilter struct {
	Status        string
	PaymentMethod string
	From          time.Time
	To            time.Time
	Page          int
	PageSize      int
}

func (f TransactionFilter) query() map[string]string {
	q := map[string]string{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.PaymentMethod != "" {
		q["metode_pembayaran"] = f.PaymentMethod
	}
	if !f.From.IsZero() {
		q["created_at__gte"] = f.From.Format(time.RFC3339)
	}
	if !f.To.IsZero() {
		q["created_at__lte"] = f.To.Format(time.RFC3339)
	}
	if f.Page > 0 {
		q["page"] = fmt.Sprint(f.Page)
	}
	if f.PageSize > 0 {
		q["page_size"] = fmt.Sprint(f.PageSize)
	}
	return q
}

func (c *Client) ListTransactions(ctx context.Context, filter TransactionFilter) (TransactionPage, error) {
	var page TransactionPage
	if err := c.get(ctx, transactionsPath, filter.query(), &page); err != nil {
		return TransactionPage{}, err
	}
	return page, nil
}

// ListHeldTransactions walks every page of held transactions.
func (c *Client) ListHeldTransactions(ctx context.Context) ([]Transaction, error) {
	var held []Transaction
	for n := 1; ; n++ {
		page, err := c.ListTransactions(ctx, TransactionFilter{Status: StatusHeld, Page: n, PageSize: allPageSize})
		if err != nil {
			return nil, err
		}
		held = append(held, page.Results...)
		if !page.HasNext() {
			return held, nil
		}
	}
}

// DeleteHeldTransaction discards a held transaction. Nothing was deducted
// from stock while it was held.
func (c *Client) DeleteHeldTransaction(ctx context.Context, id int) error {
	if id <= 0 {
		return errors.New("held transaction id is required")
	}
	return c.delete(ctx, fmt.Sprintf("%s%d/", transactionsPath, id))
}
