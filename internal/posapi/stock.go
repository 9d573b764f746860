package posapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var ErrNoStockItems = errors.New("pos: no stock items")

type StockAdjustment struct {
	Items  []StockItem `json:"items"`
	Reason string      `json:"reason"`
}

// ManageStock books a stock movement. Quantities are always positive: the
// server adds them for ReasonPurchase and subtracts them for any other reason.
func (c *Client) ManageStock(ctx context.Context, adj StockAdjustment) error {
	if len(adj.Items) == 0 {
		return ErrNoStockItems
	}
	if adj.Reason == "" {
		return errors.New("stock reason is required")
	}
	for _, item := range adj.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("quantity for variant %d must be positive", item.VariantID)
		}
	}
	return c.post(ctx, "/transactions/manage-stock/", adj, nil)
}

// StockOpname sets physical counts; the server books the differences.
func (c *Client) StockOpname(ctx context.Context, items []OpnameItem) error {
	if len(items) == 0 {
		return ErrNoStockItems
	}
	return c.post(ctx, "/transactions/stock-opname/", map[string]any{"items": items}, nil)
}

type StockHistoryFilter struct {
	ListFilter
	VariantID int
	Reason    string
}

func (c *Client) StockHistory(ctx context.Context, filter StockHistoryFilter) (Page[StockMovement], error) {
	q := filter.ListFilter.query()
	if filter.VariantID > 0 {
		q["product"] = strconv.Itoa(filter.VariantID)
	}
	if filter.Reason != "" {
		q["reason"] = filter.Reason
	}
	var page Page[StockMovement]
	if err := c.get(ctx, "/transactions/stock-history/", q, &page); err != nil {
		return Page[StockMovement]{}, err
	}
	return page, nil
}
