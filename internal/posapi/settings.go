package posapi

import (
	"context"
	"errors"
	"strings"
)

func (c *Client) StoreInfo(ctx context.Context) (StoreInfo, error) {
	var info StoreInfo
	if err := c.get(ctx, "/transactions/store-info/", nil, &info); err != nil {
		return StoreInfo{}, err
	}
	return info, nil
}

// UpdateStoreInfo requires an admin session; the server answers 403
// otherwise.
func (c *Client) UpdateStoreInfo(ctx context.Context, info StoreInfo) (StoreInfo, error) {
	if strings.TrimSpace(info.Name) == "" {
		return StoreInfo{}, errors.New("store name is required")
	}
	var updated StoreInfo
	if err := c.put(ctx, "/transactions/store-info/", info, &updated); err != nil {
		return StoreInfo{}, err
	}
	return updated, nil
}
