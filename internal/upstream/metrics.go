package upstream

import "context"

type downloadsTotal struct {
	TotalDownloads int64 `json:"totalDownloads"`
}

type usersTotal struct {
	TotalUsers int64 `json:"totalUsers"`
}

// TotalDownloads reads the product-wide download counter.
func (c *Client) TotalDownloads(ctx context.Context) (int64, error) {
	var out downloadsTotal
	if err := c.getJSON(ctx, "metrics", "downloads", "/total-downloads", &out); err != nil {
		return 0, err
	}
	return out.TotalDownloads, nil
}

// TotalUsers reads the registered-user counter.
func (c *Client) TotalUsers(ctx context.Context) (int64, error) {
	var out usersTotal
	if err := c.getJSON(ctx, "metrics", "users", "/api/users/total", &out); err != nil {
		return 0, err
	}
	return out.TotalUsers, nil
}
