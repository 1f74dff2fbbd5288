package api

import (
	"context"
	"fmt"

	"github.com/tinyids/console/pkg/models"
)

// Blacklist returns blocked source addresses, newest first.
func (c *Client) Blacklist(ctx context.Context) ([]models.BlacklistEntry, error) {
	var entries []models.BlacklistEntry

	if err := c.get(ctx, "/blacklist", nil, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// DeleteBlacklistEntry unblocks one address.
func (c *Client) DeleteBlacklistEntry(ctx context.Context, entryID int) error {
	return c.del(ctx, fmt.Sprintf("/blacklist/%d", entryID))
}
