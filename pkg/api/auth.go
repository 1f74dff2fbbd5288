package api

import (
	"context"

	"github.com/tinyids/console/pkg/models"
)

// Login exchanges credentials for a bearer token and installs it on the
// client for subsequent requests. The backend accepts either username or
// email as the identifier.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse

	if err := c.post(ctx, "/auth/login", req, &out); err != nil {
		return nil, err
	}

	c.SetToken(out.AccessToken)

	return &out, nil
}

// Register creates an account and installs the returned token.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	var out models.LoginResponse

	if err := c.post(ctx, "/auth/register", req, &out); err != nil {
		return nil, err
	}

	c.SetToken(out.AccessToken)

	return &out, nil
}

// Me returns the profile behind the current token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User

	if err := c.get(ctx, "/users/me", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// UpdateProfile renames the account.
func (c *Client) UpdateProfile(ctx context.Context, username string) (*models.User, error) {
	body := map[string]string{"username": username}

	var out models.User

	if err := c.put(ctx, "/users/me", body, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ChangePassword rotates the account password. The backend checks the
// current secret before accepting the new one.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	}

	return c.post(ctx, "/users/me/password", body, nil)
}
