package client

import (
	"context"
	"net/http"

	"listings-cms/models"
)

// Login opens an admin session and keeps its token for later requests.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/admin/login", req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

func (c *Client) Session(ctx context.Context) (*models.SessionStatus, error) {
	var status models.SessionStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/session", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Logout revokes the current session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodPost, "/api/admin/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Ping calls /api/test, which checks the server's MongoDB connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/test", nil, nil)
}
