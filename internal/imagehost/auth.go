package imagehost

import (
	"context"
	"fmt"
)

// Login exchanges credentials for a bearer token. asAdmin selects the admin login endpoint.
func (c *Client) Login(ctx context.Context, creds Credentials, asAdmin bool) (*AuthToken, error) {
	endpoint := "/auth/login"
	if asAdmin {
		endpoint = "/auth/login/admin"
	}
	return c.authenticate(ctx, endpoint, creds)
}

// Register creates an account. asAdmin selects the admin register endpoint,
// which is used to create accounts on behalf of other people.
func (c *Client) Register(ctx context.Context, reg Registration, asAdmin bool) (*AuthToken, error) {
	endpoint := "/auth/register"
	if asAdmin {
		endpoint = "/auth/register/admin"
	}
	if reg.Role == "" {
		reg.Role = RoleUser
	}
	return c.authenticate(ctx, endpoint, reg)
}

func (c *Client) authenticate(ctx context.Context, endpoint string, body any) (*AuthToken, error) {
	r, err := jsonRequest("POST", endpoint, body)
	if err != nil {
		return nil, err
	}

	var token AuthToken
	if err := c.do(ctx, r, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// RequireToken returns the token or ErrInvalidResponse if the server sent none.
func (t *AuthToken) RequireToken() (string, error) {
	if t == nil || t.Token == "" {
		return "", fmt.Errorf("%w: missing token", ErrInvalidResponse)
	}
	return t.Token, nil
}
