package imagehost

import (
	"context"
	"fmt"
)

const profileEndpoint = "/users/me/profile"

// Profile returns the account the token belongs to.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, &request{method: "GET", endpoint: profileEndpoint}, &user); err != nil {
		return nil, err
	}
	if user.ID == 0 && user.Email == "" {
		return nil, fmt.Errorf("%w: empty profile", ErrInvalidResponse)
	}
	return &user, nil
}

// UpdateProfile changes the caller's own profile fields.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	r, err := jsonRequest("PUT", profileEndpoint, update)
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

// UpdateProfilePicture uploads a new profile picture for the caller.
func (c *Client) UpdateProfilePicture(ctx context.Context, picture Upload) error {
	r, err := multipartRequest("PUT", profileEndpoint, "profilePicture", picture)
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

// ListUsers returns all accounts. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, &request{method: "GET", endpoint: "/users"}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns a single account.
func (c *Client) GetUser(ctx context.Context, id uint64) (*User, error) {
	var user User
	if err := c.do(ctx, &request{method: "GET", endpoint: idPath("/users/", id)}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates an account. Admin only.
func (c *Client) CreateUser(ctx context.Context, reg Registration) error {
	r, err := jsonRequest("POST", "/users", reg)
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

// UpdateUser changes another account. Admin only.
func (c *Client) UpdateUser(ctx context.Context, id uint64, update UserUpdate) error {
	r, err := jsonRequest("PUT", idPath("/users/", id), update)
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

// DeleteUser deletes an account. Admin only.
func (c *Client) DeleteUser(ctx context.Context, id uint64) error {
	return c.do(ctx, &request{method: "DELETE", endpoint: idPath("/users/", id)}, nil)
}
