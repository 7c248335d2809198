package imagehost

import (
	"context"
	"fmt"
)

// MyPhotos returns a page of the caller's own photos. Page 0 requests the unpaginated list.
func (c *Client) MyPhotos(ctx context.Context, page int) ([]Photo, error) {
	return c.photos(ctx, "/photos/me", page)
}

// UserPhotos returns a page of the photos of a single user.
func (c *Client) UserPhotos(ctx context.Context, userID uint64, page int) ([]Photo, error) {
	return c.photos(ctx, idPath("/photos/user/", userID), page)
}

// Explore returns a page of the explore feed, grouped by user.
func (c *Client) Explore(ctx context.Context, page int) ([]UserPhotos, error) {
	var resp explorePage
	if err := c.do(ctx, &request{method: "GET", endpoint: "/photos", query: pageQuery(page)}, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: explore feed without data", ErrInvalidResponse)
	}
	return *resp.Data, nil
}

// UploadPhoto uploads a photo with an optional title and description.
func (c *Client) UploadPhoto(ctx context.Context, upload Upload) error {
	r, err := multipartRequest("POST", "/photos", "photo", upload)
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

// DeletePhoto deletes one of the caller's photos.
func (c *Client) DeletePhoto(ctx context.Context, id uint64) error {
	return c.do(ctx, &request{method: "DELETE", endpoint: idPath("/photos/", id)}, nil)
}

func (c *Client) photos(ctx context.Context, endpoint string, page int) ([]Photo, error) {
	var photos []Photo
	if err := c.do(ctx, &request{method: "GET", endpoint: endpoint, query: pageQuery(page)}, &photos); err != nil {
		return nil, err
	}
	if photos == nil {
		return []Photo{}, nil
	}
	return photos, nil
}
