package upstream

import (
	"context"
	"net/http"
	"net/url"
)

// BlogPost is a published article. Image is a server-relative path.
type BlogPost struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// BlogForm carries the writable blog fields plus an optional new image.
type BlogForm struct {
	Title       string
	Description string
	Image       *File
}

func (f BlogForm) multipart() Form {
	return Form{
		Fields: map[string]string{
			"title":       f.Title,
			"description": f.Description,
		},
		Image: f.Image,
	}
}

// ListBlogs fetches the full blog collection.
func (c *Client) ListBlogs(ctx context.Context) ([]BlogPost, error) {
	var out []BlogPost
	if err := c.getJSON(ctx, "blogs", "list", "/api/blogs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBlog submits a new post as multipart form data.
func (c *Client) CreateBlog(ctx context.Context, form BlogForm) error {
	return c.sendForm(ctx, "blogs", "create", http.MethodPost, "/api/blogs", form.multipart(), nil)
}

// UpdateBlog replaces the post's fields. With a nil Image the stored
// image is retained by the server.
func (c *Client) UpdateBlog(ctx context.Context, id string, form BlogForm) error {
	return c.sendForm(ctx, "blogs", "update", http.MethodPut, "/api/blogs/"+url.PathEscape(id), form.multipart(), nil)
}

// DeleteBlog removes the post.
func (c *Client) DeleteBlog(ctx context.Context, id string) error {
	return c.delete(ctx, "blogs", "delete", "/api/blogs/"+url.PathEscape(id))
}
