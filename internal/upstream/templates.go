package upstream

import (
	"context"
	"net/http"
	"strconv"
)

// Template is a resume template slot. TemplateNumber is the stable slot
// identifier, deliberately distinct from any storage id the product API
// may keep internally.
type Template struct {
	TemplateNumber int    `json:"templateNumber"`
	Name           string `json:"name"`
	Image          string `json:"image"`
	IsVisible      bool   `json:"isVisible"`
}

// TemplateForm carries the writable template fields plus an optional image.
type TemplateForm struct {
	Name  string
	Image *File
}

func (f TemplateForm) multipart() Form {
	return Form{
		Fields: map[string]string{"name": f.Name},
		Image:  f.Image,
	}
}

type visibilityUpdate struct {
	IsVisible bool `json:"isVisible"`
}

func templatePath(number int) string {
	return "/api/templates/" + strconv.Itoa(number)
}

// ListTemplates fetches the full template collection.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	var out []Template
	if err := c.getJSON(ctx, "templates", "list", "/api/templates", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTemplate submits a new template as multipart form data.
func (c *Client) CreateTemplate(ctx context.Context, form TemplateForm) error {
	return c.sendForm(ctx, "templates", "create", http.MethodPost, "/api/templates", form.multipart(), nil)
}

// UpdateTemplate replaces the template's fields; a nil Image keeps the
// stored one.
func (c *Client) UpdateTemplate(ctx context.Context, number int, form TemplateForm) error {
	return c.sendForm(ctx, "templates", "update", http.MethodPut, templatePath(number), form.multipart(), nil)
}

// DeleteTemplate removes the template slot.
func (c *Client) DeleteTemplate(ctx context.Context, number int) error {
	return c.delete(ctx, "templates", "delete", templatePath(number))
}

// SetVisibility is the dedicated partial update for the isVisible flag.
// It returns the server's acknowledged template, which the caller adopts
// as local truth.
func (c *Client) SetVisibility(ctx context.Context, number int, visible bool) (Template, error) {
	var out Template
	err := c.sendJSON(ctx, "templates", "toggle", http.MethodPut, templatePath(number), visibilityUpdate{IsVisible: visible}, &out)
	if err != nil {
		return Template{}, err
	}
	return out, nil
}
