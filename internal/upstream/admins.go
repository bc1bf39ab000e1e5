package upstream

import (
	"context"
	"net/http"
	"net/url"
)

// Role is read-only from the console: it is fetched to populate the role
// selector when creating or editing an admin account.
type Role struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Permissions map[string]bool `json:"permissions"`
}

// AdminAccount is a staff account as returned by the product API. The
// password is write-only and never read back.
type AdminAccount struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"isActive"`
}

// AdminForm carries the writable admin fields. An empty Password is
// omitted from the payload entirely, which the server honors as "leave
// unchanged"; sending an empty string instead would overwrite the hash.
type AdminForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	RoleID   string `json:"roleId"`
	IsActive bool   `json:"isActive"`
}

// ListAdmins fetches the full admin collection.
func (c *Client) ListAdmins(ctx context.Context) ([]AdminAccount, error) {
	var out []AdminAccount
	if err := c.getJSON(ctx, "admins", "list", "/api/admin", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRoles fetches the available roles.
func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	if err := c.getJSON(ctx, "admins", "roles", "/api/admin/roles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAdmin creates a new staff account.
func (c *Client) CreateAdmin(ctx context.Context, form AdminForm) error {
	return c.sendJSON(ctx, "admins", "create", http.MethodPost, "/api/admin", form, nil)
}

// UpdateAdmin replaces the writable fields of an existing account.
func (c *Client) UpdateAdmin(ctx context.Context, id string, form AdminForm) error {
	return c.sendJSON(ctx, "admins", "update", http.MethodPut, "/api/admin/"+url.PathEscape(id), form, nil)
}

// DeleteAdmin removes the account from the remote collection.
func (c *Client) DeleteAdmin(ctx context.Context, id string) error {
	return c.delete(ctx, "admins", "delete", "/api/admin/"+url.PathEscape(id))
}
