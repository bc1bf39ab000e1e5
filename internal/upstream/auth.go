package upstream

import "context"

// Credentials are the staff login fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the authenticated principal returned by the product API.
type LoginResult struct {
	Token       string          `json:"token"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions"`
}

// Login exchanges credentials for a bearer token and role. The call
// carries no Authorization header of its own; a rejected login surfaces
// as an auth-kind error.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var out LoginResult
	if err := c.sendJSON(ctx, "auth", "login", "POST", "/login", creds, &out); err != nil {
		return LoginResult{}, err
	}
	return out, nil
}
