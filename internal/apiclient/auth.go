package apiclient

import (
	"context"
	"net/http"

	"github.com/chepyr/go-task-planner/internal/models"
)

// Session is the result of a successful login or registration.
type Session struct {
	User  models.User
	Token string
}

type authResponse struct {
	User  userDocument `json:"user"`
	Token string       `json:"token"`
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	return c.authenticate(ctx, "/auth/login", map[string]string{
		"email": email, "password": password,
	})
}

// Register creates an account and stores the returned token on the client.
func (c *Client) Register(ctx context.Context, name, email, password string) (Session, error) {
	return c.authenticate(ctx, "/auth/register", map[string]string{
		"name": name, "email": email, "password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, endpoint string, body map[string]string) (Session, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return Session{}, err
	}
	c.SetToken(resp.Token)
	return Session{User: resp.User.normalize(), Token: resp.Token}, nil
}
