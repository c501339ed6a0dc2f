package gateway

import (
	"context"
	"net/http"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
)

func (c *Client) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	body := registerPayload{
		Username:        domain.NormalizeUsername(in.Name),
		Email:           in.Email,
		Password:        in.Password,
		PasswordConfirm: in.ConfirmPassword,
		UserType:        in.Role,
		Phone:           in.Phone,
	}
	if in.Role == domain.RolePWD {
		body.Disability = in.Disability
		body.Skills = in.Skills
	} else {
		body.ClientType = string(in.ClientType)
	}

	var env authEnvelope
	err := c.do(ctx, request{op: "users.register", method: http.MethodPost, path: "/users/register/", json: body}, &env)
	if err != nil {
		return nil, err
	}
	return env.User.toDomain(), nil
}

func (c *Client) Login(ctx context.Context, in ports.LoginInput) (*domain.User, error) {
	body := loginPayload{Email: in.Email, Password: in.Password, UserType: in.Role}

	var env authEnvelope
	err := c.do(ctx, request{op: "users.login", method: http.MethodPost, path: "/users/login/", json: body}, &env)
	if err != nil {
		return nil, err
	}
	return env.User.toDomain(), nil
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u apiUser
	if err := c.do(ctx, request{op: "users.me", method: http.MethodGet, path: "/users/me/"}, &u); err != nil {
		return nil, err
	}
	return u.toDomain(), nil
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, patch ports.ProfilePatch) (*domain.User, error) {
	var u apiUser
	err := c.do(ctx, request{
		op:     "users.update",
		method: http.MethodPatch,
		path:   idPath("/users/", userID, ""),
		json:   patch,
	}, &u)
	if err != nil {
		return nil, err
	}
	return u.toDomain(), nil
}
