package client

import (
	"context"
	"fmt"
	"sicakap/pkg/errors"
	"sicakap/pkg/model"
)

const (
	opLogin    = "login"
	opLogout   = "logout"
	opCheck    = "check-session"
	opActivity = "update-activity"
	opExtend   = "extend-session"
)

type AuthClient struct {
	httpClient *HttpClient
}

func NewAuthClient(httpClient *HttpClient) *AuthClient {
	return &AuthClient{httpClient: httpClient}
}

func (c *AuthClient) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error) {
	resp, err := c.httpClient.POST(ctx, "/login", req)
	if err := classify(opLogin, resp, err); err != nil {
		return nil, err
	}

	var result model.LoginResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, errors.Upstream(opLogin, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return &result, nil
}

func (c *AuthClient) Logout(ctx context.Context) error {
	resp, err := c.httpClient.POST(ctx, "/logout", struct{}{})
	return classify(opLogout, resp, err)
}

func (c *AuthClient) CheckSession(ctx context.Context) (*model.SessionStatus, error) {
	resp, err := c.httpClient.GET(ctx, "/check-session")
	if err := classify(opCheck, resp, err); err != nil {
		return nil, err
	}

	var status model.SessionStatus
	if err := resp.DecodeJSON(&status); err != nil {
		return nil, errors.Upstream(opCheck, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return &status, nil
}

func (c *AuthClient) UpdateActivity(ctx context.Context) error {
	resp, err := c.httpClient.POST(ctx, "/update-activity", struct{}{})
	return classify(opActivity, resp, err)
}

func (c *AuthClient) ExtendSession(ctx context.Context) (*model.ExtendResult, error) {
	resp, err := c.httpClient.POST(ctx, "/extend-session", struct{}{})
	if err := classify(opExtend, resp, err); err != nil {
		return nil, err
	}

	var result model.ExtendResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, errors.Upstream(opExtend, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return &result, nil
}
