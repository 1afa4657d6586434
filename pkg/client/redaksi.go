package client

import (
	"context"
	"fmt"
	"net/url"
	"sicakap/pkg/errors"
	"sicakap/pkg/model"
)

const opRedaksi = "redaksi"

type RedaksiClient struct {
	httpClient *HttpClient
}

func NewRedaksiClient(httpClient *HttpClient) *RedaksiClient {
	return &RedaksiClient{httpClient: httpClient}
}

func (c *RedaksiClient) List(ctx context.Context, serviceCode string) ([]model.Redaksi, error) {
	path := "/redaksi"
	if serviceCode != "" {
		path += "?" + url.Values{"service_code": {serviceCode}}.Encode()
	}

	resp, err := c.httpClient.GET(ctx, path)
	if err := classify(opRedaksi, resp, err); err != nil {
		return nil, err
	}

	var templates []model.Redaksi
	if err := resp.DecodeJSON(&templates); err != nil {
		return nil, errors.Upstream(opRedaksi, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return templates, nil
}
