package client

import (
	"context"
	"fmt"
	"sicakap/pkg/errors"
	"sicakap/pkg/model"
)

const (
	opBook       = "book"
	opRelease    = "release"
	opConfirm    = "confirm"
	opSwitchDate = "switch-date"
	opSettings   = "settings"
	opReset      = "reset"
	opStatistics = "date-statistics"
)

// RegistryClient is the typed view of the registry's registration-number allocator.
type RegistryClient struct {
	httpClient *HttpClient
}

func NewRegistryClient(httpClient *HttpClient) *RegistryClient {
	return &RegistryClient{httpClient: httpClient}
}

// Book reserves the next free number for the registry's active date.
// Exhaustion is reported as ALLOCATION_EXHAUSTED without a date; the caller knows which date it asked for.
func (c *RegistryClient) Book(ctx context.Context) (*model.BookResult, error) {
	resp, err := c.httpClient.POST(ctx, "/book-reg-number", struct{}{})
	if err != nil {
		return nil, errors.NetworkFailure(opBook, err)
	}
	if isExhaustion(resp) {
		return nil, errors.AllocationExhausted("", GetErrorMessage(resp))
	}
	if err := classify(opBook, resp, nil); err != nil {
		return nil, err
	}

	var result model.BookResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, errors.Upstream(opBook, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	if result.RegNumber <= 0 {
		return nil, errors.AllocationExhausted("", result.Error)
	}
	if result.Status != model.BookStatusExisting {
		result.Status = model.BookStatusNew
	}
	return &result, nil
}

func (c *RegistryClient) Release(ctx context.Context, regNumber int) error {
	resp, err := c.httpClient.POST(ctx, "/release-reg-number", model.RegNumberRequest{RegNumber: regNumber})
	return classify(opRelease, resp, err)
}

func (c *RegistryClient) Confirm(ctx context.Context, regNumber int) error {
	resp, err := c.httpClient.POST(ctx, "/confirm-reg-number", model.RegNumberRequest{RegNumber: regNumber})
	return classify(opConfirm, resp, err)
}

func (c *RegistryClient) SwitchDate(ctx context.Context, date model.SystemDate) (*model.SwitchDateResult, error) {
	resp, err := c.httpClient.POST(ctx, "/switch-date", model.SwitchDateRequest{Date: date})
	if err := classify(opSwitchDate, resp, err); err != nil {
		return nil, err
	}

	var result model.SwitchDateResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, errors.Upstream(opSwitchDate, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	if result.CurrentDate.IsZero() {
		result.CurrentDate = date
	}
	return &result, nil
}

func (c *RegistryClient) Settings(ctx context.Context) (*model.RegistrationRange, error) {
	resp, err := c.httpClient.GET(ctx, "/settings")
	if err := classify(opSettings, resp, err); err != nil {
		return nil, err
	}

	var rng model.RegistrationRange
	if err := resp.DecodeJSON(&rng); err != nil {
		return nil, errors.Upstream(opSettings, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return &rng, nil
}

func (c *RegistryClient) UpdateSettings(ctx context.Context, update model.RangeUpdate) error {
	resp, err := c.httpClient.POST(ctx, "/settings", update)
	return classify(opSettings, resp, err)
}

func (c *RegistryClient) DateStatistics(ctx context.Context) ([]model.DateStatistic, error) {
	resp, err := c.httpClient.GET(ctx, "/date-statistics")
	if err := classify(opStatistics, resp, err); err != nil {
		return nil, err
	}

	var stats []model.DateStatistic
	if err := resp.DecodeJSON(&stats); err != nil {
		return nil, errors.Upstream(opStatistics, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return stats, nil
}

// ResetNumbers clears every outstanding booking on the registry.
func (c *RegistryClient) ResetNumbers(ctx context.Context) error {
	resp, err := c.httpClient.POST(ctx, "/reset-numbers", struct{}{})
	return classify(opReset, resp, err)
}

// ResetDaily clears the outstanding bookings of the registry's active date.
func (c *RegistryClient) ResetDaily(ctx context.Context) error {
	resp, err := c.httpClient.POST(ctx, "/reset-daily-numbers", struct{}{})
	return classify(opReset, resp, err)
}
