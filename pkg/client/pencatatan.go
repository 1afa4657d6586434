package client

import (
	"context"
	"fmt"
	"net/url"
	"sicakap/pkg/errors"
	"sicakap/pkg/model"
	"strconv"
)

const opPencatatan = "pencatatan"

// PencatatanClient is the registry's record store.
type PencatatanClient struct {
	httpClient *HttpClient
}

func NewPencatatanClient(httpClient *HttpClient) *PencatatanClient {
	return &PencatatanClient{httpClient: httpClient}
}

func (c *PencatatanClient) Create(ctx context.Context, record *model.Record) (int, error) {
	resp, err := c.httpClient.POST(ctx, "/pencatatan", record)
	if err := classify(opPencatatan, resp, err); err != nil {
		return 0, err
	}

	var result model.CreatedResult
	if err := resp.DecodeJSON(&result); err != nil {
		return 0, errors.Upstream(opPencatatan, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return result.ID, nil
}

func (c *PencatatanClient) List(ctx context.Context, filter model.RecordFilter) ([]model.Record, error) {
	q := url.Values{}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.ServiceCode != "" {
		q.Set("service_code", filter.ServiceCode)
	}
	if filter.StartDate != "" {
		q.Set("start_date", filter.StartDate)
	}
	if filter.EndDate != "" {
		q.Set("end_date", filter.EndDate)
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(filter.PerPage))
	}

	path := "/pencatatan"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := c.httpClient.GET(ctx, path)
	if err := classify(opPencatatan, resp, err); err != nil {
		return nil, err
	}

	var records []model.Record
	if err := resp.DecodeJSON(&records); err != nil {
		return nil, errors.Upstream(opPencatatan, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return records, nil
}

func (c *PencatatanClient) GetByID(ctx context.Context, id int) (*model.Record, error) {
	resp, err := c.httpClient.GET(ctx, "/pencatatan/"+strconv.Itoa(id))
	if err != nil {
		return nil, errors.NetworkFailure(opPencatatan, err)
	}
	if resp.StatusCode == 404 {
		return nil, errors.NotFound("Record")
	}
	if err := classify(opPencatatan, resp, nil); err != nil {
		return nil, err
	}

	var record model.Record
	if err := resp.DecodeJSON(&record); err != nil {
		return nil, errors.Upstream(opPencatatan, resp.StatusCode, fmt.Sprintf("malformed response: %v", err))
	}
	return &record, nil
}

func (c *PencatatanClient) Update(ctx context.Context, id int, record *model.Record) error {
	resp, err := c.httpClient.PUT(ctx, "/pencatatan/"+strconv.Itoa(id), record)
	return classify(opPencatatan, resp, err)
}

func (c *PencatatanClient) Delete(ctx context.Context, id int) error {
	resp, err := c.httpClient.DELETE(ctx, "/pencatatan/"+strconv.Itoa(id))
	return classify(opPencatatan, resp, err)
}
