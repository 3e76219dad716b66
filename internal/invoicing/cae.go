package invoicing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CAEClient obtains the electronic authorization code for an invoice.
type CAEClient interface {
	Authorize(ctx context.Context, inv *Invoice) (cae string, dueDate time.Time, err error)
}

// TaxAuthorityClient talks to the tax authority's authorization endpoint.
// With an empty base URL it degrades to a local stub that fabricates codes,
// which is how development and test environments run.
type TaxAuthorityClient struct {
	baseURL string
	client  *http.Client
}

// NewTaxAuthorityClient constructs the client.
func NewTaxAuthorityClient(baseURL string) *TaxAuthorityClient {
	return &TaxAuthorityClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type authorizeRequest struct {
	Number string  `json:"number"`
	CUIT   string  `json:"cuit"`
	Total  float64 `json:"total"`
}

type authorizeResponse struct {
	CAE     string `json:"cae"`
	DueDate string `json:"due_date"`
}

// Authorize requests a CAE. Errors are returned as-is so asynq retries the
// task with backoff.
func (c *TaxAuthorityClient) Authorize(ctx context.Context, inv *Invoice) (string, time.Time, error) {
	if c.baseURL == "" {
		return c.stub(inv)
	}

	body, err := json.Marshal(authorizeRequest{Number: inv.Number, CUIT: inv.ClientCUIT, Total: inv.FinalTotal})
	if err != nil {
		return "", time.Time{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/authorize", bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("tax authority returned %d", resp.StatusCode)
	}

	var out authorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", time.Time{}, err
	}
	dueDate, err := time.Parse("2006-01-02", out.DueDate)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("bad due date %q: %w", out.DueDate, err)
	}
	return out.CAE, dueDate, nil
}

func (c *TaxAuthorityClient) stub(inv *Invoice) (string, time.Time, error) {
	now := time.Now().UTC()
	cae := fmt.Sprintf("%04d%010d", now.Year(), inv.ID)
	return cae, now.AddDate(0, 0, 10), nil
}
