package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cesargomez89/fetchpay/internal/httpclient"
)

// Provider talks to the crypto payment API used for USD-denominated
// top-ups.
type Provider struct {
	client  *httpclient.Client
	baseURL string
	token   string
}

func NewProvider(baseURL, token string) *Provider {
	return &Provider{
		client:  httpclient.NewClient(nil),
		baseURL: baseURL,
		token:   token,
	}
}

// ProviderInvoice is the provider's view of an invoice.
type ProviderInvoice struct {
	ID     string `json:"invoice_id"`
	PayURL string `json:"pay_url"`
	Status string `json:"status"`
}

type apiResponse struct {
	OK     bool            `json:"ok"`
	Result ProviderInvoice `json:"result"`
}

type createInvoiceRequest struct {
	CurrencyType string `json:"currency_type"`
	Fiat         string `json:"fiat"`
	Amount       string `json:"amount"`
	Description  string `json:"description"`
}

// CreateInvoice opens an invoice for the given USD amount and returns the
// provider's invoice ID and payment URL.
func (p *Provider) CreateInvoice(ctx context.Context, amountUSD float64, description string) (*ProviderInvoice, error) {
	body := createInvoiceRequest{
		CurrencyType: "fiat",
		Fiat:         "USD",
		Amount:       strconv.FormatFloat(amountUSD, 'f', 2, 64),
		Description:  description,
	}
	resp, err := p.call(ctx, http.MethodPost, "/createInvoice", body)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetInvoice fetches the current state of an invoice from the provider.
func (p *Provider) GetInvoice(ctx context.Context, externalID string) (*ProviderInvoice, error) {
	return p.call(ctx, http.MethodGet, "/getInvoice?invoice_id="+externalID, nil)
}

func (p *Provider) call(ctx context.Context, method, route string, payload any) (*ProviderInvoice, error) {
	var reqBody *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, p.baseURL+route, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Crypto-Pay-API-Token", p.token)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("payment provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("payment provider rejected request")
	}
	return &parsed.Result, nil
}
