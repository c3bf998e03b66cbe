// Package payment generates invoices (boleto with pix) and installment plans (carnê).
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/studiolens/whatsapp-relay/internal/httpclient"
	"github.com/studiolens/whatsapp-relay/internal/models"
)

const dateLayout = "2006-01-02"

// Client calls the payment backend with an API key
type Client struct {
	http *httpclient.Client
}

func NewClient(baseURL, apiKey string, opts ...httpclient.Option) *Client {
	opts = append([]httpclient.Option{httpclient.WithHeader("Authorization", "Bearer "+apiKey)}, opts...)
	return &Client{http: httpclient.New("payment", baseURL, opts...)}
}

// InvoiceRequest asks for a single payment instrument
type InvoiceRequest struct {
	CustomerID  string
	Amount      float64
	Description string
	DueDate     time.Time
}

// InstallmentRequest asks for a carnê with monthly slips starting at FirstDueDate
type InstallmentRequest struct {
	CustomerID   string
	Amount       float64
	Description  string
	Installments int
	FirstDueDate time.Time
}

type invoicePayload struct {
	CustomerID  string  `json:"customerId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	DueDate     string  `json:"dueDate,omitempty"`
}

type installmentPayload struct {
	CustomerID   string  `json:"customerId"`
	Amount       float64 `json:"amount"`
	Description  string  `json:"description"`
	Installments int     `json:"installments"`
	FirstDueDate string  `json:"firstDueDate"`
}

// GenerateInvoice creates a boleto/pix invoice
func (c *Client) GenerateInvoice(ctx context.Context, req InvoiceRequest) (*models.Invoice, error) {
	if req.CustomerID == "" || req.Amount <= 0 {
		return nil, errors.New("generate invoice: customer and positive amount required")
	}

	payload := invoicePayload{
		CustomerID:  req.CustomerID,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if !req.DueDate.IsZero() {
		payload.DueDate = req.DueDate.Format(dateLayout)
	}

	var invoice models.Invoice
	if err := c.post(ctx, "/invoices", payload, &invoice); err != nil {
		return nil, fmt.Errorf("generate invoice: %w", err)
	}
	if invoice.Link == "" && invoice.Barcode == "" && invoice.PixCode == "" {
		return nil, errors.New("generate invoice: response carried no payment instrument")
	}
	if invoice.DueDate == "" {
		invoice.DueDate = payload.DueDate
	}
	return &invoice, nil
}

// GenerateInstallmentPlan creates a carnê
func (c *Client) GenerateInstallmentPlan(ctx context.Context, req InstallmentRequest) (*models.InstallmentPlan, error) {
	if req.CustomerID == "" || req.Amount <= 0 || req.Installments < 1 {
		return nil, errors.New("generate installment plan: customer, positive amount and installments required")
	}

	payload := installmentPayload{
		CustomerID:   req.CustomerID,
		Amount:       req.Amount,
		Description:  req.Description,
		Installments: req.Installments,
		FirstDueDate: req.FirstDueDate.Format(dateLayout),
	}

	var plan models.InstallmentPlan
	if err := c.post(ctx, "/installment-plans", payload, &plan); err != nil {
		return nil, fmt.Errorf("generate installment plan: %w", err)
	}
	if len(plan.Installments) == 0 {
		return nil, errors.New("generate installment plan: response carried no installments")
	}
	return &plan, nil
}

// post sends one idempotency key for all retries of the same call
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Header: http.Header{"Idempotency-Key": {uuid.NewString()}},
		Body:   body,
	}, out)
}
