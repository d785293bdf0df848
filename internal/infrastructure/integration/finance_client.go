// Package integration talks to the external finance system.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/erp/quoting/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseSize = 1 << 20

// ErrFinanceRequestFailed is returned when the finance system answers with an error status
var ErrFinanceRequestFailed = errors.New("finance: request failed")

// quoteRequest is the body posted to the finance system
type quoteRequest struct {
	QuoteID   uuid.UUID   `json:"quote_id"`
	TenantID  uuid.UUID   `json:"tenant_id"`
	AccountID *uuid.UUID  `json:"account_id,omitempty"`
	LeadID    *uuid.UUID  `json:"lead_id,omitempty"`
	Term      int         `json:"term"`
	Items     []quoteLine `json:"items"`
}

type quoteLine struct {
	CatalogItemID *uuid.UUID      `json:"catalog_item_id,omitempty"`
	Qty           decimal.Decimal `json:"qty"`
	Price         decimal.Decimal `json:"price"`
	Addons        decimal.Decimal `json:"addons"`
	Financed      bool            `json:"financed"`
}

type taxResponse struct {
	Tax *decimal.Decimal `json:"tax"`
}

// FinanceClient computes quote tax through the finance system's HTTP API
type FinanceClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFinanceClient creates a client for baseURL. Requests are traced.
func NewFinanceClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *FinanceClient {
	return &FinanceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// TaxByQuote implements appquoting.FinanceIntegration
func (c *FinanceClient) TaxByQuote(ctx context.Context, q *quoting.Quote) (decimal.Decimal, error) {
	var out taxResponse
	if err := c.post(ctx, fmt.Sprintf("/quotes/%s/tax", q.ID), newQuoteRequest(q), &out); err != nil {
		return decimal.Zero, err
	}
	if out.Tax == nil {
		return decimal.Zero, fmt.Errorf("finance: response has no tax amount")
	}
	if out.Tax.IsNegative() {
		return decimal.Zero, fmt.Errorf("finance: negative tax amount %s", out.Tax)
	}
	return *out.Tax, nil
}

// ByQuote implements appquoting.MarginAnalyzer using the finance system's
// profitability analysis
func (c *FinanceClient) ByQuote(ctx context.Context, q *quoting.Quote, _ catalog.Refs) (*quoting.Margin, error) {
	var out quoting.Margin
	if err := c.post(ctx, fmt.Sprintf("/quotes/%s/margin", q.ID), newQuoteRequest(q), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func newQuoteRequest(q *quoting.Quote) quoteRequest {
	body := quoteRequest{
		QuoteID:   q.ID,
		TenantID:  q.TenantID,
		AccountID: q.AccountID,
		LeadID:    q.LeadID,
		Term:      q.Term,
		Items:     make([]quoteLine, 0, len(q.Items)),
	}
	for _, item := range q.Items {
		body.Items = append(body.Items, quoteLine{
			CatalogItemID: item.CatalogItemID,
			Qty:           item.Qty,
			Price:         item.Price,
			Addons:        item.AddonTotal,
			Financed:      item.IsFinanced(),
		})
	}
	return body
}

// post sends body as JSON to path and decodes the answer into out
func (c *FinanceClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("finance: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("finance: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrIntegrationUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("finance: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		c.logger.Debug("Finance system rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data))
		return fmt.Errorf("%w: HTTP %d", ErrFinanceRequestFailed, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("finance: malformed response: %w", err)
	}
	return nil
}

// Disabled is used when no finance system is configured
type Disabled struct{}

// TaxByQuote implements appquoting.FinanceIntegration
func (Disabled) TaxByQuote(context.Context, *quoting.Quote) (decimal.Decimal, error) {
	return decimal.Zero, shared.ErrIntegrationUnavailable
}

// ByQuote implements appquoting.MarginAnalyzer
func (Disabled) ByQuote(context.Context, *quoting.Quote, catalog.Refs) (*quoting.Margin, error) {
	return nil, shared.ErrIntegrationUnavailable
}

// FinanceSystem is both ports served by the finance system
type FinanceSystem interface {
	appquoting.FinanceIntegration
	appquoting.MarginAnalyzer
}

// NewFinanceIntegration returns the HTTP client when the integration is enabled
func NewFinanceIntegration(cfg config.QuotingConfig, logger *zap.Logger) FinanceSystem {
	if !cfg.IntegrationEnabled {
		return Disabled{}
	}
	return NewFinanceClient(cfg.IntegrationURL, cfg.IntegrationToken, cfg.IntegrationTimeout, logger)
}

var (
	_ appquoting.FinanceIntegration = (*FinanceClient)(nil)
	_ appquoting.FinanceIntegration = Disabled{}
	_ appquoting.MarginAnalyzer     = (*FinanceClient)(nil)
	_ appquoting.MarginAnalyzer     = Disabled{}
)
