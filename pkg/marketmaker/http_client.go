package marketmaker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// httpOrderPlacer implements OrderPlacer against the matching engine's REST API
type httpOrderPlacer struct {
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

type placeOrderPayload struct {
	OrderID  string `json:"order_id"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
}

// NewOrderPlacer creates an OrderPlacer that submits orders over HTTP
func NewOrderPlacer(cfg *Config, logger *slog.Logger) (OrderPlacer, error) {
	return &httpOrderPlacer{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		logger:  logger.With("component", "httpOrderPlacer"),
		baseURL: strings.TrimRight(cfg.MatchbookHTTPAddr, "/"),
	}, nil
}

// PlaceOrder implements OrderPlacer
func (p *httpOrderPlacer) PlaceOrder(ctx context.Context, order *OrderRequest) error {
	payload := placeOrderPayload{
		OrderID:  order.OrderID,
		Side:     order.Side,
		Type:     order.Type,
		Price:    order.Price,
		Quantity: order.Quantity,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	endpoint := fmt.Sprintf("%s/books/%s/orders", p.baseURL, url.PathEscape(order.Book))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("order rejected: %s", readAPIError(resp.Body, resp.StatusCode))
	}

	return nil
}

// CancelOrder implements OrderPlacer
func (p *httpOrderPlacer) CancelOrder(ctx context.Context, book, orderID string) error {
	endpoint := fmt.Sprintf("%s/books/%s/orders/%s",
		p.baseURL, url.PathEscape(book), url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("cancel request failed: %w", err)
	}
	defer resp.Body.Close()

	// A fully filled order is already gone, treat that as a successful cancel
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("cancel rejected: %s", readAPIError(resp.Body, resp.StatusCode))
	}

	return nil
}

// Close implements OrderPlacer
func (p *httpOrderPlacer) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func readAPIError(body io.Reader, status int) string {
	var apiErr apiErrorResponse
	if err := json.NewDecoder(body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return fmt.Sprintf("%s (status %d)", apiErr.Error, status)
	}
	return fmt.Sprintf("status %d", status)
}
