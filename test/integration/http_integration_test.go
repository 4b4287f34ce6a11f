package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidechain/matchbook/pkg/db/queue"
	"github.com/tidechain/matchbook/pkg/messaging"
	"github.com/tidechain/matchbook/pkg/server"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	queue.SetSenderFactory(func() (messaging.MessageSender, error) {
		return messaging.NewMockMessageSender(), nil
	})
	os.Exit(m.Run())
}

// setupHTTPTest starts an in-process HTTP server backed by a fresh manager.
func setupHTTPTest(tb testing.TB) (*httptest.Server, func()) {
	tb.Helper()

	manager := server.NewOrderBookManager()
	srv := httptest.NewServer(server.NewHTTPService(manager).Router())

	cleanup := func() {
		srv.Close()
		manager.Close()
	}
	return srv, cleanup
}

func postJSON(tb testing.TB, url string, body interface{}) *http.Response {
	tb.Helper()

	payload, err := json.Marshal(body)
	require.NoError(tb, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(tb, err)
	return resp
}

func decodeBody(tb testing.TB, resp *http.Response, out interface{}) {
	tb.Helper()
	defer resp.Body.Close()
	require.NoError(tb, json.NewDecoder(resp.Body).Decode(out))
}

func TestHTTPOrderLifecycle(t *testing.T) {
	srv, cleanup := setupHTTPTest(t)
	defer cleanup()

	// Create an order book on the memory backend
	resp := postJSON(t, srv.URL+"/books", map[string]string{"name": "BTC-USD"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Rest a sell order
	resp = postJSON(t, srv.URL+"/books/BTC-USD/orders", map[string]string{
		"order_id": "sell-1",
		"side":     "SELL",
		"type":     "GTC",
		"price":    "100.0",
		"quantity": "2.0",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var restResp struct {
		OrderID string            `json:"order_id"`
		Trades  []json.RawMessage `json:"trades"`
	}
	decodeBody(t, resp, &restResp)
	assert.Equal(t, "sell-1", restResp.OrderID)
	assert.Empty(t, restResp.Trades)

	// Cross it with a buy
	resp = postJSON(t, srv.URL+"/books/BTC-USD/orders", map[string]string{
		"order_id": "buy-1",
		"side":     "BUY",
		"type":     "GTC",
		"price":    "101.0",
		"quantity": "1.5",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var matchResp struct {
		OrderID string `json:"order_id"`
		Trades  []struct {
			Bid struct {
				OrderID  string `json:"orderID"`
				Price    string `json:"price"`
				Quantity string `json:"quantity"`
			} `json:"bid"`
			Ask struct {
				OrderID string `json:"orderID"`
				Price   string `json:"price"`
			} `json:"ask"`
		} `json:"trades"`
	}
	decodeBody(t, resp, &matchResp)
	require.Len(t, matchResp.Trades, 1)
	assert.Equal(t, "buy-1", matchResp.Trades[0].Bid.OrderID)
	assert.Equal(t, "sell-1", matchResp.Trades[0].Ask.OrderID)

	// Each side trades at its own resting price
	askPrice, err := fpdecimal.FromString(matchResp.Trades[0].Ask.Price)
	require.NoError(t, err)
	assert.Equal(t, fpdecimal.FromFloat(100.0), askPrice)

	tradedQty, err := fpdecimal.FromString(matchResp.Trades[0].Bid.Quantity)
	require.NoError(t, err)
	assert.Equal(t, fpdecimal.FromFloat(1.5), tradedQty)

	// The sell remainder stays on the book
	resp, err = http.Get(srv.URL + "/books/BTC-USD/depth")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var depth struct {
		Bids []struct {
			Price    string `json:"price"`
			Quantity string `json:"quantity"`
		} `json:"bids"`
		Asks []struct {
			Price    string `json:"price"`
			Quantity string `json:"quantity"`
		} `json:"asks"`
	}
	decodeBody(t, resp, &depth)
	assert.Empty(t, depth.Bids)
	require.Len(t, depth.Asks, 1)

	remaining, err := fpdecimal.FromString(depth.Asks[0].Quantity)
	require.NoError(t, err)
	assert.Equal(t, fpdecimal.FromFloat(0.5), remaining)

	// Cancel the remainder
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/books/BTC-USD/orders/sell-1", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	var size struct {
		Size int `json:"size"`
	}
	resp, err = http.Get(srv.URL + "/books/BTC-USD/size")
	require.NoError(t, err)
	decodeBody(t, resp, &size)
	assert.Equal(t, 0, size.Size)
}

func TestHTTPDuplicateOrderRejected(t *testing.T) {
	srv, cleanup := setupHTTPTest(t)
	defer cleanup()

	resp := postJSON(t, srv.URL+"/books", map[string]string{"name": "ETH-USD"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	order := map[string]string{
		"order_id": "order-1",
		"side":     "BUY",
		"price":    "50.0",
		"quantity": "1.0",
	}

	resp = postJSON(t, srv.URL+"/books/ETH-USD/orders", order)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/books/ETH-USD/orders", order)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestHTTPImmediateOrCancelNeverRests(t *testing.T) {
	srv, cleanup := setupHTTPTest(t)
	defer cleanup()

	resp := postJSON(t, srv.URL+"/books", map[string]string{"name": "SOL-USD"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// IOC against an empty book is rejected without touching the book
	resp = postJSON(t, srv.URL+"/books/SOL-USD/orders", map[string]string{
		"order_id": "ioc-1",
		"side":     "BUY",
		"type":     "IOC",
		"price":    "10.0",
		"quantity": "1.0",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var iocResp struct {
		Trades []json.RawMessage `json:"trades"`
	}
	decodeBody(t, resp, &iocResp)
	assert.Empty(t, iocResp.Trades)

	var size struct {
		Size int `json:"size"`
	}
	resp, err := http.Get(srv.URL + "/books/SOL-USD/size")
	require.NoError(t, err)
	decodeBody(t, resp, &size)
	assert.Equal(t, 0, size.Size)

	// The id stays free for reuse
	resp = postJSON(t, srv.URL+"/books/SOL-USD/orders", map[string]string{
		"order_id": "ioc-1",
		"side":     "BUY",
		"type":     "GTC",
		"price":    "10.0",
		"quantity": "1.0",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestHTTPModifyOrder(t *testing.T) {
	srv, cleanup := setupHTTPTest(t)
	defer cleanup()

	resp := postJSON(t, srv.URL+"/books", map[string]string{"name": "BTC-USD"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/books/BTC-USD/orders", map[string]string{
		"order_id": "buy-1",
		"side":     "BUY",
		"price":    "90.0",
		"quantity": "1.0",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	payload, err := json.Marshal(map[string]string{
		"side":     "BUY",
		"price":    "95.0",
		"quantity": "2.0",
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut,
		srv.URL+"/books/BTC-USD/orders/buy-1", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/books/BTC-USD/depth")
	require.NoError(t, err)

	var depth struct {
		Bids []struct {
			Price    string `json:"price"`
			Quantity string `json:"quantity"`
		} `json:"bids"`
	}
	decodeBody(t, resp, &depth)
	require.Len(t, depth.Bids, 1)

	price, err := fpdecimal.FromString(depth.Bids[0].Price)
	require.NoError(t, err)
	assert.Equal(t, fpdecimal.FromFloat(95.0), price)
}

func TestHTTPUnknownBook(t *testing.T) {
	srv, cleanup := setupHTTPTest(t)
	defer cleanup()

	for _, path := range []string{"/books/missing/depth", "/books/missing/size"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, fmt.Sprintf("GET %s", path))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	}
}
