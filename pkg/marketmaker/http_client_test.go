package marketmaker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPOrderPlacer_PlaceOrder(t *testing.T) {
	var received placeOrderPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/books/BTC-USDT/orders" {
			t.Errorf("Expected path /books/BTC-USDT/orders, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order_id":"test-mm-buy-1-1","trades":[]}`))
	}))
	defer server.Close()

	placer, err := NewOrderPlacer(&Config{
		MatchbookHTTPAddr: server.URL,
		RequestTimeout:    time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("Failed to create order placer: %v", err)
	}
	defer placer.Close()

	err = placer.PlaceOrder(context.Background(), &OrderRequest{
		Book:     "BTC-USDT",
		OrderID:  "test-mm-buy-1-1",
		Side:     "BUY",
		Type:     "GTC",
		Price:    "49975.00000000",
		Quantity: "0.01",
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if received.OrderID != "test-mm-buy-1-1" {
		t.Errorf("Expected order id test-mm-buy-1-1, got %s", received.OrderID)
	}
	if received.Side != "BUY" || received.Type != "GTC" {
		t.Errorf("Unexpected side/type: %s/%s", received.Side, received.Type)
	}
	if received.Price != "49975.00000000" || received.Quantity != "0.01" {
		t.Errorf("Unexpected price/quantity: %s/%s", received.Price, received.Quantity)
	}
}

func TestHTTPOrderPlacer_PlaceOrder_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"duplicate order ID"}`))
	}))
	defer server.Close()

	placer, err := NewOrderPlacer(&Config{
		MatchbookHTTPAddr: server.URL,
		RequestTimeout:    time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("Failed to create order placer: %v", err)
	}
	defer placer.Close()

	err = placer.PlaceOrder(context.Background(), &OrderRequest{
		Book:     "BTC-USDT",
		OrderID:  "dup",
		Side:     "BUY",
		Type:     "GTC",
		Price:    "100",
		Quantity: "1",
	})
	if err == nil {
		t.Error("Expected error for rejected order, got nil")
	}
}

func TestHTTPOrderPlacer_CancelOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Expected DELETE, got %s", r.Method)
		}
		if r.URL.Path != "/books/BTC-USDT/orders/test-mm-buy-1-1" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	placer, err := NewOrderPlacer(&Config{
		MatchbookHTTPAddr: server.URL,
		RequestTimeout:    time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("Failed to create order placer: %v", err)
	}
	defer placer.Close()

	if err := placer.CancelOrder(context.Background(), "BTC-USDT", "test-mm-buy-1-1"); err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
}

func TestHTTPOrderPlacer_CancelOrder_AlreadyGone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"order not found"}`))
	}))
	defer server.Close()

	placer, err := NewOrderPlacer(&Config{
		MatchbookHTTPAddr: server.URL,
		RequestTimeout:    time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("Failed to create order placer: %v", err)
	}
	defer placer.Close()

	// A filled order is no longer on the book, cancel should not error
	if err := placer.CancelOrder(context.Background(), "BTC-USDT", "gone"); err != nil {
		t.Errorf("Expected nil error for missing order, got %v", err)
	}
}
