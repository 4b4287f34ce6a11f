package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/nikolaydubina/fpdecimal"
)

func BenchmarkAddRestingOrders(b *testing.B) {
	book := newBook()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		price := fpdecimal.FromFloat(100.0 + float64(i%50))
		order, _ := NewOrder(TypeGTC, fmt.Sprintf("bid-%d", i), Buy, price, fpdecimal.FromFloat(1.0))
		_, _ = book.AddOrder(ctx, order)
	}
}

func BenchmarkMatchCrossingOrders(b *testing.B) {
	book := newBook()
	ctx := context.Background()
	price := fpdecimal.FromFloat(100.0)
	qty := fpdecimal.FromFloat(1.0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bid, _ := NewOrder(TypeGTC, fmt.Sprintf("bid-%d", i), Buy, price, qty)
		_, _ = book.AddOrder(ctx, bid)
		ask, _ := NewOrder(TypeGTC, fmt.Sprintf("ask-%d", i), Sell, price, qty)
		_, _ = book.AddOrder(ctx, ask)
	}
}

func BenchmarkCancelOrder(b *testing.B) {
	book := newBook()
	ctx := context.Background()
	price := fpdecimal.FromFloat(100.0)
	qty := fpdecimal.FromFloat(1.0)

	for i := 0; i < b.N; i++ {
		order, _ := NewOrder(TypeGTC, fmt.Sprintf("o-%d", i), Buy, price, qty)
		_, _ = book.AddOrder(ctx, order)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = book.CancelOrder(ctx, fmt.Sprintf("o-%d", i))
	}
}
