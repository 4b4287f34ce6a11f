package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"golang.org/x/time/rate"
)

var (
	serverAddr      = flag.String("addr", "http://localhost:8080", "server base URL")
	numWorkers      = flag.Int("workers", 50, "number of concurrent workers")
	ordersPerWorker = flag.Int("orders", 200, "orders submitted per worker")
	maxRPS          = flag.Int("rps", 1000, "request rate limit")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, cleaning up...")
		cancel()
	}()

	client := &http.Client{Timeout: 10 * time.Second}

	bookName := "load-test-order-book"
	if err := createBook(ctx, client, bookName); err != nil {
		log.Fatalf("Failed to create order book: %v", err)
	}
	log.Printf("Created order book: %s", bookName)

	limiter := rate.NewLimiter(rate.Limit(*maxRPS), *maxRPS)

	// Track request latency from 1us to 10s at 3 significant digits.
	hist := hdrhistogram.New(1, 10_000_000, 3)
	var histMu sync.Mutex

	var wg sync.WaitGroup
	errChan := make(chan error, (*numWorkers)*(*ordersPerWorker))

	start := time.Now()
	log.Printf("Starting %d workers, %d orders per worker...", *numWorkers, *ordersPerWorker)

	for i := 0; i < *numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(workerID)))

			for j := 0; j < *ordersPerWorker; j++ {
				if err := limiter.Wait(ctx); err != nil {
					errChan <- fmt.Errorf("rate limiter error: %v", err)
					return
				}

				reqStart := time.Now()
				err := submitRandomOrder(ctx, client, bookName, rng, workerID*(*ordersPerWorker)+j)
				elapsed := time.Since(reqStart)

				histMu.Lock()
				_ = hist.RecordValue(elapsed.Microseconds())
				histMu.Unlock()

				if err != nil {
					errChan <- err
				}
			}
		}(i)
	}

	wg.Wait()
	duration := time.Since(start)
	close(errChan)

	var errors []error
	for err := range errChan {
		errors = append(errors, err)
	}

	total := (*numWorkers) * (*ordersPerWorker)
	log.Printf("Load test completed in %v", duration)
	log.Printf("Total orders attempted: %d (%.0f orders/sec)", total, float64(total)/duration.Seconds())
	log.Printf("Errors encountered: %d", len(errors))
	log.Printf("Latency p50: %v, p95: %v, p99: %v, max: %v",
		time.Duration(hist.ValueAtQuantile(50))*time.Microsecond,
		time.Duration(hist.ValueAtQuantile(95))*time.Microsecond,
		time.Duration(hist.ValueAtQuantile(99))*time.Microsecond,
		time.Duration(hist.Max())*time.Microsecond)

	if err := deleteBook(context.Background(), client, bookName); err != nil {
		log.Printf("Failed to delete order book: %v", err)
	} else {
		log.Printf("Successfully deleted order book: %s", bookName)
	}

	if len(errors) > 0 {
		log.Printf("First error: %v", errors[0])
		os.Exit(1)
	}
}

func createBook(ctx context.Context, client *http.Client, name string) error {
	return postJSON(ctx, client, *serverAddr+"/books", map[string]string{"name": name})
}

func deleteBook(ctx context.Context, client *http.Client, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, *serverAddr+"/books/"+name, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("delete book: %s", resp.Status)
	}
	return nil
}

func submitRandomOrder(ctx context.Context, client *http.Client, book string, rng *rand.Rand, seq int) error {
	side := "buy"
	if rng.Intn(2) == 1 {
		side = "sell"
	}
	price := 95.0 + rng.Float64()*10.0
	qty := 1.0 + rng.Float64()*9.0

	return postJSON(ctx, client, fmt.Sprintf("%s/books/%s/orders", *serverAddr, book), map[string]string{
		"order_id": fmt.Sprintf("load-%d", seq),
		"side":     side,
		"price":    fmt.Sprintf("%.3f", price),
		"quantity": fmt.Sprintf("%.3f", qty),
	})
}

func postJSON(ctx context.Context, client *http.Client, url string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	return nil
}
