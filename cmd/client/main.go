package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	serverAddr = flag.String("addr", "http://localhost:8080", "The server base URL")
)

type apiClient struct {
	base string
	http *http.Client
}

func (c *apiClient) do(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	os.Args = append(os.Args[:1], os.Args[2:]...)
	flag.Parse()
	args := flag.Args()

	client := &apiClient{
		base: *serverAddr,
		http: &http.Client{Timeout: 10 * time.Second},
	}

	var err error
	switch command {
	case "create-book":
		err = createBook(client, args)
	case "list-books":
		err = listBooks(client)
	case "delete-book":
		err = requireArgs(args, 1, "delete-book <book>", func() error {
			return client.do(http.MethodDelete, "/books/"+args[0], nil, nil)
		})
	case "create-order":
		err = createOrder(client, args)
	case "cancel-order":
		err = requireArgs(args, 2, "cancel-order <book> <id>", func() error {
			return client.do(http.MethodDelete, "/books/"+args[0]+"/orders/"+args[1], nil, nil)
		})
	case "modify-order":
		err = modifyOrder(client, args)
	case "depth":
		err = requireArgs(args, 1, "depth <book>", func() error {
			return printDepth(client, args[0])
		})
	case "size":
		err = requireArgs(args, 1, "size <book>", func() error {
			var resp struct {
				Size int `json:"size"`
			}
			if err := client.do(http.MethodGet, "/books/"+args[0]+"/size", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("%d resting orders\n", resp.Size)
			return nil
		})
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("Command failed")
	}
}

func requireArgs(args []string, n int, usage string, fn func() error) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return fn()
}

func createBook(client *apiClient, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: create-book <name> [backend]")
	}
	backend := "memory"
	if len(args) > 1 {
		backend = args[1]
	}

	var info struct {
		Name    string `json:"name"`
		Backend string `json:"backend"`
	}
	err := client.do(http.MethodPost, "/books", map[string]string{
		"name":    args[0],
		"backend": backend,
	}, &info)
	if err != nil {
		return err
	}

	fmt.Printf("Created order book %q (%s backend)\n", info.Name, info.Backend)
	return nil
}

func listBooks(client *apiClient) error {
	var books []struct {
		Name      string    `json:"name"`
		Backend   string    `json:"backend"`
		CreatedAt time.Time `json:"created_at"`
	}
	if err := client.do(http.MethodGet, "/books", nil, &books); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBACKEND\tCREATED")
	for _, b := range books {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Name, b.Backend, b.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func createOrder(client *apiClient, args []string) error {
	if len(args) < 5 {
		return fmt.Errorf("usage: create-order <book> <id> <buy|sell> <price> <quantity> [gtc|ioc]")
	}

	orderType := "GTC"
	if len(args) > 5 {
		orderType = args[5]
	}

	var resp struct {
		OrderID string `json:"order_id"`
		Trades  []struct {
			Bid struct {
				OrderID  string `json:"orderID"`
				Price    string `json:"price"`
				Quantity string `json:"quantity"`
			} `json:"bid"`
			Ask struct {
				OrderID  string `json:"orderID"`
				Price    string `json:"price"`
				Quantity string `json:"quantity"`
			} `json:"ask"`
		} `json:"trades"`
	}
	err := client.do(http.MethodPost, "/books/"+args[0]+"/orders", map[string]string{
		"order_id": args[1],
		"side":     args[2],
		"price":    args[3],
		"quantity": args[4],
		"type":     orderType,
	}, &resp)
	if err != nil {
		return err
	}

	if len(resp.Trades) == 0 {
		fmt.Printf("Order %s accepted, no trades\n", resp.OrderID)
		return nil
	}

	green := color.New(color.FgGreen).SprintfFunc()
	for _, trade := range resp.Trades {
		fmt.Println(green("trade: bid %s @ %s / ask %s @ %s, qty %s",
			trade.Bid.OrderID, trade.Bid.Price,
			trade.Ask.OrderID, trade.Ask.Price,
			trade.Bid.Quantity))
	}
	return nil
}

func modifyOrder(client *apiClient, args []string) error {
	if len(args) < 5 {
		return fmt.Errorf("usage: modify-order <book> <id> <buy|sell> <price> <quantity>")
	}

	err := client.do(http.MethodPut, "/books/"+args[0]+"/orders/"+args[1], map[string]string{
		"side":     args[2],
		"price":    args[3],
		"quantity": args[4],
	}, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Order %s modified\n", args[1])
	return nil
}

func printDepth(client *apiClient, book string) error {
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
	if err := client.do(http.MethodGet, "/books/"+book+"/depth", nil, &depth); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	fmt.Println(cyan("Order book: %s", book))
	fmt.Println(red("Asks (low to high):"))
	for i := len(depth.Asks) - 1; i >= 0; i-- {
		fmt.Println(red("  %s x %s", depth.Asks[i].Price, depth.Asks[i].Quantity))
	}
	fmt.Println(green("Bids (high to low):"))
	for _, level := range depth.Bids {
		fmt.Println(green("  %s x %s", level.Price, level.Quantity))
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: client [flags] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  create-book <name> [backend]")
	fmt.Println("  list-books")
	fmt.Println("  delete-book <book>")
	fmt.Println("  create-order <book> <id> <buy|sell> <price> <quantity> [gtc|ioc]")
	fmt.Println("  modify-order <book> <id> <buy|sell> <price> <quantity>")
	fmt.Println("  cancel-order <book> <id>")
	fmt.Println("  depth <book>")
	fmt.Println("  size <book>")
}
