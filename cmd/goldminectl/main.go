// goldminectl is a CLI client for the gateway: submit/cancel orders
// against a BrokerServer, or watch a live tick stream from a
// QuoteSource, over the same wire protocol the gateway's own clients
// use (spec.md §4.6/§4.8) rather than a side-channel HTTP API.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/broker"
	"github.com/rishav/goldmine/internal/fixedpoint"
	"github.com/rishav/goldmine/internal/model"
	"github.com/rishav/goldmine/internal/quotesource"
	"github.com/rishav/goldmine/internal/transport"
)

const submitWait = 3 * time.Second

const defaultBrokerAddr = "tcp://127.0.0.1:7891"
const defaultQuoteSourceAddr = "tcp://127.0.0.1:7890"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "submit":
		cmd := flag.NewFlagSet("submit", flag.ExitOnError)
		addr := cmd.String("broker", defaultBrokerAddr, "BrokerServer address")
		symbol := cmd.String("symbol", "AAPL", "security symbol")
		side := cmd.String("side", "buy", "buy or sell")
		typ := cmd.String("type", "limit", "market or limit")
		price := cmd.String("price", "150.00", "limit price")
		qty := cmd.Int64("qty", 100, "quantity")
		account := cmd.String("account", "TRADER1", "account id")
		cmd.Parse(os.Args[2:])
		submitOrder(*addr, *symbol, *side, *typ, *price, *qty, *account)

	case "cancel":
		cmd := flag.NewFlagSet("cancel", flag.ExitOnError)
		addr := cmd.String("broker", defaultBrokerAddr, "BrokerServer address")
		clientID := cmd.Uint64("id", 0, "client-assigned order id to cancel")
		account := cmd.String("account", "TRADER1", "account id")
		cmd.Parse(os.Args[2:])
		cancelOrder(*addr, *clientID, *account)

	case "watch":
		cmd := flag.NewFlagSet("watch", flag.ExitOnError)
		addr := cmd.String("quotesource", defaultQuoteSourceAddr, "QuoteSource address")
		tickers := cmd.String("symbols", "AAPL", "comma-separated symbols to subscribe to")
		cmd.Parse(os.Args[2:])
		watchTicks(*addr, *tickers)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`goldminectl - gateway CLI client

Usage:
  goldminectl <command> [options]

Commands:
  submit   Submit a new order to a BrokerServer
  cancel   Cancel an order; the server only finds orders submitted on the
           same connection, and each goldminectl run opens a new one
  watch    Subscribe to a QuoteSource tick stream and print ticks

Examples:
  goldminectl submit -symbol AAPL -side buy -type limit -price 150.00 -qty 100 -account TRADER1
  goldminectl cancel -id 1 -account TRADER1
  goldminectl watch -symbols AAPL,MSFT`)
}

// orderPrinter is a throwaway ClientReactor: it prints every callback
// and signals done once the submitted order reaches a terminal state.
type orderPrinter struct {
	done chan struct{}
}

func (p *orderPrinter) OnOrder(o *model.Order) {
	fmt.Printf("order %d (client_id=%d) -> %s", o.LocalID, o.ClientAssignedID, o.State)
	if o.Message != "" {
		fmt.Printf(" (%s)", o.Message)
	}
	fmt.Println()
	if o.State.IsTerminal() {
		select {
		case <-p.done:
		default:
			close(p.done)
		}
	}
}

func (p *orderPrinter) OnTrade(t model.Trade) {
	fmt.Printf("trade: order %d %s %d %s @ %s\n", t.OrderID, t.Operation, t.Quantity, t.Security, t.Price)
}

func submitOrder(addr, symbol, side, orderType, priceStr string, qty int64, account string) {
	op, err := model.ParseOperation(side)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	typ, err := model.ParseOrderType(orderType)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid price:", err)
		os.Exit(1)
	}

	reg := transport.Default()
	client := broker.NewClient(reg, addr, zap.NewNop())
	printer := &orderPrinter{done: make(chan struct{})}
	client.AddReactor(printer)
	client.Start()
	defer client.Stop()

	o := model.New(1, account, symbol, fixedpoint.FromFloat(price), qty, op, typ)
	if err := client.SubmitOrder(o); err != nil {
		fmt.Fprintln(os.Stderr, "submit failed:", err)
		os.Exit(1)
	}

	select {
	case <-printer.done:
	case <-time.After(submitWait):
		fmt.Println("(timed out waiting for a terminal order state)")
	}
}

func cancelOrder(addr string, clientID uint64, account string) {
	reg := transport.Default()
	client := broker.NewClient(reg, addr, zap.NewNop())
	printer := &orderPrinter{done: make(chan struct{})}
	client.AddReactor(printer)
	client.Start()
	defer client.Stop()

	if err := client.CancelOrder(clientID, account); err != nil {
		fmt.Fprintln(os.Stderr, "cancel failed:", err)
		os.Exit(1)
	}

	select {
	case <-printer.done:
	case <-time.After(submitWait):
		fmt.Println("(timed out waiting for a terminal order state)")
	}
}

func watchTicks(addr, tickersCSV string) {
	tickers := quotesource.SplitTickers(tickersCSV)
	reg := transport.Default()
	client := quotesource.NewClient(reg, addr, tickers, false, zap.NewNop())
	client.AddSink(quotesource.SinkFunc(func(ticker string, tick model.Tick) {
		fmt.Printf("%s: %s (volume %d)\n", ticker, tick.Value(), tick.Volume)
	}))
	client.Start()
	defer client.Stop()

	fmt.Println("watching ticks, press Ctrl+C to stop...")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
