package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"

	"github.com/0xAtelerix/erc20/application"
)

type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  any           `json:"result"`
	Error   *JSONRPCError `json:"error,omitempty"`
	ID      int           `json:"id"`
}

type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type TokenTx = application.Transaction[application.Receipt]

const (
	maxRetries      = 3 // Number of retries for RPC calls
	maxConcurrentTx = 20
	statusPolls     = 10
)

var errNotProcessed = errors.New("transaction did not process in time")

type rpcClient struct {
	client      *http.Client
	url         string
	requestID   atomic.Int64
	rateLimiter chan struct{}
}

func newRPCClient(url string) *rpcClient {
	return &rpcClient{
		client:      &http.Client{Timeout: 10 * time.Second},
		url:         url,
		rateLimiter: make(chan struct{}, maxConcurrentTx),
	}
}

type processingStats struct {
	done        int32
	included    int32
	notIncluded int32
	total       int32
	startTime   time.Time
	mu          sync.Mutex
}

func (s *processingStats) update(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done++
	if err == nil {
		s.included++
	} else {
		s.notIncluded++
	}
}

func (s *processingStats) print() {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.startTime)
	rate := float64(s.done) / elapsed.Seconds()

	// included counts transactions the node processed, whatever their receipt status
	fmt.Printf("Progress: %d/%d | Included: %d | Not included: %d | Rate: %.1f/s | Elapsed: %s\n",
		s.done, s.total, s.included, s.notIncluded, rate, elapsed.Round(time.Second))
}

func main() {
	rpcURL := flag.String("rpc", "http://localhost:8080/rpc", "JSON-RPC endpoint")
	owner := flag.String("owner", "alice", "Token owner account")
	transfers := flag.Int("transfers", 50, "Number of transfers to fan out")
	workers := flag.Int("workers", 10, "Concurrent senders")
	flag.Parse()

	rpc := newRPCClient(*rpcURL)
	ownerID := application.AccountID(*owner)

	fmt.Println("=== Token info ===")
	printResponse(rpc.call("getTokenInfo", nil))

	fmt.Println("\n=== init ===")
	if err := rpc.submit(TokenTx{Method: application.MethodInit, Sender: ownerID}); err != nil {
		fmt.Printf("init: %v (already initialized?)\n", err)
	}

	fmt.Println("\n=== approve / transferFrom ===")
	if err := rpc.submit(TokenTx{
		Method: application.MethodApprove, Sender: ownerID, Spender: "spender", Amount: uint256.NewInt(500),
	}); err != nil {
		fmt.Printf("approve: %v\n", err)
	}

	if err := rpc.submit(TokenTx{
		Method: application.MethodTransferFrom, Sender: "spender", From: ownerID, To: "merchant", Amount: uint256.NewInt(200),
	}); err != nil {
		fmt.Printf("transferFrom: %v\n", err)
	}

	printResponse(rpc.call("getAllowance", []any{map[string]any{"owner": ownerID, "spender": "spender"}}))

	fmt.Printf("\n=== %d transfers ===\n", *transfers)
	runTransfers(rpc, ownerID, *transfers, *workers)

	fmt.Println("\n=== Balances ===")
	printResponse(rpc.call("getBalance", []any{map[string]any{"account": ownerID}}))
	printResponse(rpc.call("getBalance", []any{map[string]any{"account": "merchant"}}))

	fmt.Println("\n=== Last events ===")
	printResponse(rpc.call("getLedgerEvents", []any{map[string]any{"fromSeq": 0, "limit": 10}}))
}

func runTransfers(rpc *rpcClient, owner application.AccountID, n, workers int) {
	stats := &processingStats{
		startTime: time.Now(),
		total:     int32(n),
	}

	jobs := make(chan int, n)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				err := rpc.submit(TokenTx{
					Method: application.MethodTransfer,
					Sender: owner,
					To:     application.AccountID(fmt.Sprintf("user-%03d", i%10)),
					Amount: uint256.NewInt(uint64(i + 1)),
				})
				stats.update(err)
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}

	close(jobs)
	wg.Wait()

	stats.print()
}

// submit sends the transaction and waits until the node reports it processed.
// A processed transaction may still carry a failed receipt.
func (c *rpcClient) submit(tx TokenTx) error {
	c.rateLimiter <- struct{}{}
	defer func() { <-c.rateLimiter }()

	if tx.TxHash == "" {
		tx.TxHash = fmt.Sprintf("0x%064x", time.Now().UnixNano()+c.requestID.Add(1))
	}

	sendResult := c.call("sendTransaction", []any{tx})
	if sendResult.Error != nil {
		return fmt.Errorf("error sending transaction: %w", sendResult.Error)
	}

	for poll := 0; poll < statusPolls; poll++ {
		time.Sleep(500 * time.Millisecond)

		statusResult := c.call("getTransactionStatus", []any{tx.TxHash})
		if statusResult.Error != nil {
			continue
		}

		if fmt.Sprintf("%v", statusResult.Result) == "Processed" {
			return nil
		}
	}

	return errNotProcessed
}

func printResponse(resp *JSONRPCResponse) {
	if resp.Error != nil {
		fmt.Printf("Error: %v\n", resp.Error)

		return
	}

	prettyJSON, _ := json.MarshalIndent(resp.Result, "", "  ")
	fmt.Printf("Success: %s\n", string(prettyJSON))
}

func (c *rpcClient) call(method string, params []any) *JSONRPCResponse {
	request := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      int(c.requestID.Add(1)),
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return &JSONRPCResponse{Error: &JSONRPCError{Message: err.Error()}}
	}

	var lastErr error

	for retry := 0; retry < maxRetries; retry++ {
		if retry > 0 {
			time.Sleep(time.Duration(retry) * time.Second)
		}

		result, err := c.post(reqBody)
		if err != nil {
			lastErr = err

			continue
		}

		return result
	}

	return &JSONRPCResponse{Error: &JSONRPCError{Message: lastErr.Error()}}
}

func (c *rpcClient) post(body []byte) (*JSONRPCResponse, error) {
	resp, err := c.client.Post(c.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}
