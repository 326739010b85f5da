package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/0xAtelerix/sdk/gosdk/rpc"
	"github.com/0xAtelerix/sdk/gosdk/txpool"
	"github.com/ledgerwatch/erigon-lib/kv"
	"github.com/ledgerwatch/erigon-lib/kv/mdbx"
	mdbxlog "github.com/ledgerwatch/log/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/0xAtelerix/erc20/application"
)

// startServer serves the standard and token methods on a free local port and
// returns the /rpc URL once the port accepts connections.
func startServer(t *testing.T, db kv.RoDB) string {
	t.Helper()

	l, err := (&net.ListenConfig{}).Listen(t.Context(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	localDB, err := mdbx.NewMDBX(mdbxlog.New()).
		Path(t.TempDir()).
		WithTableCfg(func(_ kv.TableCfg) kv.TableCfg {
			return txpool.Tables()
		}).
		Open()
	require.NoError(t, err)

	t.Cleanup(func() { localDB.Close() })

	txPool := txpool.NewTxPool[application.Transaction[application.Receipt], application.Receipt](localDB)

	rpcServer := rpc.NewStandardRPCServer(nil)
	rpcServer.AddMiddleware(NewLoggingMiddleware(zerolog.Nop()))
	rpc.AddStandardMethods(rpcServer, nil, txPool)
	NewCustomRPC(rpcServer, db).AddRPCMethods()

	go func() {
		_ = rpcServer.StartHTTPServer(t.Context(), fmt.Sprintf(":%d", port))
	}()

	addr := fmt.Sprintf("127.0.0.1:%d", port)

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}

		_ = conn.Close()

		return true
	}, 3*time.Second, 20*time.Millisecond)

	return "http://" + addr + "/rpc"
}

func TestRPC_SendTransferAndGetByHash(t *testing.T) {
	rpcURL := startServer(t, nil)

	txHash := "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"

	jsonReq := `{"jsonrpc":"2.0","method":"sendTransaction","params":[{"method":"transfer","sender":"alice","to":"bob","amount":"1234","hash":"` + txHash + `"}],"id":1}`
	resp, err := sendJSONRPCRequest(rpcURL, jsonReq)
	require.NoError(t, err)
	require.Contains(t, resp, "result")

	jsonReqGet := `{"jsonrpc":"2.0","method":"getTransactionByHash","params":["` + txHash + `"],"id":2}`
	respGet, err := sendJSONRPCRequest(rpcURL, jsonReqGet)
	require.NoError(t, err)
	require.Contains(t, respGet, "result")

	require.Contains(t, respGet, "alice")
	require.Contains(t, respGet, "transfer")
	require.Contains(t, respGet, "1234")
}

func TestRPC_TokenQueries(t *testing.T) {
	rpcURL := startServer(t, seededDB(t))

	info, err := sendJSONRPCRequest(rpcURL, `{"jsonrpc":"2.0","method":"getTokenInfo","params":[],"id":1}`)
	require.NoError(t, err)
	require.Contains(t, info, `"ticker":"TST"`)
	require.Contains(t, info, `"initialized":true`)

	bal, err := sendJSONRPCRequest(rpcURL, `{"jsonrpc":"2.0","method":"getBalance","params":[{"account":"alice"}],"id":2}`)
	require.NoError(t, err)
	require.Contains(t, bal, `"balance":"900"`)

	allowance, err := sendJSONRPCRequest(rpcURL,
		`{"jsonrpc":"2.0","method":"getAllowance","params":[{"owner":"bob","spender":"carol"}],"id":3}`)
	require.NoError(t, err)
	require.Contains(t, allowance, `"allowance":"25"`)

	missing, err := sendJSONRPCRequest(rpcURL, `{"jsonrpc":"2.0","method":"getBalance","params":[],"id":4}`)
	require.NoError(t, err)
	require.Contains(t, missing, "error")
}

// Helper: send JSON-RPC request to local server
func sendJSONRPCRequest(rpcAddress string, jsonReq string) (string, error) {
	req, err := http.NewRequestWithContext(
		context.Background(),
		http.MethodPost,
		rpcAddress,
		bytes.NewBufferString(jsonReq),
	)
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}
