// Package monero is the crypto rail: a throttled wallet JSON-RPC client and
// the checkout provider built on it.
package monero

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"nova-payments/internal/config"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/infra/metrics"
)

// atomicUnitsExp converts piconero to XMR.
const atomicUnitsExp = -12

var _ adapter.WalletClient = (*WalletRPC)(nil)

// WalletRPC talks to monero-wallet-rpc's /json_rpc endpoint.
type WalletRPC struct {
	endpoint         string
	minConfirmations uint64
	client           *http.Client
	limiter          *rate.Limiter
	seq              atomic.Int64
	logger           *zerolog.Logger
}

// NewWalletRPC refuses wallet hosts missing from cfg.AllowedHosts.
func NewWalletRPC(cfg config.MoneroConfig, logger *zerolog.Logger) (*WalletRPC, error) {
	u, err := url.Parse(cfg.WalletRPCURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid wallet rpc url %q", cfg.WalletRPCURL)
	}
	if !hostAllowed(u.Hostname(), cfg.AllowedHosts) {
		return nil, fmt.Errorf("wallet rpc host %q is not allowed", u.Hostname())
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	minConf := cfg.MinConfirmations
	if minConf < 0 {
		minConf = 0
	}
	l := logger.With().Str("component", "monero_rpc").Logger()
	return &WalletRPC{
		endpoint:         strings.TrimRight(cfg.WalletRPCURL, "/") + "/json_rpc",
		minConfirmations: uint64(minConf),
		client:           &http.Client{Timeout: timeout},
		limiter:          rate.NewLimiter(rate.Limit(rps), 1),
		logger:           &l,
	}, nil
}

func hostAllowed(host string, allowed []string) bool {
	for _, h := range allowed {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (w *WalletRPC) call(ctx context.Context, method string, params, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			w.logger.Warn().Err(err).Str("method", method).Msg("wallet rpc call failed")
		}
		metrics.ObserveMoneroRPC(method, outcome, time.Since(start))
	}()

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      fmt.Sprint(w.seq.Add(1)),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("wallet rpc %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &adapter.RemoteError{Service: "monero-wallet-rpc", StatusCode: resp.StatusCode}
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("wallet rpc %s: decode: %w", method, err)
	}
	if rr.Error != nil {
		return fmt.Errorf("wallet rpc %s: %d %s", method, rr.Error.Code, rr.Error.Message)
	}
	if out == nil {
		return nil
	}
	if len(rr.Result) == 0 {
		return errors.New("wallet rpc " + method + ": empty result")
	}
	return json.Unmarshal(rr.Result, out)
}

// Refresh asks the wallet to rescan the chain for new transfers.
func (w *WalletRPC) Refresh(ctx context.Context) error {
	return w.call(ctx, "refresh", struct{}{}, nil)
}

func (w *WalletRPC) CreateSubaddress(ctx context.Context, accountIndex int, label string) (*adapter.Subaddress, error) {
	params := struct {
		AccountIndex int    `json:"account_index"`
		Label        string `json:"label,omitempty"`
	}{accountIndex, label}
	var res struct {
		Address      string `json:"address"`
		AddressIndex int    `json:"address_index"`
	}
	if err := w.call(ctx, "create_address", params, &res); err != nil {
		return nil, err
	}
	if res.Address == "" {
		return nil, errors.New("wallet rpc create_address: empty address")
	}
	return &adapter.Subaddress{AccountIndex: accountIndex, SubaddressIndex: res.AddressIndex, Address: res.Address}, nil
}

type transfer struct {
	Amount        uint64 `json:"amount"`
	Confirmations uint64 `json:"confirmations"`
	SubaddrIndex  struct {
		Major int `json:"major"`
		Minor int `json:"minor"`
	} `json:"subaddr_index"`
}

func (w *WalletRPC) ConfirmedBalance(ctx context.Context, accountIndex, subaddressIndex int) (decimal.Decimal, error) {
	params := struct {
		In             bool  `json:"in"`
		AccountIndex   int   `json:"account_index"`
		SubaddrIndices []int `json:"subaddr_indices"`
	}{true, accountIndex, []int{subaddressIndex}}
	var res struct {
		In []transfer `json:"in"`
	}
	if err := w.call(ctx, "get_transfers", params, &res); err != nil {
		return decimal.Zero, err
	}
	return sumConfirmed(res.In, subaddressIndex, w.minConfirmations), nil
}

func sumConfirmed(in []transfer, subaddressIndex int, minConf uint64) decimal.Decimal {
	total := decimal.Zero
	for _, t := range in {
		if t.SubaddrIndex.Minor != subaddressIndex || t.Confirmations < minConf {
			continue
		}
		total = total.Add(decimal.NewFromBigInt(new(big.Int).SetUint64(t.Amount), atomicUnitsExp))
	}
	return total
}
