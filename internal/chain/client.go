// Package chain implements the read and write sides of the deployed wagers
// contract over JSON-RPC using go-ethereum.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ClientConfig holds the connection parameters for the contract client.
type ClientConfig struct {
	RPCURL          string
	ContractAddress string
	CallTimeout     time.Duration
	MineTimeout     time.Duration
}

// Client owns the RPC connection and the bound contract shared by the
// Reader and Writer.
type Client struct {
	eth         *ethclient.Client
	contract    *bind.BoundContract
	address     common.Address
	abi         abi.ABI
	callTimeout time.Duration
	mineTimeout time.Duration
	logger      *slog.Logger
}

// Dial connects to the JSON-RPC endpoint and binds the wagers contract.
func Dial(ctx context.Context, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("chain: invalid contract address %q", cfg.ContractAddress)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	parsed := parseABI()
	addr := common.HexToAddress(cfg.ContractAddress)

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	mineTimeout := cfg.MineTimeout
	if mineTimeout <= 0 {
		mineTimeout = 3 * time.Minute
	}

	return &Client{
		eth:         eth,
		contract:    bind.NewBoundContract(addr, parsed, eth, eth, eth),
		address:     addr,
		abi:         parsed,
		callTimeout: callTimeout,
		mineTimeout: mineTimeout,
		logger:      logger.With(slog.String("component", "chain")),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// call performs a read-only contract call under the configured timeout and
// returns the raw output values.
func (c *Client) call(ctx context.Context, method string, args ...any) ([]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}
	return out, nil
}
