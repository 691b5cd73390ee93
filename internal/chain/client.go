package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// NetworkConfig describes one configured chain endpoint.
type NetworkConfig struct {
	Endpoint string   `yaml:"endpoint" json:"endpoint"`
	Accounts []string `yaml:"accounts" json:"accounts"`
	GasLimit uint64   `yaml:"gas_limit" json:"gas_limit"`
}

// Client is a JSON-RPC session against one network. Signers are loaded
// from the configured account URIs; Connect performs the handshake and
// Disconnect is expected on shutdown.
type Client struct {
	name string
	cfg  NetworkConfig
	http *http.Client

	mu        sync.Mutex
	connected bool
	chainName string
	signers   []*Signer
	nextID    uint64
}

func New(name string, cfg NetworkConfig) *Client {
	return &Client{
		name: name,
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) GasLimit() uint64 { return c.cfg.GasLimit }

// LoadSigners materializes the configured account URIs. It is separate
// from Connect so account listing works without a reachable node.
func (c *Client) LoadSigners() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signers != nil {
		return nil
	}
	signers := make([]*Signer, 0, len(c.cfg.Accounts))
	for _, suri := range c.cfg.Accounts {
		s, err := SignerFromSURI(suri)
		if err != nil {
			return fmt.Errorf("account %q: %w", suri, err)
		}
		signers = append(signers, s)
	}
	c.signers = signers
	return nil
}

// Connect loads signers and performs the system_chain handshake.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.LoadSigners(); err != nil {
		return err
	}
	raw, err := c.Call(ctx, "system_chain")
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.cfg.Endpoint, err)
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return fmt.Errorf("connect %s: decode chain name: %w", c.cfg.Endpoint, err)
	}
	c.mu.Lock()
	c.connected = true
	c.chainName = name
	c.mu.Unlock()
	log.Info().Str("network", c.name).Str("chain", name).Msg("connected")
	return nil
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) ChainName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chainName
}

// Disconnect ends the session. Safe to call without a prior Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	was := c.connected
	c.connected = false
	c.mu.Unlock()
	c.http.CloseIdleConnections()
	if was {
		log.Debug().Str("network", c.name).Msg("disconnected")
	}
}

// Signers returns the session's signers in configuration order.
func (c *Client) Signers() []*Signer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Signer, len(c.signers))
	copy(out, c.signers)
	return out
}

// CreateSigner derives a signer from a URI and adds it to the session.
func (c *Client) CreateSigner(suri string) (*Signer, error) {
	s, err := SignerFromSURI(suri)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.signers = append(c.signers, s)
	c.mu.Unlock()
	return s, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Call performs one JSON-RPC round trip.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encode rpc request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: read response: %w", method, err)
	}
	var out rpcResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("rpc %s: decode response: %w", method, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("rpc %s: %d %s", method, out.Error.Code, out.Error.Message)
	}
	return out.Result, nil
}
