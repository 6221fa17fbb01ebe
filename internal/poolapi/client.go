package poolapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Defaults for the remote API.
const (
	DefaultBaseURL = "https://www.connectmypool.com.au/api/"
	DefaultTimeout = 30 * time.Second

	// Manufacturer is reported on every accessory.
	Manufacturer = "Astral"

	executionSuccess = 1

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 1 << 20
)

// Remote endpoint names, relative to the base URL.
const (
	endpointConfig = "poolconfig"
	endpointStatus = "poolstatus"
	endpointAction = "poolaction"
)

// Options configures a Client.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is the site's pool_api_code. Required.
	APIKey string

	Scale TemperatureScale

	// Timeout applies per request when HTTPClient is nil.
	Timeout time.Duration

	// HTTPClient overrides the default client (used by tests).
	HTTPClient *http.Client
}

// Client talks to the ConnectMyPool cloud API.
//
// It performs no retries. A failed FetchStatus is simply retried by the
// poll loop on its next tick.
type Client struct {
	baseURL    string
	apiKey     string
	scale      TemperatureScale
	httpClient *http.Client
}

// NewClient creates a client from opts.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("poolapi: api key is required")
	}

	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    base,
		apiKey:     opts.APIKey,
		scale:      opts.Scale,
		httpClient: httpClient,
	}, nil
}

type configRequest struct {
	PoolAPICode string `json:"pool_api_code"`
}

type statusRequest struct {
	PoolAPICode      string           `json:"pool_api_code"`
	TemperatureScale TemperatureScale `json:"temperature_scale"`
}

type actionRequest struct {
	PoolAPICode      string `json:"pool_api_code"`
	ActionCode       Action `json:"action_code"`
	DeviceNumber     int    `json:"device_number"`
	Value            string `json:"value"`
	WaitForExecution bool   `json:"wait_for_execution"`
}

// FetchConfig retrieves the site's equipment inventory.
func (c *Client) FetchConfig(ctx context.Context) (*PoolConfig, error) {
	body, err := c.post(ctx, endpointConfig, configRequest{PoolAPICode: c.apiKey})
	if err != nil {
		return nil, err
	}

	if code := failureCode(body); code != 0 {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, &RemoteError{Endpoint: endpointConfig, FailureCode: code})
	}

	var cfg PoolConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", endpointConfig, err)
	}
	return &cfg, nil
}

// FetchStatus retrieves one status snapshot. Any failure, whether transport,
// HTTP or remote-reported, is returned wrapping ErrUnavailable.
func (c *Client) FetchStatus(ctx context.Context) (*PoolStatus, error) {
	body, err := c.post(ctx, endpointStatus, statusRequest{
		PoolAPICode:      c.apiKey,
		TemperatureScale: c.scale,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if code := failureCode(body); code != 0 {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, &RemoteError{Endpoint: endpointStatus, FailureCode: code})
	}

	var status PoolStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrUnavailable, endpointStatus, err)
	}
	return &status, nil
}

// SendCommand issues one action. The returned result is non-nil whenever the
// controller answered, even if it reported a failure.
func (c *Client) SendCommand(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if !cmd.Action.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAction, int(cmd.Action))
	}

	body, err := c.post(ctx, endpointAction, actionRequest{
		PoolAPICode:      c.apiKey,
		ActionCode:       cmd.Action,
		DeviceNumber:     cmd.DeviceNumber,
		Value:            cmd.Value,
		WaitForExecution: cmd.WaitForExecution,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCommandFailed, cmd.Action, err)
	}

	result := &ExecutionResult{
		ExecutionStatus: int(gjson.GetBytes(body, "execution_status").Int()),
		FailureCode:     failureCode(body),
	}
	if !result.Accepted(cmd.WaitForExecution) {
		return result, fmt.Errorf("%w: %s: %w", ErrCommandFailed, cmd.Action, &RemoteError{
			Endpoint:        endpointAction,
			FailureCode:     result.FailureCode,
			ExecutionStatus: result.ExecutionStatus,
		})
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}
	return body, nil
}

// failureCode peeks at failure_code without decoding the whole document.
// The controller sometimes sends it as a string.
func failureCode(body []byte) int {
	res := gjson.GetBytes(body, "failure_code")
	if !res.Exists() {
		return 0
	}
	if res.Type == gjson.String {
		n, err := strconv.Atoi(strings.TrimSpace(res.Str))
		if err != nil {
			return -1
		}
		return n
	}
	return int(res.Int())
}
