package custodian

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	httpclient "github.com/appleboy/go-httpclient"
	retry "github.com/appleboy/go-httpretry"

	"github.com/go-giftgate/giftgate/internal/metrics"
)

// Client is a typed façade over the custodial gateway's asset operations.
// Every call acts under a grant handle and carries a per-call timeout.
// Remote failures leave this package already classified (errors.go); no
// other component parses raw custodial payloads.
type Client struct {
	baseURL     string
	retryClient *retry.Client
	timeout     time.Duration
	metrics     metrics.Recorder
}

func New(baseURL string, retryClient *retry.Client, timeout time.Duration, rec metrics.Recorder) *Client {
	return &Client{
		baseURL:     baseURL,
		retryClient: retryClient,
		timeout:     timeout,
		metrics:     rec,
	}
}

// NewRetryClient creates the HTTP client used for all gateway calls:
// automatic authentication headers plus exponential-backoff retries.
func NewRetryClient(
	authMode, authSecret, authHeader string,
	timeout time.Duration,
	maxRetries int,
	retryDelay, maxRetryDelay time.Duration,
) (*retry.Client, error) {
	client, err := httpclient.NewAuthClient(
		authMode,
		authSecret,
		httpclient.WithTimeout(timeout),
		httpclient.WithHeaderName(authHeader),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}

	retryClient, err := retry.NewRealtimeClient(
		retry.WithHTTPClient(client),
		retry.WithMaxRetries(maxRetries),
		retry.WithInitialRetryDelay(retryDelay),
		retry.WithMaxRetryDelay(maxRetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry client: %w", err)
	}

	return retryClient, nil
}

// apiResponse is the gateway's envelope for every method call.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// call performs one gateway method call and decodes the result into out.
// Transport errors and timeouts come back as *RemoteError: the caller must
// not infer from them that the operation did or did not happen.
func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	start := time.Now()
	err := c.doCall(ctx, method, payload, out)
	c.metrics.RecordRemoteCall(method, err == nil, time.Since(start))
	return err
}

func (c *Client) doCall(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.retryClient.Post(
		ctx,
		c.baseURL+"/"+method,
		retry.WithBody("application/json", bytes.NewReader(body)),
	)
	if err != nil {
		return &RemoteError{Message: fmt.Sprintf("%s: %v", method, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteError{Message: fmt.Sprintf("%s: read response: %v", method, err)}
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		preview := string(raw)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return &RemoteError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("%s: invalid response: %s", method, preview),
		}
	}

	if !env.OK {
		return classify(env.ErrorCode, env.Description)
	}

	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return &RemoteError{Message: fmt.Sprintf("%s: decode result: %v", method, err)}
		}
	}
	return nil
}

// PointBalance returns the fungible point balance held under the grant.
func (c *Client) PointBalance(ctx context.Context, grantHandle string) (int64, error) {
	req := struct {
		GrantHandle string `json:"grant_handle"`
	}{grantHandle}

	var res struct {
		Amount int64 `json:"amount"`
	}
	if err := c.call(ctx, "getPointBalance", req, &res); err != nil {
		return 0, err
	}
	return res.Amount, nil
}

// Holdings lists every asset held under the grant.
func (c *Client) Holdings(ctx context.Context, grantHandle string) ([]Holding, error) {
	req := struct {
		GrantHandle string `json:"grant_handle"`
	}{grantHandle}

	var res struct {
		Holdings []Holding `json:"holdings"`
	}
	if err := c.call(ctx, "getHoldings", req, &res); err != nil {
		return nil, err
	}
	return res.Holdings, nil
}

// TransferItem moves one item from the source grant's account to the
// destination user's account.
func (c *Client) TransferItem(ctx context.Context, sourceGrant, itemID string, destUserID int64) error {
	req := struct {
		GrantHandle string `json:"grant_handle"`
		ItemID      string `json:"item_id"`
		NewOwnerID  int64  `json:"new_owner_id"`
	}{sourceGrant, itemID, destUserID}

	return c.call(ctx, "transferItem", req, nil)
}

// TransferPoints moves amount points from the source grant to the
// destination grant.
func (c *Client) TransferPoints(ctx context.Context, sourceGrant, destGrant string, amount int64) error {
	req := struct {
		GrantHandle string `json:"grant_handle"`
		ToGrant     string `json:"to_grant_handle"`
		Amount      int64  `json:"amount"`
	}{sourceGrant, destGrant, amount}

	return c.call(ctx, "transferPoints", req, nil)
}

// ConvertItem converts one fungible item into points credited to the same
// account. Unique items must be filtered out by the caller; the gateway
// rejects them with ITEM_NOT_FOUND-class errors otherwise.
func (c *Client) ConvertItem(ctx context.Context, grantHandle, itemID string) error {
	req := struct {
		GrantHandle string `json:"grant_handle"`
		ItemID      string `json:"item_id"`
	}{grantHandle, itemID}

	return c.call(ctx, "convertItemToPoints", req, nil)
}
