package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	httpTimeoutEnvKey  = "PAYPER_HTTP_TIMEOUT"
	apiTokenEnvKey     = "PAYPER_API_TOKEN"

	// PaymentHeader carries the proof-of-payment transaction hash.
	PaymentHeader = "X-Payment"
)

// Client is a simple HTTP client for the payper API, shared by the CLI
// commands and the buyer agent.
type Client struct {
	baseURL   string
	http      *http.Client
	authToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// GetInfo fetches server identity and store counts.
func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, &resp)
	return resp, err
}

// ListFiles fetches the public catalog.
func (c *Client) ListFiles(ctx context.Context) ([]FileSummary, error) {
	var resp []FileSummary
	err := c.do(ctx, http.MethodGet, "/api/files", nil, &resp)
	return resp, err
}

// Publish uploads content with its listing fields.
func (c *Client) Publish(ctx context.Context, fileName string, content io.Reader, price, wallet string) (PublishResponse, error) {
	var resp PublishResponse

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return resp, err
	}
	if err := mw.WriteField("price", price); err != nil {
		return resp, err
	}
	if err := mw.WriteField("wallet", wallet); err != nil {
		return resp, err
	}
	if err := mw.Close(); err != nil {
		return resp, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeader(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	return resp, json.NewDecoder(httpResp.Body).Decode(&resp)
}

// RequestChallenge performs the unpaid fetch and returns the 402 payload.
// A non-402 response means the resource is not payment gated.
func (c *Client) RequestChallenge(ctx context.Context, assetID string) (*ChallengeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.downloadURL(assetID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		var challenge ChallengeResponse
		if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
			return nil, fmt.Errorf("decode challenge: %w", err)
		}
		return &challenge, nil
	case resp.StatusCode >= 400:
		return nil, decodeError(resp)
	default:
		return nil, fmt.Errorf("resource %s is not payment gated (status %d)", assetID, resp.StatusCode)
	}
}

// Redeem submits a proof-of-payment and returns the asset bytes. The
// caller owns the reader. The returned name is the server-suggested
// filename, empty when the server offers none.
func (c *Client) Redeem(ctx context.Context, assetID, txHash string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.downloadURL(assetID), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set(PaymentHeader, txHash)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, "", decodeError(resp)
	}

	name := ""
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			name = params["filename"]
		}
	}
	return resp.Body, name, nil
}

func (c *Client) downloadURL(assetID string) string {
	return c.baseURL + "/api/download/" + url.PathEscape(assetID)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Message = errResp.Error
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
	}
	return apiErr
}

func httpTimeoutFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if raw == "" {
		return defaultHTTPTimeout
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return defaultHTTPTimeout
	}
	return parsed
}
