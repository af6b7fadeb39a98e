package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Colors for terminal output
const (
	Red    = "\033[0;31m"
	Green  = "\033[0;32m"
	Yellow = "\033[1;33m"
	Blue   = "\033[0;34m"
	Cyan   = "\033[0;36m"
	Reset  = "\033[0m"
)

// Client handles API requests
type Client struct {
	Config     *Config
	HTTPClient *http.Client
	Logger     *slog.Logger
	ActiveURL  string
	Mode       string // "vpn" or "internet"
}

// NewClient creates a new API client
func NewClient(config *Config) *Client {
	return &Client{
		Config: config,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Logger:    discardLogger(),
		ActiveURL: config.ERPURL,
		Mode:      "internet",
	}
}

// DetectConnection tries VPN first, falls back to internet
func (c *Client) DetectConnection() {
	if c.Config.ERPVPN != "" {
		req, _ := http.NewRequest("GET", c.Config.ERPVPN+"/api/method/frappe.auth.get_logged_user", nil)
		req.Header.Set("Authorization", c.authHeader())

		client := &http.Client{Timeout: 2 * time.Second}
		resp, err := client.Do(req)
		if err == nil && resp.StatusCode == 200 {
			resp.Body.Close()
			c.Mode = "vpn"
			c.ActiveURL = c.Config.ERPVPN
			c.Logger.Debug("connection detected", "mode", c.Mode, "url", c.ActiveURL)
			return
		}
		if resp != nil {
			resp.Body.Close()
		}
	}

	c.Mode = "internet"
	c.ActiveURL = c.Config.ERPURL
	c.Logger.Debug("connection detected", "mode", c.Mode, "url", c.ActiveURL)
}

func (c *Client) authHeader() string {
	return fmt.Sprintf("token %s:%s", c.Config.APIKey, c.Config.APISecret)
}

func (c *Client) newRequest(ctx context.Context, method, fullURL string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.Mode == "internet" && c.Config.NginxCookie != "" {
		req.AddCookie(&http.Cookie{Name: c.Config.NginxCookieName, Value: c.Config.NginxCookie})
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (map[string]interface{}, error) {
	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Warn("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, &RemoteError{Message: fmt.Sprintf("request failed: %v", err), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err), Err: err}
	}

	c.Logger.Debug("request", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return parseAPIResponse(resp.StatusCode, respBody)
}

// Request makes a REST API request against /api/resource/<endpoint>
func (c *Client) Request(method, endpoint string, body interface{}) (map[string]interface{}, error) {
	return c.RequestContext(context.Background(), method, endpoint, body)
}

// RequestContext is Request bound to ctx.
func (c *Client) RequestContext(ctx context.Context, method, endpoint string, body interface{}) (map[string]interface{}, error) {
	fullURL := fmt.Sprintf("%s/api/resource/%s", c.ActiveURL, endpoint)
	req, err := c.newRequest(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Call invokes a whitelisted server method under /api/method/. GET calls send
// params as the query string; other methods send body as JSON. The "message"
// member of the response is decoded into out when out is non-nil.
func (c *Client) Call(ctx context.Context, method, rpc string, params url.Values, body interface{}, out interface{}) error {
	fullURL := fmt.Sprintf("%s/api/method/%s", c.ActiveURL, rpc)
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := c.newRequest(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	result, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	raw, err := json.Marshal(result["message"])
	if err != nil {
		return fmt.Errorf("failed to re-encode %s response: %w", rpc, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", rpc, err)
	}
	return nil
}

// submitDocument submits a document using frappe.client.submit
func (c *Client) submitDocument(ctx context.Context, doctype, name string) error {
	body := map[string]interface{}{
		"doc": map[string]interface{}{
			"doctype": doctype,
			"name":    name,
		},
	}
	if err := c.Call(ctx, "POST", "frappe.client.submit", nil, body, nil); err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}
	return nil
}

// CmdPing tests the connection
func (c *Client) CmdPing() error {
	fmt.Printf("%sTesting connection to ERP...%s\n", Blue, Reset)

	c.DetectConnection()

	var user string
	if err := c.Call(context.Background(), "GET", "frappe.auth.get_logged_user", nil, nil, &user); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	if user == "" {
		return fmt.Errorf("authentication failed: empty user")
	}

	fmt.Printf("%s✓ Connection successful%s\n", Green, Reset)
	fmt.Printf("  Authenticated as: %s%s%s\n", Yellow, user, Reset)
	if c.Mode == "vpn" {
		fmt.Printf("  Mode: %sVPN direct%s (%s)\n", Cyan, Reset, c.ActiveURL)
	} else {
		fmt.Printf("  Mode: %sInternet%s (%s)\n", Yellow, Reset, c.ActiveURL)
	}
	return nil
}

// CmdConfig shows current configuration
func (c *Client) CmdConfig() error {
	fmt.Printf("%sCurrent configuration:%s\n", Blue, Reset)
	if c.Config.Source != "" {
		fmt.Printf("  File: %s\n", c.Config.Source)
	}
	if c.Config.ERPVPN != "" {
		fmt.Printf("  VPN URL: %s\n", c.Config.ERPVPN)
	} else {
		fmt.Printf("  VPN URL: %snot configured%s\n", Yellow, Reset)
	}
	fmt.Printf("  Internet URL: %s\n", c.Config.ERPURL)
	fmt.Printf("  API Key: %s...\n", maskKey(c.Config.APIKey))
	fmt.Printf("  API Secret: ****\n")

	if c.Config.NginxCookie != "" {
		fmt.Printf("  Nginx Cookie: configured\n")
	} else {
		fmt.Printf("  Nginx Cookie: %snot configured%s (needed for internet mode)\n", Yellow, Reset)
	}

	if c.Config.Company != "" {
		fmt.Printf("  Company: %s\n", c.Config.Company)
	}
	if c.Config.LogFile != "" {
		fmt.Printf("  Log: %s (%s)\n", c.Config.LogFile, c.Config.LogLevel)
	}

	fmt.Println()
	c.DetectConnection()
	if c.Mode == "vpn" {
		fmt.Printf("  Active mode: %sVPN direct%s\n", Cyan, Reset)
	} else {
		fmt.Printf("  Active mode: %sInternet%s\n", Yellow, Reset)
	}
	fmt.Printf("  Active URL: %s\n", c.ActiveURL)

	return nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:8]
}
