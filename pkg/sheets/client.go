package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com"
	sheetsScope    = "https://www.googleapis.com/auth/spreadsheets"
)

// ClientConfig configures the Google Sheets client
type ClientConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	// BaseURL overrides the API endpoint, used by tests
	BaseURL string
	Timeout time.Duration
	Layout  Layout
}

// Client talks to the Google Sheets v4 values API. A service-account JWT
// token source handles authentication and refresh.
type Client struct {
	httpClient    *http.Client
	spreadsheetID string
	baseURL       string

	mu     sync.RWMutex
	layout Layout
}

// NewClient creates a Sheets client from a service-account credentials file
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}

	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(data, sheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	return newClientWithSource(ctx, cfg, jwtCfg.TokenSource(ctx)), nil
}

// NewClientWithTokenSource creates a client with an explicit token source,
// used by tests that stub the API.
func NewClientWithTokenSource(ctx context.Context, cfg ClientConfig, ts oauth2.TokenSource) *Client {
	return newClientWithSource(ctx, cfg, ts)
}

func newClientWithSource(ctx context.Context, cfg ClientConfig, ts oauth2.TokenSource) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = timeout

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	layout := cfg.Layout
	if layout.Origins == nil {
		layout = DefaultLayout()
	}

	return &Client{
		httpClient:    httpClient,
		spreadsheetID: cfg.SpreadsheetID,
		baseURL:       baseURL,
		layout:        layout,
	}
}

// SetLayout swaps the range layout; used by the config hot reloader
func (c *Client) SetLayout(layout Layout) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layout = layout
}

func (c *Client) currentLayout() Layout {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.layout
}

type valueRange struct {
	Range  string          `json:"range,omitempty"`
	Values [][]interface{} `json:"values"`
}

// Read fetches all rows of a named range
func (c *Client) Read(ctx context.Context, rangeName string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?valueRenderOption=FORMATTED_VALUE",
		c.baseURL, c.spreadsheetID, url.PathEscape(rangeName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamFromResponse(resp)
	}

	var vr valueRange
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	return stringRows(vr.Values), nil
}

// UpdateRow overwrites cells of one row within a named range
func (c *Client) UpdateRow(ctx context.Context, rangeName string, row, startCol int, values []string) error {
	cellRange, err := c.currentLayout().CellRange(rangeName, row, startCol, len(values))
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?valueInputOption=RAW",
		c.baseURL, c.spreadsheetID, url.PathEscape(cellRange))

	body := valueRange{Values: [][]interface{}{interfaceRow(values)}}
	return c.write(ctx, http.MethodPut, endpoint, body)
}

// Append adds a row after the last non-empty row of a named range
func (c *Client) Append(ctx context.Context, rangeName string, row []string) error {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		c.baseURL, c.spreadsheetID, url.PathEscape(rangeName))

	body := valueRange{Values: [][]interface{}{interfaceRow(row)}}
	return c.write(ctx, http.MethodPost, endpoint, body)
}

// Ping verifies the spreadsheet is reachable, used by the readiness probe
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s?fields=spreadsheetId", c.baseURL, c.spreadsheetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return upstreamFromResponse(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) write(ctx context.Context, method, endpoint string, body valueRange) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return upstreamFromResponse(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func upstreamFromResponse(resp *http.Response) *UpstreamError {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &UpstreamError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
	}
	return &UpstreamError{StatusCode: resp.StatusCode, Message: string(data)}
}

// stringRows normalizes API values to strings. The API returns formatted
// values, but numbers can still come back as JSON numbers depending on cell
// formatting, so everything is coerced.
func stringRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			switch val := v.(type) {
			case string:
				cells[j] = val
			case nil:
				cells[j] = ""
			default:
				cells[j] = fmt.Sprintf("%v", val)
			}
		}
		rows[i] = cells
	}
	return rows
}

func interfaceRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
