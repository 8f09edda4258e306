package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/wifiprov/internal/provision"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retries for status reads
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial delay between retries
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second
)

// Client talks to a device's setup portal.
type Client struct {
	// BaseURL is the portal root, e.g. "http://192.168.4.1:80"
	BaseURL string

	HTTPClient *http.Client

	// MaxRetries applies to Status only; Configure is never retried.
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewClient returns a client for baseURL. A bare host or host:port gets an
// http:// scheme.
func NewClient(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

// NewClientFor returns a client for a device at ip:port.
func NewClientFor(ip string, port int) *Client {
	return NewClient(fmt.Sprintf("http://%s:%d", ip, port))
}

// SetTimeout sets the HTTP request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Status fetches the current provisioning snapshot, retrying transient
// failures with exponential backoff.
func (c *Client) Status(ctx context.Context) (*provision.Snapshot, error) {
	var lastErr error
	delay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}
		}

		snap, err := c.statusAttempt(ctx)
		if err == nil {
			return snap, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) statusAttempt(ctx context.Context) (*provision.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/status", nil)
	if err != nil {
		return nil, classifyNetworkError("failed to create status request", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyNetworkError("status request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, newHTTPError(resp.StatusCode, string(body))
	}

	var snap provision.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, newParseError("failed to parse status response", err)
	}
	return &snap, nil
}

// Configure submits a credential pair and returns the portal's reply text.
// A rejected pair yields a *ClientError of type ErrTypeRejected that also
// matches provision.ErrInvalidCredentials.
func (c *Client) Configure(ctx context.Context, ssid, password string) (string, error) {
	body, err := json.Marshal(configureRequest{SSID: ssid, Password: password})
	if err != nil {
		return "", newParseError("failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/configure", bytes.NewReader(body))
	if err != nil {
		return "", classifyNetworkError("failed to create configure request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", classifyNetworkError("configure request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", classifyNetworkError("failed to read configure response", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		return strings.TrimSpace(string(reply)), nil
	case http.StatusUnprocessableEntity:
		return "", newRejectedError(resp.StatusCode, string(reply))
	default:
		return "", newHTTPError(resp.StatusCode, string(reply))
	}
}

// Watch streams snapshots from the portal's websocket feed to fn until ctx is
// done or the connection drops. A nil return means ctx ended the stream.
func (c *Client) Watch(ctx context.Context, fn func(provision.Snapshot)) error {
	wsURL, err := c.websocketURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return classifyNetworkError("failed to open status feed", err)
	}
	defer func() { _ = conn.Close() }()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var snap provision.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return classifyNetworkError("status feed interrupted", err)
		}
		fn(snap)
	}
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", newParseError("invalid base URL", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
