// Package apiclient is the typed HTTP client the portal uses against the
// hosted API. Responses arrive in the server's {data, error} envelope.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/formsigner/api/internal/document"
	"github.com/formsigner/api/internal/realtime"
	"github.com/formsigner/api/internal/subaccount"
	"github.com/formsigner/api/internal/support"
)

var (
	// ErrNotConfigured marks the backend as absent; callers degrade to
	// "unavailable" instead of crashing.
	ErrNotConfigured = errors.New("apiclient: base URL not configured")
	// ErrRequestFailed wraps any non-2xx response or transport error.
	ErrRequestFailed = errors.New("apiclient: request failed")
)

// Client calls the hosted API on behalf of one terminal client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// New creates a client. An empty baseURL yields a client whose calls all
// return ErrNotConfigured.
func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// SetToken attaches the sub-account session token to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: malformed response", ErrRequestFailed)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if env.Error != nil {
			return fmt.Errorf("%w: %s", ErrRequestFailed, env.Error.Message)
		}
		return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: malformed payload", ErrRequestFailed)
		}
	}
	return nil
}

// SubAccountLogin runs the credential exchange RPC.
func (c *Client) SubAccountLogin(ctx context.Context, mainAccountEmail, username, password string) (*subaccount.Session, error) {
	payload := map[string]string{
		"main_account_email": mainAccountEmail,
		"username":           username,
		"password":           password,
	}

	var result struct {
		Success      bool                   `json:"success"`
		SessionToken string                 `json:"session_token"`
		SubAccount   *subaccount.SubAccount `json:"sub_account"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/subaccount/login", payload, &result); err != nil {
		return nil, err
	}
	if !result.Success || result.SessionToken == "" || result.SubAccount == nil {
		return nil, ErrRequestFailed
	}

	c.token = result.SessionToken
	return &subaccount.Session{Token: result.SessionToken, SubAccount: *result.SubAccount}, nil
}

// SubAccountMe probes the current session.
func (c *Client) SubAccountMe(ctx context.Context, token string) (*subaccount.SubAccount, error) {
	saved := c.token
	c.token = token
	defer func() { c.token = saved }()

	var result struct {
		SubAccount *subaccount.SubAccount `json:"sub_account"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/subaccount/me", nil, &result); err != nil {
		return nil, err
	}
	if result.SubAccount == nil {
		return nil, ErrRequestFailed
	}
	return result.SubAccount, nil
}

// SubAccountLogout revokes the session server-side.
func (c *Client) SubAccountLogout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/subaccount/logout", nil, nil)
}

// ListDocuments fetches one page of the owning account's documents.
func (c *Client) ListDocuments(ctx context.Context, page int) (*document.Page, error) {
	var result document.Page
	if err := c.do(ctx, http.MethodGet, "/api/v1/subaccount/documents?page="+strconv.Itoa(page), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetDocument fetches one document including its base64 content.
func (c *Client) GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	var result struct {
		Document *document.Document `json:"document"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/subaccount/documents/"+id.String(), nil, &result); err != nil {
		return nil, err
	}
	if result.Document == nil {
		return nil, ErrRequestFailed
	}
	return result.Document, nil
}

// ListTickets fetches the account's support tickets.
func (c *Client) ListTickets(ctx context.Context) ([]support.Ticket, error) {
	var result struct {
		Tickets []support.Ticket `json:"tickets"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/subaccount/tickets", nil, &result); err != nil {
		return nil, err
	}
	return result.Tickets, nil
}

// ListMessages fetches a ticket's messages.
func (c *Client) ListMessages(ctx context.Context, ticketID uuid.UUID) ([]support.Message, error) {
	var result struct {
		Messages []support.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/subaccount/tickets/"+ticketID.String()+"/messages", nil, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// MarkRead bumps the ticket's server-side read marker.
func (c *Client) MarkRead(ctx context.Context, ticketID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/v1/subaccount/tickets/"+ticketID.String()+"/read", nil, nil)
}

// SubscribeEvents consumes the server-sent event stream, delivering events
// until ctx is cancelled. Transport drops end the stream; the poll loop
// covers the gap.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan realtime.Event, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/subaccount/notifications/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// No timeout: the stream stays open until cancelled.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	out := make(chan realtime.Event)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := newSSEScanner(resp.Body)
		for {
			payload, err := scanner.next()
			if err != nil {
				return
			}
			var event realtime.Event
			if err := json.Unmarshal(payload, &event); err != nil {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
