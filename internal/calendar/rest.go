package calendar

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
)

// RESTProvider talks to a JSON calendar API. The credential is forwarded as a
// bearer token; every non-2xx response becomes a ProviderError carrying the
// status code so the sync orchestrator can pick the right retry policy.
type RESTProvider struct {
	baseURL string
	client  *http.Client
}

// NewRESTProvider builds a provider rooted at baseURL.
func NewRESTProvider(baseURL string, client *http.Client) *RESTProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RESTProvider{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *RESTProvider) List(ctx context.Context, cred Credential, window Range) ([]Event, error) {
	query := url.Values{}
	if !window.From.IsZero() {
		query.Set("from", window.From.UTC().Format(time.RFC3339))
	}
	if !window.To.IsZero() {
		query.Set("to", window.To.UTC().Format(time.RFC3339))
	}
	endpoint := p.baseURL + "/events"
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var listing struct {
		Events []Event `json:"events"`
	}
	if err := p.do(ctx, cred, http.MethodGet, endpoint, nil, &listing); err != nil {
		return nil, err
	}
	return listing.Events, nil
}

func (p *RESTProvider) Create(ctx context.Context, cred Credential, event Event) (Event, error) {
	var created Event
	if err := p.do(ctx, cred, http.MethodPost, p.baseURL+"/events", event, &created); err != nil {
		return Event{}, err
	}
	return created, nil
}

func (p *RESTProvider) Update(ctx context.Context, cred Credential, id string, event Event) (Event, error) {
	var updated Event
	endpoint := p.baseURL + "/events/" + url.PathEscape(id)
	if err := p.do(ctx, cred, http.MethodPut, endpoint, event, &updated); err != nil {
		return Event{}, err
	}
	return updated, nil
}

func (p *RESTProvider) Delete(ctx context.Context, cred Credential, id string) error {
	endpoint := p.baseURL + "/events/" + url.PathEscape(id)
	return p.do(ctx, cred, http.MethodDelete, endpoint, nil, nil)
}

func (p *RESTProvider) do(ctx context.Context, cred Credential, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("calendar: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("calendar: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred != "" {
		req.Header.Set("Authorization", "Bearer "+string(cred))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(readLimited(resp.Body)))
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &ProviderError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("calendar: decode response: %w", err)
	}
	return nil
}

func readLimited(r io.Reader) []byte {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	return data
}
