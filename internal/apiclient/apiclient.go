package apiclient

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

	"github.com/itchan-dev/newsletter/internal/domain"
)

// APIClient talks to a running newsletter API.
type APIClient struct {
	BaseURL    string
	HttpClient *http.Client
}

// APIError is a non-2xx response. Message is the response body as sent.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

func New(baseURL string) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HttpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// do is the single helper for making API requests.
func (c *APIClient) do(ctx context.Context, method, path, contentType string, body io.Reader, setup ...func(*http.Request)) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, f := range setup {
		f(req)
	}

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api unavailable: %w", err)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(bodyBytes))}
}

// Subscribe registers a pending subscriber and returns the confirmation token.
func (c *APIClient) Subscribe(ctx context.Context, name, email string) (string, error) {
	form := url.Values{"name": {name}, "email": {email}}
	resp, err := c.do(ctx, http.MethodPost, "/subscriptions", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}
	token, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read subscription token: %w", err)
	}
	return string(token), nil
}

func (c *APIClient) Confirm(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodGet, "/subscriptions/confirm?subscription_token="+url.QueryEscape(token), "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

type publishRequest struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
	Format  string `json:"format,omitempty"`
}

// Publish broadcasts issue as the given operator. On partial delivery the
// report is returned together with an *APIError carrying status 502.
func (c *APIClient) Publish(ctx context.Context, creds domain.Credentials, issue domain.NewsletterIssue) (domain.DeliveryReport, error) {
	jsonBody, err := json.Marshal(publishRequest{
		Subject: issue.Subject,
		Content: issue.Content,
		Format:  string(issue.Format),
	})
	if err != nil {
		return domain.DeliveryReport{}, fmt.Errorf("failed to marshal newsletter: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/newsletter", "application/json", bytes.NewReader(jsonBody), func(r *http.Request) {
		r.SetBasicAuth(creds.Username, creds.Password)
	})
	if err != nil {
		return domain.DeliveryReport{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusBadGateway:
	default:
		return domain.DeliveryReport{}, apiError(resp)
	}

	var report domain.DeliveryReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return domain.DeliveryReport{}, fmt.Errorf("failed to decode delivery report: %w", err)
	}
	if resp.StatusCode == http.StatusBadGateway {
		return report, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%d of %d deliveries failed", len(report.Failures), report.Recipients)}
	}
	return report, nil
}

// Ready reports whether the API can reach its store.
func (c *APIClient) Ready(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/ready", "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}
