package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Provider is one CAPTCHA-solving service. All vendors are driven through
// the same submit/poll shape; only endpoint and credentials differ.
type Provider interface {
	Name() string

	// Submit registers a solving task and returns its id.
	Submit(ctx context.Context, ch *Challenge) (taskID string, err error)

	// Poll checks a task. done is false while the task is still pending;
	// when done, token carries the solution.
	Poll(ctx context.Context, taskID string) (token string, done bool, err error)
}

// taskType maps a challenge type to the wire task name used by the
// solving API.
func taskType(t Type) string {
	switch t {
	case TypeHcaptcha:
		return "HCaptchaTaskProxyless"
	case TypeTurnstile:
		return "TurnstileTaskProxyless"
	default:
		return "RecaptchaV2TaskProxyless"
	}
}

// HTTPProvider talks to a hosted solving service over its JSON API.
type HTTPProvider struct {
	name     string
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPProvider creates a provider client. endpoint is the API base URL
// without a trailing slash.
func NewHTTPProvider(name, endpoint, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *HTTPProvider) Name() string { return p.name }

type submitRequest struct {
	ClientKey string     `json:"clientKey"`
	Task      submitTask `json:"task"`
}

type submitTask struct {
	Type       string `json:"type"`
	WebsiteURL string `json:"websiteURL"`
	WebsiteKey string `json:"websiteKey"`
}

type submitResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription"`
	TaskID           string `json:"taskId"`
}

// Submit registers the challenge with the service.
func (p *HTTPProvider) Submit(ctx context.Context, ch *Challenge) (string, error) {
	req := submitRequest{
		ClientKey: p.apiKey,
		Task: submitTask{
			Type:       taskType(ch.Type),
			WebsiteURL: ch.PageURL,
			WebsiteKey: ch.SiteKey,
		},
	}

	var resp submitResponse
	if err := p.post(ctx, "/createTask", req, &resp); err != nil {
		return "", err
	}
	if resp.ErrorID != 0 {
		return "", fmt.Errorf("provider %s rejected task: %s", p.name, resp.ErrorDescription)
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("provider %s returned no task id", p.name)
	}
	return resp.TaskID, nil
}

type pollRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    string `json:"taskId"`
}

type pollResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription"`
	Status           string `json:"status"`
	Solution         struct {
		GRecaptchaResponse string `json:"gRecaptchaResponse"`
		Token              string `json:"token"`
	} `json:"solution"`
}

// Poll checks task progress. The service reports "processing" until a
// token is ready.
func (p *HTTPProvider) Poll(ctx context.Context, taskID string) (string, bool, error) {
	var resp pollResponse
	if err := p.post(ctx, "/getTaskResult", pollRequest{ClientKey: p.apiKey, TaskID: taskID}, &resp); err != nil {
		return "", false, err
	}
	if resp.ErrorID != 0 {
		return "", false, fmt.Errorf("provider %s task failed: %s", p.name, resp.ErrorDescription)
	}
	if resp.Status != "ready" {
		return "", false, nil
	}

	token := resp.Solution.GRecaptchaResponse
	if token == "" {
		token = resp.Solution.Token
	}
	if token == "" {
		return "", false, fmt.Errorf("provider %s reported ready without a token", p.name)
	}
	return token, true, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling provider %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider %s returned status %d", p.name, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding provider %s response: %w", p.name, err)
	}
	return nil
}
