package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.sendgrid.com"
	sendPath                    = "/v3/mail/send"
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("sendgrid api key is required")

// SendGridMailer posts messages to the SendGrid v3 mail API.
type SendGridMailer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
}

// Option configures optional mailer behavior.
type Option func(*SendGridMailer)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(m *SendGridMailer) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithBaseURL overrides the SendGrid API base URL.
func WithBaseURL(baseURL string) Option {
	return func(m *SendGridMailer) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			m.baseURL = trimmed
		}
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(m *SendGridMailer) {
		if timeout > 0 {
			m.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewSendGridMailer builds a mailer for the given API key and sender address.
func NewSendGridMailer(apiKey, from string, opts ...Option) (*SendGridMailer, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}
	sender := strings.TrimSpace(from)
	if sender == "" {
		return nil, errors.New("sendgrid sender address is required")
	}

	m := &SendGridMailer{
		apiKey:     trimmedKey,
		from:       sender,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.httpClient == nil {
		m.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return m, nil
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendgridPayload struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
}

// Send delivers msg. SendGrid answers 202 on acceptance.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if m == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "sendgrid mailer not configured")
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	to := make([]sendgridAddress, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, sendgridAddress{Email: addr})
	}
	payload := sendgridPayload{
		Personalizations: []sendgridPersonalization{{To: to}},
		From:             sendgridAddress{Email: m.from},
		Subject:          msg.Subject,
	}
	// text/plain must precede text/html.
	if strings.TrimSpace(msg.Text) != "" {
		payload.Content = append(payload.Content, sendgridContent{Type: "text/plain", Value: msg.Text})
	}
	if strings.TrimSpace(msg.HTML) != "" {
		payload.Content = append(payload.Content, sendgridContent{Type: "text/html", Value: msg.HTML})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode sendgrid payload")
	}

	url := strings.TrimRight(m.baseURL, "/") + sendPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build sendgrid request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute sendgrid request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), "sendgrid request failed")
	}
	return nil
}
