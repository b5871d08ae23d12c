package email

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
)

// HTTPSender delivers email through a JSON HTTP API authenticated with a
// bearer token (Resend-compatible request shape).
// When the primary endpoint answers 404 the request is repeated once against
// the fallback endpoint.
type HTTPSender struct {
	client   *http.Client
	apiKey   string
	endpoint string
	fallback string
	from     string
	replyTo  string
}

// HTTPSenderOption configures HTTPSender.
type HTTPSenderOption func(*HTTPSender)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) HTTPSenderOption {
	return func(s *HTTPSender) {
		if c != nil {
			s.client = c
		}
	}
}

// NewHTTPSender creates the primary API provider from cfg.
func NewHTTPSender(cfg Config, opts ...HTTPSenderOption) (*HTTPSender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}
	if cfg.APIEndpoint == "" {
		return nil, fmt.Errorf("%w: APIEndpoint is required", ErrInvalidConfig)
	}
	if err := validateIdentity(cfg); err != nil {
		return nil, err
	}

	s := &HTTPSender{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:   cfg.APIKey,
		endpoint: cfg.APIEndpoint,
		fallback: cfg.APIFallbackEndpoint,
		from:     cfg.SenderEmail,
		replyTo:  cfg.SupportEmail,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type apiEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Tags    []apiTag `json:"tags,omitempty"`
}

type apiTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SendEmail implements EmailSender.
func (s *HTTPSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	req := apiEmailRequest{
		From:    s.from,
		To:      []string{params.SendTo},
		Subject: params.Subject,
		HTML:    params.BodyHTML,
		ReplyTo: s.replyTo,
	}
	if params.Tag != "" {
		req.Tags = []apiTag{{Name: "category", Value: params.Tag}}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}

	err = s.post(ctx, s.endpoint, payload)
	if errors.Is(err, ErrEndpointNotFound) && s.fallback != "" && s.fallback != s.endpoint {
		err = s.post(ctx, s.fallback, payload)
	}
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}

func (s *HTTPSender) post(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrEndpointNotFound, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.ReplaceAll(string(body), "\n", " ")
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return fmt.Errorf("email api returned status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func validateIdentity(cfg Config) error {
	if cfg.SenderEmail == "" {
		return fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if !validAddress(cfg.SenderEmail) {
		return fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if cfg.SupportEmail != "" && !validAddress(cfg.SupportEmail) {
		return fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}
	return nil
}
