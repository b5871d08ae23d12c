package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/storefront/pkg/environment"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Provider is a named delivery strategy tried by the Gateway.
type Provider struct {
	Name   string
	Sender EmailSender
}

// Gateway tries its providers in order and stops at the first success.
// When every provider fails (or none is configured) outside production, the
// message is handed to the development stub and the send succeeds.
// In production the failures of all providers are returned together.
type Gateway struct {
	env       environment.Environment
	providers []Provider
	stub      EmailSender
	timeout   time.Duration
	logger    *slog.Logger
}

// GatewayOption configures Gateway.
type GatewayOption func(*Gateway)

// WithProvider appends a provider to the delivery chain.
func WithProvider(name string, sender EmailSender) GatewayOption {
	return func(g *Gateway) {
		if sender != nil {
			g.providers = append(g.providers, Provider{Name: name, Sender: sender})
		}
	}
}

// WithSendTimeout bounds every single provider attempt.
func WithSendTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithStub replaces the development stub.
func WithStub(sender EmailSender) GatewayOption {
	return func(g *Gateway) {
		if sender != nil {
			g.stub = sender
		}
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(log *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if log != nil {
			g.logger = log
		}
	}
}

// NewGateway creates a gateway for env. Providers are added with WithProvider.
func NewGateway(env environment.Environment, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		env:     env,
		timeout: 10 * time.Second,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.stub == nil {
		g.stub = NewDevSender("", g.logger)
	}
	return g
}

// NewGatewayFromConfig enables the API provider when an API key is set and
// Postmark when a server token is set, in that order.
func NewGatewayFromConfig(cfg Config, env environment.Environment, log *slog.Logger) (*Gateway, error) {
	if log == nil {
		log = logger.Discard()
	}
	opts := []GatewayOption{
		WithGatewayLogger(log),
		WithSendTimeout(cfg.SendTimeout),
		WithStub(NewDevSender(cfg.DevDir, log)),
	}

	if cfg.APIKey != "" {
		api, err := NewHTTPSender(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithProvider("api", api))
	}
	if cfg.PostmarkServerToken != "" {
		pm, err := NewPostmarkClient(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithProvider("postmark", pm))
	}

	g := NewGateway(env, opts...)
	if len(g.providers) == 0 && env.IsProduction() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, ErrNoProviders)
	}
	return g, nil
}

// Providers returns the names of the configured providers in order.
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for _, p := range g.providers {
		names = append(names, p.Name)
	}
	return names
}

// SendEmail implements EmailSender.
func (g *Gateway) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	errs := make([]error, 0, len(g.providers))
	for i, p := range g.providers {
		start := time.Now()
		err := g.attempt(ctx, p, params)
		if err == nil {
			g.logger.DebugContext(ctx, "email sent",
				logger.Provider(p.Name),
				logger.Recipient(params.SendTo),
				logger.Duration(time.Since(start)),
			)
			return nil
		}

		g.logger.WarnContext(ctx, "email provider failed",
			logger.Provider(p.Name),
			logger.Attempt(i+1),
			logger.Recipient(params.SendTo),
			logger.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))

		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		errs = append(errs, ErrNoProviders)
	}

	if !g.env.IsProduction() {
		return g.stub.SendEmail(ctx, params)
	}

	return errors.Join(append([]error{ErrFailedToSendEmail}, errs...)...)
}

func (g *Gateway) attempt(ctx context.Context, p Provider, params SendEmailParams) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return p.Sender.SendEmail(ctx, params)
}
