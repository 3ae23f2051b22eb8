// Package campus provides a framework-agnostic Go SDK for an education
// platform's identity and instructor-verification backend.
//
// The SDK defines interfaces for credential storage, session resolution, the
// instructor verification workflow and the admin review queue. Concrete
// implementations are injected via Option functions, keeping the SDK
// independent of any specific transport: httpapi/ talks to the real backend
// over HTTP, fake/ is a self-contained in-memory backend for tests.
//
// Example usage against the HTTP backend, with the store selected by
// CAMPUS_* environment variables:
//
//	cfg, err := campus.ConfigFromEnv()
//	store := tokenstore.FromConfig(cfg)
//	api := httpapi.New(cfg.BaseURL, store)
//	client, err := campus.NewClient(cfg,
//	    campus.WithTokenStore(store),
//	    campus.WithIdentityAPI(api),
//	    campus.WithVerificationAPI(api),
//	    campus.WithAdminAPI(api),
//	)
package campus

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/campushq/campus-go/metrics"
)

// Client is the main entry point, bundling the injected service
// implementations behind one handle.
type Client struct {
	config   Config
	logger   *slog.Logger
	meter    *metrics.Metrics
	tokens   TokenStore
	identity IdentityAPI
	verify   VerificationAPI
	admin    AdminAPI
}

// Config holds connection and behavior configuration. Fields carry env tags
// so ConfigFromEnv can populate the struct directly.
type Config struct {
	// BaseURL is the address of the platform backend.
	BaseURL string `env:"CAMPUS_BASE_URL"`

	// RequestTimeout bounds individual backend calls. Default: 10s.
	RequestTimeout time.Duration `env:"CAMPUS_REQUEST_TIMEOUT" envDefault:"10s"`

	// TokenFile, when set, names the file-backed token store at this path.
	// Build the store with tokenstore.FromConfig and inject it via
	// WithTokenStore; NewClient fails when the field is set but no store is
	// injected.
	TokenFile string `env:"CAMPUS_TOKEN_FILE"`

	// RedisAddr, when set, names the Redis-backed token store. Consumed by
	// tokenstore.FromConfig like TokenFile.
	RedisAddr string `env:"CAMPUS_REDIS_ADDR"`

	// RedisKey is the key the Redis token store writes under.
	RedisKey string `env:"CAMPUS_REDIS_KEY" envDefault:"campus:credentials"`

	// MetricsEnabled turns on Prometheus metrics registration. Registration
	// is process-global, so enable it on at most one client or share one
	// instance via WithMetrics.
	MetricsEnabled bool `env:"CAMPUS_METRICS_ENABLED" envDefault:"false"`
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics shares an existing metrics instance instead of having
// NewClient construct one from Config.MetricsEnabled.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.meter = m }
}

// WithTokenStore sets the credential storage implementation.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// WithIdentityAPI sets the identity service boundary implementation.
func WithIdentityAPI(a IdentityAPI) Option {
	return func(c *Client) { c.identity = a }
}

// WithVerificationAPI sets the instructor verification boundary
// implementation.
func WithVerificationAPI(a VerificationAPI) Option {
	return func(c *Client) { c.verify = a }
}

// WithAdminAPI sets the admin review boundary implementation.
func WithAdminAPI(a AdminAPI) Option {
	return func(c *Client) { c.admin = a }
}

// DefaultRequestTimeout bounds backend calls when Config leaves it unset.
const DefaultRequestTimeout = 10 * time.Second

// NewClient creates a new client with the given configuration and options.
// A BaseURL is required unless all service boundaries are injected directly.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	c := &Client{config: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	if c.meter == nil {
		c.meter = metrics.New(cfg.MetricsEnabled)
	}

	if cfg.BaseURL == "" && (c.identity == nil || c.verify == nil || c.admin == nil) {
		return nil, fmt.Errorf("campus: BaseURL is required when service boundaries are not injected")
	}
	if c.tokens == nil && (cfg.TokenFile != "" || cfg.RedisAddr != "") {
		return nil, fmt.Errorf("campus: config names a token store; build it with tokenstore.FromConfig and inject it with WithTokenStore")
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Logger returns the configured logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Metrics returns the metrics instance, for sharing with session.WithMetrics
// and the other component options.
func (c *Client) Metrics() *metrics.Metrics { return c.meter }

// Tokens returns the token store, or nil if not configured.
func (c *Client) Tokens() TokenStore { return c.tokens }

// Identity returns the identity service boundary, or nil if not configured.
func (c *Client) Identity() IdentityAPI { return c.identity }

// Verification returns the verification boundary, or nil if not configured.
func (c *Client) Verification() VerificationAPI { return c.verify }

// Admin returns the admin review boundary, or nil if not configured.
func (c *Client) Admin() AdminAPI { return c.admin }

// Close releases all resources held by the client.
// Any injected service that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []any{c.tokens, c.identity, c.verify, c.admin}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
