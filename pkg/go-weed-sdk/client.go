package weed

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const defaultRequestTimeout = 60 * time.Second
const defaultTokenTTL = 10 * time.Second

// Option configures the SDK clients.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient     *http.Client
	timeout        time.Duration
	logger         *slog.Logger
	scheme         string
	usePublicURL   bool
	secretProvider SecretProvider
	tokenTTL       time.Duration
	locationPicker LocationPicker
	userAgent      string
	requestID      func() string
}

func newClientConfig(opts []Option) clientConfig {
	cfg := clientConfig{
		timeout:        defaultRequestTimeout,
		logger:         slog.New(slog.DiscardHandler),
		scheme:         "http",
		tokenTTL:       defaultTokenTTL,
		locationPicker: DefaultLocationPicker,
		userAgent:      DefaultUserAgent,
		requestID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: cfg.timeout}
	}
	return cfg
}

// New creates a master client. masterAddr is "host[:port]"; the port
// defaults to DefaultMasterPort.
func New(masterAddr string, opts ...Option) (*Client, error) {
	addr, err := parseAddress(masterAddr, DefaultMasterPort)
	if err != nil {
		return nil, err
	}
	cfg := newClientConfig(opts)
	return &Client{
		master:  addr,
		baseURL: addr.BaseURL(cfg.scheme),
		cfg:     cfg,
	}, nil
}

// Client talks to the master. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	master  VolumeAddress
	baseURL string
	cfg     clientConfig
}

// MasterAddress returns the address the client was created with.
func (c *Client) MasterAddress() VolumeAddress {
	return c.master
}

// Volume returns a volume client for loc sharing this client's options.
func (c *Client) Volume(loc Location) (*VolumeClient, error) {
	addr, err := loc.Address(c.cfg.usePublicURL)
	if err != nil {
		return nil, err
	}
	return newVolumeClient(addr, c.cfg), nil
}

// VolumeAt returns a volume client for a raw "host:port" address sharing
// this client's options.
func (c *Client) VolumeAt(addr string) (*VolumeClient, error) {
	parsed, err := ParseVolumeAddress(addr)
	if err != nil {
		return nil, err
	}
	return newVolumeClient(parsed, c.cfg), nil
}

// WithHTTPClient overrides the HTTP client used for all requests. Its own
// timeout takes precedence over WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = client
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.timeout = timeout
	}
}

// WithLogger sets the structured logger. Requests are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithScheme sets the URL scheme used for addresses that carry none.
func WithScheme(scheme string) Option {
	return func(cfg *clientConfig) {
		if scheme != "" {
			cfg.scheme = scheme
		}
	}
}

// WithPublicURL makes location resolution prefer a location's public URL.
func WithPublicURL() Option {
	return func(cfg *clientConfig) {
		cfg.usePublicURL = true
	}
}

// WithSecretProvider sets the provider of the key used to sign write tokens.
func WithSecretProvider(provider SecretProvider) Option {
	return func(cfg *clientConfig) {
		cfg.secretProvider = provider
	}
}

// WithSigningKey signs write tokens with a static HMAC key.
func WithSigningKey(key []byte) Option {
	return WithSecretProvider(StaticSecret(key))
}

// WithTokenTTL sets the lifetime of locally minted write tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(cfg *clientConfig) {
		if ttl > 0 {
			cfg.tokenTTL = ttl
		}
	}
}

// WithLocationPicker overrides the location selection strategy for reads.
func WithLocationPicker(picker LocationPicker) Option {
	return func(cfg *clientConfig) {
		if picker != nil {
			cfg.locationPicker = picker
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cfg *clientConfig) {
		cfg.userAgent = ua
	}
}

// WithRequestIDGenerator overrides how X-Request-ID values are produced.
func WithRequestIDGenerator(gen func() string) Option {
	return func(cfg *clientConfig) {
		if gen != nil {
			cfg.requestID = gen
		}
	}
}
