package chat

import (
	"net/http"
	"time"
)

const defaultReadLimit = 16 << 20

type config struct {
	env         Environment
	envSet      bool
	baseURL     string
	httpClient  *http.Client
	header      http.Header
	dialTimeout time.Duration
	readLimit   int64
}

// Option configures Open and Ask.
type Option func(*config)

// WithEnvironment overrides DetectEnvironment.
func WithEnvironment(env Environment) Option {
	return func(c *config) {
		c.env = env
		c.envSet = true
	}
}

// WithBaseURL overrides SERVER_BASE_URL for the loopback and server-side cases.
func WithBaseURL(baseURL string) Option {
	return func(c *config) { c.baseURL = baseURL }
}

// WithHTTPClient sets the client used for the opening handshake. Ignored in the browser.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithHeader adds headers to the opening handshake. Ignored in the browser.
func WithHeader(h http.Header) Option {
	return func(c *config) { c.header = h }
}

// WithDialTimeout bounds the opening handshake. Zero means no bound beyond the context.
func WithDialTimeout(d time.Duration) Option {
	return func(c *config) { c.dialTimeout = d }
}

// WithReadLimit caps the size of a single inbound frame in bytes.
func WithReadLimit(n int64) Option {
	return func(c *config) { c.readLimit = n }
}

func newConfig(opts []Option) *config {
	c := &config{readLimit: defaultReadLimit}
	for _, o := range opts {
		o(c)
	}
	if !c.envSet {
		c.env = DetectEnvironment()
	}
	return c
}

func (c *config) endpoint() string {
	if c.baseURL != "" {
		return ResolveEndpoint(c.env, c.baseURL)
	}
	return c.env.Endpoint()
}
