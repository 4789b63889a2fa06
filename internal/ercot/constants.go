package ercot

import "time"

// Public API defaults for the settlement point price report (NP6-905-CD).
const (
	DefaultTokenURL    = "https://ercotb2c.b2clogin.com/ercotb2c.onmicrosoft.com/B2C_1_PUBAPI-ROPC-FLOW/oauth2/v2.0/token"
	DefaultClientID    = "fec253ea-0d06-4272-a5e6-b478baeecd70"
	DefaultScope       = "openid " + DefaultClientID + " offline_access"
	DefaultBaseURL     = "https://api.ercot.com/api/public-reports"
	DefaultProductPath = "np6-905-cd/spp_node_zone_hub"

	DefaultMaxRetries = 5
	DefaultBaseRetry  = 400 * time.Millisecond
	DefaultTimeout    = 15 * time.Second
	// Tokens live for an hour upstream.
	DefaultTokenTTL = 50 * time.Minute
)

// Labels used in error messages, logs and metrics.
const (
	TokenLabel = "ERCOT token"
	DataLabel  = "ERCOT data"
)

// Header names required by the data endpoint.
const (
	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
	authorizationHeader   = "Authorization"
)

// Settings carries everything the ERCOT clients need. Zero values fall back
// to the package defaults; credentials have no default.
type Settings struct {
	TokenURL        string
	BaseURL         string
	ProductPath     string
	ClientID        string
	Scope           string
	Username        string
	Password        string
	SubscriptionKey string

	MaxRetries    int
	BaseRetry     time.Duration
	Timeout       time.Duration
	MaxRetryDelay time.Duration
	TokenTTL      time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.TokenURL == "" {
		s.TokenURL = DefaultTokenURL
	}
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	if s.ProductPath == "" {
		s.ProductPath = DefaultProductPath
	}
	if s.ClientID == "" {
		s.ClientID = DefaultClientID
	}
	if s.Scope == "" {
		s.Scope = "openid " + s.ClientID + " offline_access"
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = DefaultMaxRetries
	}
	if s.BaseRetry <= 0 {
		s.BaseRetry = DefaultBaseRetry
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if s.TokenTTL <= 0 {
		s.TokenTTL = DefaultTokenTTL
	}
	return s
}
