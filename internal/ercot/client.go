package ercot

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"spp-forecast/internal/fetch"
	"spp-forecast/internal/model"
)

// BreakerSettings configures the optional circuit breaker around page
// fetches.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Client fetches settlement point price pages from the public reports API.
type Client struct {
	http     *fetch.Client
	tokens   *TokenCache
	settings Settings
	cache    PageCache
	breaker  *gobreaker.CircuitBreaker
	log      zerolog.Logger
}

type ClientOption func(*Client)

// WithPageCache enables the raw page cache.
func WithPageCache(pc PageCache) ClientOption {
	return func(c *Client) { c.cache = pc }
}

// WithBreaker wraps every page fetch in a circuit breaker.
func WithBreaker(b BreakerSettings) ClientOption {
	return func(c *Client) {
		failures := b.ConsecutiveFailures
		if failures == 0 {
			failures = 5
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    DataLabel,
			Timeout: b.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: countsAsHealthy,
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		})
	}
}

func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

func NewClient(httpc *fetch.Client, tokens *TokenCache, s Settings, opts ...ClientOption) *Client {
	c := &Client{
		http:     httpc,
		tokens:   tokens,
		settings: s.withDefaults(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage fetches and decodes one page of q.
func (c *Client) FetchPage(ctx context.Context, q model.RangeQuery, page int) (model.Page, error) {
	if c.settings.SubscriptionKey == "" {
		return model.Page{}, &ConfigError{Setting: "ERCOT_SUBSCRIPTION_KEY"}
	}
	if page < 1 {
		page = 1
	}

	key := PageCacheKey(q, page)
	if body, ok := c.cacheGet(ctx, key); ok {
		if p, err := DecodePage(body); err == nil {
			c.log.Debug().Str("settlement_point", q.SettlementPoint).Int("page", page).Int("records", len(p.Records)).Msg("page cache hit")
			return p, nil
		}
	}

	body, err := c.guarded(func() ([]byte, error) { return c.fetchBody(ctx, q, page) })
	if err != nil {
		return model.Page{}, err
	}
	p, err := DecodePage(body)
	if err != nil {
		return model.Page{}, err
	}
	c.cacheSet(ctx, key, body)
	return p, nil
}

func (c *Client) fetchBody(ctx context.Context, q model.RangeQuery, page int) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(strings.TrimRight(c.settings.BaseURL, "/") + "/" + strings.TrimLeft(c.settings.ProductPath, "/"))
	if err != nil {
		return nil, &ConfigError{Setting: "ercot.base_url"}
	}
	params := u.Query()
	params.Set("deliveryDateFrom", q.DeliveryDateFrom)
	params.Set("deliveryDateTo", q.DeliveryDateTo)
	params.Set("settlementPoint", q.SettlementPoint)
	params.Set("page", strconv.Itoa(page))
	u.RawQuery = params.Encode()

	header := http.Header{}
	header.Set(subscriptionKeyHeader, c.settings.SubscriptionKey)
	header.Set(authorizationHeader, "Bearer "+token)
	header.Set("Accept", "application/json")

	c.log.Debug().
		Str("path", u.Path).
		Str("settlement_point", q.SettlementPoint).
		Str("from", q.DeliveryDateFrom).
		Str("to", q.DeliveryDateTo).
		Int("page", page).
		Msg("requesting page")

	res, err := c.http.Do(ctx, fetch.Request{Method: http.MethodGet, URL: u.String(), Header: header}, fetch.Policy{
		Label:         DataLabel,
		MaxRetries:    c.settings.MaxRetries,
		BaseRetry:     c.settings.BaseRetry,
		Timeout:       c.settings.Timeout,
		MaxRetryDelay: c.settings.MaxRetryDelay,
	})
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (c *Client) guarded(fn func() ([]byte, error)) ([]byte, error) {
	if c.breaker == nil {
		return fn()
	}
	out, err := c.breaker.Execute(func() (interface{}, error) { return fn() })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

// countsAsHealthy keeps caller mistakes and cancellations from tripping the
// breaker. Only upstream trouble counts against it.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrConfiguration) || errors.Is(err, fetch.ErrCanceled) {
		return true
	}
	var se *fetch.StatusError
	if errors.As(err, &se) {
		return !se.Retryable()
	}
	return false
}

func (c *Client) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Msg("page cache read failed")
		return nil, false
	}
	return body, ok
}

func (c *Client) cacheSet(ctx context.Context, key string, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, body); err != nil {
		c.log.Warn().Err(err).Msg("page cache write failed")
	}
}
