package ercot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"spp-forecast/internal/fetch"
)

// TokenObserver is notified after every token refresh attempt.
type TokenObserver interface {
	ObserveTokenRefresh(outcome string, d time.Duration)
}

// TokenCache hands out the ERCOT id token, refreshing it through a single
// in-flight request when the cached one has expired.
type TokenCache struct {
	http     *fetch.Client
	settings Settings
	now      func() time.Time
	log      zerolog.Logger
	observer TokenObserver

	group singleflight.Group

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

type TokenOption func(*TokenCache)

func WithTokenClock(now func() time.Time) TokenOption {
	return func(tc *TokenCache) { tc.now = now }
}

func WithTokenLogger(l zerolog.Logger) TokenOption {
	return func(tc *TokenCache) { tc.log = l }
}

func WithTokenObserver(o TokenObserver) TokenOption {
	return func(tc *TokenCache) { tc.observer = o }
}

func NewTokenCache(httpc *fetch.Client, s Settings, opts ...TokenOption) *TokenCache {
	tc := &TokenCache{
		http:     httpc,
		settings: s.withDefaults(),
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Token returns a cached token or waits for the shared refresh. Cancelling
// ctx releases this caller only; the refresh keeps running for the others.
func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	if tok, ok := tc.cached(); ok {
		return tok, nil
	}
	if tc.settings.Username == "" {
		return "", &ConfigError{Setting: "ERCOT_USERNAME"}
	}
	if tc.settings.Password == "" {
		return "", &ConfigError{Setting: "ERCOT_PASSWORD"}
	}

	refreshCtx := context.WithoutCancel(ctx)
	ch := tc.group.DoChan("token", func() (any, error) {
		// A caller that missed the cache just before a refresh finished
		// lands here after the flight is gone.
		if tok, ok := tc.cached(); ok {
			return tok, nil
		}
		return tc.refresh(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return "", &fetch.TransportError{Label: TokenLabel, Canceled: true, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (tc *TokenCache) cached() (string, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.token != "" && tc.now().Before(tc.expiresAt) {
		return tc.token, true
	}
	return "", false
}

type tokenResponse struct {
	IDToken string `json:"id_token"`
}

func (tc *TokenCache) refresh(ctx context.Context) (string, error) {
	s := tc.settings
	started := tc.now()
	tc.log.Info().Str("label", TokenLabel).Msg("refreshing token")

	form := url.Values{
		"username":      {s.Username},
		"password":      {s.Password},
		"grant_type":    {"password"},
		"scope":         {s.Scope},
		"client_id":     {s.ClientID},
		"response_type": {"id_token"},
	}
	res, err := tc.http.Do(ctx, fetch.Request{Method: http.MethodPost, URL: s.TokenURL, Form: form}, fetch.Policy{
		Label:         TokenLabel,
		MaxRetries:    s.MaxRetries,
		BaseRetry:     s.BaseRetry,
		Timeout:       s.Timeout,
		MaxRetryDelay: s.MaxRetryDelay,
	})
	if err != nil {
		tc.report("error", started)
		return "", err
	}

	var body tokenResponse
	if err := json.Unmarshal(res.Body, &body); err != nil {
		tc.report("error", started)
		return "", &SchemaError{Reason: "token response is not JSON: " + err.Error()}
	}
	if body.IDToken == "" {
		tc.report("error", started)
		return "", &SchemaError{Field: "id_token", Reason: "missing from token response"}
	}

	tc.mu.Lock()
	tc.token = body.IDToken
	tc.expiresAt = tc.now().Add(s.TokenTTL)
	expiresAt := tc.expiresAt
	tc.mu.Unlock()

	tc.report("success", started)
	tc.log.Info().Str("label", TokenLabel).Time("expires_at", expiresAt).Int("attempts", res.Attempts).Msg("token refreshed")
	return body.IDToken, nil
}

func (tc *TokenCache) report(outcome string, started time.Time) {
	if tc.observer != nil {
		tc.observer.ObserveTokenRefresh(outcome, tc.now().Sub(started))
	}
}
