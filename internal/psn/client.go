// Package psn talks to the PlayStation Network private APIs: the OAuth
// exchange that turns an npsso cookie into tokens, and authenticated GETs
// against the trophy and profile endpoints.
package psn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/metrics"
)

// Public client credentials of the official mobile app.
const (
	clientID    = "09515159-7237-4370-9b40-3806e67c0891"
	basicAuth   = "Basic MDk1MTUxNTktNzIzNy00MzcwLTliNDAtMzgwNmU2N2MwODkxOnVjUGprYTV0bnRCMktxc1A="
	redirectURI = "com.scee.psxandroid.scecompcall://redirect"
	scope       = "psn:mobile.v2.core psn:clientapp"

	// LegacyParam is appended once when a trophy endpoint 404s; PS4-era titles
	// live under the "trophy" service instead of the default "trophy2".
	LegacyParam = "npServiceName"
	legacyValue = "trophy"
)

type Config struct {
	AuthBaseURL    string
	APIBaseURL     string
	ProfileBaseURL string
	// Timeout of zero leaves the http.Client default (none).
	Timeout time.Duration
}

// ConfigFromEnv reads vendor endpoints from the environment.
func ConfigFromEnv() Config {
	cfg := Config{
		AuthBaseURL:    envOr("PSN_AUTH_BASE_URL", "https://ca.account.sony.com/api/authz/v3/oauth"),
		APIBaseURL:     envOr("PSN_API_BASE_URL", "https://m.np.playstation.com/api"),
		ProfileBaseURL: envOr("PSN_PROFILE_BASE_URL", "https://us-prof.np.community.playstation.net/userProfile/v1"),
	}
	if v := os.Getenv("PSN_HTTP_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Timeout = time.Duration(n) * time.Second
		}
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// TokenResponse is the body of the vendor token endpoint.
type TokenResponse struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	ExpiresIn             int64  `json:"expires_in"`
	Scope                 string `json:"scope"`
	IDToken               string `json:"id_token"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	AccountID             string `json:"account_id"`
}

// Client is a thin vendor HTTP client. It does not hold tokens.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.SugaredLogger
}

func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// ExchangeCode trades the npsso secret for a one-time authorization code.
func (c *Client) ExchangeCode(ctx context.Context, npsso string) (string, error) {
	q := url.Values{}
	q.Set("access_type", "offline")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", scope)
	u := c.cfg.AuthBaseURL + "/authorize?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Cookie", "npsso="+npsso)

	noRedirect := *c.http
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := noRedirect.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, URL: u, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil || loc.Query().Get("code") == "" {
		return "", &Error{Kind: KindAuthExpired, Status: resp.StatusCode, Body: "npsso rejected", URL: u, Err: ErrNoAuthCode}
	}
	return loc.Query().Get("code"), nil
}

// ExchangeToken trades an authorization code for an access/refresh token pair.
func (c *Client) ExchangeToken(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("grant_type", "authorization_code")
	form.Set("token_format", "jwt")
	return c.postToken(ctx, form)
}

// RefreshToken runs the refresh_token grant.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")
	form.Set("token_format", "jwt")
	form.Set("scope", scope)
	return c.postToken(ctx, form)
}

func (c *Client) postToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	u := c.cfg.AuthBaseURL + "/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", basicAuth)

	body, err := c.send(req)
	if err != nil {
		return nil, err
	}
	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &tr, nil
}

// Do issues a single request with the bearer token and extra headers.
func (c *Client) Do(ctx context.Context, method, rawURL, accessToken string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.send(req)
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	u := req.URL.String()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: u, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: u, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: classify(resp.StatusCode, string(body)), Status: resp.StatusCode, Body: string(body), URL: u}
	}
	return body, nil
}

// GetJSON performs a GET and decodes the body into out (skipped when out is nil).
// A 404 on a URL without the legacy service parameter is retried once with it.
func (c *Client) GetJSON(ctx context.Context, rawURL, accessToken string, headers map[string]string, out any) error {
	body, err := c.Do(ctx, http.MethodGet, rawURL, accessToken, headers)
	if IsKind(err, KindNotFound) && !hasLegacyParam(rawURL) {
		retryURL := withLegacyParam(rawURL)
		c.logger.Debugw("vendor 404, retrying with legacy service", "url", retryURL)
		metrics.VendorRetries.WithLabelValues("legacy").Inc()
		body, err = c.Do(ctx, http.MethodGet, retryURL, accessToken, headers)
	}
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

func hasLegacyParam(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return u.Query().Has(LegacyParam)
}

func withLegacyParam(rawURL string) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + LegacyParam + "=" + legacyValue
}
