package spapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/marginfox/marginfox/internal/clock"
)

// tokenExpirySkew refreshes the access token slightly before the advertised
// expiry so an in-flight request never carries a just-expired token.
const tokenExpirySkew = time.Minute

type lwaTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// lwaTokenSource exchanges an account's long-lived refresh token for
// short-lived access tokens and caches them until expiry.
type lwaTokenSource struct {
	http         *resty.Client
	endpoint     string
	clientID     string
	clientSecret string
	refreshToken string
	clk          clock.Clock

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newLWATokenSource(http *resty.Client, endpoint, clientID, clientSecret, refreshToken string, clk clock.Clock) *lwaTokenSource {
	return &lwaTokenSource{
		http:         http,
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		clk:          clk,
	}
}

func (s *lwaTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.clk.Now().Before(s.expiresAt.Add(-tokenExpirySkew)) {
		return s.token, nil
	}

	var tokenResp lwaTokenResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": s.refreshToken,
			"client_id":     s.clientID,
			"client_secret": s.clientSecret,
		}).
		SetResult(&tokenResp).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("token refresh request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("token refresh rejected (status %d): %s", resp.StatusCode(), resp.String())
	}
	if tokenResp.Error != "" {
		return "", fmt.Errorf("token refresh error %s: %s", tokenResp.Error, tokenResp.ErrorDesc)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token refresh returned no access token: %s", resp.String())
	}

	s.token = tokenResp.AccessToken
	s.expiresAt = s.clk.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return s.token, nil
}
