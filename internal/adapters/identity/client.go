package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/topcoder-platform/email-preferences-service/internal/domain"
	"github.com/topcoder-platform/email-preferences-service/internal/ports"
)

const tokenCacheKey = "identity:m2m_token"

type Config struct {
	SearchUsersURL string
	AuthURL        string
	AuthAudience   string
	ClientID       string
	ClientSecret   string
	TokenCacheTTL  time.Duration
}

// Client resolves member identities through the platform's user-search
// API, authenticating with a client-credentials machine token that is
// cached until shortly before expiry.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     ports.Cache
}

func NewClient(cfg Config, tokens ports.Cache) *Client {
	if cfg.TokenCacheTTL <= 0 {
		cfg.TokenCacheTTL = 80 * time.Minute
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokens:     tokens,
	}
}

type searchUsersResponse struct {
	Result struct {
		Success bool `json:"success"`
		Content []struct {
			Email     string `json:"email"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		} `json:"content"`
	} `json:"result"`
}

func (c *Client) GetUser(ctx context.Context, userID string) (domain.UserIdentity, error) {
	token, err := c.machineToken(ctx)
	if err != nil {
		return domain.UserIdentity{}, err
	}

	url := fmt.Sprintf("%s?filter=id=%s", c.cfg.SearchUsersURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.UserIdentity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.UserIdentity{}, fmt.Errorf("%w: search users: %v", domain.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.UserIdentity{}, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.UserIdentity{}, fmt.Errorf("search users: unexpected status %d", resp.StatusCode)
	}

	var body searchUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.UserIdentity{}, fmt.Errorf("search users: decode response: %w", err)
	}
	if !body.Result.Success || len(body.Result.Content) == 0 {
		return domain.UserIdentity{}, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}

	user := body.Result.Content[0]
	if user.Email == "" {
		return domain.UserIdentity{}, fmt.Errorf("%w: user %s has no email", domain.ErrNotFound, userID)
	}
	if user.FirstName == "" {
		return domain.UserIdentity{}, fmt.Errorf("missing firstName for user %s", userID)
	}
	if user.LastName == "" {
		return domain.UserIdentity{}, fmt.Errorf("missing lastName for user %s", userID)
	}
	return domain.UserIdentity{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) machineToken(ctx context.Context) (string, error) {
	if cached, found, err := c.tokens.Get(ctx, tokenCacheKey); err == nil && found {
		return cached, nil
	}

	payload, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"audience":      c.cfg.AuthAudience,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch machine token: %v", domain.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch machine token: unexpected status %d", resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("fetch machine token: decode response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("fetch machine token: empty access_token")
	}

	ttl := c.cfg.TokenCacheTTL
	if body.ExpiresIn > 0 {
		// Never cache past the token's own lifetime.
		expiry := time.Duration(body.ExpiresIn) * time.Second
		if expiry < ttl {
			ttl = expiry - time.Minute
		}
	}
	if ttl > 0 {
		_ = c.tokens.Set(ctx, tokenCacheKey, body.AccessToken, ttl)
	}
	return body.AccessToken, nil
}
