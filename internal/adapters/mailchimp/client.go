package mailchimp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/topcoder-platform/email-preferences-service/internal/domain"
	"github.com/topcoder-platform/email-preferences-service/internal/ports"
)

const memberStatusSubscribed = "subscribed"

type Config struct {
	BaseURL string
	APIKey  string
	ListID  string
}

// Client talks to the mailing-list provider's REST API. Contacts are
// addressed by the MD5 hash of their lower-cased email (domain.ContactID).
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ ports.ContactDirectory = (*Client)(nil)

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type tagListing struct {
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
}

func (c *Client) GetTags(ctx context.Context, contactID string) ([]domain.Tag, bool, error) {
	path := fmt.Sprintf("/lists/%s/members/%s/tags", c.cfg.ListID, contactID)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("list member tags: unexpected status %d", resp.StatusCode)
	}

	var listing tagListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, false, fmt.Errorf("list member tags: decode response: %w", err)
	}
	tags := make([]domain.Tag, 0, len(listing.Tags))
	for _, t := range listing.Tags {
		tags = append(tags, domain.Tag{Name: t.Name, Status: domain.TagActive})
	}
	return tags, true, nil
}

func (c *Client) CreateContact(ctx context.Context, params ports.CreateContactParams) error {
	names := make([]string, 0, len(params.Tags))
	for _, tag := range params.Tags {
		names = append(names, tag.Name)
	}
	body := map[string]any{
		"email_address": params.Email,
		"status":        memberStatusSubscribed,
		"merge_fields": map[string]string{
			"FNAME": params.FirstName,
			"LNAME": params.LastName,
		},
	}
	if len(names) > 0 {
		body["tags"] = names
	}
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/lists/%s/members", c.cfg.ListID), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("create member: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) UpdateContactMetadata(ctx context.Context, params ports.UpdateContactMetadataParams) error {
	path := fmt.Sprintf("/lists/%s/members/%s", c.cfg.ListID, params.ContactID)
	resp, err := c.do(ctx, http.MethodPatch, path, map[string]any{
		"merge_fields": map[string]string{
			"FNAME": params.FirstName,
			"LNAME": params.LastName,
		},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update member: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) ApplyTagMutations(ctx context.Context, contactID string, mutations []domain.TagMutation) error {
	tags := make([]map[string]string, 0, len(mutations))
	for _, m := range mutations {
		tags = append(tags, map[string]string{"name": m.Name, "status": string(m.Status)})
	}
	path := fmt.Sprintf("/lists/%s/members/%s/tags", c.cfg.ListID, contactID)
	resp, err := c.do(ctx, http.MethodPost, path, map[string]any{"tags": tags})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("submit tag mutations: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	// The provider ignores the username; the API key is the password.
	req.SetBasicAuth("user", c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: mailing list api: %v", domain.ErrDependencyUnavailable, err)
	}
	return resp, nil
}
