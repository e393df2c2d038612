// Package xapi looks up X community creators through the web GraphQL API.
package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default configuration values.
const (
	DefaultBaseURL  = "https://x.com/i/api/graphql"
	DefaultEndpoint = "uBpODvS60xZ1q2L88d-W2A/CommunityQuery"
	DefaultTimeout  = 10 * time.Second

	communityURLPrefix = "https://x.com/i/communities/"
	userAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
	maxBodyBytes       = 1 << 20
)

// featuresParam is the fixed feature-flag set CommunityQuery expects.
const featuresParam = `{"c9s_list_members_action_api_enabled":false,"c9s_superc9s_indication_enabled":false}`

var (
	// ErrNetwork wraps transport failures (dial, timeout, body read).
	ErrNetwork = errors.New("x api network error")
	// ErrUnparsable is returned when the body is not the expected JSON.
	ErrUnparsable = errors.New("x api response unparsable")
	// ErrNoAdmin is returned when the response carries no creator screen name.
	ErrNoAdmin = errors.New("x api response has no admin")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("x api status %d: %s", e.Code, e.Body)
}

// Credentials are the session values copied from a logged-in browser.
type Credentials struct {
	BearerToken string
	CSRFToken   string
	Cookie      string
}

// Client performs CommunityQuery lookups. Each call is a single attempt.
type Client struct {
	baseURL  string
	endpoint string
	creds    Credentials
	client   *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithBaseURL overrides the GraphQL base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithEndpoint overrides the query id/name path.
func WithEndpoint(e string) ClientOption {
	return func(c *Client) {
		c.endpoint = strings.TrimLeft(e, "/")
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new X API client.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		endpoint: DefaultEndpoint,
		creds:    creds,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type communityResponse struct {
	Data struct {
		CommunityResults struct {
			Result struct {
				CreatorResults struct {
					Result struct {
						Core struct {
							ScreenName string `json:"screen_name"`
						} `json:"core"`
					} `json:"result"`
				} `json:"creator_results"`
			} `json:"result"`
		} `json:"communityResults"`
	} `json:"data"`
}

// CommunityAdmin returns the screen name of the community's creator.
func (c *Client) CommunityAdmin(ctx context.Context, communityID string) (string, error) {
	req, err := c.newRequest(ctx, communityID)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return "", &StatusError{Code: resp.StatusCode, Body: snippet}
	}

	var parsed communityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	name := parsed.Data.CommunityResults.Result.CreatorResults.Result.Core.ScreenName
	if name == "" {
		return "", ErrNoAdmin
	}
	return name, nil
}

func (c *Client) newRequest(ctx context.Context, communityID string) (*http.Request, error) {
	variables, err := json.Marshal(map[string]string{"communityId": communityID})
	if err != nil {
		return nil, fmt.Errorf("marshal variables: %w", err)
	}

	q := url.Values{}
	q.Set("variables", string(variables))
	q.Set("features", featuresParam)

	u := c.baseURL + "/" + c.endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	h := req.Header
	h.Set("Authorization", "Bearer "+c.creds.BearerToken)
	h.Set("Content-Type", "application/json")
	h.Set("X-Csrf-Token", c.creds.CSRFToken)
	h.Set("Cookie", c.creds.Cookie)
	h.Set("X-Twitter-Active-User", "yes")
	h.Set("X-Twitter-Auth-Type", "OAuth2Session")
	h.Set("X-Twitter-Client-Language", "en")
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Referer", communityURLPrefix+communityID)
	h.Set("User-Agent", userAgent)
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("X-Client-Transaction-Id", uuid.NewString())
	return req, nil
}
