// Package spotify is a minimal Spotify Web API client: client-credentials
// auth and the batched track and artist lookups used for enrichment.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/chart-etl/internal/resilience"
)

const (
	defaultBaseURL = "https://api.spotify.com/v1"
	defaultAuthURL = "https://accounts.spotify.com/api/token"

	// MaxBatch is the largest number of IDs one lookup accepts.
	MaxBatch = 50
)

// ErrRateLimited is returned when the API answers 429.
var ErrRateLimited = errors.New("spotify: rate limited")

// RateLimitError carries the Retry-After hint of a 429 response.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("spotify: rate limited (retry after %s)", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Client performs Spotify Web API lookups.
type Client interface {
	// Tracks returns up to MaxBatch tracks. Unknown IDs yield nil entries.
	Tracks(ctx context.Context, ids []string) ([]*Track, error)
	// Artists returns up to MaxBatch artists. Unknown IDs yield nil entries.
	Artists(ctx context.Context, ids []string) ([]*Artist, error)
}

// Track is the subset of the track object used here.
type Track struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Artists []SimpleArtist `json:"artists"`
}

// PrimaryArtist returns the first credited artist, or nil.
func (t *Track) PrimaryArtist() *SimpleArtist {
	if t == nil || len(t.Artists) == 0 || t.Artists[0].ID == "" {
		return nil
	}
	return &t.Artists[0]
}

// SimpleArtist is an artist reference inside a track.
type SimpleArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Artist is the subset of the full artist object used here.
type Artist struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Followers  Followers `json:"followers"`
	Popularity int       `json:"popularity"`
}

// Followers holds the follower total. Total is nil when the API omits it.
type Followers struct {
	Total *int64 `json:"total"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAuthURL overrides the token endpoint.
func WithAuthURL(u string) Option {
	return func(c *httpClient) {
		c.authURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry sets the retry policy for 5xx and network failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	authURL      string
	http         *http.Client
	limiter      *rate.Limiter
	retry        resilience.RetryConfig

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClient creates a Spotify client authenticating with the client
// credentials flow.
func NewClient(clientID, clientSecret string, opts ...Option) Client {
	c := &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		authURL:      defaultAuthURL,
		http:         &http.Client{Timeout: 15 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(2), 2),
		retry:        resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type tracksResponse struct {
	Tracks []*Track `json:"tracks"`
}

type artistsResponse struct {
	Artists []*Artist `json:"artists"`
}

func (c *httpClient) Tracks(ctx context.Context, ids []string) ([]*Track, error) {
	var out tracksResponse
	if err := c.batch(ctx, "/tracks", ids, &out); err != nil {
		return nil, err
	}
	return out.Tracks, nil
}

func (c *httpClient) Artists(ctx context.Context, ids []string) ([]*Artist, error) {
	var out artistsResponse
	if err := c.batch(ctx, "/artists", ids, &out); err != nil {
		return nil, err
	}
	return out.Artists, nil
}

func (c *httpClient) batch(ctx context.Context, path string, ids []string, out any) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxBatch {
		return eris.Errorf("spotify: %d ids exceeds batch limit of %d", len(ids), MaxBatch)
	}
	endpoint := c.baseURL + path + "?ids=" + url.QueryEscape(strings.Join(ids, ","))

	retry := c.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("spotify", path)
	}
	body, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "spotify: unmarshal %s response", path)
	}
	return nil
}

func (c *httpClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "spotify: rate limit wait")
		}
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "spotify: create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "spotify: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "spotify: read response")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode == http.StatusUnauthorized:
		c.invalidateToken()
		return nil, resilience.NewTransientError(eris.New("spotify: token rejected"), resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, resilience.StatusError("spotify", resp.StatusCode, string(body))
	}
	return body, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached bearer token, fetching a new one shortly
// before expiry.
func (c *httpClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}
	if c.clientID == "" || c.clientSecret == "" {
		return "", eris.New("spotify: client id and secret are required")
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "spotify: create token request")
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "spotify: token request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "spotify: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", resilience.StatusError("spotify: token", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", eris.Wrap(err, "spotify: unmarshal token")
	}
	if tok.AccessToken == "" {
		return "", eris.New("spotify: empty access token")
	}

	c.token = tok.AccessToken
	c.expires = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - 30*time.Second)
	return c.token, nil
}

func (c *httpClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
