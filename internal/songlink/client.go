package songlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/justestif/albumclub/internal/logging"
	"github.com/justestif/albumclub/internal/metrics"
)

const userAgent = "albumclub/1.0"

// Sentinel errors.
var (
	// ErrNoEntity is returned when the response does not describe the source entity.
	ErrNoEntity = errors.New("songlink response has no entity")

	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("songlink temporarily unavailable")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("songlink returned status %d", e.Code)
}

type cachedLinks struct {
	expires   time.Time
	platforms map[string]string
}

// Client calls song.link with pacing, a circuit breaker and a per-URL cache
// of platform links.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[[]byte]
	cacheTTL   time.Duration
	now        func() time.Time

	cache   map[string]cachedLinks
	cacheMu sync.RWMutex
}

// Option configures a Client.
type Option func(*Client)

// WithClock sets the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a song.link client.
func NewClient(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
	}

	c := &Client{
		name:       cfg.Name,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 5),
		cacheTTL:   cfg.CacheTTL,
		now:        time.Now,
		cache:      make(map[string]cachedLinks),
	}
	for _, opt := range opts {
		opt(c)
	}

	metrics.CircuitBreakerState.WithLabelValues(c.name).Set(0)
	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        c.name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to))
		},
		// Client errors and cancellations say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500 && se.Code != http.StatusTooManyRequests
			}
			return false
		},
	})
	return c
}

// Metadata returns title, artist and artwork for the entity behind sourceURL.
func (c *Client) Metadata(ctx context.Context, sourceURL string) (*Metadata, error) {
	resp, err := c.fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	if len(resp.LinksByPlatform) > 0 {
		c.storeLinks(sourceURL, resp)
	}
	if resp.EntityUniqueID == "" {
		return nil, ErrNoEntity
	}
	ent, ok := resp.EntitiesByUniqueID[resp.EntityUniqueID]
	if !ok {
		return nil, ErrNoEntity
	}
	return &Metadata{
		Title:        ent.Title,
		ArtistName:   ent.ArtistName,
		ThumbnailURL: ent.ThumbnailURL,
	}, nil
}

// PlatformKey converts an app platform name such as "apple_music" to the
// song.link key ("appleMusic"). Unknown names pass through lowercased; "other"
// and empty input give "".
func PlatformKey(platform string) string {
	normalized := strings.ToLower(strings.TrimSpace(platform))
	if key, ok := platformKeys[normalized]; ok {
		return key
	}
	return normalized
}

// ResolvePlatformURL returns the URL of sourceURL's entity on the preferred
// platform, or "" when song.link does not know one. Results are cached; a
// cached entry missing the platform is refetched.
func (c *Client) ResolvePlatformURL(ctx context.Context, sourceURL, preferredPlatform string) (string, error) {
	key := PlatformKey(preferredPlatform)
	if key == "" || sourceURL == "" {
		return "", nil
	}

	c.cacheMu.RLock()
	entry, ok := c.cache[sourceURL]
	c.cacheMu.RUnlock()
	if ok && entry.expires.After(c.now()) {
		if u := entry.platforms[key]; u != "" {
			return u, nil
		}
	}

	resp, err := c.fetch(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	return c.storeLinks(sourceURL, resp)[key], nil
}

func (c *Client) storeLinks(sourceURL string, resp *linksResponse) map[string]string {
	platforms := make(map[string]string, len(resp.LinksByPlatform))
	for k, v := range resp.LinksByPlatform {
		platforms[k] = v.URL
	}

	c.cacheMu.Lock()
	c.cache[sourceURL] = cachedLinks{expires: c.now().Add(c.cacheTTL), platforms: platforms}
	c.cacheMu.Unlock()
	return platforms
}

// fetch performs one paced, breaker-guarded lookup. No retries.
func (c *Client) fetch(ctx context.Context, sourceURL string) (*linksResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.doRequest(ctx, sourceURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.UpstreamRequests.WithLabelValues(c.name, "rejected").Inc()
			return nil, ErrUnavailable
		}
		metrics.UpstreamRequests.WithLabelValues(c.name, "failure").Inc()
		return nil, err
	}
	metrics.UpstreamRequests.WithLabelValues(c.name, "success").Inc()

	var resp linksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing songlink response: %w", err)
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, sourceURL string) ([]byte, error) {
	reqURL := c.baseURL + "?" + url.Values{"url": {sourceURL}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}
