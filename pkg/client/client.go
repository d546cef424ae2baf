package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/metalake/metalake-go/pkg/apierror"
	"github.com/metalake/metalake-go/pkg/model"
)

// API paths.
const (
	pathTypeDefs      = "/api/meta/typedefs"
	pathUsers         = "/api/service/users"
	pathGroups        = "/api/service/groups"
	pathRoles         = "/api/service/roles"
	pathTokens        = "/api/service/apikeys"
	pathSearch        = "/api/meta/search"
	pathBulk          = "/api/meta/entity/bulk"
	headerAuth        = "Authorization"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Circuit breaker tuning: open after a 60% failure rate over at least 10
// requests, recover after 30 seconds.
const (
	breakerMinRequests  = 10
	breakerFailureRatio = 0.6
	breakerTimeout      = 30 * time.Second
	breakerMaxRequests  = 3
)

// HTTPCaller is the concrete ApiCaller speaking JSON over HTTP with
// bearer-token auth, bounded retries, client-side rate limiting, and a
// circuit breaker around every round trip.
type HTTPCaller struct {
	cfg     Config
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

// Verify interface compliance.
var _ ApiCaller = (*HTTPCaller)(nil)

// New creates an HTTPCaller.
func New(cfg Config) (*HTTPCaller, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	cfg = cfg.withDefaults()

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &HTTPCaller{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  cfg.Logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "metalake-api",
		MaxRequests: breakerMaxRequests,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= breakerFailureRatio
		},
		// Client-side errors mean the server is healthy; only transport and
		// server failures should trip the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var ae *apierror.APIError
			if errors.As(err, &ae) {
				return ae.StatusCode >= 400 && ae.StatusCode < 500 && ae.StatusCode != http.StatusTooManyRequests
			}
			return apierror.IsAuth(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("client: circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return c, nil
}

// GetTypeDefs fetches type definitions for the given categories.
func (c *HTTPCaller) GetTypeDefs(ctx context.Context, categories ...model.TypeDefCategory) (*model.TypeDefResponse, error) {
	query := url.Values{}
	for _, cat := range categories {
		query.Add("type", string(cat))
	}
	var out model.TypeDefResponse
	if err := c.do(ctx, http.MethodGet, pathTypeDefs, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchUsers returns the full user listing.
func (c *HTTPCaller) SearchUsers(ctx context.Context) (*model.UserResponse, error) {
	var out model.UserResponse
	if err := c.do(ctx, http.MethodGet, pathUsers, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchGroups returns the full group listing.
func (c *HTTPCaller) SearchGroups(ctx context.Context) (*model.GroupResponse, error) {
	var out model.GroupResponse
	if err := c.do(ctx, http.MethodGet, pathGroups, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRoles returns the full role listing.
func (c *HTTPCaller) ListRoles(ctx context.Context) (*model.RoleResponse, error) {
	var out model.RoleResponse
	if err := c.do(ctx, http.MethodGet, pathRoles, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTokenByClientID looks up an API token by client ID. Returns nil, nil
// when no such token exists.
func (c *HTTPCaller) GetTokenByClientID(ctx context.Context, clientID string) (*model.APIToken, error) {
	return c.getToken(ctx, pathTokens+"/clientid/"+url.PathEscape(clientID))
}

// GetTokenByGUID looks up an API token by GUID. Returns nil, nil when no such
// token exists.
func (c *HTTPCaller) GetTokenByGUID(ctx context.Context, guid string) (*model.APIToken, error) {
	return c.getToken(ctx, pathTokens+"/"+url.PathEscape(guid))
}

func (c *HTTPCaller) getToken(ctx context.Context, path string) (*model.APIToken, error) {
	var out model.APIToken
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	if err != nil {
		var ae *apierror.APIError
		if errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// Search returns a lazy page iterator over the matching assets. The request's
// From and Size fields are managed by the iterator.
func (c *HTTPCaller) Search(_ context.Context, req model.SearchRequest) (*SearchResults, error) {
	fetch := func(ctx context.Context, from, size int) ([]model.Asset, error) {
		page := req
		page.From = from
		page.Size = size
		var out model.SearchResponse
		if err := c.do(ctx, http.MethodPost, pathSearch, nil, page, &out); err != nil {
			return nil, err
		}
		return out.Assets, nil
	}
	size := req.Size
	if size == 0 {
		size = c.cfg.PageSize
	}
	return NewSearchResults(size, fetch), nil
}

// Save persists assets in one bulk call.
func (c *HTTPCaller) Save(ctx context.Context, assets []*model.Asset, opts model.SaveOptions) (*model.MutationResponse, error) {
	query := url.Values{}
	if opts.CustomMetadataHandling != "" && opts.CustomMetadataHandling != model.CustomMetadataIgnore {
		query.Set("customMetadataHandling", string(opts.CustomMetadataHandling))
	}
	body := map[string]any{"entities": assets}
	var out model.MutationResponse
	if err := c.do(ctx, http.MethodPost, pathBulk, query, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one logical API call: rate limit, circuit breaker, bounded
// retries, JSON decode.
func (c *HTTPCaller) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, query, payload)
	})
	if err != nil {
		return err
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// roundTrip sends the request, retrying transport errors, 429s, and 5xx
// responses with exponential backoff and jitter.
func (c *HTTPCaller) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt)
			c.logger.Debug("client: retrying request",
				"method", method, "path", path, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("building %s %s: %w", method, path, err)
		}
		req.Header.Set(headerAuth, "Bearer "+c.cfg.APIKey)
		req.Header.Set("Accept", contentTypeJSON)
		if len(payload) > 0 {
			req.Header.Set(headerContentType, contentTypeJSON)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("sending %s %s: %w", method, path, err)
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("reading %s %s response: %w", method, path, readErr)
			continue
		}

		switch {
		case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
			return data, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, apierror.NewExpiredCredential("%s %s rejected with status %d", method, path, resp.StatusCode)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			lastErr = &apierror.APIError{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Message:    truncateBody(data),
			}
			continue
		default:
			return nil, &apierror.APIError{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Message:    truncateBody(data),
			}
		}
	}
	return nil, lastErr
}

// backoffDelay returns the exponential backoff delay for the given attempt,
// with up to 50% random jitter.
func (c *HTTPCaller) backoffDelay(attempt int) time.Duration {
	base := c.cfg.RetryBaseDelay << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
	return base + jitter
}

const maxErrorBodyLen = 512

func truncateBody(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > maxErrorBodyLen {
		return s[:maxErrorBodyLen] + "..."
	}
	return s
}
