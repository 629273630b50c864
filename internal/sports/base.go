// Package sports implements thin clients for the upstream sports data
// providers. Every public method returns a result envelope with a
// "success" flag instead of surfacing transport errors to callers, so
// a failed lookup can still be cached and explained to the user.
package sports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"sportscast/pkg/cache"
	"sportscast/pkg/logger"
	"sportscast/pkg/model"
	"sportscast/pkg/resilience"
)

const responseCacheTTL = time.Hour

// ResponseCachePatterns returns the redis key patterns covering the
// cached upstream responses that serve one domain, for invalidation
// alongside a result-cache clear.
func ResponseCachePatterns(domain model.Domain) []string {
	switch domain {
	case model.DomainMotorsport:
		return []string{"api:ergast:*"}
	case model.DomainFootball:
		return []string{"api:football-data:*"}
	case model.DomainBasketball:
		return []string{"api:espn:*", "api:nba-stats:*"}
	}
	return nil
}

// apiClient wraps one upstream HTTP API with rate limiting, a circuit
// breaker, retries and an optional shared response cache.
type apiClient struct {
	name    string
	baseURL string
	headers map[string]string

	http    *http.Client
	limiter *resilience.RateLimiter
	breaker *resilience.CircuitBreaker
	cache   cache.Cache
	log     *zap.Logger
}

func newAPIClient(name, baseURL string, headers map[string]string, rateLimit int, responseCache cache.Cache) *apiClient {
	return &apiClient{
		name:    name,
		baseURL: baseURL,
		headers: headers,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: resilience.NewRateLimiter(rateLimit, time.Minute),
		breaker: resilience.NewCircuitBreaker(5, 30*time.Second),
		cache:   responseCache,
		log:     logger.Named(name),
	}
}

// getJSON fetches endpoint with the given query parameters and decodes
// the body into dest. Successful responses are kept in the shared
// cache for an hour.
func (c *apiClient) getJSON(ctx context.Context, endpoint string, query url.Values, dest interface{}) error {
	cacheKey := cache.ResponseCacheKey(c.name, endpoint, query.Encode())

	if c.cache != nil {
		var raw json.RawMessage
		if err := c.cache.Get(ctx, cacheKey, &raw); err == nil {
			if err := json.Unmarshal(raw, dest); err == nil {
				c.log.Debug("Response cache hit", zap.String("endpoint", endpoint))
				return nil
			}
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	fullURL := c.baseURL + endpoint
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var body []byte
	err := c.breaker.Execute(func() error {
		return resilience.RetryWithExponentialBackoff(ctx, resilience.DefaultRetryConfig(), func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
			if err != nil {
				return err
			}
			for k, v := range c.headers {
				req.Header.Set(k, v)
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%s: unexpected status %d for %s", c.name, resp.StatusCode, endpoint)
			}

			body, err = io.ReadAll(resp.Body)
			return err
		})
	})
	if err != nil {
		c.log.Warn("Request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return err
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%s: decode %s: %w", c.name, endpoint, err)
	}

	if c.cache != nil {
		if err := c.cache.SetWithTTL(ctx, cacheKey, json.RawMessage(body), responseCacheTTL); err != nil {
			c.log.Warn("Failed to cache response", zap.Error(err))
		}
	}
	return nil
}
