package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zkvault/zkvault-server/internal/logger"
	"github.com/zkvault/zkvault-server/internal/model"
)

// hashPrefixLen is how many leading hex characters of the password hash
// leave the boundary. The remainder is matched locally against the range
// response, which is what makes the lookup k-anonymous.
const hashPrefixLen = 5

// BreachResult is the outcome of a breach corpus lookup.
type BreachResult struct {
	Breached bool
	Count    int
}

// BreachRelay forwards a truncated hash prefix to the external breach
// corpus and resolves the full match locally. The full hash never leaves
// the relay.
type BreachRelay struct {
	baseURL    string
	httpClient *http.Client
	retry      retryConfig
	logger     *logger.Logger
}

type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitter     float64
}

// BreachOption configures the relay.
type BreachOption func(*BreachRelay)

// WithHTTPClient overrides the HTTP client (used in tests).
func WithHTTPClient(client *http.Client) BreachOption {
	return func(r *BreachRelay) {
		r.httpClient = client
	}
}

// WithRetries overrides the retry attempt count.
func WithRetries(retries int) BreachOption {
	return func(r *BreachRelay) {
		r.retry.maxRetries = retries
	}
}

// NewBreachRelay creates a relay against the given corpus base URL with
// a bounded per-request timeout.
func NewBreachRelay(baseURL string, timeout time.Duration, logger *logger.Logger, opts ...BreachOption) *BreachRelay {
	r := &BreachRelay{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry: retryConfig{
			maxRetries: 2,
			baseDelay:  200 * time.Millisecond,
			maxDelay:   2 * time.Second,
			multiplier: 2.0,
			jitter:     0.2,
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// CheckPassword looks up a full password hash against the breach corpus.
// Only the first hashPrefixLen hex characters are transmitted; the
// suffix is matched locally. Upstream failures surface as
// ErrUpstreamUnavailable, never as a "not breached" result.
func (r *BreachRelay) CheckPassword(ctx context.Context, hashHex string) (BreachResult, error) {
	hash := strings.ToUpper(strings.TrimSpace(hashHex))
	if err := validateHash(hash); err != nil {
		return BreachResult{}, err
	}

	prefix := hash[:hashPrefixLen]
	suffix := hash[hashPrefixLen:]

	body, err := r.queryRange(ctx, prefix)
	if err != nil {
		r.logger.Error("Breach relay: corpus query failed", "error", err.Error())
		return BreachResult{}, fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		candidate, countStr, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.EqualFold(candidate, suffix) {
			count, err := strconv.Atoi(strings.TrimSpace(countStr))
			if err != nil {
				return BreachResult{}, fmt.Errorf("%w: malformed count in range response", model.ErrUpstreamUnavailable)
			}
			return BreachResult{Breached: true, Count: count}, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return BreachResult{}, fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}

	return BreachResult{Breached: false, Count: 0}, nil
}

func (r *BreachRelay) queryRange(ctx context.Context, prefix string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/range/%s", r.baseURL, prefix)

	var err error

	for attempt := 0; ; attempt++ {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return nil, reqErr
		}

		resp, doErr := r.httpClient.Do(req)
		if doErr == nil && resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}

		statusCode := 0
		if doErr == nil {
			statusCode = resp.StatusCode
			resp.Body.Close()
			err = fmt.Errorf("range query returned status %d", statusCode)
		} else {
			err = doErr
		}

		if attempt >= r.retry.maxRetries || !retryable(statusCode, doErr) {
			return nil, err
		}
		if waitErr := r.wait(ctx, attempt); waitErr != nil {
			return nil, waitErr
		}
	}
}

func retryable(statusCode int, err error) bool {
	if err != nil {
		return true
	}
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (r *BreachRelay) wait(ctx context.Context, attempt int) error {
	delay := float64(r.retry.baseDelay) * math.Pow(r.retry.multiplier, float64(attempt))
	if delay > float64(r.retry.maxDelay) {
		delay = float64(r.retry.maxDelay)
	}
	if r.retry.jitter > 0 {
		jitterAmount := delay * r.retry.jitter
		delay = delay - jitterAmount + (rand.Float64() * 2 * jitterAmount)
	}

	timer := time.NewTimer(time.Duration(delay))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func validateHash(hash string) error {
	if len(hash) <= hashPrefixLen {
		return fmt.Errorf("%w: hash too short, need more than %d hex characters", model.ErrInvalidInput, hashPrefixLen)
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return fmt.Errorf("%w: hash is not hex encoded", model.ErrInvalidInput)
		}
	}
	return nil
}
