package api

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/dl-alexandre/sheetmirror/internal/errors"
	"github.com/dl-alexandre/sheetmirror/internal/logging"
	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"google.golang.org/api/googleapi"
)

// Client runs Google API calls (Drive and Sheets) with retry and classification
type Client struct {
	resourceKeys *ResourceKeyManager
	maxRetries   int
	retryDelay   time.Duration
	clock        clockwork.Clock
	logger       logging.Logger
}

// NewClient creates a new retrying API client
func NewClient(maxRetries int, retryDelayMs int, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		resourceKeys: NewResourceKeyManager(),
		maxRetries:   maxRetries,
		retryDelay:   time.Duration(retryDelayMs) * time.Millisecond,
		clock:        clockwork.NewRealClock(),
		logger:       logger,
	}
}

// WithClock replaces the clock used to wait between retries
func (c *Client) WithClock(clock clockwork.Clock) *Client {
	c.clock = clock
	return c
}

// Logger returns the client's logger
func (c *Client) Logger() logging.Logger {
	return c.logger
}

// NewRequestContext creates a new request context with trace ID
func NewRequestContext(profile string, service string, requestType types.RequestType) *types.RequestContext {
	return &types.RequestContext{
		Profile:         profile,
		Service:         service,
		InvolvedFileIDs: []string{},
		RequestType:     requestType,
		TraceID:         uuid.New().String(),
	}
}

// WithFileIDs adds file IDs to the request context
func (c *Client) WithFileIDs(ctx *types.RequestContext, fileIDs ...string) *types.RequestContext {
	ctx.InvolvedFileIDs = append(ctx.InvolvedFileIDs, fileIDs...)
	return ctx
}

// ExecuteWithRetry executes an API call with retry logic
func ExecuteWithRetry[T any](ctx context.Context, client *Client, reqCtx *types.RequestContext, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	logger := client.logger.WithTraceID(reqCtx.TraceID)
	logger.Debug("API operation starting",
		logging.F("service", reqCtx.Service),
		logging.F("requestType", reqCtx.RequestType),
		logging.F("fileIds", reqCtx.InvolvedFileIDs),
	)

	start := client.clock.Now()

	for attempt := 0; attempt <= client.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, cancelled(err)
		}

		result, lastErr = fn()
		if lastErr == nil {
			logger.Debug("API operation completed",
				logging.F("duration_ms", client.clock.Since(start).Milliseconds()),
				logging.F("attempts", attempt+1),
			)
			return result, nil
		}

		if !isRetryable(lastErr) {
			logger.Warn("API operation failed (non-retryable)",
				logging.F("service", reqCtx.Service),
				logging.F("error", lastErr.Error()),
				logging.F("attempts", attempt+1),
			)
			return result, classifyError(lastErr, reqCtx, client.logger)
		}

		if attempt < client.maxRetries {
			delay := calculateBackoff(client.retryDelay, attempt, lastErr)
			logger.Warn("API operation failed (retryable)",
				logging.F("attempt", attempt+1),
				logging.F("maxRetries", client.maxRetries),
				logging.F("delay_ms", delay.Milliseconds()),
				logging.F("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return result, cancelled(ctx.Err())
			case <-client.clock.After(delay):
			}
		}
	}

	logger.Error("API operation failed after max retries",
		logging.F("duration_ms", client.clock.Since(start).Milliseconds()),
		logging.F("attempts", client.maxRetries+1),
		logging.F("error", lastErr.Error()),
	)

	return result, classifyError(lastErr, reqCtx, client.logger)
}

func cancelled(err error) error {
	return utils.NewCLIError(utils.ErrCodeCancelled, "operation cancelled").WithCause(err).Err()
}

// isRetryable reports whether err is a transient API or network failure
func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// calculateBackoff calculates the retry delay with exponential backoff
func calculateBackoff(baseDelay time.Duration, attempt int, err error) time.Duration {
	maxDelay := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) && apiErr.Header != nil {
		if retryAfter := apiErr.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				delay := time.Duration(seconds) * time.Second
				if delay > maxDelay {
					return maxDelay
				}
				return delay
			}
		}
	}

	// base * 2^attempt, capped
	delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
	if delay > maxDelay || delay < 0 {
		delay = maxDelay
	}

	// ±25% jitter
	jitterRange := delay / 4
	if jitterRange > 0 {
		jitter := time.Duration(rand.Int63n(int64(jitterRange*2))) - jitterRange
		delay += jitter
	}

	if delay < 0 {
		delay = baseDelay
	}
	return delay
}

// classifyError converts API errors to CLI errors
func classifyError(err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	return errors.ClassifyGoogleAPIError(reqCtx.Service, err, reqCtx, logger)
}

// ResourceKeys returns the resource key manager
func (c *Client) ResourceKeys() *ResourceKeyManager {
	return c.resourceKeys
}
