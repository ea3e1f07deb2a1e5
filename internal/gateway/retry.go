package gateway

import (
	"context"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/rookgm/pcmart/internal/logger"
	"go.uber.org/zap"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultInitialInterval = 200 * time.Millisecond
	defaultMaxInterval     = 2 * time.Second
	maxResponseBody        = 1 << 20
)

// retrier runs gateway calls with exponential backoff
type retrier struct {
	retries         int
	initialInterval time.Duration
}

func newRetrier(retries int) retrier {
	return retrier{retries: retries, initialInterval: defaultInitialInterval}
}

func (r retrier) do(ctx context.Context, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = defaultMaxInterval
	b.MaxElapsedTime = 0

	notify := func(err error, d time.Duration) {
		logger.Log.Debug("gateway call failed, retrying",
			zap.String("call", name),
			zap.Duration("after", d),
			zap.Error(err))
	}

	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.retries)), ctx), notify)
}

// send performs request built by newReq and returns status and body.
// Network errors, 429 and 5xx are retryable, other errors are permanent.
func send(ctx context.Context, client *http.Client, gw string, newReq func() (*http.Request, error)) (int, []byte, error) {
	req, err := newReq()
	if err != nil {
		return 0, nil, backoff.Permanent(err)
	}

	resp, err := client.Do(req.WithContext(ctx))
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, backoff.Permanent(&UpstreamError{Gateway: gw, Err: err})
		}
		return 0, nil, &UpstreamError{Gateway: gw, Err: err}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, &UpstreamError{Gateway: gw, Err: errors.Wrap(err, "read body")}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		upErr := &UpstreamError{Gateway: gw, StatusCode: resp.StatusCode, Details: jsonDetails(body)}
		if d := retryAfter(resp.Header.Get("Retry-After")); d > 0 {
			// provider asked for a pause longer than our backoff; give up
			if d > defaultMaxInterval {
				return 0, nil, backoff.Permanent(upErr)
			}
		}
		return 0, nil, upErr
	case resp.StatusCode >= http.StatusInternalServerError:
		return 0, nil, &UpstreamError{Gateway: gw, StatusCode: resp.StatusCode, Details: jsonDetails(body)}
	}

	return resp.StatusCode, body, nil
}

func retryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	t, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return time.Duration(t) * time.Second
}

// permanent stops retries with err
func permanent(err error) error {
	return backoff.Permanent(err)
}
