package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Amund211/haloclient/internal/domain"
	"github.com/Amund211/haloclient/internal/logging"
	"github.com/Amund211/haloclient/internal/ratelimiting"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const USER_AGENT = "haloclient/1.0"

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	Elapsed    time.Duration
}

// HTTP performs single request/response exchanges. It never retries.
type HTTP struct {
	httpClient HttpClient
	limiter    ratelimiting.RequestLimiter
	nowFunc    func() time.Time
}

func New(httpClient HttpClient, limiter ratelimiting.RequestLimiter, nowFunc func() time.Time) *HTTP {
	return &HTTP{
		httpClient: httpClient,
		limiter:    limiter,
		nowFunc:    nowFunc,
	}
}

// NewHTTPClient returns an http.Client that traces every exchange
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func transportError(action string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w: %s: %w", domain.ErrTransport, domain.ErrTimeout, action, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrTransport, action, err)
}

// Send performs the exchange described by request.
//
// A response with any status code is a successful exchange. Connection failures and
// timeouts return an error wrapping domain.ErrTransport. Elapsed is populated in both cases.
func (t *HTTP) Send(ctx context.Context, request Request) (Response, error) {
	start := t.nowFunc()
	logger := logging.FromContext(ctx)

	if request.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, request.Timeout)
		defer cancel()
	}

	fail := func(action string, err error) (Response, error) {
		err = transportError(action, err)
		elapsed := t.nowFunc().Sub(start)
		logger.WarnContext(ctx, "request failed",
			"method", request.Method,
			"url", request.URL,
			"duration", elapsed.String(),
			"error", err.Error(),
		)
		return Response{Elapsed: elapsed}, err
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fail("waiting for rate limiter", err)
	}

	var body io.Reader
	if request.Body != nil {
		body = bytes.NewReader(request.Body)
	}

	req, err := http.NewRequestWithContext(ctx, request.Method, request.URL, body)
	if err != nil {
		return fail("failed to create request", err)
	}

	for key, values := range request.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fail("failed to send request", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail("failed to read response body", err)
	}

	elapsed := t.nowFunc().Sub(start)
	logger.InfoContext(ctx, "request completed",
		"method", request.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", elapsed.String(),
	)

	return Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		Header:     resp.Header,
		Elapsed:    elapsed,
	}, nil
}
