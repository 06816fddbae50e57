package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Amund211/haloclient/internal/adapters/cache"
	"github.com/Amund211/haloclient/internal/auth"
	"github.com/Amund211/haloclient/internal/decode"
	"github.com/Amund211/haloclient/internal/domain"
	"github.com/Amund211/haloclient/internal/events"
	"github.com/Amund211/haloclient/internal/logging"
	"github.com/Amund211/haloclient/internal/reporting"
	"github.com/Amund211/haloclient/internal/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Transport interface {
	Send(ctx context.Context, request transport.Request) (transport.Response, error)
}

type ErrorEvent struct {
	Operation  string
	StatusCode int
	Err        error
}

type apiClientMetricsCollection struct {
	requestCount metric.Int64Counter
	responseTime metric.Float64Histogram
}

func setupAPIClientMetrics(meter metric.Meter) (apiClientMetricsCollection, error) {
	requestCount, err := meter.Int64Counter("apiclient/request_count")
	if err != nil {
		return apiClientMetricsCollection{}, fmt.Errorf("failed to create request count metric: %w", err)
	}

	responseTime, err := meter.Float64Histogram(
		"apiclient/response_time_ms",
		metric.WithUnit("ms"),
	)
	if err != nil {
		return apiClientMetricsCollection{}, fmt.Errorf("failed to create response time metric: %w", err)
	}

	return apiClientMetricsCollection{
		requestCount: requestCount,
		responseTime: responseTime,
	}, nil
}

type cachedWeapons struct {
	weapons    []domain.Weapon
	statusCode int
	headers    http.Header
}

type Client struct {
	baseURL   string
	transport Transport
	auth      *auth.Manager
	timeout   time.Duration
	nowFunc   func() time.Time

	weaponCache     cache.Cache[cachedWeapons]
	stopWeaponCache func()

	metrics apiClientMetricsCollection
	tracer  trace.Tracer

	OnError        *events.Hub[ErrorEvent]
	OnPlayerStats  *events.Hub[domain.PlayerStats]
	OnLeaderboard  *events.Hub[[]domain.LeaderboardEntry]
	OnMapsReceived *events.Hub[[]domain.CustomMap]
	OnMapUploaded  *events.Hub[domain.CustomMap]
}

type Option func(*Client)

func WithNowFunc(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowFunc = nowFunc
	}
}

// WithWeaponCacheTTL serves GetWeapons from memory for ttl after a successful fetch.
// A non-positive ttl disables the cache.
func WithWeaponCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			return
		}
		c.weaponCache, c.stopWeaponCache = cache.NewTTLCache[cachedWeapons](ttl)
	}
}

func New(baseURL string, transport Transport, authManager *auth.Manager, timeout time.Duration, opts ...Option) (*Client, error) {
	const name = "haloclient/apiclient"

	meter := otel.Meter(name)
	tracer := otel.Tracer(name)

	metrics, err := setupAPIClientMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	client := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: transport,
		auth:      authManager,
		timeout:   timeout,
		nowFunc:   time.Now,

		metrics: metrics,
		tracer:  tracer,

		OnError:        events.NewHub[ErrorEvent](),
		OnPlayerStats:  events.NewHub[domain.PlayerStats](),
		OnLeaderboard:  events.NewHub[[]domain.LeaderboardEntry](),
		OnMapsReceived: events.NewHub[[]domain.CustomMap](),
		OnMapUploaded:  events.NewHub[domain.CustomMap](),
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases background resources held by the client
func (c *Client) Close() {
	if c.stopWeaponCache != nil {
		c.stopWeaponCache()
	}
}

func (c *Client) Auth() *auth.Manager {
	return c.auth
}

type request struct {
	method string
	path   string
	body   []byte
	// Attach the user's Authorization header when credentials are set
	withAuth bool
	header   http.Header
}

// call is the template shared by all operations
func call[T any](ctx context.Context, c *Client, operation string, req request, decoder func([]byte) (T, error)) Result[T] {
	start := c.nowFunc()

	ctx, span := c.tracer.Start(ctx, "Client."+operation)
	defer span.End()

	ctx = logging.AddMetaToContext(ctx, slog.String("operation", operation))
	ctx = reporting.AddHubToContext(ctx)
	ctx = reporting.StartOperation(ctx, operation, start)
	ctx = reporting.AddExtrasToContext(ctx, map[string]string{
		"method": req.method,
		"path":   req.path,
	})

	header := http.Header{}
	for key, values := range req.header {
		header[key] = values
	}
	if req.withAuth {
		if value, ok := c.auth.HeaderValue(); ok {
			header.Set("Authorization", value)
			ctx = reporting.SetUserIDInContext(ctx, c.auth.Username())
		}
	}

	resp, err := c.transport.Send(ctx, transport.Request{
		Method:  req.method,
		URL:     c.baseURL + req.path,
		Header:  header,
		Body:    req.body,
		Timeout: c.timeout,
	})
	if err != nil {
		return finish(ctx, c, span, operation, Result[T]{
			ResponseTime: c.nowFunc().Sub(start),
			Err:          err,
		})
	}

	if resp.StatusCode >= 400 {
		return finish(ctx, c, span, operation, Result[T]{
			StatusCode:   resp.StatusCode,
			ResponseTime: c.nowFunc().Sub(start),
			Headers:      resp.Header,
			Err:          newStatusError(resp.StatusCode, resp.Body),
		})
	}

	data, err := decoder(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to decode %s response: %w", operation, err)
		extras := map[string]string{
			"status": strconv.Itoa(resp.StatusCode),
		}
		var decodeErr *decode.Error
		if errors.As(err, &decodeErr) {
			extras["bodyExcerpt"] = decodeErr.Excerpt
		}
		reporting.Report(ctx, err, extras)

		return finish(ctx, c, span, operation, Result[T]{
			StatusCode:   resp.StatusCode,
			ResponseTime: c.nowFunc().Sub(start),
			Headers:      resp.Header,
			Err:          err,
		})
	}

	return finish(ctx, c, span, operation, Result[T]{
		Data:         data,
		StatusCode:   resp.StatusCode,
		ResponseTime: c.nowFunc().Sub(start),
		Headers:      resp.Header,
	})
}

// fail produces a Result for an operation that failed before reaching the network
func fail[T any](ctx context.Context, c *Client, operation string, start time.Time, err error) Result[T] {
	ctx, span := c.tracer.Start(ctx, "Client."+operation)
	defer span.End()

	ctx = logging.AddMetaToContext(ctx, slog.String("operation", operation))
	ctx = reporting.StartOperation(ctx, operation, start)

	return finish(ctx, c, span, operation, Result[T]{
		ResponseTime: c.nowFunc().Sub(start),
		Err:          err,
	})
}

func finish[T any](ctx context.Context, c *Client, span trace.Span, operation string, result Result[T]) Result[T] {
	c.record(ctx, span, operation, result.StatusCode, result.ResponseTime, result.Err)
	return result
}

func (c *Client) record(ctx context.Context, span trace.Span, operation string, statusCode int, responseTime time.Duration, err error) {
	kind := KindOf(err)

	attributes := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status_code", strconv.Itoa(statusCode)),
		attribute.String("error_kind", string(kind)),
	)
	c.metrics.requestCount.Add(ctx, 1, attributes)
	c.metrics.responseTime.Record(ctx, float64(responseTime.Microseconds())/1000, attributes)

	span.SetAttributes(
		attribute.Int("status_code", statusCode),
		attribute.Int64("response_time_ms", responseTime.Milliseconds()),
	)

	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))

	logging.FromContext(ctx).WarnContext(
		ctx,
		"API operation failed",
		slog.String("error", err.Error()),
		slog.String("errorKind", string(kind)),
		slog.Int("statusCode", statusCode),
		slog.String("responseTime", responseTime.String()),
	)

	c.OnError.Emit(ctx, ErrorEvent{
		Operation:  operation,
		StatusCode: statusCode,
		Err:        err,
	})
}
