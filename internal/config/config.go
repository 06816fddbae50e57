package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

const localBaseURL = "http://localhost:8080"

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

type Config struct {
	apiBaseURL        string
	requestTimeout    time.Duration
	pollInterval      time.Duration
	maxWait           time.Duration
	requestsPerSecond float64
	weaponCacheTTL    time.Duration
	serverToken       string
	databaseURL       string
	sentryDSN         string
	otlpEndpoint      string
	env               environment
}

func (c *Config) APIBaseURL() string {
	return c.apiBaseURL
}

func (c *Config) RequestTimeout() time.Duration {
	return c.requestTimeout
}

func (c *Config) PollInterval() time.Duration {
	return c.pollInterval
}

func (c *Config) MaxWait() time.Duration {
	return c.maxWait
}

// Zero means outbound requests are not throttled
func (c *Config) RequestsPerSecond() float64 {
	return c.requestsPerSecond
}

// Zero means weapon metadata is not cached
func (c *Config) WeaponCacheTTL() time.Duration {
	return c.weaponCacheTTL
}

func (c *Config) ServerToken() string {
	return c.serverToken
}

func (c *Config) DatabaseURL() string {
	return c.databaseURL
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) TelemetryEnabled() bool {
	return c.otlpEndpoint != ""
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, apiBaseURL: %s, requestTimeout: %s, pollInterval: %s, maxWait: %s, ...}",
		string(c.env),
		c.apiBaseURL,
		c.requestTimeout,
		c.pollInterval,
		c.maxWait,
	)
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, raw)
	}
	return value, nil
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("HALO_ENVIRONMENT")
	if !ok {
		return missingKey("HALO_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: HALO_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	apiBaseURL := os.Getenv("HALO_API_BASE_URL")
	serverToken := os.Getenv("HALO_SERVER_TOKEN")
	databaseURL := os.Getenv("HALO_DATABASE_URL")
	sentryDSN := os.Getenv("SENTRY_DSN")
	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	if env == production || env == staging {
		if apiBaseURL == "" {
			return missingKey("HALO_API_BASE_URL")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	if apiBaseURL == "" {
		apiBaseURL = localBaseURL
	}
	parsed, err := url.Parse(apiBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Config{}, fmt.Errorf("%w: HALO_API_BASE_URL (%s)", ErrInvalidValue, apiBaseURL)
	}

	requestTimeout, err := durationFromEnv("HALO_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := durationFromEnv("HALO_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	maxWait, err := durationFromEnv("HALO_MAX_WAIT", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	weaponCacheTTL, err := durationFromEnv("HALO_WEAPON_CACHE_TTL", 0)
	if err != nil {
		return Config{}, err
	}

	var requestsPerSecond float64
	if raw := os.Getenv("HALO_REQUESTS_PER_SECOND"); raw != "" {
		requestsPerSecond, err = strconv.ParseFloat(raw, 64)
		if err != nil || requestsPerSecond < 0 {
			return Config{}, fmt.Errorf("%w: HALO_REQUESTS_PER_SECOND (%s)", ErrInvalidValue, raw)
		}
	}

	return Config{
		apiBaseURL:        apiBaseURL,
		requestTimeout:    requestTimeout,
		pollInterval:      pollInterval,
		maxWait:           maxWait,
		requestsPerSecond: requestsPerSecond,
		weaponCacheTTL:    weaponCacheTTL,
		serverToken:       serverToken,
		databaseURL:       databaseURL,
		sentryDSN:         sentryDSN,
		otlpEndpoint:      otlpEndpoint,
		env:               env,
	}, nil
}
