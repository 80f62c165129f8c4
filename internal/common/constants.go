// Package common holds shared constants used across tradeflow's packages:
// environment variable keys, defaults, and error message strings.
package common

// Environment variable keys.
const (
	EnvAPIKey       = "TRADEFLOW_API_KEY"
	EnvAPISecret    = "TRADEFLOW_API_SECRET"
	EnvBaseURL      = "TRADEFLOW_BASE_URL"
	EnvConfigFile   = "CONFIG_FILE"
	EnvHTTPPort     = "HTTP_PORT"
	EnvMetricsPort  = "METRICS_PORT"
	EnvRESTTimeout  = "REST_TIMEOUT"
	EnvQueueBacklog = "QUEUE_BACKLOG"
)

// Configuration defaults.
const (
	DefaultMarginCoin = "USDT"
)

const (
	DefaultBaseURL          = "https://fapi.bitunix.com"
	DefaultHTTPPort         = 8090
	DefaultMetricsPort      = 9090
	DefaultRESTTimeout      = "20s"
	DefaultQueueBacklog     = 500
	DefaultAntiInstantTicks = 2

	// Open-sequence poll caps, spec.md §4.4 steps 5 and 7.
	DefaultOrderFillPollInterval     = "1.5s"
	DefaultOrderFillPollTimeout      = "60s"
	DefaultPositionAppearPollInterval = "1.5s"
	DefaultPositionAppearPollTimeout  = "45s"

	// Monitor loop cadence, spec.md §4.5.
	DefaultMonitorInterval = "1s"

	// captureProvisionalSlIds retry shape, spec.md §4.2.
	DefaultProvisionalCaptureTries    = 5
	DefaultProvisionalCaptureSleep    = "1s"
	DefaultProvisionalCaptureLookback = "60s"
)

// Common error messages.
const (
	ErrMsgAPIKeyRequired  = "TRADEFLOW_API_KEY and TRADEFLOW_API_SECRET are required"
	ErrMsgBaseURLRequired = "base URL is required"
	ErrMsgNoPairConfig    = "no configuration for symbol"
)
