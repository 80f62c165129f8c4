// Package cfg loads tradeflow's two configuration layers: process Settings
// (credentials, ports, timeouts — environment-only) and the per-symbol
// PairConfig view (an immutable YAML snapshot consulted by the executor and
// monitor for the lifetime of the process). The precedence and loading style
// follow the teacher's internal/cfg package: optional .env via godotenv,
// environment variables for process settings, YAML for the richer per-symbol
// view, and a validation pass before Load returns.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"tradeflow/internal/common"

	"github.com/joho/godotenv"
)

// Settings holds process-wide configuration: exchange credentials, transport
// endpoints, and server ports. Unlike PairConfig, Settings has no YAML form —
// it is environment-only, since it carries secrets.
type Settings struct {
	APIKey       string
	APISecret    string
	BaseURL      string
	HTTPPort     int
	MetricsPort  int
	RESTTimeout  time.Duration
	QueueBacklog int
	Pairs        map[string]PairConfig
}

// Load reads Settings from the environment (after an optional .env file) and
// the per-symbol PairConfig view from the file named by CONFIG_FILE.
func Load() (Settings, error) {
	_ = godotenv.Load()

	key := os.Getenv(common.EnvAPIKey)
	secret := os.Getenv(common.EnvAPISecret)
	if key == "" || secret == "" {
		return Settings{}, fmt.Errorf(common.ErrMsgAPIKeyRequired)
	}

	s := Settings{
		APIKey:       key,
		APISecret:    secret,
		BaseURL:      getEnvOrDefault(common.EnvBaseURL, common.DefaultBaseURL),
		HTTPPort:     getIntOrDefault(common.EnvHTTPPort, common.DefaultHTTPPort),
		MetricsPort:  getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		RESTTimeout:  getDurationOrDefault(common.EnvRESTTimeout, common.DefaultRESTTimeout),
		QueueBacklog: getIntOrDefault(common.EnvQueueBacklog, common.DefaultQueueBacklog),
	}
	if s.BaseURL == "" {
		return Settings{}, fmt.Errorf(common.ErrMsgBaseURLRequired)
	}

	configPath := os.Getenv(common.EnvConfigFile)
	if configPath == "" {
		return Settings{}, fmt.Errorf("%s is required (path to the pair-config YAML)", common.EnvConfigFile)
	}
	pairs, err := LoadPairConfigs(configPath)
	if err != nil {
		return Settings{}, fmt.Errorf("loading pair config: %w", err)
	}
	s.Pairs = pairs

	return s, nil
}

// PairConfigFor returns the config for symbol and whether it exists and is
// enabled (spec.md §3: "symbols absent from the mapping reject the signal
// with a 'no config' error").
func (s Settings) PairConfigFor(symbol string) (PairConfig, bool) {
	pc, ok := s.Pairs[symbol]
	if !ok || !pc.IsEnabled {
		return PairConfig{}, false
	}
	return pc, true
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getDurationOrDefault(key, def string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
