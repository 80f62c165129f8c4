package cfg

import (
	"os"
	"testing"

	"tradeflow/internal/common"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		common.EnvAPIKey, common.EnvAPISecret, common.EnvBaseURL, common.EnvConfigFile,
		common.EnvHTTPPort, common.EnvMetricsPort, common.EnvRESTTimeout, common.EnvQueueBacklog,
	} {
		os.Unsetenv(k)
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected an error when credentials are missing")
	}
}

func TestLoadRequiresConfigFile(t *testing.T) {
	clearEnv(t)
	os.Setenv(common.EnvAPIKey, "k")
	os.Setenv(common.EnvAPISecret, "s")
	defer clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected an error when CONFIG_FILE is unset")
	}
}

func TestLoadAppliesDefaultsAndParsesPairs(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, validYAML)
	os.Setenv(common.EnvAPIKey, "k")
	os.Setenv(common.EnvAPISecret, "s")
	os.Setenv(common.EnvConfigFile, path)
	defer clearEnv(t)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.BaseURL != common.DefaultBaseURL {
		t.Errorf("BaseURL = %q, want default %q", s.BaseURL, common.DefaultBaseURL)
	}
	if s.HTTPPort != common.DefaultHTTPPort {
		t.Errorf("HTTPPort = %d, want default %d", s.HTTPPort, common.DefaultHTTPPort)
	}
	if _, ok := s.PairConfigFor("BTCUSDT"); !ok {
		t.Fatal("expected BTCUSDT to resolve via PairConfigFor")
	}
	if _, ok := s.PairConfigFor("DOGEUSDT"); ok {
		t.Fatal("expected an unconfigured symbol to miss")
	}
}
