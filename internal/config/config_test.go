package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_FeedDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.FeedClientCode != "pwhl" {
		t.Fatalf("unexpected default client code: %q", cfg.FeedClientCode)
	}
	if cfg.FeedBaseURL != "https://lscluster.hockeytech.com/feed/" {
		t.Fatalf("unexpected default feed base url: %q", cfg.FeedBaseURL)
	}
	if cfg.FeedTimeout != 30*time.Second {
		t.Fatalf("unexpected default feed timeout: %s", cfg.FeedTimeout)
	}
	if cfg.FeedMaxRetries != 3 {
		t.Fatalf("unexpected default feed retries: %d", cfg.FeedMaxRetries)
	}
	if cfg.FeedRateRPS != 4 {
		t.Fatalf("unexpected default feed rate: %f", cfg.FeedRateRPS)
	}
	if cfg.XGModelVersion != "v1" {
		t.Fatalf("unexpected default model version: %q", cfg.XGModelVersion)
	}
}

func TestLoad_FeedRateParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("fractional rate", func(t *testing.T) {
		t.Setenv("API_RATE_LIMIT_RPS", "0.5")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.FeedRateRPS != 0.5 {
			t.Fatalf("unexpected feed rate: %f", cfg.FeedRateRPS)
		}
	})

	t.Run("invalid rate", func(t *testing.T) {
		t.Setenv("API_RATE_LIMIT_RPS", "fast")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid API_RATE_LIMIT_RPS")
		}
	})
}

func TestLoad_ArchiveDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ArchiveTimeout != 30*time.Second {
		t.Fatalf("unexpected archive timeout: %s", cfg.ArchiveTimeout)
	}
	if cfg.ArchiveMaxConcurrent != 3 {
		t.Fatalf("unexpected archive concurrency: %d", cfg.ArchiveMaxConcurrent)
	}
}

func TestLoad_CircuitConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("prefixed overrides apply per client", func(t *testing.T) {
		t.Setenv("LS_CIRCUIT_FAILURE_COUNT", "7")
		t.Setenv("LS_CIRCUIT_OPEN_TIMEOUT", "45s")
		t.Setenv("ARCHIVE_CIRCUIT_ENABLED", "false")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.FeedCircuit.FailureThreshold != 7 {
			t.Fatalf("unexpected feed failure threshold: %d", cfg.FeedCircuit.FailureThreshold)
		}
		if cfg.FeedCircuit.OpenTimeout != 45*time.Second {
			t.Fatalf("unexpected feed open timeout: %s", cfg.FeedCircuit.OpenTimeout)
		}
		if cfg.ArchiveCircuit.Enabled {
			t.Fatalf("expected archive breaker disabled")
		}
	})

	t.Run("invalid open timeout", func(t *testing.T) {
		t.Setenv("LS_CIRCUIT_OPEN_TIMEOUT", "soon")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid LS_CIRCUIT_OPEN_TIMEOUT")
		}
	})
}

func TestLoad_RefreshWorkersBounds(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("zero means derive from host", func(t *testing.T) {
		t.Setenv("REFRESH_WORKERS", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.RefreshWorkers != 0 {
			t.Fatalf("unexpected refresh workers: %d", cfg.RefreshWorkers)
		}
	})

	t.Run("over cap rejected", func(t *testing.T) {
		t.Setenv("REFRESH_WORKERS", "16")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for REFRESH_WORKERS above the cap")
		}
	})
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "uptrace-dsn=\"https://token@api.uptrace.dev/1\"")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev/1" {
		t.Fatalf("unexpected uptrace dsn: %q", cfg.UptraceDSN)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_SERVICE_NAME", "rinkstats-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "rinkstats-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_DBDisablePreparedBinaryResultParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("default true", func(t *testing.T) {
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.DBDisablePreparedBinary {
			t.Fatalf("expected DBDisablePreparedBinary=true by default")
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "not-bool")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid DB_DISABLE_PREPARED_BINARY_RESULT")
		}
	})
}
