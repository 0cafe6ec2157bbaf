package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/clinic")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EtaOverheadMinutes != 10 || cfg.EtaServiceMinutes != 12 || cfg.EtaProviders != 2 {
		t.Errorf("eta = %d/%d/%d, want 10/12/2", cfg.EtaOverheadMinutes, cfg.EtaServiceMinutes, cfg.EtaProviders)
	}
}

func TestLoadRejectsBadEtaSettings(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"ETA_OVERHEAD_MINUTES", "-1"},
		{"ETA_SERVICE_MINUTES", "-12"},
		{"ETA_PROVIDERS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("POSTGRES_DSN", "postgres://localhost/clinic")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s accepted", tt.key, tt.value)
			}
		})
	}
}

func TestLoadRequiresSecretInProd(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/clinic")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("ADMIN_JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("prod config without ADMIN_JWT_SECRET accepted")
	}
}
