package config

import (
	"os"
	"testing"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-jwt-secret-key")
	t.Setenv("PLUGGY_CLIENT_ID", "test-client-id")
	t.Setenv("PLUGGY_CLIENT_SECRET", "test-client-secret")
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.JWT.Secret != "test-jwt-secret-key" {
		t.Errorf("JWT.Secret = %q, want %q", cfg.JWT.Secret, "test-jwt-secret-key")
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Dashboard.MonthlyGoal != 5000 {
		t.Errorf("Dashboard.MonthlyGoal = %v, want 5000", cfg.Dashboard.MonthlyGoal)
	}
	if cfg.Dashboard.ChartDays != 15 || cfg.Dashboard.RetentionDays != 90 {
		t.Errorf("Dashboard windows = %d/%d, want 15/90", cfg.Dashboard.ChartDays, cfg.Dashboard.RetentionDays)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing JWT_SECRET, got nil")
	}
}

func TestLoad_MissingPluggyCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PLUGGY_CLIENT_ID", "")
	t.Setenv("PLUGGY_CLIENT_SECRET", "")
	os.Unsetenv("PLUGGY_CLIENT_ID")
	os.Unsetenv("PLUGGY_CLIENT_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing Pluggy credentials, got nil")
	}
}

func TestLoad_InvalidDBPort(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("DB_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid DB_PORT, got nil")
	}
}

func TestLoad_InvalidGoal(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("DASHBOARD_MONTHLY_GOAL", "-100")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for non-positive goal, got nil")
	}
}

func TestLoad_TLSValidation(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS enabled without cert paths, got nil")
	}
}

func TestLoad_ListParsing(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("ALLOWED_HOSTS", "app.example.com, api.example.com ,")
	t.Setenv("DASHBOARD_ENTITY_DENYLIST", "pix,boleto")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.Server.AllowedHosts) != 2 {
		t.Errorf("AllowedHosts = %v, want 2 entries", cfg.Server.AllowedHosts)
	}
	if len(cfg.Dashboard.EntityDenylist) != 2 || cfg.Dashboard.EntityDenylist[1] != "boleto" {
		t.Errorf("EntityDenylist = %v", cfg.Dashboard.EntityDenylist)
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"", true, true},
		{"garbage", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if tt.value == "" {
				os.Unsetenv("TEST_BOOL")
			}
			if got := getBoolEnv("TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}
