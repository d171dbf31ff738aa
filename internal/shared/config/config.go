package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Pluggy    PluggyConfig
	Dashboard DashboardConfig
	Scheduler SchedulerConfig
	TLS       TLSConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret string
}

type PluggyConfig struct {
	ClientID      string
	ClientSecret  string
	BaseURL       string
	WebhookSecret string
}

type DashboardConfig struct {
	MonthlyGoal    float64
	ChartDays      int
	RetentionDays  int
	EntityDenylist []string
	CardCategories []string
	CardTerms      []string
}

type SchedulerConfig struct {
	Enabled       bool
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	QueueSize     int
	RunOnStartup  bool
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	monthlyGoal, err := strconv.ParseFloat(getEnv("DASHBOARD_MONTHLY_GOAL", "5000"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_MONTHLY_GOAL: %w", err)
	}
	chartDays, err := strconv.Atoi(getEnv("DASHBOARD_CHART_DAYS", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_CHART_DAYS: %w", err)
	}
	retentionDays, err := strconv.Atoi(getEnv("DASHBOARD_RETENTION_DAYS", "90"))
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_RETENTION_DAYS: %w", err)
	}

	// Parse scheduler configuration
	schedulerEnabled := getBoolEnv("SCHEDULER_ENABLED", true)
	schedulerTimes := strings.Split(getEnv("SCHEDULER_TIMES", "05:00,12:00,20:00"), ",")
	schedulerWorkers, err := strconv.Atoi(getEnv("SCHEDULER_WORKERS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_WORKERS: %w", err)
	}
	schedulerJobDelay, err := time.ParseDuration(getEnv("SCHEDULER_JOB_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_JOB_DELAY: %w", err)
	}
	schedulerQueueSize, err := strconv.Atoi(getEnv("SCHEDULER_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_QUEUE_SIZE: %w", err)
	}
	schedulerRunOnStartup := getBoolEnv("SCHEDULER_RUN_ON_STARTUP", false)

	// Parse TLS configuration
	tlsEnabled := getBoolEnv("TLS_ENABLED", false)
	tlsCertPath := getEnv("TLS_CERT_PATH", "")
	tlsKeyPath := getEnv("TLS_KEY_PATH", "")
	tlsRedirectHTTP := getBoolEnv("TLS_REDIRECT_HTTP", false)

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: splitList(getEnv("ALLOWED_HOSTS", "")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "fluxo"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "fluxo"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Pluggy: PluggyConfig{
			ClientID:      getEnv("PLUGGY_CLIENT_ID", ""),
			ClientSecret:  getEnv("PLUGGY_CLIENT_SECRET", ""),
			BaseURL:       getEnv("PLUGGY_BASE_URL", ""),
			WebhookSecret: getEnv("PLUGGY_WEBHOOK_SECRET", ""),
		},
		Dashboard: DashboardConfig{
			MonthlyGoal:    monthlyGoal,
			ChartDays:      chartDays,
			RetentionDays:  retentionDays,
			EntityDenylist: splitList(getEnv("DASHBOARD_ENTITY_DENYLIST", "")),
			CardCategories: splitList(getEnv("DASHBOARD_CARD_CATEGORIES", "")),
			CardTerms:      splitList(getEnv("DASHBOARD_CARD_TERMS", "")),
		},
		Scheduler: SchedulerConfig{
			Enabled:       schedulerEnabled,
			ScheduleTimes: schedulerTimes,
			WorkerCount:   schedulerWorkers,
			JobDelay:      schedulerJobDelay,
			QueueSize:     schedulerQueueSize,
			RunOnStartup:  schedulerRunOnStartup,
		},
		TLS: TLSConfig{
			Enabled:      tlsEnabled,
			CertPath:     tlsCertPath,
			KeyPath:      tlsKeyPath,
			RedirectHTTP: tlsRedirectHTTP,
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "fluxo-api"),
			Environment:  getEnv("OTEL_ENVIRONMENT", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
	}

	// Validate required fields
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Pluggy.ClientID == "" || cfg.Pluggy.ClientSecret == "" {
		return nil, fmt.Errorf("PLUGGY_CLIENT_ID and PLUGGY_CLIENT_SECRET are required")
	}
	if cfg.Dashboard.MonthlyGoal <= 0 {
		return nil, fmt.Errorf("DASHBOARD_MONTHLY_GOAL must be positive")
	}
	if cfg.Dashboard.ChartDays < 1 || cfg.Dashboard.RetentionDays < 1 {
		return nil, fmt.Errorf("DASHBOARD_CHART_DAYS and DASHBOARD_RETENTION_DAYS must be at least 1")
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return nil, fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if cfg.TLS.KeyPath == "" {
			return nil, fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
