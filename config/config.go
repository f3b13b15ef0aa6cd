package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config is everything the process reads from the environment, grouped
// by concern: the API server, the Postgres aggregate store, the optional
// Redis cache tier, the market-data provider, and the on-disk paths the
// engine reads and sizes.
//
// Typical .env for local development:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=admin
//	POSTGRES_PASSWORD=secret
//	POSTGRES_DB=scanpulse
//	POSTGRES_SSLMODE=disable
//	REDIS_ADDR=localhost:6379
//	EODHD_API_TOKEN=demo
type Config struct {
	Server   ServerConfig   // HTTP server (api mode only)
	Postgres PostgresConfig // PostgreSQL aggregate store
	Redis    RedisConfig    // Optional fast cache tier
	Provider ProviderConfig // Market-data provider credentials
	Paths    PathsConfig    // On-disk locations the engine uses or sizes
}

// ServerConfig carries the listen port for api mode.
type ServerConfig struct {
	Port string
}

// PostgresConfig carries the aggregate store connection details. URL is
// derived from the other fields by LoadConfig; code should read URL and
// never rebuild the DSN by hand.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// DSN builds the connection string database/sql needs from the
// individual fields.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// RedisConfig defines the optional fast tier of the bar cache. An empty
// Addr disables Redis entirely; the file tier still works without it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTLHours int
}

// ProviderConfig holds market-data provider settings. The token is only
// required when a run actually selects the eodhd provider.
type ProviderConfig struct {
	EODHDBaseURL string
	EODHDToken   string
	CSVDir       string
}

// PathsConfig holds filesystem locations. OptionsStorePath points at the
// options application's database file, which this engine sizes for the
// storage report but never opens.
type PathsConfig struct {
	CacheDir         string
	ReportDir        string
	TaskLogDir       string
	OptionsStorePath string
}

// AppConfig is the process-wide configuration, filled exactly once by
// LoadConfig. Packages read it instead of touching the environment
// themselves.
var AppConfig Config

// LoadConfig populates AppConfig and validates it. Sources, weakest
// first:
//
//  1. the defaults below,
//  2. a .env file in the working directory, when one exists,
//  3. real environment variables.
//
// Missing required fields are fatal; there is no point limping along
// without a store to write to.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "scanpulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_TTL_HOURS", 24)

	viper.SetDefault("EODHD_BASE_URL", "https://eodhd.com/api")
	viper.SetDefault("EODHD_API_TOKEN", "")
	viper.SetDefault("CSV_DIR", "./data/csv")

	viper.SetDefault("CACHE_DIR", "./data/cache")
	viper.SetDefault("REPORT_DIR", "./reports")
	viper.SetDefault("TASK_LOG_DIR", "./data/task_logs")
	viper.SetDefault("OPTIONS_STORE_PATH", "")

	// A .env is a local-dev convenience, its absence is not an error.
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			TTLHours: viper.GetInt("REDIS_TTL_HOURS"),
		},
		Provider: ProviderConfig{
			EODHDBaseURL: viper.GetString("EODHD_BASE_URL"),
			EODHDToken:   viper.GetString("EODHD_API_TOKEN"),
			CSVDir:       viper.GetString("CSV_DIR"),
		},
		Paths: PathsConfig{
			CacheDir:         viper.GetString("CACHE_DIR"),
			ReportDir:        viper.GetString("REPORT_DIR"),
			TaskLogDir:       viper.GetString("TASK_LOG_DIR"),
			OptionsStorePath: viper.GetString("OPTIONS_STORE_PATH"),
		},
	}

	AppConfig.Postgres.URL = AppConfig.Postgres.DSN()

	validateConfig()
}

// validateConfig exits the process when a required field came through
// empty, naming every missing variable at once rather than one per run.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Paths.CacheDir == "" {
		missing = append(missing, "CACHE_DIR")
	}
	if AppConfig.Paths.TaskLogDir == "" {
		missing = append(missing, "TASK_LOG_DIR")
	}

	if len(missing) > 0 {
		log.Fatalf("configuration incomplete, missing: %v", missing)
	}
}
