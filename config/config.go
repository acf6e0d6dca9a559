package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	Postgres          Postgres
	Redis             Redis
	HTTP              HTTP
	Telegram          Telegram
	API               API
	Cache             Cache
	Jobs              Jobs
	GoogleDrive       GoogleDrive
	Ledger            Ledger
	SessionExpiration time.Duration `env:"SESSION_EXPIRATION" envDefault:"24h"`
	QuoteConcurrency  int           `env:"QUOTE_CONCURRENCY" envDefault:"4"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type HTTP struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	SecureCookie bool          `env:"HTTP_SECURE_COOKIE" envDefault:"false"`
	NoCache      bool          `env:"HTTP_NO_CACHE" envDefault:"false"`
}

// Telegram bot is not started when Token is empty.
type Telegram struct {
	Token            string        `env:"TELEGRAM_TOKEN" envDefault:""`
	UpdTimeout       time.Duration `env:"TELEGRAM_UPD_TIMEOUT" envDefault:"10s"`
	FileLimitInBytes int           `env:"TELEGRAM_FILE_LIMIT_IN_BYTES" envDefault:"52428800"`
}

type API struct {
	Debug   bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"5s"`
	MoexApi MoexApi
	Breaker Breaker
}

type MoexApi struct {
	Url string `env:"MOEX_API_URL" envDefault:"https://iss.moex.com"`
}

type Breaker struct {
	Threshold    int           `env:"API_BREAKER_THRESHOLD" envDefault:"5"`
	ResetTimeout time.Duration `env:"API_BREAKER_RESET_TIMEOUT" envDefault:"30s"`
}

type Cache struct {
	QuotesExpiration time.Duration `env:"CACHE_QUOTES_EXPIRATION" envDefault:"1m"`
}

type Jobs struct {
	RefreshQuotesInterval time.Duration `env:"REFRESH_QUOTES_JOB_INTERVAL" envDefault:"1m"`
	CleanReportsInterval  time.Duration `env:"CLEAN_REPORTS_JOB_INTERVAL" envDefault:"1h"`
}

// Reports are served directly when CredentialsFile is empty.
type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"24h"`
}

type Ledger struct {
	InitialCash decimal.Decimal `env:"LEDGER_INITIAL_CASH" envDefault:"10000"`
	Currency    string          `env:"LEDGER_CURRENCY" envDefault:"RUB"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
