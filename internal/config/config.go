package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	yaml "gopkg.in/yaml.v3"

	"github.com/vladiouz/on-chain-chess/internal/board"
)

// AppConfig is the arena server configuration. Values come from an optional
// YAML file (CHESS_CONFIG_FILE) and are then overridden by environment variables.
type AppConfig struct {
	HTTPAddr string `env:"CHESS_HTTP_ADDR" yaml:"http_addr"`
	FeedAddr string `env:"CHESS_FEED_ADDR" yaml:"feed_addr"`

	RedisURL    string `env:"REDIS_URL" yaml:"redis_url"`
	RedisPrefix string `env:"CHESS_REDIS_PREFIX" yaml:"redis_prefix"`
	DatabaseURL string `env:"DATABASE_URL" yaml:"database_url"`

	EscrowURL   string `env:"ESCROW_URL" yaml:"escrow_url"`
	EscrowToken string `env:"ESCROW_TOKEN" yaml:"escrow_token"`

	OwnerID   string `env:"CHESS_OWNER_ID" yaml:"owner_id"`
	JWTSecret string `env:"CHESS_JWT_SECRET" yaml:"jwt_secret"`
	JWTIssuer string `env:"CHESS_JWT_ISSUER" yaml:"jwt_issuer"`

	// EpochLength is the wall-clock length of one epoch.
	EpochLength time.Duration `env:"CHESS_EPOCH_LENGTH" yaml:"epoch_length"`
	// EpochOrigin is the instant epoch 0 starts, RFC 3339.
	EpochOrigin string `env:"CHESS_EPOCH_ORIGIN" yaml:"epoch_origin"`
	MoveGrace   uint64 `env:"CHESS_MOVE_GRACE" yaml:"move_grace"`
	Promotion   string `env:"CHESS_PROMOTION_RULE" yaml:"promotion_rule"`

	StartPaused bool   `env:"CHESS_START_PAUSED" yaml:"start_paused"`
	StakeAmount uint64 `env:"CHESS_STAKE_AMOUNT" yaml:"stake_amount"`
	StakeToken  string `env:"CHESS_STAKE_TOKEN" yaml:"stake_token"`

	MessagesDir string `env:"CHESS_MESSAGES_DIR" yaml:"messages_dir"`

	LogLevel   string `env:"LOG_LEVEL" yaml:"log_level"`
	LogFormat  string `env:"LOG_FORMAT" yaml:"log_format"`
	LogConsole bool   `env:"LOG_TO_CONSOLE" yaml:"log_to_console"`
	LogFile    string `env:"LOG_FILE" yaml:"log_file"`
	LogCaller  bool   `env:"LOG_CALLER" yaml:"log_caller"`

	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" yaml:"otel_endpoint"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" yaml:"service_name"`
}

func defaults() AppConfig {
	return AppConfig{
		HTTPAddr:    ":8080",
		FeedAddr:    ":8081",
		RedisPrefix: "chess",
		EpochLength: time.Minute,
		EpochOrigin: "2024-01-01T00:00:00Z",
		MoveGrace:   1,
		Promotion:   "legacy",
		StartPaused: true,
		LogLevel:    "info",
		LogFormat:   "legacy",
		LogConsole:  true,
		ServiceName: "chess-arena",
	}
}

// Load reads CHESS_CONFIG_FILE if set, then the environment.
func Load() (*AppConfig, error) {
	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CHESS_CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.OwnerID) == "" {
		errs = append(errs, errors.New("CHESS_OWNER_ID is required"))
	}
	if c.MoveGrace < 1 {
		errs = append(errs, errors.New("CHESS_MOVE_GRACE must be at least 1"))
	}
	if c.EpochLength <= 0 {
		errs = append(errs, errors.New("CHESS_EPOCH_LENGTH must be positive"))
	}
	if _, err := c.Origin(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.PromotionRule(); err != nil {
		errs = append(errs, err)
	}
	if c.StakeAmount > 0 && strings.TrimSpace(c.StakeToken) == "" {
		errs = append(errs, errors.New("CHESS_STAKE_TOKEN is required with CHESS_STAKE_AMOUNT"))
	}
	// a win pays twice the stake
	if c.StakeAmount > math.MaxUint64/2 {
		errs = append(errs, errors.New("CHESS_STAKE_AMOUNT must be at most MaxUint64/2"))
	}
	return errors.Join(errs...)
}

// Origin parses EpochOrigin.
func (c *AppConfig) Origin() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(c.EpochOrigin))
	if err != nil {
		return time.Time{}, fmt.Errorf("CHESS_EPOCH_ORIGIN: %w", err)
	}
	return t, nil
}

func (c *AppConfig) PromotionRule() (board.PromotionRule, error) {
	return board.ParsePromotionRule(c.Promotion)
}
