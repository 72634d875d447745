package config

import (
	"fmt"
	"log/slog"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080" validate:"min=1,max=65535"`
	DBPath   string `env:"INKBOARD_DB_PATH,default=./data/inkboard.db" validate:"required"`
	LogLevel string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Transport
	SendBufferSize    int     `env:"SEND_BUFFER_SIZE,default=256" validate:"min=1"`
	MaxMessageSize    int64   `env:"MAX_MESSAGE_SIZE,default=1048576" validate:"min=512"`
	MessagesPerSecond float64 `env:"MESSAGES_PER_SECOND,default=100" validate:"gt=0"`
	MessageBurst      int     `env:"MESSAGE_BURST,default=200" validate:"min=1"`

	ActivityFlushInterval time.Duration `env:"ACTIVITY_FLUSH_INTERVAL,default=10s" validate:"gt=0"`

	MDNSEnabled  bool   `env:"MDNS_ENABLED,default=false"`
	MDNSInstance string `env:"MDNS_INSTANCE,default=inkboard" validate:"required_if=MDNSEnabled true"`
}

// Load reads an optional .env file and then the process environment
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func NewLogger(level string) *slog.Logger {
	return logs.GetLoggerFromString(level)
}
