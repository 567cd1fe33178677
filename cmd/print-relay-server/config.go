package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/EternisAI/print-relay/internal/api/http"
	"github.com/EternisAI/print-relay/internal/db"
	"github.com/EternisAI/print-relay/internal/fallback"
	"github.com/EternisAI/print-relay/internal/logging"
	internaltls "github.com/EternisAI/print-relay/internal/tls"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log      logging.Config
	Http     http.Config
	TLS      internaltls.Config `mapstructure:"tls"`
	Broker   BrokerConfig
	Auth     AuthConfig
	Fallback fallback.Config
	DB       db.Config `mapstructure:"db"`
	Health   HealthConfig
}

type BrokerConfig struct {
	Mode string `mapstructure:"mode"`
	// FallbackEnabled overrides the mode default when set.
	FallbackEnabled *bool         `mapstructure:"fallback_enabled"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes"`
}

type AuthConfig struct {
	CodeTTL             time.Duration `mapstructure:"code_ttl"`
	MaxOutstandingCodes int           `mapstructure:"max_outstanding_codes"`
	AccountBackend      string        `mapstructure:"account_backend"`
	AccountTimeout      time.Duration `mapstructure:"account_timeout"`
	TokenSecret         string        `mapstructure:"token_secret" json:"-"`
}

type HealthConfig struct {
	Port int `mapstructure:"port"`
}

var config Config

func setDefaults() {
	viper.SetDefault("log.level", logging.LevelInfo)
	viper.SetDefault("log.format", logging.FormatText)
	viper.SetDefault("http.host", "0.0.0.0")
	viper.SetDefault("http.port", 8770)
	viper.SetDefault("tls.client_auth", "none")
	viper.SetDefault("broker.mode", "code")
	viper.SetDefault("broker.write_timeout", "10s")
	viper.SetDefault("broker.max_message_bytes", 16<<20)
	viper.SetDefault("auth.code_ttl", "10m")
	viper.SetDefault("auth.max_outstanding_codes", 10000)
	viper.SetDefault("auth.account_backend", "permissive")
	viper.SetDefault("auth.account_timeout", "3s")
	viper.SetDefault("fallback.host", fallback.DefaultHost)
	viper.SetDefault("fallback.port", fallback.DefaultPort)
	viper.SetDefault("fallback.dial_timeout", "5s")
	viper.SetDefault("fallback.reply_timeout", "10s")
	viper.SetDefault("db.schema", "public")
}

func InitConfig() {
	var err error

	_ = godotenv.Load()

	setDefaults()
	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/print-relay-server")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("http.admin_api_key", "ADMIN_API_KEY")
	_ = viper.BindEnv("auth.token_secret", "TOKEN_SECRET")
	_ = viper.BindEnv("db.url", "DATABASE_URL")
	_ = viper.BindEnv("broker.fallback_enabled")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		panic(err)
	}

	logging.Init(config.Log)

	if config.Log.IsDebug() {
		redacted := config
		redacted.Http.AdminAPIKey = redact(redacted.Http.AdminAPIKey)
		redacted.DB.Url = redact(redacted.DB.Url)
		configJSON, err := json.MarshalIndent(redacted, "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
