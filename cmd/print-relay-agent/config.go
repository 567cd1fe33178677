package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/EternisAI/print-relay/internal/agent"
	"github.com/EternisAI/print-relay/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log   logging.Config
	Relay RelayConfig
	Local LocalConfig
}

type RelayConfig struct {
	ServerURL string          `mapstructure:"server_url"`
	Username  string          `mapstructure:"username"`
	Password  string          `mapstructure:"password" json:"-"`
	ClientID  string          `mapstructure:"client_id"`
	TLS       agent.TLSConfig `mapstructure:"tls"`
}

type LocalConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	// ListenPort serves jobs from a broker on this host. Zero disables it.
	ListenPort int `mapstructure:"listen_port"`
}

var config Config

func InitConfig() {
	var err error

	_ = godotenv.Load()

	viper.SetDefault("log.level", logging.LevelInfo)
	viper.SetDefault("log.format", logging.FormatText)
	viper.SetDefault("relay.server_url", "ws://localhost:8770/ws")
	viper.SetDefault("local.service_url", "http://localhost:8000/print")
	viper.SetDefault("local.listen_port", 0)

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/print-relay-agent")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("relay.password", "RELAY_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		panic(err)
	}

	logging.Init(config.Log)

	if config.Log.IsDebug() {
		configJSON, err := json.MarshalIndent(config, "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}
