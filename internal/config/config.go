package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Obyte    ObyteConfig    `mapstructure:"obyte"`
	Session  SessionConfig  `mapstructure:"session"`
	Chain    string         `mapstructure:"chain"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// BotUsername is the public bot name used in t.me deep links.
	BotUsername string `mapstructure:"bot_username"`
}

type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// BaseURL is the public base of the verify endpoint as seen by
	// wallets, e.g. "https://attestation.example.org".
	BaseURL string `mapstructure:"base_url"`
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	// URL is the Postgres connection string; empty keeps the in-memory
	// store.
	URL string `mapstructure:"url"`
}

type ObyteConfig struct {
	BridgeURL     string `mapstructure:"bridge_url"`
	DevicePubKey  string `mapstructure:"device_pub_key"`
	Hub           string `mapstructure:"hub"`
	PairingSecret string `mapstructure:"pairing_secret"`
	Testnet       bool   `mapstructure:"testnet"`
	// EventsToken guards the /events webhooks the bridge posts back to;
	// empty leaves them open (loopback-only deployments).
	EventsToken string `mapstructure:"events_token"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text|json
}

// Load reads the optional YAML config file and lets environment variables
// override every key (e.g. TELEGRAM_TOKEN, DATABASE_URL, OBYTE_BRIDGE_URL).
func Load(path string) (Config, error) {
	v := viper.New()

	// Empty defaults register the keys so AutomaticEnv can override them
	// even without a config file.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.bot_username", "")
	v.SetDefault("http.base_url", "")
	v.SetDefault("database.url", "")
	v.SetDefault("obyte.bridge_url", "")
	v.SetDefault("obyte.device_pub_key", "")
	v.SetDefault("obyte.pairing_secret", "")
	v.SetDefault("obyte.events_token", "")
	v.SetDefault("obyte.testnet", false)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5005)
	v.SetDefault("obyte.hub", "obyte.org/bb")
	v.SetDefault("session.ttl", 10*time.Minute)
	v.SetDefault("chain", "obyte")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Telegram.Token == "" {
		return Config{}, fmt.Errorf("config: telegram token is required")
	}
	if cfg.Obyte.Testnet {
		cfg.Obyte.Hub = strings.Replace(cfg.Obyte.Hub, "obyte.org/bb", "obyte.org/bb-test", 1)
	}
	return cfg, nil
}
