// internal/config/config.go
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		HTTPPort int `mapstructure:"http_port"`
	} `mapstructure:"server"`
	MQTT struct {
		Broker   string `mapstructure:"broker"`
		ClientID string `mapstructure:"client_id"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		QOS      int    `mapstructure:"qos"`
	} `mapstructure:"mqtt"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"smtp"`
	Auth struct {
		JWTSecret     string `mapstructure:"jwt_secret"`
		JWTExpiration int    `mapstructure:"jwt_expiration"` // in minutes
	} `mapstructure:"auth"`
	Pipeline struct {
		Epsilon               float64 `mapstructure:"epsilon"`
		FlushIntervalSecs     int     `mapstructure:"flush_interval_secs"`
		InactivityTimeoutSecs int     `mapstructure:"inactivity_timeout_secs"`
		DisconnectGraceSecs   int     `mapstructure:"disconnect_grace_secs"`
		SweepIntervalSecs     int     `mapstructure:"sweep_interval_secs"`
		RetentionCap          int     `mapstructure:"retention_cap"`
		PruneBatch            int     `mapstructure:"prune_batch"`
		PruneChance           float64 `mapstructure:"prune_chance"`
		PruneIntervalMins     int     `mapstructure:"prune_interval_mins"`
		HistoryLimit          int     `mapstructure:"history_limit"`
	} `mapstructure:"pipeline"`
	Thresholds Thresholds `mapstructure:"thresholds"`
}

// Rule is a low/high comfort range for one sensor in one environmental mode.
type Rule struct {
	Low  float64 `mapstructure:"low"`
	High float64 `mapstructure:"high"`
}

// Thresholds is the static threshold table. Temperature is keyed by
// zone then cycle, UV by cycle, humidity by shedding state
// ("normal"/"muda").
type Thresholds struct {
	Temperature map[string]map[string]Rule `mapstructure:"temperatura"`
	UVLight     map[string]Rule            `mapstructure:"luz_uv"`
	Humidity    map[string]Rule            `mapstructure:"humedad"`
}

var AppConfig Config

func LoadConfig(path string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.SetEnvPrefix("terrario")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Defaults cover a full local setup; a missing file is not fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return fmt.Errorf("unmarshalling config: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.http_port", 8080)

	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.client_id", "terrario-gateway")
	viper.SetDefault("mqtt.qos", 1)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "terrario")
	viper.SetDefault("db.password", "terrario")
	viper.SetDefault("db.name", "terrario")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.from", "alertas@terrario.local")

	viper.SetDefault("auth.jwt_secret", "change-me")
	viper.SetDefault("auth.jwt_expiration", 120)

	viper.SetDefault("pipeline.epsilon", 0.2)
	viper.SetDefault("pipeline.flush_interval_secs", 30)
	viper.SetDefault("pipeline.inactivity_timeout_secs", 60)
	viper.SetDefault("pipeline.disconnect_grace_secs", 30)
	viper.SetDefault("pipeline.sweep_interval_secs", 60)
	viper.SetDefault("pipeline.retention_cap", 500)
	viper.SetDefault("pipeline.prune_batch", 50)
	viper.SetDefault("pipeline.prune_chance", 0.05)
	viper.SetDefault("pipeline.prune_interval_mins", 10)
	viper.SetDefault("pipeline.history_limit", 100)

	// Comfort ranges for a leopard gecko enclosure. Overridable per deploy.
	viper.SetDefault("thresholds.temperatura.fria.dia", map[string]any{"low": 26.0, "high": 28.0})
	viper.SetDefault("thresholds.temperatura.fria.noche", map[string]any{"low": 20.0, "high": 24.0})
	viper.SetDefault("thresholds.temperatura.fria.amanecer", map[string]any{"low": 24.0, "high": 26.0})
	viper.SetDefault("thresholds.temperatura.caliente.dia", map[string]any{"low": 32.0, "high": 35.0})
	viper.SetDefault("thresholds.temperatura.caliente.noche", map[string]any{"low": 25.0, "high": 28.0})
	viper.SetDefault("thresholds.temperatura.caliente.amanecer", map[string]any{"low": 28.0, "high": 32.0})
	viper.SetDefault("thresholds.luz_uv.dia", map[string]any{"low": 0.3, "high": 0.8})
	viper.SetDefault("thresholds.luz_uv.noche", map[string]any{"low": 0.0, "high": 0.1})
	viper.SetDefault("thresholds.luz_uv.amanecer", map[string]any{"low": 0.1, "high": 0.4})
	viper.SetDefault("thresholds.humedad.normal", map[string]any{"low": 30.0, "high": 50.0})
	viper.SetDefault("thresholds.humedad.muda", map[string]any{"low": 50.0, "high": 70.0})
}
