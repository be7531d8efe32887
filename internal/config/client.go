package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig holds settings for the docchat terminal client.
type ClientConfig struct {
	ServerURL string        `mapstructure:"server"`
	Timeout   time.Duration `mapstructure:"timeout"`
	NoColor   bool          `mapstructure:"no-color"`
	Watch     bool          `mapstructure:"watch"`
	Verbose   bool          `mapstructure:"verbose"`
}

// SetClientDefaults registers defaults and the DOCCHAT_ env prefix on v.
func SetClientDefaults(v *viper.Viper) {
	v.SetDefault("server", "http://localhost:5000")
	v.SetDefault("timeout", 2*time.Minute)
	v.SetDefault("no-color", false)
	v.SetDefault("watch", false)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("DOCCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// LoadClient reads the client configuration out of v.
func LoadClient(v *viper.Viper) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return &cfg, nil
}
