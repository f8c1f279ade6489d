// Package config loads SDK settings from conduit-sdk.yml and the environment.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CONDUIT_SDK_HOST
const EnvPrefix = "CONDUIT_SDK"

// Settings represents the SDK configuration
type Settings struct {
	Host        string        `mapstructure:"host"`
	APIKey      string        `mapstructure:"api_key"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	LogLevel    string        `mapstructure:"log_level"`
	Serve       ServeSettings `mapstructure:"serve"`
}

// ServeSettings configures the local fake API server
type ServeSettings struct {
	Addr      string `mapstructure:"addr"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Load reads settings from path, or from conduit-sdk.yml in the working
// directory when path is empty. A missing default file is not an error.
func Load(path string) (*Settings, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("host", "")
	v.SetDefault("api_key", "")
	v.SetDefault("access_token", "")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("serve.addr", "127.0.0.1:8080")
	v.SetDefault("serve.jwt_secret", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("conduit-sdk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// Validate checks the host and timeout
func Validate(s *Settings) error {
	if s.Host != "" {
		u, err := url.Parse(s.Host)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("host must be an absolute http(s) URL, got: %s", s.Host)
		}
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %s", s.Timeout)
	}
	return nil
}
