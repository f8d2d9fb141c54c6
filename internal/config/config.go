package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		DSN    string
	}
	Auth struct {
		JWTSecret          string
		TokenTTLMinutes    int
		LoginRatePerSecond float64
		LoginRateBurst     int
	}
	Books struct {
		BlockedPseudonyms []string
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	_ = godotenv.Load() // optional .env

	v := viper.New()
	v.SetEnvPrefix("WOOKIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/wookie.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 60)
	v.SetDefault("auth.loginratepersecond", 5.0)
	v.SetDefault("auth.loginrateburst", 10)
	v.SetDefault("books.blockedpseudonyms", []string{"Darth Vader"})
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "covers")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
