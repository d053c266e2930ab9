package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Log struct {
		Level  string
		Format string
	}
	Store struct {
		Driver    string
		Namespace string
		SQLite    struct {
			Path string
		} `mapstructure:"sqlite"`
		Redis struct {
			Addr     string
			Password string
			DB       int `mapstructure:"db"`
		}
		Postgres struct {
			DSN string `mapstructure:"dsn"`
		}
		S3 struct {
			Bucket   string
			Prefix   string
			Region   string
			Endpoint string
		} `mapstructure:"s3"`
	}
	AWS struct {
		Profile string
	} `mapstructure:"aws"`
	Auth struct {
		SessionTTL     time.Duration     `mapstructure:"session_ttl"`
		CSRFTTL        time.Duration     `mapstructure:"csrf_ttl"`
		Verifier       string            `mapstructure:"verifier"`
		PasswordHashes map[string]string `mapstructure:"password_hashes"`
		CSRFMode       string            `mapstructure:"csrf_mode"`
		CSRFSecret     string            `mapstructure:"csrf_secret"`
	}
	Sweeper struct {
		Interval time.Duration
	}
	Seed struct {
		SampleData bool `mapstructure:"sample_data"`
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("TASKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.namespace", "task-management-")
	v.SetDefault("store.sqlite.path", "data/taskboard.db")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.prefix", "taskboard")
	v.SetDefault("store.s3.region", "us-east-1")
	v.SetDefault("store.s3.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.csrf_ttl", "1h")
	v.SetDefault("auth.verifier", "any")
	v.SetDefault("auth.password_hashes", map[string]string{})
	v.SetDefault("auth.csrf_mode", "registry")
	v.SetDefault("auth.csrf_secret", "")
	v.SetDefault("sweeper.interval", "30m")
	v.SetDefault("seed.sample_data", true)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	// from the environment the hashes arrive as "email=hash,email=hash"
	if raw, ok := v.Get("auth.password_hashes").(string); ok {
		hashes, err := parsePasswordHashes(raw)
		if err != nil {
			return Config{}, err
		}
		v.Set("auth.password_hashes", hashes)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite", "redis", "postgres", "s3":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Auth.Verifier {
	case "any", "bcrypt":
	default:
		return fmt.Errorf("unknown auth verifier %q", c.Auth.Verifier)
	}
	switch c.Auth.CSRFMode {
	case "registry":
	case "signed":
		if strings.TrimSpace(c.Auth.CSRFSecret) == "" {
			return fmt.Errorf("auth csrf secret is required in signed mode")
		}
	default:
		return fmt.Errorf("unknown csrf mode %q", c.Auth.CSRFMode)
	}
	return nil
}

func parsePasswordHashes(raw string) (map[string]string, error) {
	hashes := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		email, hash, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(email) == "" || strings.TrimSpace(hash) == "" {
			return nil, fmt.Errorf("invalid password hash entry %q", pair)
		}
		hashes[strings.TrimSpace(email)] = strings.TrimSpace(hash)
	}
	return hashes, nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if !found || key == "" {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
