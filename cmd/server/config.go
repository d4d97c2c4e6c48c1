package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"github.com/warp/hierarchy-engine/client"
	"github.com/warp/hierarchy-engine/hierarchy"
	"github.com/warp/hierarchy-engine/store/sqlite"
	"go.uber.org/zap"
)

// envPrefix scopes every environment variable, e.g. HIERARCHY_PORT.
const envPrefix = "HIERARCHY"

// Config is read from the environment first; flags that were set on the
// command line win.
type Config struct {
	Port        int           `envconfig:"PORT" default:"8080"`
	DB          string        `envconfig:"DB" default:"hierarchy.db"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
	SourceURL   string        `envconfig:"SOURCE_URL"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
}

func loadConfig(flags *pflag.FlagSet) (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "port":
			cfg.Port, err = flags.GetInt("port")
		case "db":
			cfg.DB, err = flags.GetString("db")
		case "log-level":
			cfg.LogLevel, err = flags.GetString("log-level")
		case "source":
			cfg.SourceURL, err = flags.GetString("source")
		case "http-timeout":
			cfg.HTTPTimeout, err = flags.GetDuration("http-timeout")
		}
	})
	if err != nil {
		return Config{}, err
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// openSource returns the remote data source when a source URL is
// configured, and the local SQLite store otherwise.
func openSource(cfg Config) (hierarchy.DataSource, func() error, error) {
	if cfg.SourceURL != "" {
		c, err := client.New(cfg.SourceURL, &http.Client{Timeout: cfg.HTTPTimeout})
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	}

	store, err := sqlite.New(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", cfg.DB, err)
	}
	return store, store.Close, nil
}
