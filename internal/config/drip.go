package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DripConfig tunes the email drip pipeline without a redeploy.
type DripConfig struct {
	BatchSize        int `mapstructure:"batchSize"`
	SendIntervalSecs int `mapstructure:"sendIntervalSecs"`
	MaxReconcileRuns int `mapstructure:"maxReconcileRuns"`
}

func DefaultDripConfig() DripConfig {
	return DripConfig{
		BatchSize:        50,
		SendIntervalSecs: 60,
		MaxReconcileRuns: 5,
	}
}

type DripConfigHolder struct {
	current atomic.Value // holds DripConfig
}

func NewDripConfigHolder() (*DripConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("drip")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/funnelbase/config")
	v.AddConfigPath("/etc/funnelbase")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FUNNELBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultDripConfig()
		v.SetDefault("drip.batchSize", defaults.BatchSize)
		v.SetDefault("drip.sendIntervalSecs", defaults.SendIntervalSecs)
		v.SetDefault("drip.maxReconcileRuns", defaults.MaxReconcileRuns)
	}

	var cfg DripConfig
	if err := v.UnmarshalKey("drip", &cfg); err != nil {
		return nil, err
	}
	if err := validateDripConfig(cfg); err != nil {
		return nil, err
	}

	holder := &DripConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DripConfig
		if err := v.UnmarshalKey("drip", &updated); err != nil {
			log.Printf("[drip-config] reload failed: %v", err)
			return
		}
		if err := validateDripConfig(updated); err != nil {
			log.Printf("[drip-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[drip-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticDripConfigHolder wraps a fixed config with no file watching.
func NewStaticDripConfigHolder(cfg DripConfig) *DripConfigHolder {
	holder := &DripConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *DripConfigHolder) Get() DripConfig {
	return h.current.Load().(DripConfig)
}

func validateDripConfig(cfg DripConfig) error {
	if cfg.BatchSize <= 0 {
		return errors.New("drip.batchSize must be positive")
	}
	if cfg.SendIntervalSecs <= 0 {
		return errors.New("drip.sendIntervalSecs must be positive")
	}
	if cfg.MaxReconcileRuns <= 0 {
		return errors.New("drip.maxReconcileRuns must be positive")
	}
	return nil
}
