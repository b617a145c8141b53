package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AdjudicationConfig is the operator-tunable policy for the adjudication
// engine. It is loaded from a yaml file and hot-reloaded on change so limit
// thresholds can be adjusted without a redeploy.
type AdjudicationConfig struct {
	// Claims above this amount always require manual review.
	HighValueThreshold float64 `mapstructure:"highValueThreshold"`

	// Bounded worker count for batch adjudication.
	BatchWorkers int `mapstructure:"batchWorkers"`

	// Discount rate applied to the insurer outlay per provider network tier.
	NetworkDiscountRates map[string]float64 `mapstructure:"networkDiscountRates"`
}

func DefaultAdjudicationConfig() AdjudicationConfig {
	return AdjudicationConfig{
		HighValueThreshold: 10_000,
		BatchWorkers:       10,
		NetworkDiscountRates: map[string]float64{
			"preferred":      0.10,
			"standard":       0.05,
			"out_of_network": 0,
		},
	}
}

// AdjudicationConfigHolder exposes an atomically swapped snapshot of the
// adjudication policy.
type AdjudicationConfigHolder struct {
	current atomic.Value // holds AdjudicationConfig
}

func NewAdjudicationConfigHolder() (*AdjudicationConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("adjudication")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/vitalis/config") // Volume-mounted config
	v.AddConfigPath("/etc/vitalis")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("VITALIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAdjudicationConfig()
	v.SetDefault("adjudication.highValueThreshold", defaults.HighValueThreshold)
	v.SetDefault("adjudication.batchWorkers", defaults.BatchWorkers)
	v.SetDefault("adjudication.networkDiscountRates", defaults.NetworkDiscountRates)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg AdjudicationConfig
	if err := v.UnmarshalKey("adjudication", &cfg); err != nil {
		return nil, err
	}
	if err := validateAdjudicationConfig(cfg); err != nil {
		return nil, err
	}

	holder := &AdjudicationConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AdjudicationConfig
		if err := v.UnmarshalKey("adjudication", &updated); err != nil {
			log.Printf("[adjudication-config] reload failed: %v", err)
			return
		}
		if err := validateAdjudicationConfig(updated); err != nil {
			log.Printf("[adjudication-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[adjudication-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticAdjudicationConfigHolder wraps a fixed config, used by tests.
func NewStaticAdjudicationConfigHolder(cfg AdjudicationConfig) *AdjudicationConfigHolder {
	holder := &AdjudicationConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *AdjudicationConfigHolder) Current() AdjudicationConfig {
	return h.current.Load().(AdjudicationConfig)
}

func validateAdjudicationConfig(cfg AdjudicationConfig) error {
	if cfg.HighValueThreshold <= 0 {
		return errors.New("highValueThreshold must be positive")
	}
	if cfg.BatchWorkers <= 0 {
		return errors.New("batchWorkers must be positive")
	}
	for tier, rate := range cfg.NetworkDiscountRates {
		if rate < 0 || rate > 1 {
			return errors.New("networkDiscountRates." + tier + " must be within [0,1]")
		}
	}
	return nil
}
