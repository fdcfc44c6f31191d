package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig holds the fixed price list that express checkout validates
// against. Water project builds are priced per country; sponsorships have a
// platform-wide minimum monthly amount.
type PricingConfig struct {
	WaterCountries        []WaterCountryPrice `mapstructure:"waterCountries"`
	SponsorshipMinMonthly int64               `mapstructure:"sponsorshipMinMonthly"`
	MinDonationPence      int64               `mapstructure:"minDonationPence"`
	MaxExpressItemCount   int                 `mapstructure:"maxExpressItemCount"`
	MaxExpressTotalPence  int64               `mapstructure:"maxExpressTotalPence"`
}

type WaterCountryPrice struct {
	Code        string `mapstructure:"code"`
	AmountPence int64  `mapstructure:"amountPence"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		WaterCountries: []WaterCountryPrice{
			{Code: "PK", AmountPence: 18_000},
			{Code: "BD", AmountPence: 24_000},
			{Code: "AF", AmountPence: 36_000},
		},
		SponsorshipMinMonthly: 3_500,
		MinDonationPence:      100,
		MaxExpressItemCount:   20,
		MaxExpressTotalPence:  5_000_000,
	}
}

// WaterPrice returns the configured build price for a country code.
func (c PricingConfig) WaterPrice(code string) (int64, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, country := range c.WaterCountries {
		if strings.ToUpper(country.Code) == code {
			return country.AmountPence, true
		}
	}
	return 0, false
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

func NewPricingConfigHolder() (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/kindbridge/config")
	v.AddConfigPath("/etc/kindbridge")
	v.AddConfigPath(".")

	v.SetEnvPrefix("KINDBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.waterCountries", defaults.WaterCountries)
	v.SetDefault("pricing.sponsorshipMinMonthly", defaults.SponsorshipMinMonthly)
	v.SetDefault("pricing.minDonationPence", defaults.MinDonationPence)
	v.SetDefault("pricing.maxExpressItemCount", defaults.MaxExpressItemCount)
	v.SetDefault("pricing.maxExpressTotalPence", defaults.MaxExpressTotalPence)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPricingConfigHolder builds a holder with a fixed config, used by
// tests and dev tooling.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func validatePricingConfig(cfg PricingConfig) error {
	if len(cfg.WaterCountries) == 0 {
		return errors.New("pricing.waterCountries cannot be empty")
	}
	for _, country := range cfg.WaterCountries {
		if strings.TrimSpace(country.Code) == "" || country.AmountPence <= 0 {
			return errors.New("pricing.waterCountries entries need a code and a positive amount")
		}
	}
	if cfg.SponsorshipMinMonthly <= 0 {
		return errors.New("pricing.sponsorshipMinMonthly must be positive")
	}
	return nil
}
