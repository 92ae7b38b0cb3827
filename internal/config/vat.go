package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// VATConfig describes the seller's VAT jurisdiction.
type VATConfig struct {
	HomeCountry     string            `mapstructure:"home_country"`
	SellerVATNumber string            `mapstructure:"seller_vat_number"`
	Rates           map[string]string `mapstructure:"rates"`
	EUCountries     []string          `mapstructure:"eu_countries"`
}

// EUMemberStates are the 27 EU member states (ISO 3166-1 alpha-2, Greece as GR).
var EUMemberStates = []string{
	"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR", "DE", "GR", "HU", "IE",
	"IT", "LV", "LT", "LU", "MT", "NL", "PL", "PT", "RO", "SK", "SI", "ES", "SE",
}

func DefaultVATConfig() VATConfig {
	eu := make([]string, len(EUMemberStates))
	copy(eu, EUMemberStates)
	return VATConfig{
		HomeCountry: "IE",
		// No seller registration is captured yet; invoices carry this placeholder.
		SellerVATNumber: "IE0000000XX",
		Rates: map[string]string{
			"standard":       "23.0",
			"reduced":        "13.5",
			"second_reduced": "9.0",
			"zero":           "0.0",
			"exempt":         "0.0",
		},
		EUCountries: eu,
	}
}

// RatePercentages parses the configured rates.
func (c VATConfig) RatePercentages() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(c.Rates))
	for key, raw := range c.Rates {
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("vat.rates.%s: %w", key, err)
		}
		if value.IsNegative() {
			return nil, fmt.Errorf("vat.rates.%s must not be negative", key)
		}
		out[key] = value
	}
	return out, nil
}

type VATConfigHolder struct {
	current atomic.Value // holds VATConfig
}

// NewStaticVATConfigHolder returns a holder that never reloads.
func NewStaticVATConfigHolder(cfg VATConfig) *VATConfigHolder {
	holder := &VATConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewVATConfigHolder reads vat.yml (or VAT_CONFIG_PATH) and watches it for changes.
// A missing file yields the Irish defaults.
func NewVATConfigHolder(appCfg Config, log *zap.Logger) (*VATConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("vat.config")

	v := viper.New()
	if appCfg.VATConfigPath != "" {
		v.SetConfigFile(appCfg.VATConfigPath)
	} else {
		v.SetConfigName("vat")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/vatledger")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VATLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultVATConfig()
	v.SetDefault("vat.home_country", defaults.HomeCountry)
	v.SetDefault("vat.seller_vat_number", defaults.SellerVATNumber)
	for key, rate := range defaults.Rates {
		v.SetDefault("vat.rates."+key, rate)
	}
	v.SetDefault("vat.eu_countries", defaults.EUCountries)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Info("vat config file not found, using defaults")
		watch = false
	}

	cfg, err := decodeVATConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticVATConfigHolder(cfg)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeVATConfig(v)
		if err != nil {
			log.Warn("vat config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("vat config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *VATConfigHolder) Get() VATConfig {
	return h.current.Load().(VATConfig)
}

func decodeVATConfig(v *viper.Viper) (VATConfig, error) {
	// Unmarshal merges file values over per-key defaults; UnmarshalKey on the
	// parent would drop defaults for keys the file omits.
	var wrapper struct {
		VAT VATConfig `mapstructure:"vat"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return VATConfig{}, err
	}
	cfg := wrapper.VAT
	cfg.HomeCountry = strings.ToUpper(strings.TrimSpace(cfg.HomeCountry))
	if err := validateVATConfig(cfg); err != nil {
		return VATConfig{}, err
	}
	return cfg, nil
}

func validateVATConfig(cfg VATConfig) error {
	if len(cfg.HomeCountry) != 2 {
		return errors.New("vat.home_country must be an ISO 3166-1 alpha-2 code")
	}
	if len(cfg.EUCountries) == 0 {
		return errors.New("vat.eu_countries cannot be empty")
	}
	if _, err := cfg.RatePercentages(); err != nil {
		return err
	}
	return nil
}
