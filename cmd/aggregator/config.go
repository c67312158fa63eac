package main

import (
	"fmt"
	"os"

	configtypes "crossbook/internal/config"
	"go.yaml.in/yaml/v4"
)

type config struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	Server   struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Venues struct {
		Polymarket struct {
			GammaURL          string               `yaml:"gamma_url"`
			WSURL             string               `yaml:"ws_url"`
			SlugPrefix        string               `yaml:"slug_prefix"`
			NoInstrumentRetry configtypes.Duration `yaml:"no_instrument_retry"`
		} `yaml:"polymarket"`
		DFlow struct {
			APIURL            string               `yaml:"api_url"`
			WSURL             string               `yaml:"ws_url"`
			APIKey            string               `yaml:"api_key"`
			Series            string               `yaml:"series"`
			NoInstrumentRetry configtypes.Duration `yaml:"no_instrument_retry"`
		} `yaml:"dflow"`
	} `yaml:"venues"`
}

func readConfig(configPath *string) (*config, error) {
	rawConfig, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("couldn't read file %s: %w", *configPath, err)
	}

	cfg := &config{}
	if err = yaml.Unmarshal(rawConfig, cfg); err != nil {
		return nil, fmt.Errorf("couldn't parse config: %w", err)
	}

	err = validateConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't validate config: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *config) error {
	// Server
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	// Polymarket
	if cfg.Venues.Polymarket.GammaURL == "" {
		return fmt.Errorf("venues.polymarket.gamma_url is required")
	}
	if cfg.Venues.Polymarket.WSURL == "" {
		return fmt.Errorf("venues.polymarket.ws_url is required")
	}
	if cfg.Venues.Polymarket.SlugPrefix == "" {
		return fmt.Errorf("venues.polymarket.slug_prefix is required")
	}

	// DFlow
	if cfg.Venues.DFlow.APIURL == "" {
		return fmt.Errorf("venues.dflow.api_url is required")
	}
	if cfg.Venues.DFlow.WSURL == "" {
		return fmt.Errorf("venues.dflow.ws_url is required")
	}
	if cfg.Venues.DFlow.APIKey == "" {
		return fmt.Errorf("venues.dflow.api_key is required")
	}
	if cfg.Venues.DFlow.Series == "" {
		return fmt.Errorf("venues.dflow.series is required")
	}

	return nil
}
