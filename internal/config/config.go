package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FeedConfig describes where an asset's price comes from. A URL selects an
// HTTP feed; otherwise StaticPrice backs a fixed mock feed.
type FeedConfig struct {
	Address     string `yaml:"address"`
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	PricePath   string `yaml:"price_path"`
	Decimals    *uint8 `yaml:"decimals"`
	StaticPrice string `yaml:"static_price"`
}

// DefaultDecimals applies to assets and feeds that leave decimals unset.
const DefaultDecimals uint8 = 18

// FeedDecimals returns the feed precision, DefaultDecimals when unset.
func (f *FeedConfig) FeedDecimals() uint8 {
	if f.Decimals == nil {
		return DefaultDecimals
	}
	return *f.Decimals
}

// AssetConfig declares a stakeable asset and its devnet ledger.
type AssetConfig struct {
	Address  string      `yaml:"address"`
	Symbol   string      `yaml:"symbol"`
	Decimals *uint8      `yaml:"decimals"`
	Allowed  bool        `yaml:"allowed"`
	Feed     *FeedConfig `yaml:"feed"`
}

// AssetDecimals returns the asset precision, DefaultDecimals when unset.
// An explicit 0 is kept.
func (a AssetConfig) AssetDecimals() uint8 {
	if a.Decimals == nil {
		return DefaultDecimals
	}
	return *a.Decimals
}

// Grant mints devnet balances at startup. ApproveCustody also lets the farm
// pull the granted amount, so the account can stake it right away.
type Grant struct {
	Account        string `yaml:"account"`
	Asset          string `yaml:"asset"`
	Amount         string `yaml:"amount"`
	ApproveCustody bool   `yaml:"approve_custody"`
}

// Config holds all application configuration.
type Config struct {
	Farm struct {
		Owner              string `yaml:"owner"`
		Custody            string `yaml:"custody"`
		RewardAsset        string `yaml:"reward_asset"`
		ConversionFactor   string `yaml:"conversion_factor"`
		CommonDecimals     uint8  `yaml:"common_decimals"`
		MissingFeedPolicy  string `yaml:"missing_feed_policy"`
		RewardMode         string `yaml:"reward_mode"`
		RequireActiveStake bool   `yaml:"require_active_stake"`
		StateFile          string `yaml:"state_file"`
	} `yaml:"farm"`
	Assets []AssetConfig `yaml:"assets"`
	Devnet struct {
		Grants []Grant `yaml:"grants"`
	} `yaml:"devnet"`
	Schedule struct {
		IssuanceCron string `yaml:"issuance_cron"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Listen    string `yaml:"listen"`
		RateLimit int    `yaml:"rate_limit"`
		Burst     int    `yaml:"burst"`
	} `yaml:"http"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	envFile := ".env"
	if v := os.Getenv("ENV_FILE"); v != "" {
		envFile = v
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	// Environment variable overrides
	if v := os.Getenv("FARM_OWNER"); v != "" {
		cfg.Farm.Owner = v
	}
	if v := os.Getenv("FARM_CUSTODY"); v != "" {
		cfg.Farm.Custody = v
	}
	if v := os.Getenv("FARM_REWARD_ASSET"); v != "" {
		cfg.Farm.RewardAsset = v
	}
	if v := os.Getenv("FARM_CONVERSION_FACTOR"); v != "" {
		cfg.Farm.ConversionFactor = v
	}
	if v := os.Getenv("FARM_MISSING_FEED_POLICY"); v != "" {
		cfg.Farm.MissingFeedPolicy = v
	}
	if v := os.Getenv("FARM_REWARD_MODE"); v != "" {
		cfg.Farm.RewardMode = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.Farm.StateFile = v
	}
	if v := os.Getenv("CRON_ISSUANCE"); v != "" {
		cfg.Schedule.IssuanceCron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		cfg.Schedule.RunOnStart = v == "true"
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_LISTEN"); v != "" {
		cfg.HTTP.Listen = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit = n
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Farm.ConversionFactor == "" {
		cfg.Farm.ConversionFactor = "2"
	}
	if cfg.Farm.CommonDecimals == 0 {
		cfg.Farm.CommonDecimals = 18
	}
	if cfg.Farm.MissingFeedPolicy == "" {
		cfg.Farm.MissingFeedPolicy = "zero"
	}
	if cfg.Farm.RewardMode == "" {
		cfg.Farm.RewardMode = "push"
	}
	if cfg.Farm.StateFile == "" {
		cfg.Farm.StateFile = "data/farm_state.json"
	}
	if cfg.Schedule.IssuanceCron == "" {
		cfg.Schedule.IssuanceCron = "0 0 0 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/yield_farm.db"
	}
	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = ":8080"
	}
	if cfg.HTTP.RateLimit == 0 {
		cfg.HTTP.RateLimit = 20
	}
	if cfg.HTTP.Burst == 0 {
		cfg.HTTP.Burst = 2 * cfg.HTTP.RateLimit
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and well formed.
func (c *Config) Validate() error {
	if err := requireAddress("farm.owner", c.Farm.Owner); err != nil {
		return err
	}
	if err := requireAddress("farm.custody", c.Farm.Custody); err != nil {
		return err
	}
	if err := requireAddress("farm.reward_asset", c.Farm.RewardAsset); err != nil {
		return err
	}
	if f, ok := c.ConversionFactor(); !ok || f.Sign() <= 0 {
		return fmt.Errorf("farm.conversion_factor must be a positive integer, got %q", c.Farm.ConversionFactor)
	}
	switch c.Farm.MissingFeedPolicy {
	case "zero", "strict":
	default:
		return fmt.Errorf("farm.missing_feed_policy must be zero or strict, got %q", c.Farm.MissingFeedPolicy)
	}
	switch c.Farm.RewardMode {
	case "push", "pull":
	default:
		return fmt.Errorf("farm.reward_mode must be push or pull, got %q", c.Farm.RewardMode)
	}
	seen := make(map[common.Address]bool)
	for i, a := range c.Assets {
		field := fmt.Sprintf("assets[%d].address", i)
		if err := requireAddress(field, a.Address); err != nil {
			return err
		}
		addr := common.HexToAddress(a.Address)
		if seen[addr] {
			return fmt.Errorf("%s: duplicate asset %s", field, a.Address)
		}
		seen[addr] = true
		if a.Feed == nil {
			continue
		}
		if err := requireAddress(fmt.Sprintf("assets[%d].feed.address", i), a.Feed.Address); err != nil {
			return err
		}
		if a.Feed.URL == "" && a.Feed.StaticPrice == "" {
			return fmt.Errorf("assets[%d].feed needs url or static_price", i)
		}
		if a.Feed.StaticPrice != "" {
			if _, ok := new(big.Int).SetString(a.Feed.StaticPrice, 10); !ok {
				return fmt.Errorf("assets[%d].feed.static_price is not an integer", i)
			}
		}
	}
	for i, g := range c.Devnet.Grants {
		if err := requireAddress(fmt.Sprintf("devnet.grants[%d].account", i), g.Account); err != nil {
			return err
		}
		if err := requireAddress(fmt.Sprintf("devnet.grants[%d].asset", i), g.Asset); err != nil {
			return err
		}
		if v, ok := new(big.Int).SetString(g.Amount, 10); !ok || v.Sign() <= 0 {
			return fmt.Errorf("devnet.grants[%d].amount must be a positive integer", i)
		}
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit must not be negative")
	}
	return nil
}

// ConversionFactor parses farm.conversion_factor.
func (c *Config) ConversionFactor() (*big.Int, bool) {
	return new(big.Int).SetString(c.Farm.ConversionFactor, 10)
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func requireAddress(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	if !common.IsHexAddress(v) {
		return fmt.Errorf("%s: %q is not a hex address", field, v)
	}
	if common.HexToAddress(v) == (common.Address{}) {
		return fmt.Errorf("%s must not be the zero address", field)
	}
	return nil
}
