package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Binance struct {
		BaseURL         string `yaml:"base_url"`
		QuoteAsset      string `yaml:"quote_asset"`
		CandleLimit     int    `yaml:"candle_limit"`
		CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	} `yaml:"binance"`
	News struct {
		BaseURL         string `yaml:"base_url"`
		Lang            string `yaml:"lang"`
		APIKeyEnv       string `yaml:"api_key_env"`
		CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	} `yaml:"news"`
	LLM struct {
		BaseURL        string  `yaml:"base_url"`
		Model          string  `yaml:"model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float32 `yaml:"temperature"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		APIKeyEnv      string  `yaml:"api_key_env"`
	} `yaml:"llm"`
	Cache struct {
		Capacity                 int `yaml:"capacity"`
		SentimentTTLMinutes      int `yaml:"sentiment_ttl_minutes"`
		RecommendationTTLMinutes int `yaml:"recommendation_ttl_minutes"`
	} `yaml:"cache"`
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model cannot be empty")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url cannot be empty")
	}
	if c.Binance.CandleLimit < 1 || c.Binance.CandleLimit > 200 {
		return fmt.Errorf("binance.candle_limit must be between 1-200, got %d", c.Binance.CandleLimit)
	}
	return nil
}

// MarketCacheTTL is how long fetched candle series stay fresh.
func (c *Config) MarketCacheTTL() time.Duration {
	return time.Duration(c.Binance.CacheTTLMinutes) * time.Minute
}

func (c *Config) NewsCacheTTL() time.Duration {
	return time.Duration(c.News.CacheTTLMinutes) * time.Minute
}

func (c *Config) SentimentCacheTTL() time.Duration {
	return time.Duration(c.Cache.SentimentTTLMinutes) * time.Minute
}

func (c *Config) RecommendationCacheTTL() time.Duration {
	return time.Duration(c.Cache.RecommendationTTLMinutes) * time.Minute
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// DefaultConfig returns a config with every default applied, used when no
// config file is present.
func DefaultConfig() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Binance.BaseURL == "" {
		c.Binance.BaseURL = "https://api.binance.com"
	}
	if c.Binance.QuoteAsset == "" {
		c.Binance.QuoteAsset = "USDT"
	}
	if c.Binance.CandleLimit == 0 {
		c.Binance.CandleLimit = 200
	}
	if c.Binance.CacheTTLMinutes == 0 {
		c.Binance.CacheTTLMinutes = 5
	}
	if c.News.BaseURL == "" {
		c.News.BaseURL = "https://min-api.cryptocompare.com"
	}
	if c.News.Lang == "" {
		c.News.Lang = "EN"
	}
	if c.News.APIKeyEnv == "" {
		c.News.APIKeyEnv = "CRYPTOCOMPARE_API_KEY"
	}
	if c.News.CacheTTLMinutes == 0 {
		c.News.CacheTTLMinutes = 15
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "http://localhost:1234/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "meta-llama-3.1-8b-instruct"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1500
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 90
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 64
	}
	if c.Cache.SentimentTTLMinutes == 0 {
		c.Cache.SentimentTTLMinutes = 15
	}
	if c.Cache.RecommendationTTLMinutes == 0 {
		c.Cache.RecommendationTTLMinutes = 15
	}
}
