package paymentclient

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config for the payment client. BaseURLs are fallback hosts, tried in order
// when BaseURL fails with a network error or a 5xx.
type Config struct {
	BaseURL        string        `envconfig:"QRISHUB_URL" default:"http://localhost:3000"`
	BaseURLs       []string      `envconfig:"QRISHUB_URLS"`
	PollInterval   time.Duration `envconfig:"QRISHUB_POLL_INTERVAL" default:"30s"`
	RequestTimeout time.Duration `envconfig:"QRISHUB_REQUEST_TIMEOUT" default:"20s"`
	MaxProofSize   int64         `envconfig:"QRISHUB_MAX_PROOF_SIZE" default:"5242880"` // 5 MiB, same ceiling as the server
	RetryAttempts  int           `envconfig:"QRISHUB_RETRY_ATTEMPTS" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"QRISHUB_RETRY_BASE_DELAY" default:"1s"`
}

func LoadConfig() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, err
	}
	return c, nil
}

// URLs returns BaseURL followed by the fallbacks, trimmed and without duplicates.
func (c *Config) URLs() []string {
	urls := []string{}
	seen := map[string]bool{}
	for _, u := range append([]string{c.BaseURL}, c.BaseURLs...) {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:3000",
		PollInterval:   30 * time.Second,
		RequestTimeout: 20 * time.Second,
		MaxProofSize:   5 << 20,
		RetryAttempts:  3,
		RetryBaseDelay: time.Second,
	}
}
