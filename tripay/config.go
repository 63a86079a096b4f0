package tripay

import (
	"github.com/kelseyhightower/envconfig"
)

const (
	SandboxBaseUrl    = "https://tripay.co.id/api-sandbox"
	ProductionBaseUrl = "https://tripay.co.id/api"
)

type Config struct {
	ApiKey       string `envconfig:"TRIPAY_API_KEY"`
	PrivateKey   string `envconfig:"TRIPAY_PRIVATE_KEY"`
	MerchantCode string `envconfig:"TRIPAY_MERCHANT_CODE"`
	Sandbox      bool   `envconfig:"TRIPAY_SANDBOX" default:"true"`
	BaseUrl      string `envconfig:"TRIPAY_BASE_URL"`
	CallbackUrl  string `envconfig:"TRIPAY_CALLBACK_URL"`
	ReturnUrl    string `envconfig:"TRIPAY_RETURN_URL"`
	Timeout      int    `envconfig:"TRIPAY_TIMEOUT" default:"15"` // in seconds
}

func LoadConfig() (c *Config, err error) {
	c = &Config{}
	err = envconfig.Process("", c)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Enabled reports whether enough credentials are set to talk to the gateway.
func (c *Config) Enabled() bool {
	return c.ApiKey != "" && c.PrivateKey != "" && c.MerchantCode != ""
}

func (c *Config) baseUrl() string {
	if c.BaseUrl != "" {
		return c.BaseUrl
	}
	if c.Sandbox {
		return SandboxBaseUrl
	}
	return ProductionBaseUrl
}
