package paymentclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("QRISHUB_URL", "https://pay.example.com/")
	t.Setenv("QRISHUB_URLS", "https://backup.example.com/, https://pay.example.com")
	t.Setenv("QRISHUB_RETRY_ATTEMPTS", "5")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/", c.BaseURL)
	assert.Equal(t, 5, c.RetryAttempts)
	assert.Equal(t, 30*time.Second, c.PollInterval)
	assert.Equal(t, int64(5<<20), c.MaxProofSize)

	api := NewAPI(c, nil)
	assert.Equal(t, []string{"https://pay.example.com", "https://backup.example.com"}, api.baseURLs)
}

func TestExponentialRetryDelays(t *testing.T) {
	b := ExponentialRetry(time.Second, 3)()
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, time.Duration(-1), b.NextBackOff())
}

func TestClassifyResponse(t *testing.T) {
	e := classifyResponse(http.StatusForbidden, []byte(`{"error":true,"code":"SUBSCRIPTION_REQUIRED","subscriptionRequired":true}`))
	assert.Equal(t, KindSubscriptionExpired, e.Kind)
	assert.Equal(t, "SUBSCRIPTION_REQUIRED", e.Code)

	e = classifyResponse(http.StatusUnauthorized, []byte(`{"error":true,"code":"USER_DELETED"}`))
	assert.True(t, e.UserDeleted())

	e = classifyResponse(http.StatusUnauthorized, []byte(`{"error":true,"code":1,"message":"bad auth"}`))
	assert.Equal(t, KindAuthExpired, e.Kind)
	assert.False(t, e.UserDeleted())
	assert.Equal(t, "bad auth", e.Message)

	e = classifyResponse(http.StatusBadGateway, nil)
	assert.Equal(t, KindServer, e.Kind)
	assert.True(t, e.Retryable())
	assert.Equal(t, "Bad Gateway", e.Message)

	assert.Equal(t, KindValidation, classifyResponse(http.StatusNotFound, nil).Kind)
}
