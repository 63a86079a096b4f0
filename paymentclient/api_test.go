package paymentclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kinterstore/qrishub.go/lib/responses"
	"github.com/kinterstore/qrishub.go/paymentclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileHandler(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, paymentclient.Profile{Active: true})
}

func TestConcurrentUnauthorizedRefreshOnce(t *testing.T) {
	var refreshes, profiles int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "refresh", body["token"])
		writeJSON(w, http.StatusOK, map[string]string{"token": "fresh"})
	})
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&profiles, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, responses.BadAuthError)
			return
		}
		profileHandler(w)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	observer := &recordingObserver{}
	session := paymentclient.NewSession(paymentclient.Tokens{AccessToken: "stale", RefreshToken: "refresh"}, observer)
	api := newAPI(server.URL, session, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = api.Profile(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, "fresh", session.AccessToken())
	assert.False(t, session.LoggedOut())
	_, _, _, logouts := observer.counts()
	assert.Equal(t, 0, logouts)
}

func TestFailedRefreshLogsOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, responses.BadAuthError)
	})
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, responses.BadAuthError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	observer := &recordingObserver{}
	session := paymentclient.NewSession(paymentclient.Tokens{AccessToken: "stale", RefreshToken: "revoked"}, observer)
	_, err := newAPI(server.URL, session, 3).Profile(context.Background())

	require.Error(t, err)
	assert.Equal(t, paymentclient.KindAuthExpired, paymentclient.KindOf(err))
	assert.True(t, session.LoggedOut())
	assert.Empty(t, session.AccessToken())
	_, _, _, logouts := observer.counts()
	assert.Equal(t, 1, logouts)
}

func TestUserDeletedLogsOutWithoutRefresh(t *testing.T) {
	var refreshes int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		writeJSON(w, http.StatusOK, map[string]string{"token": "fresh"})
	})
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, responses.UserDeletedError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	observer := &recordingObserver{}
	session := paymentclient.NewSession(paymentclient.Tokens{AccessToken: "access", RefreshToken: "refresh"}, observer)
	_, err := newAPI(server.URL, session, 3).Profile(context.Background())

	var apiErr *paymentclient.Error
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.UserDeleted())
	assert.Equal(t, int32(0), atomic.LoadInt32(&refreshes))
	assert.True(t, session.LoggedOut())
	_, _, _, logouts := observer.counts()
	assert.Equal(t, 1, logouts)
}

func TestSubscriptionRequiredIsNotRetried(t *testing.T) {
	var requests, refreshes int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
	})
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		writeJSON(w, http.StatusForbidden, responses.SubscriptionRequiredError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	session := paymentclient.NewSession(paymentclient.Tokens{AccessToken: "access", RefreshToken: "refresh"}, nil)
	_, err := newAPI(server.URL, session, 3).Profile(context.Background())

	assert.Equal(t, paymentclient.KindSubscriptionExpired, paymentclient.KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	assert.Equal(t, int32(0), atomic.LoadInt32(&refreshes))
	assert.False(t, session.LoggedOut())
	assert.Equal(t, "access", session.AccessToken())
}

func TestServerErrorsAreRetried(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, responses.GeneralServerError)
			return
		}
		profileHandler(w)
	}))
	defer server.Close()

	profile, err := newAPI(server.URL, nil, 3).Profile(context.Background())
	require.NoError(t, err)
	assert.True(t, profile.Active)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestValidationErrorsAreNotRetried(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		writeJSON(w, http.StatusBadRequest, responses.BadArgumentsError)
	}))
	defer server.Close()

	_, err := newAPI(server.URL, nil, 3).CheckPayment(context.Background(), "QRIS-1")
	assert.Equal(t, paymentclient.KindValidation, paymentclient.KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

type failingDoer struct {
	calls int32
}

func (d *failingDoer) Do(*http.Request) (*http.Response, error) {
	atomic.AddInt32(&d.calls, 1)
	return nil, errors.New("connection refused")
}

func TestNetworkErrorsExhaustRetries(t *testing.T) {
	doer := &failingDoer{}
	config := paymentclient.DefaultConfig()
	api := paymentclient.NewAPI(config, nil,
		paymentclient.WithHTTPClient(doer),
		paymentclient.WithRetryPolicy(paymentclient.ImmediateRetry(3)),
	)

	_, err := api.Plans(context.Background())
	assert.Equal(t, paymentclient.KindNetwork, paymentclient.KindOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&doer.calls))
}

func TestCancelledContextStopsRetries(t *testing.T) {
	doer := &failingDoer{}
	api := paymentclient.NewAPI(paymentclient.DefaultConfig(), nil, paymentclient.WithHTTPClient(doer))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := api.Plans(ctx)
	assert.Equal(t, paymentclient.KindNetwork, paymentclient.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, atomic.LoadInt32(&doer.calls), int32(1))
}

func TestLoginStoresTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, paymentclient.Tokens{AccessToken: "a", RefreshToken: "r"})
	}))
	defer server.Close()

	api := newAPI(server.URL, nil, 1)
	tokens, err := api.Login(context.Background(), "budi", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a", tokens.AccessToken)
	assert.Equal(t, tokens, api.Session().Tokens())
}

func TestServerErrorFailsOverToFallbackURL(t *testing.T) {
	var primaryHits, fallbackHits int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&primaryHits, 1)
		writeJSON(w, http.StatusBadGateway, responses.GeneralServerError)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fallbackHits, 1)
		profileHandler(w)
	}))
	defer fallback.Close()

	config := paymentclient.DefaultConfig()
	config.BaseURL = primary.URL
	config.BaseURLs = []string{fallback.URL + "/"}
	api := paymentclient.NewAPI(config, nil, paymentclient.WithRetryPolicy(paymentclient.ImmediateRetry(1)))

	profile, err := api.Profile(context.Background())
	require.NoError(t, err)
	assert.True(t, profile.Active)
	assert.Equal(t, int32(1), atomic.LoadInt32(&primaryHits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fallbackHits))

	// the host that answered stays active for later requests
	_, err = api.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&primaryHits))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fallbackHits))
}

func TestTokenRefreshFailsOver(t *testing.T) {
	var refreshes int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, responses.GeneralServerError)
	}))
	defer primary.Close()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		writeJSON(w, http.StatusOK, map[string]string{"token": "fresh"})
	})
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, responses.BadAuthError)
			return
		}
		profileHandler(w)
	})
	fallback := httptest.NewServer(mux)
	defer fallback.Close()

	config := paymentclient.DefaultConfig()
	config.BaseURL = primary.URL
	config.BaseURLs = []string{fallback.URL}
	session := paymentclient.NewSession(paymentclient.Tokens{AccessToken: "stale", RefreshToken: "refresh"}, nil)
	api := paymentclient.NewAPI(config, session, paymentclient.WithRetryPolicy(paymentclient.ImmediateRetry(1)))

	_, err := api.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, "fresh", session.AccessToken())
}
