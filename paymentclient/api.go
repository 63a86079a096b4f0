package paymentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/rs/zerolog"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type Payment struct {
	models.Transaction
	Display common.StatusDisplay `json:"display"`
}

type PaymentList struct {
	Transactions []Payment `json:"transactions"`
	Total        int       `json:"total"`
	Page         int       `json:"page"`
	Limit        int       `json:"limit"`
}

type Profile struct {
	User         *models.User         `json:"user"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
	Active       bool                 `json:"active"`
}

// API talks to the qrishub server on behalf of one session.
type API struct {
	baseURLs []string
	active   atomic.Int32 // index of the last host that answered without a 5xx
	http     HTTPDoer
	session  *Session
	retry    RetryPolicy
	logger   zerolog.Logger
}

type Option func(api *API)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(api *API) {
		api.http = doer
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(api *API) {
		api.retry = policy
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(api *API) {
		api.logger = logger
	}
}

func NewAPI(config *Config, session *Session, options ...Option) *API {
	if config == nil {
		config = DefaultConfig()
	}
	if session == nil {
		session = NewSession(Tokens{}, nil)
	}
	api := &API{
		baseURLs: config.URLs(),
		http:     &http.Client{Timeout: config.RequestTimeout},
		session:  session,
		retry:    ExponentialRetry(config.RetryBaseDelay, config.RetryAttempts),
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(api)
	}
	return api
}

func (api *API) Session() *Session { return api.session }

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	headers     map[string]string
	anonymous   bool
}

func jsonRequest(method, path string, in interface{}) (request, error) {
	req := request{method: method, path: path}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return req, validationError("could not encode request", err)
		}
		req.body = body
		req.contentType = "application/json"
	}
	return req, nil
}

// do runs req under the retry policy. Only NETWORK and SERVER failures are
// retried; cancelling ctx stops both the wait and the in-flight request.
func (api *API) do(ctx context.Context, req request, out interface{}) error {
	operation := func() error {
		err := api.attempt(ctx, req, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(networkError(ctx.Err()))
		}
		if asError(err).Retryable() {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		api.logger.Warn().Err(err).Str("path", req.path).Dur("retry_in", wait).Msg("request failed, retrying")
	}
	err := backoff.RetryNotify(operation, backoff.WithContext(api.retry(), ctx), notify)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && !errors.As(err, new(*Error)) {
		return networkError(ctx.Err())
	}
	return asError(err)
}

// attempt sends req once, plus at most one replay after a token refresh.
func (api *API) attempt(ctx context.Context, req request, out interface{}) error {
	token := ""
	if !req.anonymous {
		token = api.session.AccessToken()
	}
	status, body, err := api.send(ctx, req, token)
	if err != nil {
		return networkError(err)
	}
	if !req.anonymous && (status == http.StatusUnauthorized || status == http.StatusForbidden) {
		apiErr := classifyResponse(status, body)
		if apiErr.Kind == KindSubscriptionExpired {
			return apiErr
		}
		if apiErr.UserDeleted() {
			api.session.logout(apiErr)
			return apiErr
		}
		token, err = api.session.refresh(ctx, token, api.refreshAccessToken)
		if err != nil {
			refreshErr := asError(err)
			if refreshErr.Retryable() {
				return refreshErr
			}
			api.session.logout(refreshErr)
			return &Error{Kind: KindAuthExpired, Status: refreshErr.Status, Code: refreshErr.Code, Message: "session expired", Err: refreshErr}
		}
		status, body, err = api.send(ctx, req, token)
		if err != nil {
			return networkError(err)
		}
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			apiErr = classifyResponse(status, body)
			if apiErr.Kind == KindAuthExpired {
				api.session.logout(apiErr)
			}
			return apiErr
		}
	}
	if status < 200 || status >= 300 {
		return classifyResponse(status, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindServer, Status: status, Message: "unexpected response body", Err: err}
	}
	return nil
}

// send tries every configured host once, starting with the last one that
// worked, and moves on after a network error or a 5xx.
func (api *API) send(ctx context.Context, req request, token string) (int, []byte, error) {
	if len(api.baseURLs) == 0 {
		return 0, nil, errors.New("no server url configured")
	}
	start := int(api.active.Load())
	var (
		status int
		body   []byte
		err    error
	)
	for i := range api.baseURLs {
		idx := (start + i) % len(api.baseURLs)
		status, body, err = api.sendTo(ctx, api.baseURLs[idx], req, token)
		if err == nil && status < http.StatusInternalServerError {
			if idx != start {
				api.active.Store(int32(idx))
				api.logger.Info().Str("url", api.baseURLs[idx]).Msg("switched to fallback server")
			}
			return status, body, nil
		}
		if ctx.Err() != nil {
			break
		}
		api.logger.Warn().Err(err).Int("status", status).Str("url", api.baseURLs[idx]).Msg("server unavailable")
	}
	return status, body, err
}

func (api *API) sendTo(ctx context.Context, baseURL string, req request, token string) (int, []byte, error) {
	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, baseURL+req.path, reader)
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := api.http.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func (api *API) refreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", &Error{Kind: KindAuthExpired, Message: "no refresh token"}
	}
	req, err := jsonRequest(http.MethodPost, "/api/user/refresh", map[string]string{"token": refreshToken})
	if err != nil {
		return "", err
	}
	req.anonymous = true
	var resp struct {
		Token string `json:"token"`
	}
	if err := api.attempt(ctx, req, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &Error{Kind: KindServer, Message: "refresh returned no token"}
	}
	api.logger.Debug().Msg("access token refreshed")
	return resp.Token, nil
}

// Login stores the issued tokens in the session.
func (api *API) Login(ctx context.Context, login, password string) (Tokens, error) {
	req, err := jsonRequest(http.MethodPost, "/api/login", map[string]string{"login": login, "password": password})
	if err != nil {
		return Tokens{}, err
	}
	req.anonymous = true
	var tokens Tokens
	if err := api.do(ctx, req, &tokens); err != nil {
		return Tokens{}, err
	}
	api.session.SetTokens(tokens)
	return tokens, nil
}

func (api *API) CreatePayment(ctx context.Context, planID int64, paymentType, idempotencyKey string) (*Payment, error) {
	req, err := jsonRequest(http.MethodPost, "/api/qris-payment", map[string]interface{}{
		"plan_id":      planID,
		"payment_type": paymentType,
	})
	if err != nil {
		return nil, err
	}
	req.headers = map[string]string{common.IdempotencyKeyHeader: idempotencyKey}
	payment := &Payment{}
	if err := api.do(ctx, req, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (api *API) CheckPayment(ctx context.Context, reference string) (*Payment, error) {
	payment := &Payment{}
	req := request{method: http.MethodGet, path: "/api/qris-payment/" + url.PathEscape(reference) + "/check"}
	if err := api.do(ctx, req, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (api *API) CancelPayment(ctx context.Context, reference string) (*Payment, error) {
	payment := &Payment{}
	req := request{method: http.MethodPost, path: "/api/qris-payment/" + url.PathEscape(reference) + "/cancel"}
	if err := api.do(ctx, req, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// UploadProof sends content as a multipart "proof" field.
func (api *API) UploadProof(ctx context.Context, reference, filename string, content []byte) (*Payment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("proof", filename)
	if err != nil {
		return nil, validationError("could not encode proof", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, validationError("could not encode proof", err)
	}
	if err := writer.Close(); err != nil {
		return nil, validationError("could not encode proof", err)
	}

	req := request{
		method:      http.MethodPost,
		path:        "/api/qris-payment/" + url.PathEscape(reference) + "/upload",
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
	}
	payment := &Payment{}
	if err := api.do(ctx, req, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (api *API) ListPayments(ctx context.Context, page, limit int) (*PaymentList, error) {
	list := &PaymentList{}
	req := request{method: http.MethodGet, path: fmt.Sprintf("/api/qris-payments?page=%d&limit=%d", page, limit)}
	if err := api.do(ctx, req, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (api *API) Profile(ctx context.Context) (*Profile, error) {
	profile := &Profile{}
	if err := api.do(ctx, request{method: http.MethodGet, path: "/api/user/profile"}, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (api *API) Plans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	plans := []models.SubscriptionPlan{}
	req := request{method: http.MethodGet, path: "/api/plans", anonymous: true}
	if err := api.do(ctx, req, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}
