package tripay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kinterstore/qrishub.go/common"
)

const (
	StatusUnpaid  = "UNPAID"
	StatusPaid    = "PAID"
	StatusExpired = "EXPIRED"
	StatusFailed  = "FAILED"
	StatusRefund  = "REFUND"
)

var ErrGatewayRejected = errors.New("tripay: request rejected")

// HTTPDoer is the part of *http.Client the gateway client needs.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type Client interface {
	CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*Transaction, error)
	TransactionDetail(ctx context.Context, reference string) (*Transaction, error)
	VerifyCallbackSignature(body []byte, signature string) bool
}

type OrderItem struct {
	Sku      string `json:"sku,omitempty"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type CreateTransactionRequest struct {
	Method        string      `json:"method"`
	MerchantRef   string      `json:"merchant_ref"`
	Amount        int64       `json:"amount"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	OrderItems    []OrderItem `json:"order_items"`
	CallbackUrl   string      `json:"callback_url,omitempty"`
	ReturnUrl     string      `json:"return_url,omitempty"`
	ExpiredTime   int64       `json:"expired_time"`
	Signature     string      `json:"signature"`
}

type Instruction struct {
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

type Transaction struct {
	Reference      string        `json:"reference"`
	MerchantRef    string        `json:"merchant_ref"`
	PaymentMethod  string        `json:"payment_method"`
	PaymentName    string        `json:"payment_name"`
	CustomerName   string        `json:"customer_name"`
	Amount         int64         `json:"amount"`
	FeeMerchant    int64         `json:"fee_merchant"`
	FeeCustomer    int64         `json:"fee_customer"`
	TotalFee       int64         `json:"total_fee"`
	AmountReceived int64         `json:"amount_received"`
	PayCode        string        `json:"pay_code"`
	PayUrl         string        `json:"pay_url"`
	CheckoutUrl    string        `json:"checkout_url"`
	QrString       string        `json:"qr_string"`
	QrUrl          string        `json:"qr_url"`
	Status         string        `json:"status"`
	ExpiredTime    int64         `json:"expired_time"`
	PaidAt         int64         `json:"paid_at"`
	Instructions   []Instruction `json:"instructions"`
}

// ExpiresAt returns the gateway expiry, zero when none was sent.
func (t *Transaction) ExpiresAt() time.Time {
	if t.ExpiredTime == 0 {
		return time.Time{}
	}
	return time.Unix(t.ExpiredTime, 0)
}

// CallbackPayload is the body Tripay posts to the callback url.
type CallbackPayload struct {
	Reference         string `json:"reference"`
	MerchantRef       string `json:"merchant_ref"`
	PaymentMethod     string `json:"payment_method"`
	PaymentMethodCode string `json:"payment_method_code"`
	TotalAmount       int64  `json:"total_amount"`
	FeeMerchant       int64  `json:"fee_merchant"`
	FeeCustomer       int64  `json:"fee_customer"`
	TotalFee          int64  `json:"total_fee"`
	AmountReceived    int64  `json:"amount_received"`
	IsClosedPayment   int    `json:"is_closed_payment"`
	Status            string `json:"status"`
	PaidAt            int64  `json:"paid_at"`
	Note              string `json:"note"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type DefaultClient struct {
	config *Config
	http   HTTPDoer
}

func NewClient(config *Config, doer HTTPDoer) *DefaultClient {
	if doer == nil {
		doer = &http.Client{Timeout: time.Duration(config.Timeout) * time.Second}
	}
	return &DefaultClient{
		config: config,
		http:   doer,
	}
}

func (client *DefaultClient) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*Transaction, error) {
	if req.CallbackUrl == "" {
		req.CallbackUrl = client.config.CallbackUrl
	}
	if req.ReturnUrl == "" {
		req.ReturnUrl = client.config.ReturnUrl
	}
	req.Signature = TransactionSignature(client.config.PrivateKey, client.config.MerchantCode, req.MerchantRef, req.Amount)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	result := &Transaction{}
	err = client.request(ctx, http.MethodPost, "/transaction/create", bytes.NewReader(body), result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (client *DefaultClient) TransactionDetail(ctx context.Context, reference string) (*Transaction, error) {
	result := &Transaction{}
	endpoint := "/transaction/detail?reference=" + url.QueryEscape(reference)
	err := client.request(ctx, http.MethodGet, endpoint, nil, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (client *DefaultClient) VerifyCallbackSignature(body []byte, signature string) bool {
	return VerifyCallbackSignature(client.config.PrivateKey, body, signature)
}

func (client *DefaultClient) request(ctx context.Context, method, endpoint string, body io.Reader, response interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, client.config.baseUrl()+endpoint, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+client.config.ApiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	env := envelope{}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("tripay: bad response status %d for %s: %w", resp.StatusCode, endpoint, err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		return fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, env.Message)
	}
	return json.Unmarshal(env.Data, response)
}

// MapStatus translates a gateway status into a stored transaction status and
// failure reason. ok is false for statuses that do not move a transaction.
func MapStatus(status string) (transactionStatus, failureReason string, ok bool) {
	switch status {
	case StatusPaid:
		return common.TransactionStatusPaid, "", true
	case StatusExpired:
		return common.TransactionStatusExpired, "", true
	case StatusFailed, StatusRefund:
		return common.TransactionStatusFailed, common.FailureReasonGatewayFailed, true
	}
	return "", "", false
}

// FormatInstructions flattens gateway instructions into display text.
func FormatInstructions(instructions []Instruction) string {
	var buf bytes.Buffer
	for i, ins := range instructions {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(ins.Title)
		buf.WriteString("\n")
		for n, step := range ins.Steps {
			fmt.Fprintf(&buf, "%d. %s\n", n+1, step)
		}
	}
	return buf.String()
}
