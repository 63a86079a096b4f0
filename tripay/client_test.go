package tripay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) *Config {
	return &Config{
		ApiKey:       "DEV-key",
		PrivateKey:   "private-key",
		MerchantCode: "T0001",
		BaseUrl:      url,
		CallbackUrl:  "https://example.com/api/tripay/callback",
		Timeout:      5,
	}
}

func TestTransactionSignature(t *testing.T) {
	sig := TransactionSignature("private-key", "T0001", "SUB-1-1700000000000", 100000)
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, TransactionSignature("private-key", "T0001", "SUB-1-1700000000000", 100000))
	assert.NotEqual(t, sig, TransactionSignature("private-key", "T0001", "SUB-1-1700000000000", 100001))
}

func TestVerifyCallbackSignature(t *testing.T) {
	body := []byte(`{"reference":"T123","status":"PAID"}`)
	sig := CallbackSignature("private-key", body)
	assert.True(t, VerifyCallbackSignature("private-key", body, sig))
	assert.False(t, VerifyCallbackSignature("private-key", []byte(`{"reference":"T123","status":"FAILED"}`), sig))
	assert.False(t, VerifyCallbackSignature("other-key", body, sig))
	assert.False(t, VerifyCallbackSignature("", body, sig))
	assert.False(t, VerifyCallbackSignature("private-key", body, ""))
}

func TestCreateTransaction(t *testing.T) {
	var received CreateTransactionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/create", r.URL.Path)
		assert.Equal(t, "Bearer DEV-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"","data":{"reference":"T0001123","merchant_ref":"SUB-1-1","payment_method":"QRIS","payment_name":"QRIS","amount":100750,"total_fee":750,"qr_string":"000201","qr_url":"https://tripay.co.id/qr/T0001123","status":"UNPAID","expired_time":1700086400,"instructions":[{"title":"Scan","steps":["Open app","Scan code"]}]}}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), nil)
	tx, err := client.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Method:      "QRIS",
		MerchantRef: "SUB-1-1",
		Amount:      100000,
		OrderItems:  []OrderItem{{Name: "Basic", Price: 100000, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "T0001123", tx.Reference)
	assert.Equal(t, int64(750), tx.TotalFee)
	assert.Equal(t, "000201", tx.QrString)
	assert.Equal(t, int64(1700086400), tx.ExpiresAt().Unix())

	assert.Equal(t, TransactionSignature("private-key", "T0001", "SUB-1-1", 100000), received.Signature)
	assert.Equal(t, "https://example.com/api/tripay/callback", received.CallbackUrl)
}

func TestCreateTransactionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"message":"Invalid signature"}`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), nil).CreateTransaction(context.Background(), &CreateTransactionRequest{MerchantRef: "x"})
	assert.ErrorIs(t, err, ErrGatewayRejected)
	assert.Contains(t, err.Error(), "Invalid signature")
}

func TestTransactionDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/detail", r.URL.Path)
		assert.Equal(t, "T0001123", r.URL.Query().Get("reference"))
		w.Write([]byte(`{"success":true,"data":{"reference":"T0001123","status":"PAID","paid_at":1700000100}}`))
	}))
	defer srv.Close()

	tx, err := NewClient(testConfig(srv.URL), nil).TransactionDetail(context.Background(), "T0001123")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, tx.Status)
}

func TestMapStatus(t *testing.T) {
	status, reason, ok := MapStatus(StatusPaid)
	assert.True(t, ok)
	assert.Equal(t, common.TransactionStatusPaid, status)
	assert.Empty(t, reason)

	status, reason, ok = MapStatus(StatusRefund)
	assert.True(t, ok)
	assert.Equal(t, common.TransactionStatusFailed, status)
	assert.Equal(t, common.FailureReasonGatewayFailed, reason)

	_, _, ok = MapStatus(StatusUnpaid)
	assert.False(t, ok)
}

func TestFormatInstructions(t *testing.T) {
	out := FormatInstructions([]Instruction{{Title: "QRIS", Steps: []string{"Open app", "Scan"}}})
	assert.Equal(t, "QRIS\n1. Open app\n2. Scan\n", out)
}
