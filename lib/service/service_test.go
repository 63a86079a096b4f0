package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/lib/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReference(t *testing.T) {
	now := time.UnixMilli(1760500000000)
	ref, err := newReference(now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^QRIS-1760500000000-[A-Z0-9]{8}$`), ref)

	other, err := newReference(now)
	require.NoError(t, err)
	assert.NotEqual(t, ref, other)

	assert.Equal(t, "SUB-7-1760500000000", newMerchantRef(7, now))
}

func TestRandInt(t *testing.T) {
	for i := 0; i < 100; i++ {
		v, err := randInt(1, 999)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, int64(1))
		assert.LessOrEqual(t, v, int64(999))
	}
}

func TestPaymentConfig(t *testing.T) {
	p := PaymentConfig{ExpiryHours: 12}
	assert.Equal(t, 12*time.Hour, p.Expiry(0))
	assert.Equal(t, 2*time.Hour, p.Expiry(2))
	assert.Equal(t, 24*time.Hour, PaymentConfig{}.Expiry(0))
	assert.Equal(t, 5*time.Minute, PaymentConfig{}.SweepInterval())
	assert.Equal(t, 30*time.Second, PaymentConfig{ExpirySweepInterval: 30}.SweepInterval())

	c := &Config{IdempotencyTTL: 60}
	assert.Equal(t, time.Minute, c.IdempotencyWindow())
	assert.Equal(t, 20, pageOffset(3, 10))
	assert.Equal(t, 0, pageOffset(0, 10))
}

func TestNewTransactionEvent(t *testing.T) {
	tx := models.Transaction{Reference: "QRIS-1", Status: common.TransactionStatusUnpaid}
	assert.Equal(t, common.TransactionEventCreated, NewTransactionEvent(tx).Event)

	tx.PaymentProof = "data:image/png;base64,AAAA"
	event := NewTransactionEvent(tx)
	assert.Equal(t, common.TransactionEventProofUploaded, event.Event)
	assert.Empty(t, event.Transaction.PaymentProof)
	assert.True(t, event.Transaction.HasPaymentProof)

	tx.Status = common.TransactionStatusFailed
	tx.FailureReason = common.FailureReasonCancelled
	event = NewTransactionEvent(tx)
	assert.Equal(t, common.TransactionEventStatusChanged, event.Event)
	assert.Equal(t, "CANCELLED", event.Display.Code)
}

func TestPostToWebhookRetriesServerErrors(t *testing.T) {
	var calls int32
	received := make(chan TransactionEvent, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var event TransactionEvent
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		received <- event
	}))
	defer server.Close()

	svc := &QrishubService{Logger: logging.Logger("", "error")}
	svc.postToWebhook(context.Background(), models.Transaction{Reference: "QRIS-9", Status: common.TransactionStatusPaid}, server.URL)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	event := <-received
	assert.Equal(t, "QRIS-9", event.Transaction.Reference)
	assert.Equal(t, "SETTLED", event.Display.Code)
}

func TestPostToWebhookDropsClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	svc := &QrishubService{Logger: logging.Logger("", "error")}
	svc.postToWebhook(context.Background(), models.Transaction{Reference: "QRIS-9"}, server.URL)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFailingWebhookDoesNotBlockPublishers(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	logger := logging.Logger("", "error")
	svc := &QrishubService{Logger: logger, TransactionPubSub: NewPubsub(logger)}
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		svc.StartWebhookSubscription(ctx, server.URL)
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		return svc.TransactionPubSub.SubscriberCount(AllTransactionsTopic) == 1
	}, time.Second, 5*time.Millisecond)

	published := make(chan struct{})
	go func() {
		for i := 0; i < 2*SubscriberBufferSize; i++ {
			svc.TransactionPubSub.PublishTransaction(models.Transaction{UserID: 1, Reference: "QRIS-9", Status: common.TransactionStatusPaid})
		}
		close(published)
	}()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publishing blocked while the webhook is failing")
	}
	assert.Positive(t, atomic.LoadInt32(&calls))

	cancel()
	<-stopped
}
