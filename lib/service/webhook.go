package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
)

type TransactionEvent struct {
	Event       string               `json:"event"`
	Transaction models.Transaction   `json:"transaction"`
	Display     common.StatusDisplay `json:"display"`
}

func NewTransactionEvent(t models.Transaction) TransactionEvent {
	event := common.TransactionEventStatusChanged
	if t.Status == common.TransactionStatusUnpaid {
		event = common.TransactionEventCreated
		if t.HasPaymentProof || t.PaymentProof != "" {
			event = common.TransactionEventProofUploaded
		}
	}
	t.WithoutProof()
	return TransactionEvent{
		Event:       event,
		Transaction: t,
		Display:     common.FormatStatus(common.PaymentStatusFromTransaction(t.Status, t.FailureReason)),
	}
}

func (svc *QrishubService) StartWebhookSubscription(ctx context.Context, url string) {

	svc.Logger.Infof("Starting webhook subscription with webhook url %s", url)
	transactions := make(chan models.Transaction, SubscriberBufferSize)
	subId, err := svc.TransactionPubSub.Subscribe(AllTransactionsTopic, transactions)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer svc.TransactionPubSub.Unsubscribe(subId, AllTransactionsTopic)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-transactions:
			svc.postToWebhook(ctx, t, url)
		}
	}
}

func (svc *QrishubService) postToWebhook(ctx context.Context, t models.Transaction, url string) {
	payload, err := json.Marshal(NewTransactionEvent(t))
	if err != nil {
		svc.Logger.Error(err)
		return
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxElapsedTime = time.Minute

	err = backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			msg, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("webhook status code was %d, body: %s", resp.StatusCode, msg)
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("webhook status code was %d, body: %s", resp.StatusCode, msg))
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		svc.Logger.Errorf("Webhook delivery for %s failed: %v", t.Reference, err)
	}
}
