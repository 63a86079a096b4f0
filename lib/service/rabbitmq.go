package service

import (
	"context"
	"encoding/json"
	"io"

	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/tripay"
)

type transactionPayload struct {
	TransactionEvent
	UserLogin string `json:"user_login"`
}

// SubscribeTransactions feeds the rabbitmq publisher with every update.
func (svc *QrishubService) SubscribeTransactions() (chan models.Transaction, func(), error) {
	transactions := make(chan models.Transaction, SubscriberBufferSize)
	subId, err := svc.TransactionPubSub.Subscribe(AllTransactionsTopic, transactions)
	if err != nil {
		return nil, nil, err
	}
	return transactions, func() {
		svc.TransactionPubSub.Unsubscribe(subId, AllTransactionsTopic)
	}, nil
}

func (svc *QrishubService) EncodeTransactionWithUserLogin(ctx context.Context, w io.Writer, t models.Transaction) error {
	user, err := svc.FindUser(ctx, t.UserID)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(&transactionPayload{
		TransactionEvent: NewTransactionEvent(t),
		UserLogin:        user.Login,
	})
}

// HandleGatewayCallbackMessage applies a callback forwarded over rabbitmq.
// The forwarder has already verified the gateway signature.
func (svc *QrishubService) HandleGatewayCallbackMessage(ctx context.Context, payload *tripay.CallbackPayload) error {
	_, err := svc.HandleGatewayCallback(ctx, payload)
	return err
}
