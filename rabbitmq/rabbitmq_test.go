package rabbitmq_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/rabbitmq"
	"github.com/kinterstore/qrishub.go/rabbitmq/mock_rabbitmq"
	"github.com/kinterstore/qrishub.go/tripay"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:generate mockgen -destination=./mock_rabbitmq/rabbitmq.go github.com/kinterstore/qrishub.go/rabbitmq AMQPClient

type fakeAcknowledger struct {
	acked  chan uint64
	nacked chan uint64
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{acked: make(chan uint64, 10), nacked: make(chan uint64, 10)}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked <- tag
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked <- tag
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.nacked <- tag
	return nil
}

func TestGatewayCallbackConsumer(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	amqpClient := mock_rabbitmq.NewMockAMQPClient(ctrl)
	client, err := rabbitmq.NewClient(amqpClient, rabbitmq.WithGatewayExchange("gw"), rabbitmq.WithGatewayConsumerQueueName("q"))
	require.NoError(t, err)

	ch := make(chan amqp.Delivery, 3)
	amqpClient.EXPECT().
		Listen(gomock.Any(), gomock.Eq("gw"), gomock.Eq("callback.tripay.#"), gomock.Eq("q")).
		Times(1).
		Return((<-chan amqp.Delivery)(ch), nil)

	ack := newFakeAcknowledger()
	paid, err := json.Marshal(&tripay.CallbackPayload{Reference: "T0001", Status: "PAID"})
	require.NoError(t, err)

	ch <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: paid}
	ch <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("not json")}
	ch <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte(`{"status":"PAID"}`)}

	handled := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = client.SubscribeToGatewayCallbacks(ctx, func(ctx context.Context, payload *tripay.CallbackPayload) error {
			handled <- payload.Reference
			return nil
		})
	}()

	select {
	case ref := <-handled:
		assert.Equal(t, "T0001", ref)
	case <-time.After(time.Second):
		t.Fatal("callback was not handled")
	}
	assert.Equal(t, uint64(1), <-ack.acked)
	assert.Equal(t, uint64(2), <-ack.nacked)
	assert.Equal(t, uint64(3), <-ack.nacked)
}

func TestPublishTransactions(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	amqpClient := mock_rabbitmq.NewMockAMQPClient(ctrl)
	client, err := rabbitmq.NewClient(amqpClient, rabbitmq.WithTransactionExchange("tx"))
	require.NoError(t, err)

	amqpClient.EXPECT().
		ExchangeDeclare(gomock.Eq("tx"), gomock.Eq("topic"), true, false, false, false, nil).
		Return(nil)

	published := make(chan amqp.Publishing, 1)
	amqpClient.EXPECT().
		PublishWithContext(gomock.Any(), gomock.Eq("tx"), gomock.Eq("transaction.manual.paid"), false, false, gomock.Any()).
		DoAndReturn(func(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
			published <- msg
			return nil
		})

	transactions := make(chan models.Transaction)
	unsubscribed := make(chan struct{})
	subscribe := func() (chan models.Transaction, func(), error) {
		return transactions, func() { close(unsubscribed) }, nil
	}
	encode := func(ctx context.Context, w io.Writer, t models.Transaction) error {
		return json.NewEncoder(w).Encode(map[string]string{"reference": t.Reference})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- client.StartPublishTransactions(ctx, subscribe, encode)
	}()

	transactions <- models.Transaction{Reference: "QRIS-1", PaymentType: "manual", Status: "PAID"}

	msg := <-published
	assert.Equal(t, "application/json", msg.ContentType)
	assert.JSONEq(t, `{"reference":"QRIS-1"}`, string(msg.Body))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	<-unsubscribed
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "transaction.tripay.expired", rabbitmq.RoutingKey(models.Transaction{PaymentType: "tripay", Status: "EXPIRED"}))
}
