package rabbitmq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/tripay"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

// bufPool is a classic buffer pool pattern that allows more clever reuse of heap memory.
// Instead of allocating new memory everytime we need to encode a transaction we
// reuse buffers from this buffer pool.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const (
	contentTypeJSON = "application/json"

	gatewayCallbackRoutingKey = "callback.tripay.#"
)

type (
	GatewayCallbackHandler      = func(ctx context.Context, payload *tripay.CallbackPayload) error
	SubscribeToTransactionsFunc = func() (transactions chan models.Transaction, unsubscribe func(), err error)
	EncodeTransactionFunc       = func(ctx context.Context, w io.Writer, t models.Transaction) error
)

type Client interface {
	SubscribeToGatewayCallbacks(context.Context, GatewayCallbackHandler) error
	StartPublishTransactions(context.Context, SubscribeToTransactionsFunc, EncodeTransactionFunc) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	amqpClient AMQPClient

	logger *lecho.Logger

	transactionExchange      string
	gatewayExchange          string
	gatewayConsumerQueueName string
}

type ClientOption = func(client *DefaultClient)

func WithTransactionExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.transactionExchange = exchange
	}
}

func WithGatewayExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.gatewayExchange = exchange
	}
}

func WithGatewayConsumerQueueName(name string) ClientOption {
	return func(client *DefaultClient) {
		client.gatewayConsumerQueueName = name
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

func NewClient(amqpClient AMQPClient, options ...ClientOption) (Client, error) {
	client := &DefaultClient{
		amqpClient: amqpClient,

		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),

		transactionExchange:      "qrishub_transaction",
		gatewayExchange:          "gateway_callback",
		gatewayConsumerQueueName: "qrishub_gateway_consumer",
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

func (client *DefaultClient) Close() error { return client.amqpClient.Close() }

// SubscribeToGatewayCallbacks consumes payment gateway callbacks that were
// received and verified by an upstream forwarder.
func (client *DefaultClient) SubscribeToGatewayCallbacks(ctx context.Context, handler GatewayCallbackHandler) error {
	deliveryChan, err := client.amqpClient.Listen(ctx, client.gatewayExchange, gatewayCallbackRoutingKey, client.gatewayConsumerQueueName)
	if err != nil {
		return err
	}

	client.logger.Info("Starting gateway callback consumer loop")
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case delivery, ok := <-deliveryChan:
			if !ok {
				return fmt.Errorf("disconnected from rabbitmq")
			}
			var payload tripay.CallbackPayload

			err := json.Unmarshal(delivery.Body, &payload)
			if err != nil || payload.Reference == "" {
				if err == nil {
					err = fmt.Errorf("gateway callback without reference")
				}
				captureErr(client.logger, err)

				// Badly formatted events are dropped. Requeueing them would
				// only loop them back to us.
				if err := delivery.Nack(false, false); err != nil {
					captureErr(client.logger, err)
				}

				continue
			}

			err = handler(ctx, &payload)
			if err != nil {
				captureErr(client.logger, err)

				// No requeue here either, the periodic status check and the
				// expiry sweep will pick the transaction up again.
				if err := delivery.Nack(false, false); err != nil {
					captureErr(client.logger, err)
				}

				continue
			}

			if err := delivery.Ack(false); err != nil {
				captureErr(client.logger, err)
			}
		}
	}
}

func (client *DefaultClient) StartPublishTransactions(ctx context.Context, subscribeFunc SubscribeToTransactionsFunc, payloadFunc EncodeTransactionFunc) error {
	err := client.amqpClient.ExchangeDeclare(
		client.transactionExchange,
		// topic is a type of exchange that allows routing messages to different queue's bases on a routing key
		"topic",
		// Durable and Non-Auto-Deleted exchanges will survive server restarts and remain
		// declared when there are no remaining bindings.
		true,
		false,
		// Non-Internal exchange's accept direct publishing
		false,
		// Nowait: We set this to false as we want to wait for a server response
		// to check whether the exchange was created succesfully
		false,
		nil,
	)
	if err != nil {
		return err
	}

	transactions, unsubscribe, err := subscribeFunc()
	if err != nil {
		return err
	}
	defer unsubscribe()

	client.logger.Info("Starting rabbitmq publisher")
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case t := <-transactions:
			if err := client.publishToTransactionExchange(ctx, t, payloadFunc); err != nil {
				captureErr(client.logger, err)
			}
		}
	}
}

func RoutingKey(t models.Transaction) string {
	return fmt.Sprintf("transaction.%s.%s", t.PaymentType, strings.ToLower(t.Status))
}

func (client *DefaultClient) publishToTransactionExchange(ctx context.Context, t models.Transaction, payloadFunc EncodeTransactionFunc) error {
	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)

	err := payloadFunc(ctx, payload, t)
	if err != nil {
		return err
	}

	err = client.amqpClient.PublishWithContext(ctx,
		client.transactionExchange,
		RoutingKey(t),
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			Body:        payload.Bytes(),
		},
	)
	if err != nil {
		return err
	}

	client.logger.Debugf("Successfully published transaction to rabbitmq with reference %s", t.Reference)

	return nil
}

func captureErr(logger *lecho.Logger, err error) {
	logger.Error(err)
	sentry.CaptureException(err)
}
