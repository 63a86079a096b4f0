package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/kinterstore/qrishub.go/db"
	"github.com/kinterstore/qrishub.go/db/migrations"
	"github.com/kinterstore/qrishub.go/docs"
	"github.com/kinterstore/qrishub.go/lib/idempotency"
	"github.com/kinterstore/qrishub.go/lib/logging"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/kinterstore/qrishub.go/lib/tokens"
	"github.com/kinterstore/qrishub.go/lib/transport"
	"github.com/kinterstore/qrishub.go/rabbitmq"
	"github.com/kinterstore/qrishub.go/tripay"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/uptrace/bun/migrate"
	ddEcho "gopkg.in/DataDog/dd-trace-go.v1/contrib/labstack/echo.v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// @title        qrishub.go
// @version      0.1.0
// @description  QRIS subscription payments with manual verification and Tripay gateway support.

// @BasePath  /

// @securitydefinitions.oauth2.password  OAuth2Password
// @tokenUrl                             /api/login
// @schemes                              https http
func main() {

	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger := logging.Logger(c.LogFilePath, c.LogLevel)

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}

	// Migrate the DB
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Duration(c.DatabaseTimeout)*time.Second)
	defer cancelStartup()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(startupCtx)
	if err != nil {
		logger.Fatalf("Error initializing db migrator: %v", err)
	}
	_, err = migrator.Migrate(startupCtx)
	if err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}
	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
	}

	// Without REDIS_URL the DB unique index alone guards idempotency keys
	var idempotencyStore idempotency.Store = idempotency.NopStore{}
	if c.RedisUrl != "" {
		redisClient, err := idempotency.NewRedisClient(c.RedisUrl)
		if err != nil {
			logger.Fatalf("Error connecting to redis: %v", err)
		}
		defer redisClient.Close()
		idempotencyStore = idempotency.NewRedisStore(redisClient, c.IdempotencyWindow())
	}

	// Tripay is optional, manual QRIS works without it
	var gateway tripay.Client
	tripayConfig, err := tripay.LoadConfig()
	if err != nil {
		logger.Fatalf("Error loading tripay config: %v", err)
	}
	if tripayConfig.Enabled() {
		gateway = tripay.NewClient(tripayConfig, nil)
		logger.Infof("Tripay gateway enabled for merchant %s", tripayConfig.MerchantCode)
	}

	// If no RABBITMQ_URI was provided we will not attempt to create a client
	// No rabbitmq features will be available in this case.
	var rabbitmqClient rabbitmq.Client
	if c.RabbitMQUri != "" {
		amqpClient, err := rabbitmq.DialAMQP(c.RabbitMQUri, rabbitmq.WithAmqpLogger(logger))
		if err != nil {
			logger.Fatal(err)
		}

		rabbitmqClient, err = rabbitmq.NewClient(amqpClient,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithTransactionExchange(c.RabbitMQTransactionExchange),
			rabbitmq.WithGatewayExchange(c.RabbitMQGatewayExchange),
			rabbitmq.WithGatewayConsumerQueueName(c.RabbitMQGatewayConsumerQueueName),
		)
		if err != nil {
			logger.Fatal(err)
		}

		// close the connection gently at the end of the runtime
		defer rabbitmqClient.Close()
	}

	svc := &service.QrishubService{
		Config:            c,
		DB:                dbConn,
		Logger:            logger,
		Gateway:           gateway,
		Idempotency:       idempotencyStore,
		TransactionPubSub: service.NewPubsub(logger),
		RabbitMQClient:    rabbitmqClient,
	}

	//init echo server
	e := transport.InitEcho(c, logger)
	//if Datadog is configured, add datadog middleware
	if c.DatadogAgentUrl != "" {
		tracer.Start(tracer.WithAgentAddr(c.DatadogAgentUrl))
		defer tracer.Stop()
		e.Use(ddEcho.Middleware(ddEcho.WithServiceName("qrishub.go")))
	}

	logMw := transport.CreateLoggingMiddleware(logger)
	// strict rate limit for payment creation and uploads
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit)

	secured := e.Group("", tokens.Middleware(c.JWTSecret), logMw)
	transport.RegisterEndpoints(svc, e, secured, strictRateLimitMiddleware, logMw)

	//Swagger API docs
	docs.SwaggerInfo.Host = c.Host
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	var backgroundWg sync.WaitGroup
	backGroundCtx, _ := signal.NotifyContext(context.Background(), os.Interrupt)

	// Expire overdue transactions in the background
	backgroundWg.Add(1)
	go func() {
		err := svc.StartExpiryRoutine(backGroundCtx)
		if err != nil && err != context.Canceled {
			sentry.CaptureException(err)
			svc.Logger.Error(err)
		}
		svc.Logger.Info("Expiry routine done")
		backgroundWg.Done()
	}()

	//Start webhook subscription
	if svc.Config.WebhookUrl != "" {
		backgroundWg.Add(1)
		go func() {
			svc.StartWebhookSubscription(backGroundCtx, svc.Config.WebhookUrl)
			svc.Logger.Info("Webhook routine done")
			backgroundWg.Done()
		}()
	}
	if svc.RabbitMQClient != nil {
		//Start rabbit publisher
		backgroundWg.Add(1)
		go func() {
			err := svc.RabbitMQClient.StartPublishTransactions(backGroundCtx,
				svc.SubscribeTransactions,
				svc.EncodeTransactionWithUserLogin,
			)
			if err != nil && err != context.Canceled {
				svc.Logger.Error(err)
				sentry.CaptureException(err)
			}

			svc.Logger.Info("Rabbit transaction publisher done")
			backgroundWg.Done()
		}()
		// Gateway callbacks forwarded over rabbitmq
		if svc.Gateway != nil {
			backgroundWg.Add(1)
			go func() {
				err := svc.RabbitMQClient.SubscribeToGatewayCallbacks(backGroundCtx, svc.HandleGatewayCallbackMessage)
				if err != nil && err != context.Canceled {
					//we want to restart in case of an error here
					sentry.CaptureException(err)
					svc.Logger.Fatal(err)
				}
				svc.Logger.Info("Rabbit gateway callback consumer done")
				backgroundWg.Done()
			}()
		}
	}

	//Start Prometheus server if necessary
	var echoPrometheus *echo.Echo
	if svc.Config.EnablePrometheus {
		echoPrometheus = transport.StartPrometheusEcho(logger, svc, e)
	}

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	if echoPrometheus != nil {
		if err := echoPrometheus.Shutdown(ctx); err != nil {
			e.Logger.Fatal(err)
		}
	}
	//Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	svc.Logger.Info("qrishub exiting gracefully. Goodbye.")
}
