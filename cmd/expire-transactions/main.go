package main

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/kinterstore/qrishub.go/db"
	"github.com/kinterstore/qrishub.go/lib/logging"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/sirupsen/logrus"
)

// Runs one expiry sweep and exits. Meant for a cron job when the server's
// own sweep is disabled or lagging behind.
func main() {

	c := &service.Config{}
	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		logrus.Fatalf("Error loading environment variables: %v", err)
	}
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn: c.SentryDSN,
		}); err != nil {
			logrus.Errorf("sentry init error: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}
	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logrus.Fatalf("Error initializing db connection: %v", err)
	}
	defer dbConn.Close()

	logger := logging.Logger(c.LogFilePath, c.LogLevel)
	svc := &service.QrishubService{
		Config:            c,
		DB:                dbConn,
		Logger:            logger,
		TransactionPubSub: service.NewPubsub(logger),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.DatabaseTimeout)*time.Second)
	defer cancel()

	count, err := svc.ExpireOverdueTransactions(ctx)
	if err != nil {
		sentry.CaptureException(err)
		logrus.Fatalf("Error expiring transactions: %v", err)
	}
	logrus.Infof("Expired %d transactions", count)

	subscriptions, err := svc.ExpireSubscriptions(ctx)
	if err != nil {
		sentry.CaptureException(err)
		logrus.Fatalf("Error expiring subscriptions: %v", err)
	}
	logrus.Infof("Expired %d subscriptions", subscriptions)
}
