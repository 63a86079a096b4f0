package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/lib"
	"github.com/kinterstore/qrishub.go/paymentclient"
	"github.com/rs/zerolog"
)

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".qrishub-session.json"
	}
	return filepath.Join(dir, "qrishub", "session.json")
}

func loadTokens(path string) (paymentclient.Tokens, error) {
	var tokens paymentclient.Tokens
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return tokens, nil
	}
	if err != nil {
		return tokens, err
	}
	err = json.Unmarshal(data, &tokens)
	return tokens, err
}

func saveTokens(path string, tokens paymentclient.Tokens) error {
	if tokens.AccessToken == "" {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// cliObserver reports lifecycle side effects on the terminal.
type cliObserver struct {
	logger zerolog.Logger
	out    io.Writer
}

func (o *cliObserver) OnStatusChanged(reference string, from, to common.PaymentStatus) {
	o.logger.Debug().Str("reference", reference).Str("from", from.String()).Str("to", to.String()).Msg("status changed")
	fmt.Fprintf(o.out, "%s: %s\n", reference, common.FormatStatus(to).Label)
}

func (o *cliObserver) OnHistoryRefresh() {}

func (o *cliObserver) OnProfileRefreshed(profile *paymentclient.Profile, err error) {
	if err != nil {
		o.logger.Warn().Err(err).Msg("could not refresh profile")
		return
	}
	if profile.Subscription != nil {
		fmt.Fprintf(o.out, "Subscription active until %s\n", profile.Subscription.EndsAt.Format("2006-01-02"))
	}
}

func (o *cliObserver) OnLogout(reason error) {
	o.logger.Warn().Err(reason).Msg("session ended")
	fmt.Fprintln(o.out, "You have been logged out, run `qrishub login` again.")
}

// app bundles what every command needs. close persists refreshed tokens.
type app struct {
	config   *paymentclient.Config
	api      *paymentclient.API
	observer *cliObserver
	logger   zerolog.Logger
	flags    *globalFlags
	closer   io.Closer
}

func newApp(flags *globalFlags, out io.Writer) (*app, error) {
	logger, closer := lib.Logger(flags.logFile, flags.verbose)
	config, err := paymentclient.LoadConfig()
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	tokens, err := loadTokens(flags.sessionFile)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	observer := &cliObserver{logger: logger, out: out}
	session := paymentclient.NewSession(tokens, observer)
	api := paymentclient.NewAPI(config, session, paymentclient.WithLogger(logger))
	return &app{config: config, api: api, observer: observer, logger: logger, flags: flags, closer: closer}, nil
}

func (a *app) controller(paymentType string) *paymentclient.Controller {
	return paymentclient.NewController(a.api, a.observer,
		paymentclient.WithPaymentType(paymentType),
		paymentclient.WithControllerLogger(a.logger),
		paymentclient.WithProofLimit(a.config.MaxProofSize),
		paymentclient.WithPollInterval(a.config.PollInterval),
	)
}

func (a *app) close() error {
	defer a.closer.Close()
	return saveTokens(a.flags.sessionFile, a.api.Session().Tokens())
}
