package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/paymentclient"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

// run wires an app for one command and always persists the session.
func run(flags *globalFlags, fn func(ctx context.Context, a *app, out io.Writer) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		out := cmd.OutOrStdout()
		a, err := newApp(flags, out)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := a.close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return fn(ctx, a, out)
	}
}

func resultError(r paymentclient.Result) error {
	if r.Success {
		return nil
	}
	if r.Error != nil {
		return r.Error
	}
	return errors.New(r.Message)
}

func printPayment(out io.Writer, t *models.Transaction) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	display := common.FormatStatus(common.PaymentStatusFromTransaction(t.Status, t.FailureReason))
	fmt.Fprintf(w, "Reference:\t%s\n", t.Reference)
	fmt.Fprintf(w, "Status:\t%s\n", display.Label)
	fmt.Fprintf(w, "Amount:\tRp %s\n", t.Amount)
	fmt.Fprintf(w, "Fee:\tRp %s\n", t.Fee)
	fmt.Fprintf(w, "Total:\tRp %s\n", t.TotalAmount)
	if !t.ExpiredAt.IsZero() {
		fmt.Fprintf(w, "Pay before:\t%s\n", t.ExpiredAt.Format("2006-01-02 15:04"))
	}
	if t.PaymentCode != "" {
		fmt.Fprintf(w, "Payment code:\t%s\n", t.PaymentCode)
	}
	if t.QrUrl != "" {
		fmt.Fprintf(w, "QR:\t%s\n", t.QrUrl)
	}
	w.Flush()
}

func loginCmd(flags *globalFlags) *cobra.Command {
	var login, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session tokens",
		RunE: run(flags, func(ctx context.Context, a *app, out io.Writer) error {
			if password == "" {
				password = os.Getenv("QRISHUB_PASSWORD")
			}
			if _, err := a.api.Login(ctx, login, password); err != nil {
				return err
			}
			fmt.Fprintf(out, "Logged in as %s\n", login)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&login, "login", "l", "", "Account login")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password, defaults to $QRISHUB_PASSWORD")
	_ = cmd.MarkFlagRequired("login")
	return cmd
}

func logoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveTokens(flags.sessionFile, paymentclient.Tokens{})
		},
	}
}

func plansCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the subscription plans on sale",
		RunE: run(flags, func(ctx context.Context, a *app, out io.Writer) error {
			plans, err := a.api.Plans(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tDAYS")
			for _, p := range plans {
				fmt.Fprintf(w, "%d\t%s\tRp %s\t%d\n", p.ID, p.Name, p.Price, p.DurationDays)
			}
			return w.Flush()
		}),
	}
}

func payCmd(flags *globalFlags) *cobra.Command {
	var (
		planID      int64
		paymentType string
		proofFile   string
		watch       bool
	)
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Create a payment for a plan and optionally wait for it",
		RunE: run(flags, func(ctx context.Context, a *app, out io.Writer) error {
			ctrl := a.controller(paymentType)
			r := ctrl.Create(ctx, planID)
			if err := resultError(r); err != nil {
				return err
			}
			printPayment(out, r.Transaction)
			if r.Transaction.QrString != "" {
				if qr, err := qrcode.New(r.Transaction.QrString, qrcode.Medium); err == nil {
					fmt.Fprintln(out, qr.ToSmallString(false))
				}
			}
			if proofFile != "" {
				if r = uploadFile(ctx, ctrl, proofFile); !r.Success {
					return resultError(r)
				}
			}
			if !watch {
				return nil
			}
			r = ctrl.Watch(ctx, a.config.PollInterval)
			if r.Error != nil {
				return r.Error
			}
			return nil
		}),
	}
	cmd.Flags().Int64Var(&planID, "plan", 0, "Plan id, see `qrishub plans`")
	cmd.Flags().StringVar(&paymentType, "type", common.PaymentTypeManual, "Payment type, manual or tripay")
	cmd.Flags().StringVar(&proofFile, "proof", "", "Upload this image as payment proof right away")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the payment is final")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func uploadFile(ctx context.Context, ctrl *paymentclient.Controller, path string) paymentclient.Result {
	content, err := os.ReadFile(path)
	if err != nil {
		return paymentclient.Result{Status: ctrl.Status(), Message: err.Error()}
	}
	return ctrl.UploadProof(ctx, paymentclient.Proof{Filename: filepath.Base(path), Content: content})
}

func checkCmd(flags *globalFlags) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "check <reference>",
		Short: "Show the current status of a payment",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = run(flags, func(ctx context.Context, a *app, out io.Writer) error {
		ctrl := a.controller(common.PaymentTypeManual)
		r := ctrl.Resume(ctx, cmd.Flags().Arg(0))
		if err := resultError(r); err != nil {
			return err
		}
		if watch && !r.Status.IsFinal() {
			r = ctrl.Watch(ctx, a.config.PollInterval)
			if err := resultError(r); err != nil {
				return err
			}
		}
		printPayment(out, ctrl.Transaction())
		return nil
	})
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the payment is final")
	return cmd
}

func uploadCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <reference> <image>",
		Short: "Upload a transfer receipt for a manual payment",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = run(flags, func(ctx context.Context, a *app, out io.Writer) error {
		ctrl := a.controller(common.PaymentTypeManual)
		if err := resultError(ctrl.Resume(ctx, cmd.Flags().Arg(0))); err != nil {
			return err
		}
		r := uploadFile(ctx, ctrl, cmd.Flags().Arg(1))
		if err := resultError(r); err != nil {
			return err
		}
		fmt.Fprintln(out, "Proof uploaded, an admin will verify it shortly.")
		return nil
	})
	return cmd
}

func cancelCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <reference>",
		Short: "Cancel an unpaid payment",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = run(flags, func(ctx context.Context, a *app, out io.Writer) error {
		ctrl := a.controller(common.PaymentTypeManual)
		if err := resultError(ctrl.Resume(ctx, cmd.Flags().Arg(0))); err != nil {
			return err
		}
		return resultError(ctrl.Cancel(ctx))
	})
	return cmd
}

func historyCmd(flags *globalFlags) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List your payments",
		RunE: run(flags, func(ctx context.Context, a *app, out io.Writer) error {
			list, err := a.api.ListPayments(ctx, page, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REFERENCE\tTYPE\tTOTAL\tSTATUS\tCREATED")
			for _, p := range list.Transactions {
				fmt.Fprintf(w, "%s\t%s\tRp %s\t%s\t%s\n", p.Reference, p.PaymentType, p.TotalAmount, p.Display.Label, p.CreatedAt.Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(w, "\npage %d, %d of %d payments\n", list.Page, len(list.Transactions), list.Total)
			return w.Flush()
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "Payments per page")
	return cmd
}

func profileCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show your account and subscription",
		RunE: run(flags, func(ctx context.Context, a *app, out io.Writer) error {
			profile, err := a.api.Profile(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			if profile.User != nil {
				fmt.Fprintf(w, "Login:\t%s\n", profile.User.Login)
			}
			if profile.Active && profile.Subscription != nil {
				fmt.Fprintf(w, "Subscription:\tactive until %s\n", profile.Subscription.EndsAt.Format("2006-01-02"))
			} else {
				fmt.Fprintln(w, "Subscription:\tnone")
			}
			return w.Flush()
		}),
	}
}
