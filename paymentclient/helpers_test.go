package paymentclient_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/paymentclient"
)

type recordingObserver struct {
	paymentclient.NopObserver

	mu       sync.Mutex
	changes  []common.PaymentStatus
	history  int
	profiles int
	logouts  int
}

func (o *recordingObserver) OnStatusChanged(reference string, from, to common.PaymentStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, to)
}

func (o *recordingObserver) OnHistoryRefresh() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history++
}

func (o *recordingObserver) OnProfileRefreshed(profile *paymentclient.Profile, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.profiles++
}

func (o *recordingObserver) OnLogout(reason error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logouts++
}

func (o *recordingObserver) counts() (changes, history, profiles, logouts int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.changes), o.history, o.profiles, o.logouts
}

// fakeServer answers the payment endpoints from a mutable transaction.
type fakeServer struct {
	*httptest.Server

	mu          sync.Mutex
	transaction models.Transaction
	keys        []string
	createFails int
	// checkDelay holds every status check, set before the first request
	checkDelay time.Duration

	creates  int32
	checks   int32
	uploads  int32
	cancels  int32
	profiles int32
}

func newFakeServer(t *testing.T) *fakeServer {
	f := &fakeServer{
		transaction: models.Transaction{
			ID:            1,
			Reference:     "QRIS-20261015-AAAA",
			PaymentMethod: common.PaymentMethodQris,
			PaymentType:   common.PaymentTypeManual,
			Amount:        models.AmountFromWhole(100000),
			TotalAmount:   models.AmountFromWhole(100000),
			Status:        common.TransactionStatusUnpaid,
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/qris-payment", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.creates, 1)
		f.mu.Lock()
		f.keys = append(f.keys, r.Header.Get(common.IdempotencyKeyHeader))
		fail := f.createFails > 0
		if fail {
			f.createFails--
		}
		f.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		f.writeTransaction(w, http.StatusCreated)
	})
	prefix := "/api/qris-payment/" + f.transaction.Reference
	mux.HandleFunc(prefix+"/check", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.checks, 1)
		if f.checkDelay > 0 {
			select {
			case <-time.After(f.checkDelay):
			case <-r.Context().Done():
				return
			}
		}
		f.writeTransaction(w, http.StatusOK)
	})
	mux.HandleFunc(prefix+"/upload", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.uploads, 1)
		f.writeTransaction(w, http.StatusOK)
	})
	mux.HandleFunc(prefix+"/cancel", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.cancels, 1)
		f.setStatus(common.TransactionStatusFailed, common.FailureReasonCancelled)
		f.writeTransaction(w, http.StatusOK)
	})
	mux.HandleFunc("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.profiles, 1)
		writeJSON(w, http.StatusOK, paymentclient.Profile{User: &models.User{ID: 7, Login: "budi"}, Active: true})
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeServer) idempotencyKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func (f *fakeServer) setStatus(status, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transaction.Status = status
	f.transaction.FailureReason = reason
}

func (f *fakeServer) writeTransaction(w http.ResponseWriter, code int) {
	f.mu.Lock()
	t := f.transaction
	f.mu.Unlock()
	writeJSON(w, code, paymentclient.Payment{
		Transaction: t,
		Display:     common.FormatStatus(common.PaymentStatusFromTransaction(t.Status, t.FailureReason)),
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func newAPI(url string, session *paymentclient.Session, attempts int) *paymentclient.API {
	config := paymentclient.DefaultConfig()
	config.BaseURL = url
	return paymentclient.NewAPI(config, session, paymentclient.WithRetryPolicy(paymentclient.ImmediateRetry(attempts)))
}
