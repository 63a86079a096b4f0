package paymentclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/db/models"
	"github.com/kinterstore/qrishub.go/lib/proof"
	"github.com/rs/zerolog"
)

var (
	ErrNoPayment        = errors.New("no payment created yet")
	ErrNotAwaiting      = errors.New("payment is not awaiting payment")
	ErrManualOnly       = errors.New("proofs can only be uploaded for manual payments")
	ErrPaymentFinalized = errors.New("payment is already finalized")
	ErrPaymentExists    = errors.New("controller already tracks a payment")
)

type Proof struct {
	Filename string
	Content  []byte
}

// Controller drives one purchase intent from creation to a final state.
// It is safe for concurrent use.
type Controller struct {
	api          *API
	observer     Observer
	logger       zerolog.Logger
	paymentType  string
	maxProofSize int64
	pollInterval time.Duration
	checkTimeout time.Duration
	now          func() time.Time

	// one key per purchase intent, reused by every Create retry
	idempotencyKey string

	mu              sync.Mutex
	status          common.PaymentStatus
	transaction     *models.Transaction
	lastErr         *Error
	profileNotified bool
	pending         *pendingCheck
}

// pendingCheck is the status request shared by concurrent CheckStatus calls.
// It is aborted once every waiter has gone.
type pendingCheck struct {
	done    chan struct{}
	result  Result
	waiters int
	cancel  context.CancelFunc
}

type ControllerOption func(c *Controller)

func WithPaymentType(paymentType string) ControllerOption {
	return func(c *Controller) {
		c.paymentType = paymentType
	}
}

func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

func WithControllerLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithProofLimit(maxSize int64) ControllerOption {
	return func(c *Controller) {
		c.maxProofSize = maxSize
	}
}

func WithPollInterval(interval time.Duration) ControllerOption {
	return func(c *Controller) {
		c.pollInterval = interval
	}
}

// WithCheckTimeout bounds a shared status check, retries included.
func WithCheckTimeout(timeout time.Duration) ControllerOption {
	return func(c *Controller) {
		c.checkTimeout = timeout
	}
}

func NewController(api *API, observer Observer, options ...ControllerOption) *Controller {
	if observer == nil {
		observer = NopObserver{}
	}
	c := &Controller{
		api:            api,
		observer:       observer,
		logger:         zerolog.Nop(),
		paymentType:    common.PaymentTypeManual,
		maxProofSize:   common.MaxProofSize,
		pollInterval:   30 * time.Second,
		checkTimeout:   90 * time.Second,
		now:            time.Now,
		idempotencyKey: uuid.NewString(),
		status:         common.PaymentStatusCreating,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Controller) Status() common.PaymentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) Transaction() *models.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transaction == nil {
		return nil
	}
	t := *c.transaction
	return &t
}

func (c *Controller) IdempotencyKey() string { return c.idempotencyKey }

// LastError is the failure that put the controller into ERROR, if any.
func (c *Controller) LastError() *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Create opens the payment. Calling it again after a failure retries with
// the same idempotency key; after a success it returns the known payment.
func (c *Controller) Create(ctx context.Context, planID int64) Result {
	c.mu.Lock()
	if c.transaction != nil {
		status, t := c.status, *c.transaction
		c.mu.Unlock()
		return success(status, false, &t)
	}
	c.mu.Unlock()

	payment, err := c.api.CreatePayment(ctx, planID, c.paymentType, c.idempotencyKey)
	if err != nil {
		c.logger.Error().Err(err).Int64("plan_id", planID).Msg("payment creation failed")
		return c.fail(common.PaymentStatusCreating, err)
	}
	c.logger.Info().Str("reference", payment.Reference).Str("total", payment.TotalAmount.String()).Msg("payment created")
	return c.apply(ctx, &payment.Transaction)
}

// Resume picks up a payment created earlier, for example by another process.
func (c *Controller) Resume(ctx context.Context, reference string) Result {
	c.mu.Lock()
	if c.transaction != nil {
		status := c.status
		c.mu.Unlock()
		return failure(status, validationError(ErrPaymentExists.Error(), ErrPaymentExists))
	}
	c.mu.Unlock()

	payment, err := c.api.CheckPayment(ctx, reference)
	if err != nil {
		return c.fail(common.PaymentStatusCreating, err)
	}
	return c.apply(ctx, &payment.Transaction)
}

// CheckStatus may be called any number of times. Concurrent calls share one
// request and only an actual change fires side effects.
func (c *Controller) CheckStatus(ctx context.Context) Result {
	c.mu.Lock()
	if c.transaction == nil {
		c.mu.Unlock()
		return failure(common.PaymentStatusCreating, validationError(ErrNoPayment.Error(), ErrNoPayment))
	}
	if c.status.IsFinal() {
		status, t := c.status, *c.transaction
		c.mu.Unlock()
		return success(status, false, &t)
	}
	c.mu.Unlock()

	if r, expired := c.expireLocally(ctx); expired {
		return r
	}

	c.mu.Lock()
	p := c.pending
	if p == nil {
		// the request outlives the caller that started it
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.checkTimeout)
		p = &pendingCheck{done: make(chan struct{}), cancel: cancel}
		c.pending = p
		go c.runCheck(shared, p)
	}
	p.waiters++
	c.mu.Unlock()

	select {
	case <-p.done:
		return p.result
	case <-ctx.Done():
		c.mu.Lock()
		p.waiters--
		abandoned := p.waiters == 0
		if abandoned && c.pending == p {
			c.pending = nil
		}
		status := c.status
		c.mu.Unlock()
		if abandoned {
			p.cancel()
		}
		return failure(status, networkError(ctx.Err()))
	}
}

func (c *Controller) runCheck(ctx context.Context, p *pendingCheck) {
	defer p.cancel()
	p.result = c.check(ctx)
	c.mu.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.mu.Unlock()
	close(p.done)
}

func (c *Controller) check(ctx context.Context) Result {
	c.mu.Lock()
	previous := c.status
	if previous == common.PaymentStatusVerifying {
		// an abandoned check has not unwound yet
		previous = common.PaymentStatusFromTransaction(c.transaction.Status, c.transaction.FailureReason)
	}
	reference := c.transaction.Reference
	c.status = common.PaymentStatusVerifying
	c.mu.Unlock()

	payment, err := c.api.CheckPayment(ctx, reference)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			// every caller gave up, nothing went wrong on the wire
			return c.restore(previous, networkError(ctx.Err()))
		}
		return c.fail(previous, err)
	}
	return c.apply(ctx, &payment.Transaction)
}

func (c *Controller) restore(previous common.PaymentStatus, err *Error) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == common.PaymentStatusVerifying {
		c.status = previous
	}
	return failure(c.status, err)
}

// expireLocally ends an overdue payment without a round trip.
func (c *Controller) expireLocally(ctx context.Context) (Result, bool) {
	c.mu.Lock()
	if c.transaction == nil || c.status.IsFinal() || !c.transaction.IsOverdue(c.now()) {
		c.mu.Unlock()
		return Result{}, false
	}
	t := *c.transaction
	c.mu.Unlock()

	t.Status = common.TransactionStatusExpired
	return c.apply(ctx, &t), true
}

// UploadProof validates the file locally before anything is sent.
func (c *Controller) UploadProof(ctx context.Context, p Proof) Result {
	c.mu.Lock()
	status := c.status
	var t *models.Transaction
	if c.transaction != nil {
		copied := *c.transaction
		t = &copied
	}
	c.mu.Unlock()

	switch {
	case t == nil:
		return failure(status, validationError(ErrNoPayment.Error(), ErrNoPayment))
	case t.PaymentType != common.PaymentTypeManual:
		return failure(status, validationError(ErrManualOnly.Error(), ErrManualOnly))
	case status != common.PaymentStatusAwaitingPayment && status != common.PaymentStatusError:
		return failure(status, validationError(ErrNotAwaiting.Error(), ErrNotAwaiting))
	}
	if r, expired := c.expireLocally(ctx); expired {
		return r
	}
	if _, err := proof.Validate(p.Content, c.maxProofSize); err != nil {
		return failure(status, validationError(err.Error(), err))
	}
	filename := p.Filename
	if filename == "" {
		filename = "proof"
	}

	payment, err := c.api.UploadProof(ctx, t.Reference, filename, p.Content)
	if err != nil {
		return c.fail(status, err)
	}
	c.logger.Info().Str("reference", t.Reference).Int("bytes", len(p.Content)).Msg("payment proof uploaded")
	return c.apply(ctx, &payment.Transaction)
}

// Cancel abandons an unpaid payment.
func (c *Controller) Cancel(ctx context.Context) Result {
	c.mu.Lock()
	status := c.status
	var reference string
	if c.transaction != nil {
		reference = c.transaction.Reference
	}
	c.mu.Unlock()

	if reference == "" {
		return failure(status, validationError(ErrNoPayment.Error(), ErrNoPayment))
	}
	if r, expired := c.expireLocally(ctx); expired {
		return r
	}
	if status.IsFinal() {
		return failure(status, validationError(ErrPaymentFinalized.Error(), ErrPaymentFinalized))
	}
	if status != common.PaymentStatusAwaitingPayment && status != common.PaymentStatusError {
		return failure(status, validationError(ErrNotAwaiting.Error(), ErrNotAwaiting))
	}

	payment, err := c.api.CancelPayment(ctx, reference)
	if err != nil {
		return c.fail(status, err)
	}
	return c.apply(ctx, &payment.Transaction)
}

// Watch polls until the payment is final, the session can no longer make
// progress, or ctx is cancelled. Cancelling ctx also aborts the request in
// flight.
func (c *Controller) Watch(ctx context.Context, interval time.Duration) Result {
	if interval <= 0 {
		interval = c.pollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r := c.CheckStatus(ctx)
		if r.Status.IsFinal() || stopsWatching(r.Error) {
			return r
		}
		select {
		case <-ctx.Done():
			return failure(c.Status(), networkError(ctx.Err()))
		case <-ticker.C:
		}
	}
}

func stopsWatching(err *Error) bool {
	if err == nil {
		return false
	}
	switch err.Kind {
	case KindAuthExpired, KindSubscriptionExpired, KindValidation:
		return true
	}
	return false
}

// fail records err. Only exhausted NETWORK or SERVER failures enter ERROR,
// anything else leaves the previous state in place.
func (c *Controller) fail(previous common.PaymentStatus, err error) Result {
	e := asError(err)
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.Retryable() {
		c.status = common.PaymentStatusError
		c.lastErr = e
	} else if c.status == common.PaymentStatusVerifying {
		c.status = previous
	}
	return failure(c.status, e)
}

// apply moves the controller to the state the server reports. Final states
// are never left again.
func (c *Controller) apply(ctx context.Context, t *models.Transaction) Result {
	next := common.PaymentStatusFromTransaction(t.Status, t.FailureReason)

	c.mu.Lock()
	before := c.status
	if before == common.PaymentStatusVerifying || before == common.PaymentStatusError {
		if c.transaction != nil {
			before = common.PaymentStatusFromTransaction(c.transaction.Status, c.transaction.FailureReason)
		} else {
			before = common.PaymentStatusCreating
		}
	}
	if before.IsFinal() && next != before {
		c.status = before
		stored := *c.transaction
		c.mu.Unlock()
		c.logger.Warn().Str("reference", t.Reference).Str("reported", next.String()).Msg("ignoring status change of a final payment")
		return success(before, false, &stored)
	}
	stored := *t
	c.transaction = &stored
	c.status = next
	c.lastErr = nil
	changed := next != before
	settleNotify := changed && next == common.PaymentStatusSettled && !c.profileNotified
	if settleNotify {
		c.profileNotified = true
	}
	c.mu.Unlock()

	if changed {
		c.observer.OnStatusChanged(t.Reference, before, next)
		c.observer.OnHistoryRefresh()
	}
	if settleNotify {
		profile, err := c.api.Profile(ctx)
		c.observer.OnProfileRefreshed(profile, err)
	}
	result := stored
	return success(next, changed, &result)
}
