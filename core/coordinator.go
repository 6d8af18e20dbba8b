package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/0xmeta/newsgate/ledger"
	"github.com/0xmeta/newsgate/relay"
	"github.com/0xmeta/newsgate/types"
)

// Coordinator settles verified authorizations asynchronously. Settlement runs
// off the request path: a slow or failed settlement never blocks or revokes a
// response that was already sent. Content release is decided solely by
// verification.
type Coordinator struct {
	relay  relay.Relay
	store  ledger.Store
	logger *slog.Logger

	maxAttempts     uint64
	initialInterval time.Duration
	submitTimeout   time.Duration

	queue chan settlementJob
	wg    sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

type settlementJob struct {
	paymentKey   string
	payload      types.Payload
	requirements types.PaymentRequirements
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithMaxAttempts sets the submission attempt ceiling.
func WithMaxAttempts(n uint64) CoordinatorOption {
	return func(c *Coordinator) { c.maxAttempts = n }
}

// WithRetryInterval sets the initial backoff interval between attempts.
func WithRetryInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.initialInterval = d }
}

// WithSubmitTimeout bounds one relay submission.
func WithSubmitTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.submitTimeout = d }
}

// NewCoordinator creates a Coordinator that settles through the given relay
// and records progress in the store.
func NewCoordinator(r relay.Relay, store ledger.Store, logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		relay:           r,
		store:           store,
		logger:          logger,
		maxAttempts:     4,
		initialInterval: 500 * time.Millisecond,
		submitTimeout:   60 * time.Second,
		queue:           make(chan settlementJob, 256),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the background settlement worker. Jobs run under the
// coordinator's own context, so a client disconnecting after its response was
// sent does not affect its settlement.
func (c *Coordinator) Start() {
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for job := range c.queue {
				c.settle(job)
			}
		}()
	})
}

// Stop drains the queue and waits for in-flight settlements to finish.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.queue)
	})
	c.wg.Wait()
}

// Enqueue hands a verified authorization to the settlement worker. It returns
// false when the queue is full; the payment record stays pending and is
// picked up by reconciliation.
func (c *Coordinator) Enqueue(paymentKey string, p types.Payload, r types.PaymentRequirements) bool {
	select {
	case c.queue <- settlementJob{paymentKey: paymentKey, payload: p, requirements: r}:
		return true
	default:
		c.logger.Error("settlement queue full, leaving payment pending",
			"payment_key", paymentKey)
		return false
	}
}

// resourceTarget extracts the endpoint path and category from a requirements
// resource URL.
func resourceTarget(resource string) (endpoint, category string) {
	u, err := url.Parse(resource)
	if err != nil || u.Path == "" {
		return "", ""
	}
	return u.Path, path.Base(u.Path)
}

// settle drives one payment through PENDING → SUBMITTED → CONFIRMED|FAILED.
func (c *Coordinator) settle(job settlementJob) {
	ctx := context.Background()

	// Idempotency: a payment key whose record already left PENDING has a
	// submission in flight or done. Re-submitting would risk a duplicate
	// on-chain transfer.
	rec, err := c.store.Get(ctx, job.paymentKey)
	if err != nil && err != ledger.ErrNotFound {
		c.logger.Error("settlement skipped, store unavailable",
			"payment_key", job.paymentKey, "error", err)
		return
	}
	if err == nil && rec.State != types.SettlementPending {
		c.logger.Info("settlement skipped, already handled",
			"payment_key", job.paymentKey, "state", string(rec.State))
		return
	}
	if err == ledger.ErrNotFound {
		// The gate failed to persist the record at verification time; rebuild
		// it here. A job only exists because verification passed, so the
		// record is verified by construction.
		now := time.Now()
		endpoint, category := resourceTarget(job.requirements.Resource)
		rec = types.PaymentRecord{
			ID:         uuid.NewString(),
			PaymentKey: job.paymentKey,
			Endpoint:   endpoint,
			Category:   category,
			Amount:     job.payload.Authorization.Value,
			Payer:      job.payload.Authorization.From,
			Verified:   true,
			State:      types.SettlementPending,
			CreatedAt:  now,
			VerifiedAt: &now,
		}
	}

	rec.State = types.SettlementSubmitted
	if err := c.store.Upsert(ctx, rec); err != nil {
		c.logger.Error("failed to mark payment submitted",
			"payment_key", job.paymentKey, "error", err)
		return
	}

	result, err := c.submitWithRetry(ctx, job)
	now := time.Now()

	if err != nil || !result.Success {
		rec.State = types.SettlementFailed
		reason := result.ErrorReason
		if reason == "" {
			reason = types.ErrorReasonRetriesExhausted
		}
		c.logger.Error("settlement failed, flagged for reconciliation",
			"payment_key", job.paymentKey,
			"reason", string(reason),
			"error", err)
	} else {
		rec.State = types.SettlementConfirmed
		rec.Settled = true
		rec.SettledAt = &now
		rec.TxHash = result.Transaction
		c.logger.Info("settlement confirmed",
			"payment_key", job.paymentKey, "tx", result.Transaction)
	}

	if err := c.store.Upsert(ctx, rec); err != nil {
		c.logger.Error("failed to record settlement outcome",
			"payment_key", job.paymentKey, "error", err)
	}
}

// submitWithRetry retries transient relay errors with exponential backoff up
// to the attempt ceiling. Rejections carrying an ErrorReason are permanent:
// resubmitting the same authorization cannot change them.
func (c *Coordinator) submitWithRetry(ctx context.Context, job settlementJob) (types.SettleResult, error) {
	operation := func() (types.SettleResult, error) {
		submitCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
		defer cancel()

		result, err := c.relay.Submit(submitCtx, job.payload, job.requirements)
		if err != nil {
			return types.SettleResult{}, fmt.Errorf("submit settlement: %w", err)
		}
		if !result.Success {
			return result, backoff.Permanent(fmt.Errorf("settlement rejected: %s", result.ErrorReason))
		}
		return result, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval

	result, err := backoff.RetryWithData(operation, backoff.WithMaxRetries(policy, c.maxAttempts-1))
	if err != nil && result.ErrorReason != "" {
		// Permanent rejection: surface the relay's reason, not the wrapper.
		return result, nil
	}
	return result, err
}
