package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notify/internal/config"
	"github.com/spec-kit/ticket-notify/internal/domain"
	"github.com/spec-kit/ticket-notify/internal/observability"
	"github.com/spec-kit/ticket-notify/internal/repository"
	"github.com/spec-kit/ticket-notify/internal/transport"
)

// Claimer fences concurrent workers off the same outcome. Implemented by
// persistence.Redis; replaced by a fake in tests.
type Claimer interface {
	AcquireClaim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseClaim(ctx context.Context, key string) error
}

type job struct {
	outcome       domain.DispatchOutcome
	notification  transport.Notification
	startAttempts int
}

// Dispatcher drives notification delivery through the transport with a
// bounded worker pool. Every (update, recipient) pair gets a durable
// PENDING outcome row before the first transport attempt, which makes
// delivery at-least-once across crashes and at-most-one-success across
// repeated Dispatch invocations.
type Dispatcher struct {
	outcomes  repository.DispatchOutcomeRepository
	claims    Claimer
	transport transport.Transport
	cfg       config.NotificationConfig
	logger    *zap.Logger
	metrics   *observability.Metrics

	jobs chan job
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Dependencies bundles collaborators for the dispatcher.
type Dependencies struct {
	Outcomes  repository.DispatchOutcomeRepository
	Claims    Claimer
	Transport transport.Transport
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// NewDispatcher constructs the dispatcher.
func NewDispatcher(deps Dependencies, cfg config.NotificationConfig) *Dispatcher {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Dispatcher{
		outcomes:  deps.Outcomes,
		claims:    deps.Claims,
		transport: deps.Transport,
		cfg:       cfg,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		jobs:      make(chan job, cfg.QueueSize),
		stop:      make(chan struct{}),
	}
}

// Start launches the worker pool and the recovery sweeper. The first
// sweep runs immediately so outcomes stranded by a previous crash are
// re-enqueued on boot.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.WorkerCount; i++ {
		d.wg.Add(1)
		go d.runWorker()
	}
	d.wg.Add(1)
	go d.runSweeper(ctx)
}

// Stop signals workers to exit and waits for them. An attempt already in
// flight against the transport finishes; its outcome row keeps anything
// unfinished recoverable on the next start.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
	d.wg.Wait()
}

// Dispatch records a PENDING outcome per recipient and hands the work to
// the queue. It never blocks on delivery and never reports transport
// failures: the reply that triggered it has already been persisted and
// must not be failed retroactively.
func (d *Dispatcher) Dispatch(ctx context.Context, ticket *domain.Ticket, update *domain.Update, recipients []domain.Recipient) error {
	var errs []error
	for _, recipient := range recipients {
		outcome, created, err := d.outcomes.CreatePending(ctx, update.ID, recipient)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !created {
			// A prior Dispatch owns this pair. Resolved outcomes are done;
			// unresolved ones are either queued, in flight, or picked up by
			// the sweeper. Either way there is nothing to enqueue.
			continue
		}
		d.enqueue(job{
			outcome:      *outcome,
			notification: renderNotification(ticket.Subject, update, recipient),
		})
	}
	return errors.Join(errs...)
}

// Sweep re-enqueues unresolved outcomes that have not progressed for at
// least a claim TTL. Anything younger may still be in flight.
func (d *Dispatcher) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-d.cfg.ClaimTTL())
	pending, err := d.outcomes.ListUnresolved(ctx, cutoff, d.cfg.QueueSize)
	if err != nil {
		return 0, err
	}
	for _, pd := range pending {
		update := pd.Update
		d.enqueue(job{
			outcome:       pd.Outcome,
			notification:  renderNotification(pd.TicketSubject, &update, pd.Outcome.Recipient),
			startAttempts: pd.Outcome.Attempts,
		})
	}
	return len(pending), nil
}

func (d *Dispatcher) enqueue(j job) {
	select {
	case d.jobs <- j:
		d.metrics.RecordDispatchEnqueued()
	default:
		// Queue full. The durable PENDING row means the sweeper retries
		// this later, so dropping here loses nothing.
		d.metrics.RecordDispatchDropped()
		d.logger.Warn("dispatch queue full, deferring to sweeper",
			zap.String("outcome_id", j.outcome.ID),
			zap.String("update_id", j.outcome.UpdateID),
			zap.String("recipient", j.outcome.Recipient.Handle))
	}
}

func (d *Dispatcher) runWorker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			return
		case j := <-d.jobs:
			d.process(j)
		}
	}
}

func (d *Dispatcher) runSweeper(ctx context.Context) {
	defer d.wg.Done()

	if _, err := d.Sweep(ctx); err != nil {
		d.logger.Error("startup dispatch sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(d.cfg.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if _, err := d.Sweep(ctx); err != nil {
				d.logger.Error("dispatch sweep failed", zap.Error(err))
			}
		}
	}
}

// process runs the retry loop for one outcome. No Registry or Ledger
// state is consulted here; the job carries a snapshot taken before any
// network call.
func (d *Dispatcher) process(j job) {
	ctx := context.Background()

	claimKey := "dispatch:claim:" + j.outcome.ID
	if d.claims != nil {
		ok, err := d.claims.AcquireClaim(ctx, claimKey, d.cfg.ClaimTTL())
		if err != nil {
			// Claim store down. The durable outcome row still dedups
			// repeated Dispatch calls, so proceed rather than stall.
			d.logger.Warn("dispatch claim unavailable", zap.String("outcome_id", j.outcome.ID), zap.Error(err))
		} else if !ok {
			return
		} else {
			defer func() { _ = d.claims.ReleaseClaim(ctx, claimKey) }()
		}
	}

	attempts := j.startAttempts
	for {
		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.TransportTimeout())
		err := d.transport.Send(sendCtx, j.notification)
		cancel()
		attempts++

		if err == nil {
			d.recordResult(ctx, j.outcome.ID, domain.DispatchStateSent, attempts, "")
			d.metrics.RecordDispatchSent()
			return
		}

		if transport.IsPermanent(err) {
			d.recordResult(ctx, j.outcome.ID, domain.DispatchStateFailedTerminal, attempts, err.Error())
			d.metrics.RecordDispatchFailure()
			d.logger.Error("notification permanently rejected",
				zap.String("outcome_id", j.outcome.ID),
				zap.String("recipient", j.outcome.Recipient.Handle),
				zap.Error(err))
			return
		}

		if attempts > d.cfg.MaxRetries+j.startAttempts {
			d.recordResult(ctx, j.outcome.ID, domain.DispatchStateFailedTerminal, attempts, "retry budget exhausted: "+err.Error())
			d.metrics.RecordDispatchFailure()
			d.logger.Error("notification retry budget exhausted",
				zap.String("outcome_id", j.outcome.ID),
				zap.String("recipient", j.outcome.Recipient.Handle),
				zap.Int("attempts", attempts),
				zap.Error(err))
			return
		}

		d.recordResult(ctx, j.outcome.ID, domain.DispatchStateFailedRetryable, attempts, err.Error())
		d.metrics.RecordDispatchRetry()

		backoff := d.cfg.BackoffBase() << (attempts - j.startAttempts - 1)
		timer := time.NewTimer(backoff)
		select {
		case <-d.stop:
			timer.Stop()
			// Outcome stays FAILED_RETRYABLE; the sweeper resumes it
			// after restart.
			return
		case <-timer.C:
		}
	}
}

func (d *Dispatcher) recordResult(ctx context.Context, outcomeID string, state domain.DispatchState, attempts int, lastError string) {
	if err := d.outcomes.RecordResult(ctx, outcomeID, state, attempts, lastError); err != nil {
		d.logger.Error("failed to record dispatch outcome",
			zap.String("outcome_id", outcomeID),
			zap.String("state", string(state)),
			zap.Error(err))
	}
}
