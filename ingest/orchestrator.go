package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sig-0/iq"

	"github.com/stablewatch/premiums/storage"
)

var (
	errInvalidProvider = errors.New("invalid provider")
	errInvalidInterval = errors.New("invalid interval")
)

const collectorBufferSize = 100

// Orchestrator is the main job scheduler for registered providers
type Orchestrator struct {
	storage storage.Storage
	logger  *slog.Logger

	registeredProviders sync.Map

	q             iq.Queue[scheduledFetch]
	queryInterval time.Duration
	retryDelay    time.Duration
	qMux          sync.Mutex
}

// New creates a new Orchestrator instance
func New(storage storage.Storage, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		storage:       storage,
		q:             iq.NewQueue[scheduledFetch](),
		queryInterval: time.Second,      // queue poll cadence
		retryDelay:    time.Second * 10, // reschedule delay after a failed fetch
	}

	// Apply the options
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Register registers a new provider with the orchestrator.
// The provider is immediately queued up for execution
func (o *Orchestrator) Register(p Provider) error {
	if p == nil || p.Name() == "" {
		return errInvalidProvider
	}

	if p.Interval() <= 0 {
		return errInvalidInterval
	}

	// Register the provider
	id := xid.New()
	o.registeredProviders.Store(id, p)

	o.logger.Info(
		"registered new provider",
		"name", p.Name(),
	)

	// Schedule the job
	o.scheduleFetch(
		time.Now().UTC(),
		id,
		p,
	)

	return nil
}

// Start starts the provider orchestration service loop [BLOCKING]
func (o *Orchestrator) Start(ctx context.Context) error {
	collectorCh := make(chan *workerResponse, collectorBufferSize)

	ticker := time.NewTicker(o.queryInterval)
	defer ticker.Stop()

	// spawnDue starts workers for all jobs that are due
	spawnDue := func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				nextJob := o.nextFetch()
				if nextJob == nil {
					return // nothing due
				}

				o.logger.Info(
					"scheduling fetch",
					"name", nextJob.provider.Name(),
				)

				info := &workerInfo{
					provider:   nextJob.provider,
					providerID: nextJob.providerID,
					resCh:      collectorCh,
				}

				go handleJob(ctx, info)
			}
		}
	}

	// Initialize the first set of due jobs (on boot)
	spawnDue()

	for {
		select {
		case <-ctx.Done():
			// The channel is left open; in-flight workers may still be
			// holding a send on it
			o.logger.Info("orchestrator service shut down")

			return nil
		case <-ticker.C:
			spawnDue()
		case response := <-collectorCh:
			o.collectResponse(ctx, response)
		}
	}
}

// collectResponse saves a worker's fetched rates and reschedules the provider
func (o *Orchestrator) collectResponse(ctx context.Context, response *workerResponse) {
	now := time.Now().UTC()

	rpRaw, ok := o.registeredProviders.Load(response.providerID)
	if !ok {
		o.logger.Error(
			"unable to load registered provider",
			"id", response.providerID.String(),
		)

		return
	}

	rp, _ := rpRaw.(Provider)

	if response.error != nil {
		o.logger.Error(
			"error encountered during rate fetch",
			"name", rp.Name(),
			"err", response.error.Error(),
		)

		// Retry the fetch job soon
		o.scheduleFetch(
			now.Add(o.retryDelay),
			response.providerID,
			rp,
		)

		return
	}

	// Save the provider-fetched rates
	for _, rate := range response.rates {
		saveCtx, cancelFn := context.WithTimeout(ctx, time.Second*10)

		if err := o.storage.SaveExchangeRate(saveCtx, rate); err != nil {
			o.logger.Error(
				"unable to save exchange rate",
				"base", rate.Base,
				"target", rate.Target,
				"source", rate.Source,
				"err", err,
			)
		} else {
			o.logger.Info(
				"saved exchange rate",
				"base", rate.Base,
				"target", rate.Target,
				"source", rate.Source,
				"rate", rate.Rate,
				"rate_type", rate.RateType,
				"effective_date", rate.AsOf.String(),
			)
		}

		cancelFn()
	}

	// Schedule the next fetch for this provider
	o.scheduleFetch(
		now.Add(rp.Interval()),
		response.providerID,
		rp,
	)
}

// scheduleFetch schedules a new provider fetch
func (o *Orchestrator) scheduleFetch(
	at time.Time,
	providerID xid.ID,
	provider Provider,
) {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	o.q.Push(scheduledFetch{
		at:         at,
		providerID: providerID,
		provider:   provider,
	})
}

// nextFetch pops the next due fetch job, as of the moment of calling
func (o *Orchestrator) nextFetch() *scheduledFetch {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	now := time.Now().UTC()

	if o.q.Len() == 0 {
		return nil // nothing to schedule, all jobs are running
	}

	// Check if the top element is due
	if o.q.Index(0).at.After(now) {
		return nil // latest job is in the future
	}

	return o.q.PopFront()
}
