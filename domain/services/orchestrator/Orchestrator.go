/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"tier-scanner/domain/entities"
	"tier-scanner/domain/ports/out"
	"tier-scanner/domain/services"
	"tier-scanner/domain/services/aggregate"
	"tier-scanner/domain/services/scan"
	"tier-scanner/logging"
	"time"

	"github.com/uber-go/tally/v4"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	resultEventTimeout  = 5 * time.Second
	allScannersFailed   = "all scanners failed"

	// Leases are renewed several times per period, a missed round is harmless.
	leaseRenewalsPerPeriod = 3
)

// ResultRecorder receives every final result right after it is persisted.
// It runs on the worker, independently of the event stream.
type ResultRecorder interface {
	Record(ctx context.Context, result entities.AggregatedResult)
}

type Config struct {
	Workers      int
	PollInterval time.Duration
}

// Orchestrator runs a pool of workers, each one takes a job from the queue
// and processes it end to end. Final results go to the recorder, events are
// only written to the events channel and whoever reads it owns delivery.
type Orchestrator struct {
	queue        out.JobQueue
	store        out.ResultStore
	stager       services.Stager
	registry     *scan.Registry
	recorder     ResultRecorder
	events       chan<- *entities.Event
	config       Config
	metrics      tally.Scope
	logger       logging.Logger
	now          func() time.Time
	eventTimeout time.Duration
}

func NewOrchestrator(queue out.JobQueue, store out.ResultStore, stager services.Stager, registry *scan.Registry, recorder ResultRecorder, events chan<- *entities.Event, config Config, metrics tally.Scope, logger logging.Logger) *Orchestrator {
	if config.Workers <= 0 {
		config.Workers = 1
	}

	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}

	return &Orchestrator{
		queue:        queue,
		store:        store,
		stager:       stager,
		registry:     registry,
		recorder:     recorder,
		events:       events,
		config:       config,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
		eventTimeout: resultEventTimeout,
	}
}

// Run blocks until ctx is cancelled and every worker finished its current job.
func (o *Orchestrator) Run(ctx context.Context) {
	var wg sync.WaitGroup

	o.logger.Infow("Starting scan workers", "workers", o.config.Workers)

	for i := 0; i < o.config.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			o.work(ctx, worker)
		}(i)
	}

	wg.Wait()
	o.logger.Infow("Scan workers stopped")
}

func (o *Orchestrator) work(ctx context.Context, worker int) {
	for ctx.Err() == nil {
		queued, err := o.queue.Claim(ctx)
		if err != nil {
			if !errors.Is(err, out.ErrQueueEmpty) && ctx.Err() == nil {
				o.logger.Errorw("Failed to claim job", "worker", worker, "error", err)
			}

			o.sleep(ctx)
			continue
		}

		// The job in hand is finished even when shutdown starts.
		o.Process(context.WithoutCancel(ctx), queued)
	}
}

func (o *Orchestrator) sleep(ctx context.Context) {
	timer := time.NewTimer(o.config.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Process scans one claimed job. Scanner failures end up in the result,
// queue and store failures go through the retry path.
func (o *Orchestrator) Process(ctx context.Context, queued entities.QueuedJob) {
	start := o.now()
	job := queued.Job
	logger := o.logger

	logger.Infow("Processing job", "jobId", job.ID, "attempt", queued.Attempt, "scanners", job.Scanners)

	release := o.holdLease(ctx, job.ID)
	defer release()

	if err := o.store.PutJobStatus(ctx, job.ID, entities.Scanning, "", start); err != nil {
		o.infrastructureFailure(ctx, queued, fmt.Errorf("failed to persist scanning status. err: %w", err), start)
		return
	}

	storage, filename, stageErr := o.stager.Stage(ctx, job)
	defer o.stager.Release(storage)

	if stageErr != nil {
		logger.Warnw("File not staged, scanners depending on content will fail", "jobId", job.ID, "error", stageErr)
	}

	target := scan.Target{Job: job, Storage: storage, Filename: filename, StageErr: stageErr}
	perEngine := make(map[entities.ScannerID]entities.EngineResult, len(job.Scanners))

	for i, id := range job.Scanners {
		result := o.registry.Run(ctx, id, target)
		perEngine[id] = result

		o.metrics.Tagged(map[string]string{"scanner": string(id), "status": string(result.Status)}).Counter("engine_results").Inc(1)
		o.metrics.Tagged(map[string]string{"scanner": string(id)}).Timer("engine_duration").Record(time.Duration(result.DurationMs) * time.Millisecond)

		o.emitProgress(entities.NewProgressEvent(job, id, (i+1)*100/len(job.Scanners)))
	}

	result := aggregate.Aggregate(job, job.Scanners, perEngine, o.now().Sub(start))
	result.CreatedAt = o.now()

	status, reason := entities.Completed, ""
	if result.Status == entities.EngineErr {
		status, reason = entities.Failed, allScannersFailed
		result.Error = allScannersFailed
	}

	if err := o.store.Put(ctx, result); err != nil {
		o.infrastructureFailure(ctx, queued, fmt.Errorf("failed to persist result. err: %w", err), start)
		return
	}

	if err := o.store.PutJobStatus(ctx, job.ID, status, reason, o.now()); err != nil {
		o.infrastructureFailure(ctx, queued, fmt.Errorf("failed to persist final status. err: %w", err), start)
		return
	}

	if err := o.queue.Ack(ctx, job.ID); err != nil {
		logger.Errorw("Failed to ack job", "jobId", job.ID, "error", err)
	}

	o.metrics.Tagged(map[string]string{"status": string(status)}).Counter("jobs").Inc(1)
	o.metrics.Timer("job_duration").Record(o.now().Sub(start))

	logger.Infow("Job finished", "jobId", job.ID, "status", result.Status, "threatLevel", result.ThreatLevel, "scanTimeMs", result.ScanTimeMs)

	o.publish(ctx, result)
}

func (o *Orchestrator) infrastructureFailure(ctx context.Context, queued entities.QueuedJob, cause error, start time.Time) {
	job := queued.Job

	err := o.queue.Retry(ctx, job.ID, cause)
	if err == nil {
		o.metrics.Counter("job_retries").Inc(1)
		o.logger.Warnw("Job scheduled for retry", "jobId", job.ID, "attempt", queued.Attempt, "error", cause)
		return
	}

	if !errors.Is(err, out.ErrRetriesExhausted) {
		// The claim lease expires and the job is retried by the reaper.
		o.logger.Errorw("Failed to schedule retry", "jobId", job.ID, "attempt", queued.Attempt, "error", err, "cause", cause)
		return
	}

	o.logger.Errorw("Job retries exhausted", "jobId", job.ID, "attempt", queued.Attempt, "error", cause)

	if err := o.queue.Fail(ctx, job.ID, cause); err != nil {
		o.logger.Errorw("Failed to mark job as failed in the queue", "jobId", job.ID, "error", err)
	}

	o.abandon(ctx, job, cause, o.now().Sub(start))
}

// Abandon records the terminal failure of a job nobody will process again,
// such as a job whose lease expired once too often. The queue side is
// already settled by the caller.
func (o *Orchestrator) Abandon(ctx context.Context, job entities.ScanJob, cause error) {
	o.logger.Errorw("Job abandoned", "jobId", job.ID, "error", cause)
	o.abandon(ctx, job, cause, 0)
}

func (o *Orchestrator) abandon(ctx context.Context, job entities.ScanJob, cause error, scanTime time.Duration) {
	failed := aggregate.Failed(job, cause, scanTime)
	failed.CreatedAt = o.now()

	if err := o.store.Put(ctx, failed); err != nil {
		o.logger.Errorw("Failed to persist failed result", "jobId", job.ID, "error", err)
	}

	if err := o.store.PutJobStatus(ctx, job.ID, entities.Failed, cause.Error(), o.now()); err != nil {
		o.logger.Errorw("Failed to persist error status", "jobId", job.ID, "error", err)
	}

	o.metrics.Tagged(map[string]string{"status": string(entities.Failed)}).Counter("jobs").Inc(1)
	o.publish(ctx, failed)
}

// publish hands a final result to the recorder, then to the event stream.
func (o *Orchestrator) publish(ctx context.Context, result entities.AggregatedResult) {
	if o.recorder != nil {
		o.recorder.Record(ctx, result)
	}

	o.emitResult(entities.NewResultEvent(result))
}

// holdLease keeps renewing the claim on queues whose claims expire, so a
// live worker never loses its job to the reaper. The returned func stops
// the renewals and waits for them to end.
func (o *Orchestrator) holdLease(ctx context.Context, jobID string) func() {
	renewer, ok := o.queue.(out.LeaseRenewer)
	if !ok {
		return func() {}
	}

	interval := renewer.Lease() / leaseRenewalsPerPeriod
	if interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := renewer.Renew(ctx, jobID)
				if errors.Is(err, out.ErrJobNotFound) {
					o.logger.Errorw("Lease lost while processing job", "jobId", jobID)
					return
				}

				if err != nil && ctx.Err() == nil {
					o.logger.Warnw("Failed to renew lease", "jobId", jobID, "error", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// emitProgress drops the event when nobody keeps up with the stream.
func (o *Orchestrator) emitProgress(event entities.Event) {
	select {
	case o.events <- &event:
	default:
		o.metrics.Counter("events_dropped").Inc(1)
		o.logger.Debugw("Progress event dropped", "jobId", event.JobID, "percent", event.Percent)
	}
}

func (o *Orchestrator) emitResult(event entities.Event) {
	timer := time.NewTimer(o.eventTimeout)
	defer timer.Stop()

	select {
	case o.events <- &event:
	case <-timer.C:
		o.metrics.Counter("events_dropped").Inc(1)
		o.logger.Warnw("Result event dropped", "jobId", event.JobID)
	}
}
