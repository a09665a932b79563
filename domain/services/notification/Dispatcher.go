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
package notification

import (
	"context"
	"reflect"
	"strings"
	"tier-scanner/domain/entities"
	"tier-scanner/logging"
	"time"
)

// Job reacts to final results. UpdateGlobal runs periodically and once more
// at shutdown, jobs batch their external calls there.
type Job interface {
	Update(ctx context.Context, result entities.AggregatedResult)
	UpdateGlobal(ctx context.Context)
}

// waiter is implemented by jobs that finish work in the background.
type waiter interface {
	Wait()
}

type ResultCounter interface {
	Record(result entities.AggregatedResult)
}

// Dispatcher feeds every persisted result to the stats and the jobs. It is
// called by the worker that finished the job, so a lagging event stream
// never costs a count or an audit entry.
type Dispatcher struct {
	stats  ResultCounter
	jobs   []Job
	logger logging.Logger
}

func NewDispatcher(stats ResultCounter, jobs []Job, logger logging.Logger) *Dispatcher {
	return &Dispatcher{stats: stats, jobs: jobs, logger: logger}
}

func (d *Dispatcher) Record(ctx context.Context, result entities.AggregatedResult) {
	d.stats.Record(result)

	for _, job := range d.jobs {
		d.logger.Debugw("Running job", "job", reflect.ValueOf(job).Type(), "jobId", result.JobID)
		job.Update(ctx, result)
	}
}

// HandleAsync runs the periodic jobs. The returned channel is closed after
// the final round that follows the cancellation of ctx.
func (d *Dispatcher) HandleAsync(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				d.logger.Infow("Notifying external systems before termination")

				for _, job := range d.jobs {
					if background, ok := job.(waiter); ok {
						background.Wait()
					}

					job.UpdateGlobal(context.WithoutCancel(ctx))
				}

				d.logger.Infow("Notifying external systems before termination completed")

				return
			case <-ticker.C:
				for _, job := range d.jobs {
					job.UpdateGlobal(ctx)
				}
			}
		}
	}()

	return done
}

func (d *Dispatcher) Name() string {
	var jobs []string
	for _, job := range d.jobs {
		jobs = append(jobs, reflect.TypeOf(job).Elem().Name())
	}

	return "Result dispatcher with jobs: " + strings.Join(jobs, ", ")
}
