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

package out

import (
	"context"
	"errors"
	"tier-scanner/domain/entities"
	"time"
)

var (
	ErrQueueEmpty       = errors.New("queue is empty")
	ErrJobNotFound      = errors.New("job not found")
	ErrNotCancellable   = errors.New("job is not waiting in the queue")
	ErrRetriesExhausted = errors.New("job retries exhausted")
)

// JobQueue is a priority queue of scan jobs. Lower priority numbers are
// claimed first, equal priorities in submission order. Claim hands a job to
// exactly one caller.
//
//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../../mocks/mock_job_queue.go -package=mocks -source=JobQueue.go
type JobQueue interface {
	Enqueue(ctx context.Context, job entities.ScanJob) error
	Claim(ctx context.Context) (entities.QueuedJob, error)
	Ack(ctx context.Context, jobID string) error
	// Retry schedules the claimed job again after a backoff delay. It returns
	// ErrRetriesExhausted once the attempt ceiling is reached.
	Retry(ctx context.Context, jobID string, cause error) error
	Fail(ctx context.Context, jobID string, cause error) error
	Cancel(ctx context.Context, jobID string) error
	Counts(ctx context.Context) (entities.QueueCounts, error)
}

// LeaseRenewer is implemented by queues whose claims expire. Renew extends
// the claim of a job still held by the caller, ErrJobNotFound means the
// claim was already lost.
type LeaseRenewer interface {
	Renew(ctx context.Context, jobID string) error
	Lease() time.Duration
}
